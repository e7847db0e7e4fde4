package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFixtureJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.json")
	if err := os.WriteFile(path, []byte(`{"books": 4, "genres": ["Fantasy", "Contemporary"]}`), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var got struct {
		Books  int      `json:"books"`
		Genres []string `json:"genres"`
	}
	LoadFixtureJSON(t, path, &got)

	if got.Books != 4 || len(got.Genres) != 2 || got.Genres[1] != "Contemporary" {
		t.Errorf("unexpected fixture %+v", got)
	}
}

func TestMarshalGolden(t *testing.T) {
	got := string(MarshalGolden(t, map[int64]string{2: "b", 1: "a"}))
	want := "{\n  \"1\": \"a\",\n  \"2\": \"b\"\n}\n"
	if got != want {
		t.Errorf("MarshalGolden = %q, want %q", got, want)
	}
}

func TestCompareWithGoldenCreatesMissingFile(t *testing.T) {
	t.Setenv(UpdateGoldenEnv, "")
	path := filepath.Join(t.TempDir(), "golden", "index.json")

	CompareWithGolden(t, path, []byte("first\n"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("golden file was not written: %v", err)
	}
	if string(data) != "first\n" {
		t.Errorf("golden content = %q", data)
	}

	// trailing whitespace differences are ignored
	CompareWithGolden(t, path, []byte("first"))
}

func TestCompareWithGoldenUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	WriteGolden(t, path, []byte("old"))

	t.Setenv(UpdateGoldenEnv, "1")
	CompareWithGolden(t, path, []byte("new"))

	if data := LoadFixture(t, path); string(data) != "new" {
		t.Errorf("golden content = %q, want new", data)
	}
}

func TestPaths(t *testing.T) {
	if got := FixturePath("scenario.json"); got != filepath.Join("testdata", "scenario.json") {
		t.Errorf("FixturePath = %q", got)
	}
	if got := GoldenPath("book_index.json"); got != filepath.Join("testdata", "golden", "book_index.json") {
		t.Errorf("GoldenPath = %q", got)
	}
	db := DatabasePath(t)
	if !strings.HasSuffix(db, "catalog.sqlite") {
		t.Errorf("DatabasePath = %q", db)
	}
	if _, err := os.Stat(filepath.Dir(db)); err != nil {
		t.Errorf("database directory missing: %v", err)
	}
}
