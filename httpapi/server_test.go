package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-library-catalog/cache"
	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/librarydb"
	"github.com/goliatone/go-library-catalog/pkg/testsupport"
	"github.com/goliatone/go-library-catalog/readcache"
)

type requestLog struct {
	mu     sync.Mutex
	routes []string
}

func (l *requestLog) ObserveRequest(route string, status int, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.routes = append(l.routes, route+" "+http.StatusText(status))
}

func newServer(t *testing.T, opts ...Option) (http.Handler, *librarydb.DB) {
	t.Helper()
	db, err := librarydb.Connect(context.Background(), librarydb.Options{DSN: testsupport.DatabasePath(t)})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := cache.DefaultConfig()
	cfg.NotFound = catalog.ErrNotFound
	svc, err := cache.NewCacheService(cfg)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	reader := readcache.NewCachedReader(readcache.NewScopedReader(db), svc, cache.NewDefaultKeySerializer())
	return New(db, reader, opts...).Handler(), db
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, location string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, status, rec.Body.String())
	}
	if location != "" && rec.Header().Get("Location") != location {
		t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), location)
	}
}

func TestCreateRoute(t *testing.T) {
	h, _ := newServer(t)

	expect(t, get(t, h, "/lib/author/create?name=Test"), http.StatusFound, "./1")
	expect(t, get(t, h, "/lib/author/create?FAIL=FAIL"), http.StatusBadRequest, "")
	expect(t, get(t, h, "/lib/author/create?name=%20%20"), http.StatusBadRequest, "")
	expect(t, get(t, h, "/lib/author/create?name=%FF%FE+bad"), http.StatusBadRequest, "")

	rec := get(t, h, "/lib/author/create?name=test")
	expect(t, rec, http.StatusConflict, "")
	var body errorBody
	decode(t, rec, &body)
	if body.Status != http.StatusConflict || !strings.Contains(body.Error, "Test") {
		t.Errorf("error body = %+v", body)
	}

	expect(t, get(t, h, "/lib/FAIL/create?name=Test"), http.StatusNotFound, "")
}

func TestCreateBookWithRelations(t *testing.T) {
	h, _ := newServer(t)

	rec := get(t, h, "/lib/book/create?name=the+way+of+kings&author=brandon+sanderson"+
		"&series=the+stormlight+archive&series_number=1&release_date=2010-08-31")
	expect(t, rec, http.StatusFound, "./1")

	rec = get(t, h, "/lib/book/1")
	expect(t, rec, http.StatusOK, "")
	var view map[string]any
	decode(t, rec, &view)
	want := map[string]any{
		"model":         "Book",
		"name":          "The Way of Kings",
		"author":        "Brandon Sanderson",
		"series":        "The Stormlight Archive",
		"series_number": "1",
		"release_date":  "2010-08-31",
		"genre":         nil,
	}
	for k, v := range want {
		if view[k] != v {
			t.Errorf("view[%q] = %v, want %v", k, view[k], v)
		}
	}

	expect(t, get(t, h, "/lib/author/find?name=Brandon%20Sanderson"), http.StatusFound, "./1")
	expect(t, get(t, h, "/lib/book/create?name=x&series=the+expanse&genre=fantasy&series_number=abc"),
		http.StatusBadRequest, "")

	var index map[string]string
	rec = get(t, h, "/lib/genre/index")
	expect(t, rec, http.StatusOK, "")
	decode(t, rec, &index)
	if len(index) != 0 {
		t.Errorf("failed create leaked genres: %v", index)
	}
}

func TestFindRoute(t *testing.T) {
	h, _ := newServer(t)
	expect(t, get(t, h, "/lib/author/create?name=J.K.+Rowling"), http.StatusFound, "./1")

	expect(t, get(t, h, "/lib/author/find?name=j.k.%20rowling"), http.StatusFound, "./1")
	expect(t, get(t, h, "/lib/FAIL/find?name=j.k.%20rowling"), http.StatusNotFound, "")
	expect(t, get(t, h, "/lib/author/find?FAIL=j.k.%20rowling"), http.StatusNotFound, "")
	expect(t, get(t, h, "/lib/author/find?name=FAIL"), http.StatusNotFound, "")
}

func TestReadRoute(t *testing.T) {
	h, _ := newServer(t)
	expect(t, get(t, h, "/lib/genre/create?name=fantasy"), http.StatusFound, "./1")

	rec := get(t, h, "/lib/genre/1")
	expect(t, rec, http.StatusOK, "")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	expect(t, get(t, h, "/lib/genre/999"), http.StatusNotFound, "")
	expect(t, get(t, h, "/lib/genre/abc"), http.StatusNotFound, "")
}

func TestUpdateRoute(t *testing.T) {
	h, _ := newServer(t)
	expect(t, get(t, h, "/lib/author/create?name=John+Green"), http.StatusFound, "./1")
	expect(t, get(t, h, "/lib/author/create?name=TEST"), http.StatusFound, "./2")

	// Prime the read cache so the update has to invalidate it.
	expect(t, get(t, h, "/lib/author/1"), http.StatusOK, "")

	expect(t, get(t, h, "/lib/author/1/update?name=Hank+Green"), http.StatusFound, "../1")
	rec := get(t, h, "/lib/author/1")
	var view map[string]any
	decode(t, rec, &view)
	if view["name"] != "Hank Green" {
		t.Errorf("name after update = %v, want Hank Green", view["name"])
	}

	expect(t, get(t, h, "/lib/author/1/update?FAIL=FAIL"), http.StatusBadRequest, "")
	expect(t, get(t, h, "/lib/author/1/update?name=test"), http.StatusConflict, "")
	expect(t, get(t, h, "/lib/author/9/update?name=Nobody"), http.StatusNotFound, "")
}

func TestUpdateRouteAcceptsPost(t *testing.T) {
	h, _ := newServer(t)
	expect(t, get(t, h, "/lib/book/create?name=words+of+radiance"), http.StatusFound, "./1")

	req := httptest.NewRequest(http.MethodPost, "/lib/book/1/update", strings.NewReader("series_number=2&genre=fantasy"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	expect(t, rec, http.StatusFound, "../1")

	var view map[string]any
	decode(t, get(t, h, "/lib/book/1"), &view)
	if view["series_number"] != "2" || view["genre"] != "Fantasy" {
		t.Errorf("view = %v", view)
	}
}

func TestDeleteRoute(t *testing.T) {
	h, _ := newServer(t)
	expect(t, get(t, h, "/lib/author/create?name=brandon+sanderson"), http.StatusFound, "./1")
	expect(t, get(t, h, "/lib/author/index"), http.StatusOK, "")

	rec := get(t, h, "/lib/author/1/delete")
	expect(t, rec, http.StatusOK, "")
	if got := rec.Body.String(); got != `Deleted: Author("Brandon Sanderson")` {
		t.Errorf("body = %q", got)
	}

	var index map[string]string
	decode(t, get(t, h, "/lib/author/index"), &index)
	if len(index) != 0 {
		t.Errorf("index after delete = %v", index)
	}
	expect(t, get(t, h, "/lib/author/1/delete"), http.StatusNotFound, "")
}

func TestIndexRoute(t *testing.T) {
	h, db := newServer(t)
	if _, err := db.Populate(context.Background()); err != nil {
		t.Fatalf("populate: %v", err)
	}

	rec := get(t, h, "/lib/book/index")
	expect(t, rec, http.StatusOK, "")
	var index map[string]string
	decode(t, rec, &index)
	if len(index) != 4 || index["3"] != "Harry Potter and the Sorcerer's Stone" {
		t.Errorf("book index = %v", index)
	}
	expect(t, get(t, h, "/lib/nothing/index"), http.StatusNotFound, "")
}

func TestHomeHealthAndMetrics(t *testing.T) {
	obs := &requestLog{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	healthy := true
	h, _ := newServer(t,
		WithVersion("1.2.3"),
		WithRequestObserver(obs),
		WithMetricsHandler(metrics),
		WithHealthCheck(func(context.Context) error {
			if !healthy {
				return errors.New("down")
			}
			return nil
		}),
	)

	rec := get(t, h, "/")
	expect(t, rec, http.StatusOK, "")
	if rec.Body.String() != "<b>Library Catalog v1.2.3</b>" {
		t.Errorf("home = %q", rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	expect(t, get(t, h, "/healthz"), http.StatusOK, "")
	healthy = false
	expect(t, get(t, h, "/healthz"), http.StatusServiceUnavailable, "")
	expect(t, get(t, h, "/metrics"), http.StatusOK, "")
	expect(t, get(t, h, "/lib/book/1"), http.StatusNotFound, "")

	want := []string{"/ OK", "/healthz OK", "/healthz Service Unavailable", "/metrics OK", "/lib/{item}/{id:[0-9]+} Not Found"}
	if strings.Join(obs.routes, "|") != strings.Join(want, "|") {
		t.Errorf("observed routes = %v, want %v", obs.routes, want)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	h, _ := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("request id = %q, want req-42", got)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{catalog.ErrNotFound, http.StatusNotFound},
		{&catalog.DuplicateNameError{Kind: catalog.KindGenre, Name: "Fantasy"}, http.StatusConflict},
		{&catalog.UnknownAttributeError{Kind: catalog.KindGenre, Attr: "x"}, http.StatusBadRequest},
		{&catalog.PersistenceError{Op: "insert", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{catalog.ErrScopeClosed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
