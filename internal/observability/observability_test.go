package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-library-catalog/catalog"
	"github.com/goliatone/go-library-catalog/readcache"
	"github.com/goliatone/go-library-catalog/sessioncache"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger("warn", format)
		if err != nil {
			t.Fatalf("NewLogger(%s): %v", format, err)
		}
		if logger.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("%s logger should not enable debug", format)
		}
		_ = logger.Sync()
	}
	if _, err := NewLogger("loud", "json"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestMetricsCountEvents(t *testing.T) {
	m := NewMetrics(nil)

	m.IdentityLookup(catalog.KindAuthor, true)
	m.IdentityLookup(catalog.KindAuthor, false)
	m.IdentityLookup(catalog.KindAuthor, true)
	m.EntityWritten(catalog.KindBook, sessioncache.OpInsert)
	m.ScopeClosed(sessioncache.OutcomeRolledBack, 20*time.Millisecond)
	m.ReadCacheLookup(catalog.KindBook, readcache.OpRecord, false)
	m.ReadCacheInvalidated(catalog.KindBook, 3)
	m.ObserveRequest("/lib/{item}/{id}", 404, time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"identity hits", testutil.ToFloat64(m.identityLookups.WithLabelValues("author", "hit")), 2},
		{"identity misses", testutil.ToFloat64(m.identityLookups.WithLabelValues("author", "miss")), 1},
		{"inserts", testutil.ToFloat64(m.writes.WithLabelValues("book", "insert")), 1},
		{"rollbacks", testutil.ToFloat64(m.scopes.WithLabelValues("rolled_back")), 1},
		{"read misses", testutil.ToFloat64(m.readLookups.WithLabelValues("book", "record", "miss")), 1},
		{"invalidated", testutil.ToFloat64(m.invalidations.WithLabelValues("book")), 3},
		{"requests", testutil.ToFloat64(m.requests.WithLabelValues("/lib/{item}/{id}", "404")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(NewRegistry())
	m.ScopeClosed(sessioncache.OutcomeCommitted, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`catalog_scope_closed_total{outcome="committed"} 1`,
		"catalog_scope_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output lacks %q", want)
		}
	}
}
