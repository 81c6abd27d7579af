package prometheus_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/larder/pkg/prometheus"
)

func scrape(t *testing.T, rec *prometheus.Recorder) string {
	t.Helper()

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)
	return w.Body.String()
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	t.Run("counts events per metric", func(t *testing.T) {
		t.Parallel()

		rec := prometheus.NewRecorder("")
		rec.Hit()
		rec.Hit()
		rec.Miss()
		rec.Stale()
		rec.Expired()
		rec.Expired()
		rec.Expired()

		body := scrape(t, rec)
		require.Contains(t, body, "larder_cache_hits_total 2")
		require.Contains(t, body, "larder_cache_misses_total 1")
		require.Contains(t, body, "larder_cache_stale_fallbacks_total 1")
		require.Contains(t, body, "larder_cache_expired_total 3")
	})

	t.Run("applies a custom namespace", func(t *testing.T) {
		t.Parallel()

		rec := prometheus.NewRecorder("checkout")
		rec.Hit()

		body := scrape(t, rec)
		require.Contains(t, body, "checkout_cache_hits_total 1")
		require.NotContains(t, body, "larder_cache_hits_total")
	})

	t.Run("recorders do not share a registry", func(t *testing.T) {
		t.Parallel()

		a := prometheus.NewRecorder("a")
		b := prometheus.NewRecorder("b")
		a.Hit()

		require.Contains(t, scrape(t, a), "a_cache_hits_total 1")
		require.False(t, strings.Contains(scrape(t, b), "a_cache_hits_total"))
	})
}
