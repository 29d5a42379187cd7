package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/recipe-api/internal/metrics"
)

// Metrics records request count and latency per method and route pattern.
// Route patterns keep label cardinality bounded: /recipe/recipes/1 and
// /recipe/recipes/2 both count as /recipe/recipes/{id}.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		metrics.HTTPRequestsTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).
			Inc()
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())
	})
}
