// Package metrics defines the Prometheus collectors for the recipe API.
// It is the single source of truth for metric names, labels and help strings.
//
// Collectors are created with promauto against the default registry; the
// server exposes them on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recipe_api"

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts completed requests.
// Labels:
//   - method: HTTP method
//   - route: chi route pattern (e.g. "/recipe/recipes/{id}"), never the raw path
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures handler latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Domain metrics ────────────────────────────────────────────────────────────

// UsersCreatedTotal counts new accounts.
// Label:
//   - kind: "user" or "superuser"
var UsersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of user accounts created.",
	},
	[]string{"kind"},
)

// TokensIssuedTotal counts token requests.
// Label:
//   - result: "issued" or "rejected"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_total",
		Help:      "Total number of token requests, by result.",
	},
	[]string{"result"},
)

// CatalogEntriesCreatedTotal counts created tags, ingredients and recipes.
// Label:
//   - kind: "tag", "ingredient" or "recipe"
var CatalogEntriesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_entries_created_total",
		Help:      "Total number of catalog entries created, by kind.",
	},
	[]string{"kind"},
)

// ImageUploadsTotal counts recipe image uploads.
// Label:
//   - result: "stored" or "rejected"
var ImageUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_uploads_total",
		Help:      "Total number of recipe image uploads, by result.",
	},
	[]string{"result"},
)
