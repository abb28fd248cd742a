package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMoviesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_movies_inserted_total",
		Help: "Catalog rows inserted across all refresh runs.",
	})
	metricCastInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_cast_inserted_total",
		Help: "Cast rows inserted across all refresh runs.",
	})
	metricCrewInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_crew_inserted_total",
		Help: "Crew rows inserted across all refresh runs.",
	})
	metricPagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_provider_pages_total",
		Help: "Discover pages fetched from the metadata provider.",
	})
	metricPageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_provider_page_failures_total",
		Help: "Discover pages skipped after a fetch failure.",
	})
)
