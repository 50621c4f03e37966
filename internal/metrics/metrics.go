package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/l1jgo/pathfinder/internal/pathfind"
)

var (
	// searchTotal counts searches by heuristic and result.
	// Results: "found", "not_found", "exhausted", "invalid", "canceled", "other"
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathfinder_searches_total",
		Help: "Total path searches by heuristic and result",
	}, []string{"heuristic", "result"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pathfinder_search_duration_seconds",
		Help:    "Path search duration",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	}, []string{"heuristic"})

	closedCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathfinder_closed_cells",
		Help:    "Cells closed per search",
		Buckets: prometheus.ExponentialBuckets(16, 4, 8),
	})

	regionPops = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathfinder_region_pops",
		Help:    "Coarse link-search pops per region search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathfinder_octile_fallbacks_total",
		Help: "Region searches retried with the octile heuristic after exhausting the closed-cell limit",
	})

	// replayTotal counts replayed searches by outcome: "match", "regression", "error".
	replayTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathfinder_replays_total",
		Help: "Replayed searches by outcome",
	}, []string{"outcome"})
)

// Result maps a search error to its metrics label.
func Result(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, pathfind.ErrNotFound):
		return "not_found"
	case errors.Is(err, pathfind.ErrSearchExhausted):
		return "exhausted"
	case errors.Is(err, pathfind.ErrInvalidStart),
		errors.Is(err, pathfind.ErrInvalidDestination),
		errors.Is(err, pathfind.ErrInvalidPolicy):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}

// ObserveSearch records one finished search.
func ObserveSearch(stats pathfind.Stats, d time.Duration, err error) {
	h := stats.Heuristic.String()
	searchTotal.WithLabelValues(h, Result(err)).Inc()
	searchDuration.WithLabelValues(h).Observe(d.Seconds())
	closedCells.Observe(float64(stats.Closed))
	if stats.Heuristic == pathfind.HeuristicRegion {
		regionPops.Observe(float64(stats.RegionPops))
	}
}

func ObserveFallback() { fallbackTotal.Inc() }

func ObserveReplay(outcome string) { replayTotal.WithLabelValues(outcome).Inc() }

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Serve runs a /metrics listener until ctx is done.
func Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
