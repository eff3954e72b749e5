package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/opencorp/filing-gateway/govtalk"
	"github.com/opencorp/filing-gateway/store"
	"github.com/opencorp/filing-gateway/version"
	"github.com/opencorp/filing-gateway/watcher"

	"github.com/cenkalti/backoff/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func NewCmdServer(logger logrus.FieldLogger, config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the application server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.WithField("v", version.VERSION).Info("Starting server...")
			return doServer(logger, config)
		},
	}
}

func doServer(logger logrus.FieldLogger, config *Config) error {
	var w *watcher.Watcher
	var g run.Group
	{
		var err error
		w, err = server(logger, config)
		if err != nil {
			return err
		}

		g.Add(func() error {
			w.Run()
			return nil
		}, func(error) {
			w.Stop()
		})
	}
	{
		ln, err := net.Listen("tcp", ":6060")
		if err != nil {
			return err
		}
		logger.WithField("addr", ln.Addr().String()).Info("HTTP server listening")

		g.Add(func() error {
			mux := http.NewServeMux()

			// Health check.
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				fmt.Fprintln(w, "OK")
			})

			// Prometheus metrics.
			mux.Handle("/metrics", promhttp.Handler())

			// Profiling data.
			mux.HandleFunc("/debug/pprof/", pprof.Index)
			mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
			mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
			mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
			mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
			mux.Handle("/debug/pprof/block", pprof.Handler("block"))
			mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
			mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
			mux.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))

			return http.Serve(ln, mux)
		}, func(error) {
			ln.Close()
		})
	}
	{
		cancel := make(chan struct{})

		g.Add(func() error {
			err := interrupt(cancel, w)
			logger.Warn("Shutting down...")
			return err
		}, func(error) {
			close(cancel)
		})
	}

	return g.Run()
}

func server(logger logrus.FieldLogger, config *Config) (*watcher.Watcher, error) {
	metrics := watcher.Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "filing_gateway",
			Name:      "watcher_cycles_total",
			Help:      "The total number of status cycles run.",
		}),
		StatusesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "filing_gateway",
			Name:      "statuses_applied_total",
			Help:      "The total number of submission statuses applied.",
		}),
		DocumentsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "filing_gateway",
			Name:      "documents_fetched_total",
			Help:      "The total number of documents fetched.",
		}),
		BatchesAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "filing_gateway",
			Name:      "batches_aborted_total",
			Help:      "The total number of status batches abandoned before acknowledgement.",
		}),
	}
	prometheus.MustRegister(metrics.Cycles, metrics.StatusesApplied, metrics.DocumentsFetched, metrics.BatchesAborted)

	ctx := context.Background()

	var db *store.Postgres
	{
		pool, err := connectDatabase(ctx, logger, config.Database.URL)
		if err != nil {
			return nil, err
		}
		db, err = store.NewPostgres(ctx, pool)
		if err != nil {
			return nil, errors.Wrap(err, "preparing database")
		}
	}

	creds := govtalk.NewCredentials(
		config.Gateway.PresenterEmail,
		config.Gateway.PresenterID,
		config.Gateway.PresenterCode,
		config.Gateway.TestMode,
	)

	client := govtalk.NewClient(
		logger.WithField("component", "client"),
		config.Gateway.Endpoint,
		creds,
		nil,
	)

	fetcher := watcher.NewFetcher(
		logger.WithField("component", "fetcher"),
		client,
		db,
		afero.NewOsFs(),
		config.Documents.Path,
	)

	return watcher.New(
		logger.WithField("component", "watcher"),
		client,
		db,
		fetcher,
		config.Gateway.PresenterID,
		config.Watcher.Interval,
		metrics,
	), nil
}

// connectDatabase keeps retrying for a while because the database is often
// still warming up when this process starts.
func connectDatabase(ctx context.Context, logger logrus.FieldLogger, url string) (*pgxpool.Pool, error) {
	var backoffStrategy = backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          1.5,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Clock:               backoff.SystemClock,
	}, ctx)

	var pool *pgxpool.Pool
	err := backoff.RetryNotify(
		func() error {
			var err error
			pool, err = pgxpool.New(ctx, url)
			if err != nil {
				return backoff.Permanent(err)
			}
			if err = pool.Ping(ctx); err != nil {
				pool.Close()
				return err
			}
			return nil
		},
		backoffStrategy,
		func(err error, t time.Duration) {
			logger.WithError(err).WithField("retryIn", t).Warn("Database connection failed")
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}
	return pool, nil
}
