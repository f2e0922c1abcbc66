// Package app owns process lifecycle: dependency wiring, startup order,
// and graceful shutdown for the worker and API processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/hothouse/hothouse/internal/api"
	"github.com/hothouse/hothouse/internal/config"
	"github.com/hothouse/hothouse/internal/convert"
	"github.com/hothouse/hothouse/internal/discovery"
	"github.com/hothouse/hothouse/internal/greenhouse"
	"github.com/hothouse/hothouse/internal/logger"
	"github.com/hothouse/hothouse/internal/metrics"
	"github.com/hothouse/hothouse/internal/queue"
	"github.com/hothouse/hothouse/internal/rating"
	redisclient "github.com/hothouse/hothouse/internal/redis"
	"github.com/hothouse/hothouse/internal/scoring"
	"github.com/hothouse/hothouse/internal/store"
	"github.com/hothouse/hothouse/internal/worker"
)

const shutdownTimeout = 30 * time.Second

// App holds the dependencies shared by every process and command.
type App struct {
	Config   *config.Config
	Logger   logger.Logger
	Redis    *goredis.Client
	Store    *store.Store
	Producer *queue.Producer

	queueClient *queue.Client
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
}

// New loads configuration and connects the shared dependencies. A missing
// .env file is not an error; deployed environments set real variables.
func New(configPath string) (*App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	log = log.With(logger.String("service", "hothouse"))

	redisClient, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	queueClient := queue.NewClient(redisClient, "")
	registry := prometheus.NewRegistry()

	return &App{
		Config:      cfg,
		Logger:      log,
		Redis:       redisClient,
		Store:       store.New(redisClient, log),
		Producer:    queue.NewProducer(queueClient),
		queueClient: queueClient,
		metrics:     metrics.New(registry),
		registry:    registry,
	}, nil
}

// Close releases shared resources.
func (a *App) Close() error {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", logger.Error(err))
		}
	}
	return a.Logger.Sync()
}

// RunWorker runs the pipeline consumers until the context is cancelled or
// a termination signal arrives. Both queues get their own runner; the two
// rating phases share the rate queue's runner.
func (a *App) RunWorker(ctx context.Context) error {
	ghClient, err := greenhouse.NewClient(a.Config.Greenhouse)
	if err != nil {
		return err
	}
	scorer, err := scoring.NewFromConfig(a.Config.Scoring)
	if err != nil {
		return err
	}

	converter := convert.New(a.Config.Convert, a.Logger)
	discoverer := discovery.New(ghClient, a.Store, a.Producer, a.Config.Greenhouse.CandidateTTL, a.metrics, a.Logger)
	engine := rating.New(
		ghClient, a.Store, a.Producer, converter, scorer,
		a.Config.Greenhouse.JobPostTTL, a.Config.Greenhouse.CandidateTTL,
		a.metrics, a.Logger,
	)
	dispatcher := worker.NewDispatcher(discoverer, engine)

	runnerCfg := worker.RunnerConfig{
		Concurrency: a.Config.Worker.Concurrency,
		JobTimeout:  a.Config.Worker.JobTimeout,
	}

	var runners []*worker.Runner
	for _, queueName := range []string{queue.QueueDownload, queue.QueueRate} {
		consumer, consumerErr := queue.NewConsumer(ctx, a.queueClient, queue.ConsumerConfig{
			Queue:      queueName,
			ConsumerID: consumerID(),
		})
		if consumerErr != nil {
			return fmt.Errorf("create %s consumer: %w", queueName, consumerErr)
		}
		runners = append(runners, worker.NewRunner(consumer, dispatcher.Handle, runnerCfg, a.metrics, a.Logger))
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, r := range runners {
		r.Start(workerCtx)
	}

	scheduler, err := a.startRefreshScheduler(workerCtx)
	if err != nil {
		for _, r := range runners {
			r.Stop()
		}
		return err
	}

	a.waitForSignal(workerCtx)

	// Stop the runners before cancelling the worker context: in-flight
	// task contexts derive from it, and a task runs to completion or
	// failure, never into a shutdown cancellation.
	a.Logger.Info("shutting down, draining in-flight tasks")
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	for _, r := range runners {
		r.Stop()
	}
	cancel()
	a.Logger.Info("worker stopped")
	return nil
}

// RunAPI serves the HTTP surface until shutdown.
func (a *App) RunAPI(ctx context.Context) error {
	router := api.NewRouter(a.Store, a.Producer, a.Redis, a.registry, a.Logger)

	server := &http.Server{
		Addr:         a.Config.Server.Address,
		Handler:      router.SetupRoutes(a.Config.Debug),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info("api listening", logger.String("address", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigChan:
		a.Logger.Info("shutting down", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.Logger.Info("api stopped")
	return nil
}

// startRefreshScheduler starts the optional cron that re-downloads the
// configured job postings. Returns nil when no schedule is set.
func (a *App) startRefreshScheduler(ctx context.Context) (*cron.Cron, error) {
	schedule := a.Config.Refresh.Schedule
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	jobIDs := a.Config.Refresh.JobIDs
	_, err := c.AddFunc(schedule, func() {
		for _, jobID := range jobIDs {
			if _, err := a.Producer.Enqueue(ctx, &queue.Task{Kind: queue.KindDownload, JobID: jobID}); err != nil {
				a.Logger.Error("scheduled download enqueue failed",
					logger.Int64("job_id", jobID),
					logger.Error(err),
				)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	a.Logger.Info("refresh scheduler started",
		logger.String("schedule", schedule),
		logger.Int("job_postings", len(jobIDs)),
	)
	return c, nil
}

func (a *App) waitForSignal(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.Logger.Info("received signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}
}

// consumerID identifies this process within the consumer groups so stale
// pending entries can be traced to a dead consumer.
func consumerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "hothouse"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
