package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/emrgen/exploration/internal/cache"
	"github.com/emrgen/exploration/internal/compress"
	"github.com/emrgen/exploration/internal/config"
	"github.com/emrgen/exploration/internal/jobs"
	"github.com/emrgen/exploration/internal/queue"
	"github.com/emrgen/exploration/internal/store"
	"github.com/gin-gonic/gin"
	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "exploration"

// Server represents the server
type Server struct {
	cfg *config.Config
}

// NewServer creates a new server
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Start starts the server
func (s *Server) Start() {
	if err := Start(s.cfg); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}

// NewRouter builds the HTTP API on top of the services.
func NewRouter(services *Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(RequestMetrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	NewHandler(services).Register(router)

	return router
}

// Collaborators builds the cache, notifier and compressor named by the
// config. The returned cleanup closes any client that was opened.
func Collaborators(cfg *config.Config) (Options, func(), error) {
	compressor, err := compress.New(cfg.Compression)
	if err != nil {
		return Options{}, nil, err
	}

	opts := Options{
		Admins:   cfg.Admins,
		Rank:     cfg.Rank,
		Compress: compressor,
	}
	notifiers := queue.Multi{queue.LogNotifier{}}
	var closers []func()

	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		closers = append(closers, func() { _ = client.Close() })
		opts.Cache = cache.NewRedisExplorationCache(client, cfg.Redis.CacheTTL)
		notifiers = append(notifiers, queue.NewRedisNotifier(client, cfg.Redis.Channel))
	}

	if cfg.Kafka.Brokers != "" {
		kafka, err := queue.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return Options{}, nil, err
		}
		closers = append(closers, kafka.Close)
		notifiers = append(notifiers, kafka)
	}
	opts.Notifier = notifiers

	return opts, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// Start starts the grpc and http servers
func Start(cfg *config.Config) error {
	var err error

	grpcPort := ":" + cfg.GrpcPort
	httpPort := ":" + cfg.HttpPort

	rdb, err := config.GetDb(cfg)
	if err != nil {
		return err
	}
	if err = store.NewGormStore(rdb).Migrate(); err != nil {
		return err
	}

	opts, cleanup, err := Collaborators(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	services := NewServices(rdb, opts)

	gl, err := net.Listen("tcp", grpcPort)
	if err != nil {
		return err
	}

	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	// the grpc listener only serves health checks
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcmiddleware.ChainUnaryServer(
			UnaryGrpcRequestTimeInterceptor(),
		)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	if cfg.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // All origins are allowed
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PUT"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", UserHeader},
		AllowCredentials: true,
	})

	restServer := &http.Server{
		Addr:    httpPort,
		Handler: c.Handler(NewRouter(services)),
	}

	var cronJobs []jobs.CronJob
	if cfg.Reconcile != "" {
		cronJobs = append(cronJobs, jobs.NewSearchReconciler(cfg.Reconcile, services.Store, services.Searcher))
	}
	var background []jobs.Job
	var watcher *jobs.EventWatcher
	if subscriber, ok := redisSubscriber(opts.Notifier); ok {
		watcher = jobs.NewEventWatcher(subscriber)
		background = append(background, watcher)
	}
	executor := jobs.NewTaskExecutor(background, cronJobs)
	if err = executor.Run(); err != nil {
		return err
	}

	// make sure to wait for the servers to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting rest server on: ", httpPort)
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting rest server: %v", err)
			}
		}
		logrus.Infof("rest server stopped")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting grpc health server on: ", grpcPort)
		if err := grpcServer.Serve(gl); err != nil {
			logrus.Infof("grpc failed to start: %v", err)
		}
		logrus.Infof("grpc server stopped")
	}()

	time.Sleep(1 * time.Second)
	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGTSTP)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	healthServer.Shutdown()
	executor.Stop()
	if watcher != nil {
		watcher.Stop()
	}
	grpcServer.Stop()
	err = restServer.Shutdown(context.Background())
	if err != nil {
		logrus.Errorf("error stopping rest server: %v", err)
	}

	wg.Wait()

	return nil
}

// redisSubscriber finds the redis notifier among the configured notifiers.
func redisSubscriber(n queue.Notifier) (jobs.Subscriber, bool) {
	multi, ok := n.(queue.Multi)
	if !ok {
		return nil, false
	}
	for _, inner := range multi {
		if r, ok := inner.(*queue.RedisNotifier); ok {
			return r, true
		}
	}
	return nil, false
}
