package main

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/bookingwidget/libs/config"
	"github.com/md-rashed-zaman/bookingwidget/libs/db"
	"github.com/md-rashed-zaman/bookingwidget/libs/grpcx"
	"github.com/md-rashed-zaman/bookingwidget/libs/httpx"
	"github.com/md-rashed-zaman/bookingwidget/libs/kafkax"
	otelx "github.com/md-rashed-zaman/bookingwidget/libs/otel"
	"github.com/md-rashed-zaman/bookingwidget/libs/redisx"
	"github.com/md-rashed-zaman/bookingwidget/libs/runtime"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/appointments"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/backend"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/storage"
)

func main() {
	_ = config.LoadDotEnv()

	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelCfg, err := otelx.ConfigFromEnv(service)
	if err != nil {
		panic(err)
	}
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = nil
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns, err := config.IntRange("DB_MAX_CONNS", 10, 1, math.MaxInt32)
	if err != nil {
		panic(err)
	}
	pool, err := db.OpenWithConfig(ctx, dbURL, db.PoolConfig{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	loc, err := time.LoadLocation(config.String("TIMEZONE", "UTC"))
	if err != nil {
		panic(err)
	}
	cacheTTL, err := config.Duration("CATALOG_CACHE_TTL", 5*time.Minute)
	if err != nil {
		panic(err)
	}
	rejectOverlaps, err := config.Bool("BOOKING_REJECT_OVERLAPS", false)
	if err != nil {
		panic(err)
	}
	sessionCacheSize, err := config.Int("SESSION_CACHE_SIZE", 10000)
	if err != nil {
		panic(err)
	}
	ratePerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		panic(err)
	}
	idempotencyLease, err := config.Duration("IDEMPOTENCY_LEASE", storage.DefaultIdempotencyLease)
	if err != nil {
		panic(err)
	}

	rdb := redisx.NewClient(config.String("REDIS_ADDR", ""))
	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	m := metrics.New(nil)
	events := outbox.NewRepository()

	backendCfg, err := backend.ConfigFromEnv()
	if err != nil {
		panic(err)
	}
	catalogStore, err := backend.OpenCatalog(ctx, backendCfg, pool, events, logger)
	if err != nil {
		logger.Error("catalog backend init failed", "backend", backendCfg.Kind, "err", err)
		panic(err)
	}
	var catalog source.Catalog = catalogStore
	var cache *source.CachedCatalog
	if rdb != nil {
		cache = source.NewCachedCatalog(catalogStore, rdb, cacheTTL, logger)
		catalog = cache
	}

	apptStore := storage.NewAppointmentStore(pool, events)
	loader := source.NewLoader(catalog, apptStore, loc)
	apptService := appointments.NewService(apptStore, catalog, logger,
		appointments.WithRejectOverlaps(rejectOverlaps),
		appointments.WithRecorder(m),
	)
	sessions, err := handlers.NewSessions(sessionCacheSize)
	if err != nil {
		panic(err)
	}

	var writer outbox.MessageWriter
	if len(brokers) > 0 {
		writer = kafkax.NewWriter(brokers)
	}
	publisher := outbox.NewPublisher(pool, events, writer, logger, outbox.PublisherConfig{
		PollEvery: 2 * time.Second,
		BatchSize: 50,
		OnPublish: m.OutboxPublished,
	})
	go publisher.Run(ctx)

	if len(brokers) > 0 && cache != nil {
		eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   config.String("KAFKA_CONSUME_TOPIC", outbox.TopicCatalogChanged),
		}, consumer.CatalogChanged(cache, logger))
		go eventConsumer.Run(ctx)
	}

	widget := handlers.NewWidgetHandler(handlers.Deps{
		Catalog:      catalog,
		Loader:       loader,
		Engine:       availability.NewEngine(logger),
		Appointments: apptService,
		Idempotency:  storage.NewIdempotencyStore(pool, idempotencyLease),
		Sessions:     sessions,
		Metrics:      m,
		Logger:       logger,
	})

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.Handler())
	widget.Register(mux)

	limiter := httpx.NewRateLimiter(ratePerMinute, time.Minute).Middleware()
	if rdb != nil {
		limiter = httpx.NewRedisRateLimiter(rdb, ratePerMinute, time.Minute, "ratelimit").
			Middleware(logger, "widget", true)
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithWidgetSession,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("WIDGET_ALLOWED_ORIGINS"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.WidgetSessionHeader, handlers.IdempotencyKeyHeader},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		limiter,
		httpx.WithBodyLimit(64<<10),
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpcx.NewServer(logger)
	grpcSrv.SetServing(service, true)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(ctx, lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	grpcSrv.SetServing(service, false)

	steps := []runtime.ShutdownStep{
		{Name: "http", Fn: srv.Shutdown},
	}
	if rdb != nil {
		steps = append(steps, runtime.ShutdownStep{Name: "redis", Fn: func(context.Context) error { return rdb.Close() }})
	}
	if otelShutdown != nil {
		steps = append(steps, runtime.ShutdownStep{Name: "otel", Fn: otelShutdown})
	}
	runtime.Shutdown(logger, 10*time.Second, steps...)
	logger.Info("booking service stopped")
}
