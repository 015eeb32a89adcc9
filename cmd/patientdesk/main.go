package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sharif-ahmed/patientdesk/internal/cache"
	"github.com/sharif-ahmed/patientdesk/internal/handlers"
	"github.com/sharif-ahmed/patientdesk/internal/outbox"
	"github.com/sharif-ahmed/patientdesk/internal/storage"
	"github.com/sharif-ahmed/patientdesk/libs/config"
	"github.com/sharif-ahmed/patientdesk/libs/db"
	"github.com/sharif-ahmed/patientdesk/libs/httpx"
	"github.com/sharif-ahmed/patientdesk/libs/kafkax"
	otelx "github.com/sharif-ahmed/patientdesk/libs/otel"
	"github.com/sharif-ahmed/patientdesk/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "patientdesk")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool); err != nil {
		logger.Error("db migration failed", "err", err)
		panic(err)
	}

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	var listCache *cache.PatientList
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		listCache = cache.NewPatientList(rdb, config.Seconds("PATIENT_LIST_CACHE_SECONDS", 30*time.Second), logger)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(rdb)})
		logger.Info("patient list cache enabled", "redis_addr", addr)
	}

	outboxRepo := outbox.NewRepository(pool)
	patientRepo := storage.NewPatientRepository(pool, outboxRepo)
	appointmentRepo := storage.NewAppointmentRepository(pool, outboxRepo)

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	patientHandler := handlers.NewPatientHandler(patientRepo, listCache, logger, jwtSecret)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentRepo, logger)
	authn := handlers.NewAuthenticator(jwtSecret, patientRepo)

	mux := runtime.NewBaseMux(readyChecks...)
	mux.HandleFunc("GET /patients", patientHandler.List)
	mux.HandleFunc("GET /patients/{id}", patientHandler.Get)
	mux.HandleFunc("POST /sign_up", patientHandler.SignUp)
	mux.HandleFunc("POST /sign_in", patientHandler.SignIn)
	mux.HandleFunc("PUT /patients/{id}", authn.Require(patientHandler.Update))
	mux.HandleFunc("DELETE /patients/{id}", authn.Require(patientHandler.Delete))
	mux.HandleFunc("POST /appointments", authn.Require(appointmentHandler.Create))
	mux.HandleFunc("GET /appointments", authn.Require(appointmentHandler.List))
	mux.HandleFunc("DELETE /appointments/{id}", authn.Require(appointmentHandler.Delete))

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id,"+handlers.AuthTokenHeader)),
			AllowCredentials: false,
			MaxAge:           config.Seconds("CORS_MAX_AGE_SECONDS", 600*time.Second),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 10*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
