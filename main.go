package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"jobconnect/config"
	"jobconnect/db"
	"jobconnect/logger"
	"jobconnect/middleware"
	"jobconnect/mq"
	"jobconnect/notify"
	"jobconnect/ratelim"
	"jobconnect/rdx"
	"jobconnect/routes"
	"jobconnect/store"
	"jobconnect/store/memstore"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		if w.Header().Get("Cache-Control") == "" {
			w.Header().Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(context.Context), error) {
	if cfg.Store == "memory" {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memstore.New(), func(context.Context) {}, nil
	}
	m, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, err
	}
	if err := m.CreateIndexes(ctx); err != nil {
		m.Close(ctx)
		return nil, nil, err
	}
	closeFn := func(ctx context.Context) {
		if err := m.Close(ctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}
	return m, closeFn, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.IsDevelopment())

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	startCtx, cancelStart := context.WithTimeout(rootCtx, 15*time.Second)
	st, closeStore, err := openStore(startCtx, cfg)
	cancelStart()
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("open store")
	}

	// initialize live inbox hub
	hub := notify.NewHub()
	go hub.Run()

	// Redis is optional: without it codes and names live in process and
	// events go straight to the hub.
	var (
		kv      rdx.KV
		emitter mq.Emitter
		conn    *redis.Client
	)
	if cfg.RedisAddr != "" {
		conn, err = rdx.Connect(rootCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect redis")
		}
		kv = rdx.Redis{Conn: conn}
		emitter = mq.RedisEmitter{Conn: conn}
		go mq.StartInboxWorker(rootCtx, conn, hub.Deliver)
	} else {
		log.Info().Msg("REDIS_ADDR not set; using in-process cache and events")
		kv = rdx.NewMemoryKV()
		emitter = mq.Direct{Handle: hub.Deliver}
	}

	rateLimiter := ratelim.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rateLimiter.Cleanup(rootCtx.Done())

	router := httprouter.New()
	router.GET("/health", Index)
	routes.Register(router, routes.Options{
		Store:         st,
		KV:            kv,
		Events:        emitter,
		Auth:          middleware.NewAuth(cfg.TokenSecret, cfg.TokenTTL),
		Limiter:       rateLimiter,
		Hub:           hub,
		PublicBaseURL: cfg.PublicBaseURL,
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := logger.Middleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// on shutdown: stop hub and workers, close connections
	server.RegisterOnShutdown(func() {
		log.Info().Msg("stopping inbox hub")
		hub.Stop()
		stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		closeStore(ctx)
		if conn != nil {
			conn.Close()
		}
	})

	go func() {
		log.Info().Str("addr", cfg.Port).Str("env", cfg.AppEnv).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	// wait for interrupt or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received; shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped cleanly")
}
