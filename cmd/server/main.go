package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/pulsesim/internal/api"
	"github.com/RMahshie/pulsesim/internal/config"
	"github.com/RMahshie/pulsesim/internal/processing"
	"github.com/RMahshie/pulsesim/internal/repository/memory"
	"github.com/RMahshie/pulsesim/internal/stream"
	"github.com/RMahshie/pulsesim/internal/waveform"
)

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Wire the simulated sensor and measurement engine
	source := waveform.NewPPGSim(waveform.Config{
		Noise:    cfg.Simulator.NoiseAmplitude,
		HoldRate: cfg.Simulator.HoldHeartRate,
		Seed:     cfg.Simulator.Seed,
	})
	results := memory.NewResultRepository(cfg.Measurement.ResultHistory)

	var publishers stream.Fanout
	if cfg.NATS.URL != "" {
		nc, err := stream.Connect(cfg.NATS.URL)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("Failed to connect to NATS")
		}
		defer nc.Drain()
		publishers = append(publishers, stream.NewNATSPublisher(nc, cfg.NATS.Subject))
		log.Info().Str("url", cfg.NATS.URL).Str("subject", cfg.NATS.Subject).Msg("Publishing measurement events to NATS")
	}

	engineCfg := processing.DefaultConfig()
	engineCfg.Duration = cfg.Measurement.Duration.Seconds()
	engineCfg.SampleRate = cfg.Measurement.SampleRate
	engineCfg.SampleInterval = cfg.Measurement.SampleInterval

	hub := stream.NewHub(nil)
	publishers = append(publishers, hub)
	engine := processing.NewEngine(engineCfg, source, results, publishers)
	hub.SetController(engine)

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Create Huma API
	humaAPI := humachi.New(router, api.NewConfig())
	api.RegisterRoutes(router, humaAPI, engine, hub)

	// Start server. No write timeout: /readings blocks for a whole measurement.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting pulse oximeter simulator")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Str("request_id", middleware.GetReqID(r.Context())).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
