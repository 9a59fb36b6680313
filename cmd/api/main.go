// Package main is the entrypoint for the Bookloft API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bookloft/bookloft/internal/cache"
	"github.com/bookloft/bookloft/internal/config"
	"github.com/bookloft/bookloft/internal/filestore"
	"github.com/bookloft/bookloft/internal/handler"
	"github.com/bookloft/bookloft/internal/middleware"
	"github.com/bookloft/bookloft/internal/repository"
	"github.com/bookloft/bookloft/internal/server"
	"github.com/bookloft/bookloft/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	uploads, err := filestore.New(cfg.UploadDir)
	if err != nil {
		logger.Error("failed to open upload directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	bookService := service.NewBookService(repo, repo, uploads, logger)
	authService := service.NewAuthService(repo, cacheClient, uploads, cfg.SessionTTL, logger)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	bookHandler := handler.NewBookHandler(bookService, uploads, strings.TrimSuffix(cfg.BaseURL, "/"), logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	r := setupRouter(h, healthHandler, bookHandler, authHandler, cacheClient, uploads, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	srv.OnShutdown("postgres", func(_ context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(_ context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	bookHandler *handler.BookHandler,
	authHandler *handler.AuthHandler,
	cacheClient *cache.Cache,
	uploads *filestore.Store,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	authCfg := middleware.AuthConfig{
		Logger:   logger,
		Sessions: cacheClient,
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/book", func(r chi.Router) {
			// Reads are public
			r.Get("/", bookHandler.List)
			r.Get("/{bookId}", bookHandler.Get)

			// Mutations require a session
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(authCfg))
				r.Post("/", bookHandler.Create)
				r.Put("/{bookId}", bookHandler.Update)
				r.Delete("/{bookId}", bookHandler.Delete)
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.With(middleware.Auth(authCfg)).Delete("/user/{userId}", authHandler.DeleteUser)
		})
	})

	// Serve stored cover images
	r.Get(uploadRoutePrefix+"*", uploadFileServer(uploads.Dir()).ServeHTTP)

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

// uploadRoutePrefix is the URL prefix cover images are served under.
// It is fixed regardless of where UPLOAD_DIR points on disk, so an
// absolute upload directory still yields a valid route pattern.
const uploadRoutePrefix = "/uploads/"

// uploadFileServer serves the contents of the upload directory under
// uploadRoutePrefix.
func uploadFileServer(dir string) http.Handler {
	return http.StripPrefix(uploadRoutePrefix, http.FileServer(http.Dir(dir)))
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
