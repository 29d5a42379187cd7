// Package server wires the HTTP router, its middleware and every route.
//
// This is the composition root: the database, services and handlers are
// built here and nowhere else. main only loads config and calls New/Start.
//
//	sqlite.DB → services → handlers → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/config"
	"github.com/sakif/recipe-api/internal/handler"
	"github.com/sakif/recipe-api/internal/media"
	"github.com/sakif/recipe-api/internal/middleware"
	sqliteRepo "github.com/sakif/recipe-api/internal/repository/sqlite"
	"github.com/sakif/recipe-api/internal/service"
	"github.com/sakif/recipe-api/internal/validation"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router http.Handler
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	router, err := NewHandler(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return &Server{
		router: router,
		config: cfg,
		logger: logger,
		db:     db,
	}, nil
}

// NewHandler builds the complete HTTP handler over an existing database.
// Tests call it with an in-memory database to exercise the real routes.
//
// ROUTES:
//
//	POST   /user/create
//	POST   /user/token
//	GET    /user/me                           (auth)
//	PATCH  /user/me                           (auth)
//	PUT    /user/me                           (auth)
//	GET    /recipe/tags                       (auth)  ?assigned_only=1
//	POST   /recipe/tags                       (auth)
//	GET    /recipe/ingredients                (auth)  ?assigned_only=1
//	POST   /recipe/ingredients                (auth)
//	GET    /recipe/recipes                    (auth)  ?tags=1,2&ingredients=3
//	POST   /recipe/recipes                    (auth)
//	GET    /recipe/recipes/{id}               (auth)
//	PATCH  /recipe/recipes/{id}               (auth)
//	PUT    /recipe/recipes/{id}               (auth)
//	DELETE /recipe/recipes/{id}               (auth)
//	POST   /recipe/recipes/{id}/upload-image  (auth)
//	DELETE /recipe/recipes/{id}/upload-image  (auth)
//	GET    /media/*
//	GET    /healthz
//	GET    /metrics
//
// Middleware runs in the order added: request id, real ip (only with
// TRUST_PROXY_HEADERS), panic recovery, CORS (when origins are configured),
// request logging, metrics. The two
// credential endpoints are additionally rate limited when AUTH_RATE_LIMIT > 0.
func NewHandler(cfg *config.Config, db *sqliteRepo.DB, logger *slog.Logger) (http.Handler, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.BcryptCost)
	images := media.NewImageStore(cfg.MediaRoot, cfg.MediaURL, cfg.MaxUploadBytes)
	validate := validation.New()

	userService := service.NewUserService(db, passwords, tokens, cfg.MinPasswordLength, logger)
	tagService := service.NewTagService(db, logger)
	ingredientService := service.NewIngredientService(db, logger)
	recipeService := service.NewRecipeService(db, db, db, images, logger)

	userHandler := handler.NewUserHandler(userService, validate, logger)
	tagHandler := handler.NewTagHandler(tagService, validate, logger)
	ingredientHandler := handler.NewIngredientHandler(ingredientService, validate, logger)
	recipeHandler := handler.NewRecipeHandler(recipeService, images, validate, cfg.MaxUploadBytes, logger)
	healthHandler := handler.NewHealthHandler(db, logger)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	requireAuth := auth.RequireAuth(tokens, db, handler.Unauthorized)

	// Credential endpoints are throttled per client IP.
	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.AuthRateLimit > 0 {
		limiter := middleware.NewKeyedLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
		throttle = middleware.RateLimit(limiter, handler.TooManyRequests)
	}

	r.Route("/user", func(r chi.Router) {
		r.With(throttle).Post("/create", userHandler.HandleCreate)
		r.With(throttle).Post("/token", userHandler.HandleToken)

		r.With(requireAuth).Route("/me", func(r chi.Router) {
			r.Get("/", userHandler.HandleGetMe)
			r.Patch("/", userHandler.HandlePatchMe)
			r.Put("/", userHandler.HandlePutMe)
		})
	})

	r.Route("/recipe", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/tags", tagHandler.HandleList)
		r.Post("/tags", tagHandler.HandleCreate)

		r.Get("/ingredients", ingredientHandler.HandleList)
		r.Post("/ingredients", ingredientHandler.HandleCreate)

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.HandleList)
			r.Post("/", recipeHandler.HandleCreate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", recipeHandler.HandleGet)
				r.Patch("/", recipeHandler.HandlePatch)
				r.Put("/", recipeHandler.HandlePut)
				r.Delete("/", recipeHandler.HandleDelete)
				r.Post("/upload-image", recipeHandler.HandleUploadImage)
				r.Delete("/upload-image", recipeHandler.HandleDeleteImage)
			})
		})
	})

	// Uploaded images. A MEDIA_URL on another host (a CDN) is served there,
	// not here. http.FileServer rejects ".." paths on its own.
	if strings.HasPrefix(cfg.MediaURL, "/") && cfg.MediaURL != "/" {
		fileServer := http.FileServer(http.Dir(cfg.MediaRoot))
		r.Handle(cfg.MediaURL+"*", http.StripPrefix(cfg.MediaURL, fileServer))
	}

	r.Get("/healthz", healthHandler.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r, nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("mediaRoot", s.config.MediaRoot),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
