package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/barberbooking/api"
	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/service/reservation"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Deps are the services the bridge exposes.
type Deps struct {
	Sessions api.Sessions
	Dialogs  *reservation.Registry
	Bookings api.BookingsView
	Location *time.Location
	Logger   *zap.Logger
}

// Run serves the local bridge and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Logger.Info("bridge listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http %s: %w", cfg.HTTP.Address, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		deps.Dialogs.CloseAll()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		deps.Logger.Info("bridge stopped")
		return nil
	})
	return g.Wait()
}

// NewRouter builds the gin engine with every bridge route registered.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Log.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(deps.Logger))
	if len(cfg.HTTP.AllowedOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.HTTP.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	root := engine.Group("")
	api.NewSessionHandler(deps.Sessions, cfg.Auth.LoginURL, cfg.Auth.AfterLoginURL,
		api.OnLogout(func(context.Context) { deps.Dialogs.CloseAll() }),
	).Register(root)
	api.NewReservationHandler(deps.Dialogs, deps.Location).Register(root)
	api.NewBookingHandler(deps.Bookings).Register(root)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})
	return engine
}

func loggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// The callback query carries the token; log the path only.
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
