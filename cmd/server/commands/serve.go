package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/socialfeed/backend/internal/linkpreview"
	"github.com/anonto42/socialfeed/backend/internal/notifications"
	"github.com/anonto42/socialfeed/backend/internal/ratelimit"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/anonto42/socialfeed/backend/internal/router"
	"github.com/anonto42/socialfeed/backend/pkg/config"
	"github.com/anonto42/socialfeed/backend/pkg/firebase"
	"github.com/anonto42/socialfeed/backend/pkg/logger"
	"github.com/spf13/cobra"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not run schema migrations on start")
}

func serve(ctx context.Context) error {
	log := logger.Log

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	if !skipMigrate {
		if err := repositories.AutoMigrate(db.Postgres); err != nil {
			return err
		}
	}

	postRepo := repositories.NewMongoPostRepository(db.MongoDB)
	if err := postRepo.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("failed to ensure post indexes")
	}

	limiter := ratelimit.NewLimiter(rateLimitStore(ctx), log.WithField("component", "ratelimit"))
	runner := notifications.NewRunner(cfg.SideEffectConcurrency, cfg.SideEffectTimeout, log.WithField("component", "side_effects"))

	deps := router.Deps{
		Users:         repositories.NewPostgresUserRepository(db.Postgres),
		Posts:         postRepo,
		Comments:      repositories.NewPostgresCommentRepository(db.Postgres),
		Likes:         repositories.NewPostgresLikeRepository(db.Postgres),
		CommentLikes:  repositories.NewPostgresCommentLikeRepository(db.Postgres),
		Notifications: repositories.NewPostgresNotificationRepository(db.Postgres),
		Limiter:       limiter,
		Runner:        runner,
		Previews:      linkpreview.NewService(cfg.LinkPreviewTimeout, log.WithField("component", "linkpreview")),
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      cfg.JWTTTL,
		Log:           log,
	}

	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.WithError(err).Warn("firebase login disabled")
		} else {
			deps.Verifier = firebase.NewVerifier(app)
		}
	}

	e := router.New(deps)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	runner.Wait()
	return nil
}

// rateLimitStore picks the configured store. Redis failures at start fall
// back to process memory rather than refusing to serve.
func rateLimitStore(ctx context.Context) ratelimit.Store {
	log := logger.Log.WithField("component", "ratelimit")

	if cfg.RateLimitStore == "redis" {
		client, err := config.InitRedis(cfg)
		if err == nil {
			go func() {
				<-ctx.Done()
				_ = client.Close()
			}()
			return ratelimit.NewRedisStore(client)
		}
		log.WithError(err).Warn("falling back to in-memory rate limiting")
	}

	store := ratelimit.NewMemoryStore()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				store.Sweep(now, 5*time.Minute)
			}
		}
	}()
	return store
}
