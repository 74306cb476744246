package router

import (
	"time"

	"github.com/anonto42/socialfeed/backend/internal/handlers"
	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/notifications"
	"github.com/anonto42/socialfeed/backend/internal/ratelimit"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/anonto42/socialfeed/backend/pkg/config"
	"github.com/anonto42/socialfeed/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Comments      repositories.CommentRepository
	Likes         repositories.LikeRepository
	CommentLikes  repositories.CommentLikeRepository
	Notifications repositories.NotificationRepository

	Limiter  *ratelimit.Limiter
	Runner   *notifications.Runner
	Previews handlers.EmbedResolver
	Verifier handlers.TokenVerifier // nil disables Firebase login

	JWTSecret string
	TokenTTL  time.Duration
	Log       *logrus.Entry
}

// New builds an Echo instance with global middleware, validation, error
// rendering and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler(d.Log)

	config.SetupMiddleware(e, d.Log)
	SetupRoutes(e, d)
	return e
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, d Deps) {
	e.GET("/health", handlers.HealthCheck)

	dispatcher := notifications.NewDispatcher(d.Users, d.Notifications)
	guards := handlers.Guards{
		Auth:         middleware.JWTAuthMiddleware(d.JWTSecret),
		OptionalAuth: middleware.OptionalJWTAuthMiddleware(d.JWTSecret),
		Limiter:      d.Limiter,
	}

	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(d.Users, d.Verifier, d.JWTSecret, d.TokenTTL)
	authHandler.RegisterAuthRoutes(authGroup)

	api := e.Group("/api/v1")

	userHandler := handlers.NewUserHandler(d.Users)
	userHandler.RegisterProfileRoutes(api, guards)

	feedHandler := handlers.NewFeedHandler(d.Posts, d.Users, d.Likes)
	feedHandler.RegisterFeedRoutes(api, guards)

	postHandler := handlers.NewPostHandler(d.Posts, d.Users, d.Comments, d.Likes, d.Notifications, dispatcher, d.Runner, d.Previews)
	postHandler.RegisterPostRoutes(api, guards)

	commentHandler := handlers.NewCommentHandler(d.Comments, d.Posts, d.Users, d.Notifications, dispatcher, d.Runner)
	commentHandler.RegisterCommentRoutes(api, guards)

	likeHandler := handlers.NewLikeHandler(d.Likes, d.CommentLikes, d.Posts, d.Comments, dispatcher, d.Runner)
	likeHandler.RegisterLikeRoutes(api, guards)

	notificationHandler := handlers.NewNotificationHandler(d.Notifications, d.Users, d.Posts, d.Comments)
	notificationHandler.RegisterNotificationRoutes(api, guards)

	d.Log.WithField("routes", len(e.Routes())).Info("routes configured")
}
