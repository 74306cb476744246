package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/anonto42/socialfeed/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// TokenVerifier checks identity tokens from an external provider.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebase.Identity, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	verifier       TokenVerifier
	jwtSecret      string
	tokenTTL       time.Duration
}

// NewAuthHandler creates a new AuthHandler. verifier may be nil, which
// disables Firebase login.
func NewAuthHandler(userRepo repositories.UserRepository, verifier TokenVerifier, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		verifier:       verifier,
		jwtSecret:      jwtSecret,
		tokenTTL:       tokenTTL,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup handles local user registration
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	if _, err := h.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return conflict("Username is already taken")
	}
	if _, err := h.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return conflict("Email is already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err)
	}

	user := &models.User{
		Username:    req.Username,
		Email:       strings.ToLower(req.Email),
		Password:    string(hashedPassword),
		OpenProfile: true,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return conflict("Username or email is already taken")
		}
		return internalError(err)
	}

	return h.respondWithToken(c, http.StatusCreated, user)
}

// SignIn handles local user authentication with username and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return unauthorized("Invalid username or password")
		}
		return internalError(err)
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return unauthorized("Invalid username or password")
	}

	return h.respondWithToken(c, http.StatusOK, user)
}

// FirebaseLogin verifies a Firebase ID token and issues a local JWT. The
// account is found by Firebase UID, then linked by e-mail, then created.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.verifier == nil {
		return apiError(http.StatusServiceUnavailable, models.CodeUnavailable, "Firebase login is not configured")
	}

	var req models.FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	identity, err := h.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return unauthorized("Invalid Firebase ID token")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, identity.UID)
	switch {
	case err == nil:
	case !errors.Is(err, repositories.ErrNotFound):
		return internalError(err)
	default:
		user, err = h.linkOrCreate(ctx, identity)
		if err != nil {
			return internalError(err)
		}
	}

	return h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) linkOrCreate(ctx context.Context, identity *firebase.Identity) (*models.User, error) {
	uid := identity.UID
	if identity.Email != "" {
		user, err := h.userRepository.GetUserByEmail(ctx, identity.Email)
		if err == nil {
			user.FirebaseUID = &uid
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("link firebase uid: %w", err)
			}
			return user, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	username, err := h.freeUsername(ctx, identity)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:    username,
		Email:       strings.ToLower(identity.Email),
		FirebaseUID: &uid,
		ProfilePic:  identity.Picture,
		OpenProfile: true,
		Verified:    identity.Email != "",
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	return user, nil
}

var usernameUnsafe = regexp.MustCompile(`[^a-z0-9._-]+`)

// freeUsername derives a valid, unused username from the identity.
func (h *AuthHandler) freeUsername(ctx context.Context, identity *firebase.Identity) (string, error) {
	base := identity.Name
	if at := strings.IndexByte(identity.Email, '@'); at > 0 {
		base = identity.Email[:at]
	}
	base = usernameUnsafe.ReplaceAllString(strings.ToLower(base), "")
	if len(base) > 24 {
		base = base[:24]
	}
	for len(base) < 3 {
		base += "user"[:3-len(base)]
	}

	candidate := base
	for i := 1; i <= 100; i++ {
		_, err := h.userRepository.GetUserByUsername(ctx, candidate)
		if errors.Is(err, repositories.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", errors.New("no free username")
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, user *models.User) error {
	token, err := middleware.SignToken(h.jwtSecret, user, h.tokenTTL)
	if err != nil {
		return internalError(err)
	}
	return c.JSON(status, echo.Map{"token": token, "user": user})
}
