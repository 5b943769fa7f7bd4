package authservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mealbook/recipes_api/internal/pkg/config"
	"github.com/mealbook/recipes_api/internal/pkg/jwtauth"
	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo Repository
	cfg      config.Auth
}

const minPasswordLen = 5

var ErrInvalidCredentials = errors.New("invalid email or password")

type Repository interface {
	CreateUser(context.Context, models.User) (int64, error)
	GetUserByEmail(context.Context, string) (models.User, error)
	GetUserByID(context.Context, int64) (models.User, error)
}

func New(userRepo Repository, cfg config.Auth) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

func (as *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (string, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return "", err
	}

	if len(req.Password) < minPasswordLen {
		return "", fmt.Errorf("%w: password: must be at least %d characters", models.ErrValidation, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("generate from password error: %w", err)
	}

	u := models.User{ //nolint:exhaustruct
		Email:        email,
		PasswordHash: string(hash),
	}

	id, err := as.userRepo.CreateUser(ctx, u)
	if err != nil {
		return "", fmt.Errorf("create user error: %w", err)
	}

	u.ID = id

	token, err := jwtauth.GetToken(u, as.cfg.TTL, as.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("can't get token error: %w", err)
	}

	return token, nil
}

func (as *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := as.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := jwtauth.GetToken(u, as.cfg.TTL, as.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("can't get token error: %w", err)
	}

	return token, nil
}

// Auth resolves a bearer token into the stored user, so tokens of removed
// accounts stop working immediately.
func (as *AuthService) Auth(ctx context.Context, token string) (models.User, error) {
	claims, err := jwtauth.ValidateToken(token, as.cfg.Secret)
	if err != nil {
		return models.User{}, fmt.Errorf("validate token error: %w", err)
	}

	u, err := as.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	return u, nil
}

// NormalizeEmail lowercases the domain part, leaving the local part as given.
func NormalizeEmail(email string) (string, error) {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "", fmt.Errorf("%w: email: must be a valid address", models.ErrValidation)
	}

	return local + "@" + strings.ToLower(domain), nil
}
