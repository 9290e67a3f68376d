package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"eraiiz/internal/server/repository"
	"eraiiz/internal/shared/models"
	"eraiiz/internal/shared/passhash"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrRoleLocked         = errors.New("role can only be chosen once")
)

// AuthService implements registration, login, the Google code exchange
// stub, JWT access token issuance and refresh token rotation.
type AuthService struct {
	repo       Repository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Claims are the decoded access token claims the API trusts per request.
type Claims struct {
	UserID string
	Role   models.Role
}

func (a *AuthService) Register(ctx context.Context, email, password, name string, role models.Role) (models.AuthResponse, error) {
	if email == "" || password == "" {
		return models.AuthResponse{}, errors.New("email and password required")
	}
	if role == "" {
		role = models.RoleBuyer
	}
	if !role.Valid() || role == models.RoleAdmin {
		return models.AuthResponse{}, fmt.Errorf("invalid role %q", role)
	}
	hash, err := passhash.Hash(password)
	if err != nil {
		return models.AuthResponse{}, err
	}
	user, err := a.repo.CreateUser(ctx, email, name, role, hash)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return models.AuthResponse{}, ErrEmailTaken
		}
		return models.AuthResponse{}, err
	}
	return a.issueSession(ctx, user)
}

func (a *AuthService) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	user, hash, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return models.AuthResponse{}, ErrInvalidCredentials
	}
	ok, err := passhash.Verify(hash, password)
	if err != nil || !ok {
		return models.AuthResponse{}, ErrInvalidCredentials
	}
	return a.issueSession(ctx, user)
}

// ExchangeGoogleCode is the dev stand-in for the Google OAuth code
// exchange: the code is accepted as an opaque identity. First-time users
// are created with the pending role and must pick one via UpdateProfile.
func (a *AuthService) ExchangeGoogleCode(ctx context.Context, code string) (models.AuthResponse, error) {
	if code == "" {
		return models.AuthResponse{}, errors.New("code required")
	}
	email := code + "@oauth.local"
	user, _, err := a.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = a.repo.CreateUser(ctx, email, "", models.RolePending, "")
	}
	if err != nil {
		return models.AuthResponse{}, err
	}
	return a.issueSession(ctx, user)
}

// Refresh rotates the refresh token and issues a fresh access token.
// The old refresh token is invalid afterwards.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	userID, expiresAt, err := a.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return models.TokenPair{}, ErrInvalidToken
	}
	if time.Now().After(expiresAt) {
		_ = a.repo.DeleteRefreshToken(ctx, refreshToken)
		return models.TokenPair{}, ErrInvalidToken
	}
	user, err := a.repo.GetUserByID(ctx, userID)
	if err != nil {
		return models.TokenPair{}, ErrInvalidToken
	}
	_ = a.repo.DeleteRefreshToken(ctx, refreshToken)
	return a.issueTokens(ctx, user)
}

func (a *AuthService) ParseToken(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: sub, Role: models.Role(role)}, nil
}

// UpdateProfile patches name and, for pending users only, the role.
func (a *AuthService) UpdateProfile(ctx context.Context, userID, name string, role models.Role) (models.User, error) {
	if role != "" {
		if !role.Valid() || role == models.RoleAdmin || role == models.RolePending {
			return models.User{}, fmt.Errorf("invalid role %q", role)
		}
		current, err := a.repo.GetUserByID(ctx, userID)
		if err != nil {
			return models.User{}, err
		}
		if current.Role != models.RolePending {
			return models.User{}, ErrRoleLocked
		}
	}
	return a.repo.UpdateUser(ctx, userID, name, role)
}

func (a *AuthService) GetUser(ctx context.Context, userID string) (models.User, error) {
	return a.repo.GetUserByID(ctx, userID)
}

func (a *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	return a.repo.DeleteUser(ctx, userID)
}

func (a *AuthService) issueSession(ctx context.Context, user models.User) (models.AuthResponse, error) {
	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{TokenPair: pair, User: user}, nil
}

func (a *AuthService) issueTokens(ctx context.Context, user models.User) (models.TokenPair, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"role":  string(user.Role),
		"email": user.Email,
		"exp":   time.Now().Add(a.accessTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh := uuid.NewString()
	if err := a.repo.CreateRefreshToken(ctx, user.ID, refresh, time.Now().Add(a.refreshTTL)); err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
