package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jazjo-app/jazjo/internal/config"
	"github.com/jazjo-app/jazjo/internal/entity"
	repo "github.com/jazjo-app/jazjo/internal/repository/profile"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/jazjo-app/jazjo/service/auth")

// ProfileStore is the repository surface the gate needs.
type ProfileStore interface {
	Create(ctx context.Context, profile *entity.Profile) error
	FindByEmail(ctx context.Context, email string) (*entity.Profile, error)
	FindByID(ctx context.Context, id int64) (*entity.Profile, error)
}

// Session is an issued bearer credential.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterInput is the self-service signup payload. New accounts always get
// the customer role; staff and admin accounts are provisioned by operators.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Contact     string `json:"contact"`
	Address     string `json:"address"`
}

// Service resolves bearer credentials to identities and authorizes operations
// against role sets. Failures never reveal whether a resource or account
// exists.
type Service struct {
	profiles ProfileStore
	secret   []byte
	tokenTTL time.Duration
	cost     int
	logger   *zap.Logger
	now      func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	cost := p.Config.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		profiles: p.Repository,
		secret:   []byte(p.Config.Auth.JWTSecret),
		tokenTTL: p.Config.Auth.TokenTTL,
		cost:     cost,
		logger:   p.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a customer profile with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*entity.Profile, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errorbank.BadRequest("a valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, errorbank.BadRequest("password must be at least 8 characters")
	}

	if _, err := s.profiles.FindByEmail(ctx, email); err == nil {
		return nil, errorbank.Conflict("an account with this email already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to check account", errorbank.WithCause(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, errorbank.Internal("failed to hash password", errorbank.WithCause(err))
	}

	now := s.now()
	profile := &entity.Profile{
		Email:        email,
		PasswordHash: string(hash),
		Role:         entity.RoleCustomer,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Contact:      strings.TrimSpace(input.Contact),
		Address:      strings.TrimSpace(input.Address),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to create account", errorbank.WithCause(err))
	}
	return profile, nil
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, *entity.Profile, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, errorbank.BadRequest("email and password are required")
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, errorbank.Unauthorized("invalid email or password")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, nil, errorbank.Upstream("failed to load account", errorbank.WithCause(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, nil, errorbank.Unauthorized("invalid email or password")
	}

	session, err := s.issue(profile)
	if err != nil {
		return nil, nil, errorbank.Internal("failed to issue token", errorbank.WithCause(err))
	}
	return session, profile, nil
}

// Authenticate resolves a bearer token to a profile. Missing, malformed,
// expired, and tampered tokens all fail the same way.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*entity.Profile, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return nil, errorbank.Unauthorized("authentication required")
	}

	token, err := jwt.Parse(bearer, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errorbank.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errorbank.Unauthorized("invalid or expired token")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, errorbank.Unauthorized("invalid or expired token")
	}

	profile, err := s.profiles.FindByID(ctx, int64(sub))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.Unauthorized("invalid or expired token")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to load account", errorbank.WithCause(err))
	}
	return profile, nil
}

// Authorize checks the profile's role against the allowed set. An empty set
// admits any authenticated profile.
func (s *Service) Authorize(profile *entity.Profile, allowed ...entity.Role) error {
	if profile == nil {
		return errorbank.Unauthorized("authentication required")
	}
	if !profile.HasRole(allowed...) {
		return errorbank.Forbidden("you do not have access to this resource")
	}
	return nil
}

func (s *Service) issue(profile *entity.Profile) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":  profile.ID,
		"role": string(profile.Role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, ExpiresAt: expiresAt}, nil
}
