// Package identity resolves users to their role sets and manages accounts,
// credentials, and session tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"festivalhub/internal/access"
	"festivalhub/internal/apperr"
	"festivalhub/internal/models"
)

// maxLookups bounds concurrent user lookups during reference validation.
const maxLookups = 8

// dummyPasswordHash keeps login timing similar for unknown usernames.
var dummyPasswordHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z1Z8ItKxIJH7G8kQGIMqSyg2")

// Store describes the persistence operations required by the directory.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	AddUserRole(ctx context.Context, id string, role models.Role) (*models.User, error)
}

// Directory is the role lookup consumed by the lifecycle engines.
type Directory interface {
	// Roles returns the role set of userID, or a not-found error.
	Roles(ctx context.Context, userID string) (models.RoleSet, error)
	// RequireRole checks every id and reports all that are unknown or lack role.
	RequireRole(ctx context.Context, ids []string, role models.Role, label string) error
	// GrantRole adds role to the user if it is missing.
	GrantRole(ctx context.Context, userID string, role models.Role) (*models.User, error)
}

// Service adds account management and token handling to the directory.
type Service interface {
	Directory
	Signup(ctx context.Context, input SignupInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (access.Caller, error)
}

// SignupInput carries a new account request.
type SignupInput struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Config controls token issuing.
type Config struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
}

type claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

type service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// New wires a Service backed by the provided Store.
func New(store Store, cfg Config) Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &service{store: store, cfg: cfg, now: time.Now}
}

func (s *service) Roles(ctx context.Context, userID string) (models.RoleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}

func (s *service) RequireRole(ctx context.Context, ids []string, role models.Role, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	invalid := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for i, id := range ids {
		i, id := i, id
		if strings.TrimSpace(id) == "" {
			invalid[i] = true
			continue
		}
		g.Go(func() error {
			roles, err := s.Roles(gctx, id)
			switch {
			case apperr.KindOf(err) == apperr.KindNotFound:
				invalid[i] = true
				return nil
			case err != nil:
				return err
			}
			invalid[i] = !roles.Has(role)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var offending []string
	for i, bad := range invalid {
		if bad {
			offending = append(offending, ids[i])
		}
	}
	if len(offending) > 0 {
		return apperr.Reference(fmt.Sprintf("%s are invalid or lack the %s role", label, role), offending...)
	}
	return nil
}

func (s *service) GrantRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.AddUserRole(ctx, userID, role)
}

func (s *service) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var missing []string
	if strings.TrimSpace(input.Username) == "" {
		missing = append(missing, "username")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(input.FullName) == "" {
		missing = append(missing, "fullName")
	}
	if len(input.Roles) == 0 {
		missing = append(missing, "roles")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("missing required fields", missing...)
	}

	roles, err := models.ParseRoleSet(input.Roles)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.store.CreateUser(ctx, &models.User{
		Username:     strings.TrimSpace(input.Username),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Roles:        roles,
	})
}

func (s *service) Login(ctx context.Context, username, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	now := s.now()
	expires := now.Add(s.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		Roles:    user.Roles.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{Token: signed, ExpiresAt: expires, User: user}, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (access.Caller, error) {
	if err := ctx.Err(); err != nil {
		return access.Caller{}, err
	}
	if token == "" {
		return access.Caller{}, apperr.Unauthenticated("missing bearer token")
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return access.Caller{}, apperr.Unauthenticated("token expired")
		}
		return access.Caller{}, apperr.Unauthenticated("invalid token")
	}

	roles, err := models.ParseRoleSet(c.Roles)
	if err != nil || c.Subject == "" {
		return access.Caller{}, apperr.Unauthenticated("invalid token claims")
	}

	return access.Caller{ID: c.Subject, Username: c.Username, Roles: roles}, nil
}

var errInvalidCredentials = apperr.Unauthenticated("invalid credentials")
