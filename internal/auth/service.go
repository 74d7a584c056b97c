package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deepfake-guard/internal/latency"
	"deepfake-guard/internal/model"
	"github.com/google/uuid"
)

// UserRepository persists user records. CreateUser must reject a duplicate
// email or federated id atomically with model.ErrDuplicateEmail. Lookups
// return model.ErrNotFound for missing rows.
type UserRepository interface {
	CreateUser(ctx context.Context, u model.UserRecord) error
	UpdateUser(ctx context.Context, u model.UserRecord) error
	UserByID(ctx context.Context, id string) (model.UserRecord, error)
	UserByEmail(ctx context.Context, email string) (model.UserRecord, error)
	UserByFederatedID(ctx context.Context, subject string) (model.UserRecord, error)
}

// TokenRepository holds the single active token per user.
type TokenRepository interface {
	PutToken(ctx context.Context, userID, token string) error
	UserIDForToken(ctx context.Context, token string) (string, error)
}

type Options struct {
	TokenConfig TokenConfig
	Decoder     IdentityDecoder
	Latency     *latency.Range
	BcryptCost  int
	Logger      *slog.Logger
}

type Service struct {
	users    UserRepository
	tokens   TokenRepository
	tokenCfg TokenConfig
	decoder  IdentityDecoder
	latency  *latency.Range
	cost     int
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(users UserRepository, tokens TokenRepository, opts Options) *Service {
	decoder := opts.Decoder
	if decoder == nil {
		decoder = JWTIdentityDecoder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		tokenCfg: opts.TokenConfig,
		decoder:  decoder,
		latency:  opts.Latency,
		cost:     opts.BcryptCost,
		logger:   logger.With("component", "auth"),
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, email, password, name string) (model.AuthResult, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return model.AuthResult{}, err
	}

	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return model.AuthResult{}, fmt.Errorf("%w: email", model.ErrMissingInput)
	}
	if name == "" {
		return model.AuthResult{}, fmt.Errorf("%w: name", model.ErrMissingInput)
	}

	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return model.AuthResult{}, model.ErrDuplicateEmail
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.AuthResult{}, fmt.Errorf("%w: %v", model.ErrOperationFailed, err)
	}

	if len(password) < MinPasswordLength {
		return model.AuthResult{}, model.ErrWeakPassword
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("%w: hash password: %v", model.ErrOperationFailed, err)
	}

	rec := model.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.users.CreateUser(ctx, rec); err != nil {
		return model.AuthResult{}, repoErr(err)
	}

	s.logger.Info("user registered", "user_id", rec.ID)
	return s.issue(ctx, rec)
}

func (s *Service) Login(ctx context.Context, email, password string) (model.AuthResult, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return model.AuthResult{}, err
	}

	rec, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, model.ErrNotFound) {
		return model.AuthResult{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.AuthResult{}, repoErr(err)
	}

	ok, err := CheckPassword(rec.PasswordHash, password)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("%w: %v", model.ErrOperationFailed, err)
	}
	if !ok {
		s.logger.Warn("login rejected", "user_id", rec.ID)
		return model.AuthResult{}, model.ErrInvalidCredentials
	}

	return s.issue(ctx, rec)
}

// FederatedLogin resolves the asserted identity by subject, then by email
// (linking the subject and avatar onto that account), and otherwise creates a
// password-less account.
func (s *Service) FederatedLogin(ctx context.Context, credential string) (model.AuthResult, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return model.AuthResult{}, err
	}

	id, err := s.decoder.Decode(ctx, credential)
	if err != nil {
		return model.AuthResult{}, err
	}

	rec, err := s.users.UserByFederatedID(ctx, id.Subject)
	if err == nil {
		return s.issue(ctx, rec)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.AuthResult{}, repoErr(err)
	}

	rec, err = s.users.UserByEmail(ctx, id.Email)
	switch {
	case err == nil:
		rec.FederatedID = id.Subject
		if id.Picture != "" {
			rec.Avatar = id.Picture
		}
		if err := s.users.UpdateUser(ctx, rec); err != nil {
			return model.AuthResult{}, repoErr(err)
		}
		s.logger.Info("federated identity linked", "user_id", rec.ID)
	case errors.Is(err, model.ErrNotFound):
		name := id.Name
		if name == "" {
			name, _, _ = strings.Cut(id.Email, "@")
		}
		rec = model.UserRecord{
			ID:          uuid.NewString(),
			Email:       id.Email,
			Name:        name,
			Avatar:      id.Picture,
			FederatedID: id.Subject,
			CreatedAt:   s.now().UnixMilli(),
		}
		if err := s.users.CreateUser(ctx, rec); err != nil {
			return model.AuthResult{}, repoErr(err)
		}
		s.logger.Info("federated user created", "user_id", rec.ID)
	default:
		return model.AuthResult{}, repoErr(err)
	}

	return s.issue(ctx, rec)
}

// Logout is a no-op: tokens are not revoked server side.
func (s *Service) Logout(ctx context.Context) error {
	return s.latency.Wait(ctx)
}

func (s *Service) VerifyToken(ctx context.Context, token string) (model.User, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return model.User{}, err
	}
	return s.ResolveToken(ctx, token)
}

// ResolveToken is VerifyToken without simulated latency. The token must be
// validly signed, unexpired and still the active token of its user.
func (s *Service) ResolveToken(ctx context.Context, token string) (model.User, error) {
	claims, err := ParseToken(token, s.tokenCfg)
	if err != nil {
		return model.User{}, model.ErrInvalidToken
	}

	userID, err := s.tokens.UserIDForToken(ctx, token)
	if errors.Is(err, model.ErrNotFound) || (err == nil && userID != claims.UserID) {
		return model.User{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.User{}, repoErr(err)
	}

	rec, err := s.users.UserByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.User{}, repoErr(err)
	}
	return rec.Public(), nil
}

func (s *Service) issue(ctx context.Context, rec model.UserRecord) (model.AuthResult, error) {
	token, err := IssueToken(rec.ID, s.tokenCfg)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("%w: issue token: %v", model.ErrOperationFailed, err)
	}
	if err := s.tokens.PutToken(ctx, rec.ID, token); err != nil {
		return model.AuthResult{}, repoErr(err)
	}
	return model.AuthResult{User: rec.Public(), Token: token}, nil
}

// repoErr keeps taxonomy errors as they are and folds anything else into
// ErrOperationFailed.
func repoErr(err error) error {
	if errors.Is(err, model.ErrDuplicateEmail) || errors.Is(err, model.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrOperationFailed, err)
}
