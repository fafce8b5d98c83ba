package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-platform/meridian-identity/internal/guard"
	"github.com/meridian-platform/meridian-identity/internal/shared"
	"github.com/meridian-platform/meridian-identity/internal/token"
)

// Service is the token service façade: registration, login, refresh
// rotation, logout, profile access, and generic token validation.
type Service struct {
	repo       Repository
	codec      *token.Codec
	refresh    *token.RefreshStore
	sessionTTL time.Duration
}

// NewService constructs a Service.
func NewService(repo Repository, codec *token.Codec, refresh *token.RefreshStore, sessionTTL time.Duration) *Service {
	return &Service{repo: repo, codec: codec, refresh: refresh, sessionTTL: sessionTTL}
}

// Register creates a new principal with the default role.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         shared.RoleUser,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ValidateUser checks email/password credentials. All failures, including
// unknown email and deactivated accounts, report the same error.
func (s *Service) ValidateUser(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// IssueTokens mints a fresh access/refresh pair for the user and records the
// refresh token hash as the principal's single valid refresh record.
func (s *Service) IssueTokens(ctx context.Context, user *User) (TokenPair, error) {
	access, err := s.codec.IssueAccess(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.IssueRefresh(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.refresh.Set(ctx, user.ID.String(), refresh); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Login validates credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*User, TokenPair, error) {
	user, err := s.ValidateUser(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// RegisterSession persists the session audit record for a login.
func (s *Service) RegisterSession(ctx context.Context, userID uuid.UUID, ip, ua string) error {
	now := time.Now().UTC()
	return s.repo.CreateSession(ctx, Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		IP:        ip,
		UserAgent: ua,
	})
}

// Rotate exchanges a refresh token for a new access/refresh pair. The
// presented token must verify and must match the principal's stored record;
// the swap is atomic, so concurrent rotations of the same token yield
// exactly one winner. All failures are uniform.
func (s *Service) Rotate(ctx context.Context, rawRefresh string) (TokenPair, error) {
	claims, err := s.codec.VerifyRefresh(rawRefresh)
	if err != nil {
		return TokenPair{}, shared.ErrInvalidRefreshToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return TokenPair{}, shared.ErrInvalidRefreshToken
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil || !user.IsActive {
		return TokenPair{}, shared.ErrInvalidRefreshToken
	}

	access, err := s.codec.IssueAccess(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	newRefresh, err := s.codec.IssueRefresh(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.refresh.Swap(ctx, user.ID.String(), rawRefresh, newRefresh); err != nil {
		if errors.Is(err, shared.ErrInvalidRefreshToken) {
			return TokenPair{}, shared.ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Logout clears the principal's refresh record and session audit rows. The
// single-record refresh model makes every logout global, so the all-devices
// intent is satisfied unconditionally.
func (s *Service) Logout(ctx context.Context, principalID string) error {
	id, err := uuid.Parse(principalID)
	if err != nil {
		return shared.ErrMissingUserContext
	}
	if err := s.refresh.Clear(ctx, principalID); err != nil {
		return err
	}
	return s.repo.DeleteSessionsForUser(ctx, id)
}

// Profile returns the principal's account.
func (s *Service) Profile(ctx context.Context, principalID string) (*User, error) {
	id, err := uuid.Parse(principalID)
	if err != nil {
		return nil, shared.ErrUserNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// GetProfile returns the target principal's account after the ownership
// check: admins may read anyone, everyone else only themselves.
func (s *Service) GetProfile(ctx context.Context, identity *guard.ResolvedIdentity, targetID string) (*User, error) {
	if err := guard.CheckOwnership(identity, targetID, shared.PrivilegedRoles()...); err != nil {
		return nil, err
	}
	return s.Profile(ctx, targetID)
}

// UpdateProfileParams carries a profile update. Password changes require the
// current password.
type UpdateProfileParams struct {
	Email           string
	NewPassword     string
	CurrentPassword string
}

// UpdateProfile updates email and/or password for the principal.
func (s *Service) UpdateProfile(ctx context.Context, principalID string, params UpdateProfileParams) (*User, error) {
	user, err := s.Profile(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if params.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(params.Email))
	}
	if params.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.CurrentPassword)) != nil {
			return nil, shared.ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ValidateToken is the generic cross-service check: it accepts a token valid
// under either secret and reports which kind matched. Invalid tokens return
// shared.ErrInvalidToken, never a panic.
func (s *Service) ValidateToken(raw string) (*token.Claims, token.Kind, error) {
	return s.codec.ValidateEither(raw)
}
