// Package service holds the application's use cases: the credential flows,
// the access guard, the salon directory cache and salon management.
// Handlers call into it with plain values and get back model types or one of
// the error kinds in errors.go.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/salon-management/internal/kvstore"
	"github.com/iliyamo/salon-management/internal/metrics"
	"github.com/iliyamo/salon-management/internal/model"
	"github.com/iliyamo/salon-management/internal/repository"
	"github.com/iliyamo/salon-management/internal/utils"
)

// Session kinds stored under auth:<principal-id>:<kind>.
const (
	SessionAccess  = "access"
	SessionRefresh = "refresh"
)

// SessionPrefix is the key prefix covering every session entry of a principal.
func SessionPrefix(principalID string) string { return "auth:" + principalID + ":" }

// SessionKey is the session store key for one token kind of a principal.
func SessionKey(principalID, kind string) string { return SessionPrefix(principalID) + kind }

// PrincipalStore is the persistence the credential flows need.
type PrincipalStore interface {
	Create(ctx context.Context, p *model.Principal) error
	GetByEmail(ctx context.Context, email string) (*model.Principal, error)
	GetByID(ctx context.Context, id string) (*model.Principal, error)
	SetPassword(ctx context.Context, id, hash string, role model.Role) error
	SetActive(ctx context.Context, id string, active bool) error
	BumpSessionVersion(ctx context.Context, id string) error
}

// OwnerProfileStore resolves invitations.
type OwnerProfileStore interface {
	GetByID(ctx context.Context, id string) (*model.OwnerProfile, error)
	MarkInvitationConsumed(ctx context.Context, id string) error
}

// AuthConfig carries the signing secrets, token lifetimes and hashing cost.
type AuthConfig struct {
	AccessSecret   string
	RefreshSecret  string
	AdminAccessTTL time.Duration
	OwnerAccessTTL time.Duration
	RefreshTTL     time.Duration
	BcryptCost     int
}

func (c AuthConfig) accessTTL(role model.Role) time.Duration {
	if role == model.RolePlatformAdmin {
		return c.AdminAccessTTL
	}
	return c.OwnerAccessTTL
}

// AuthResult is returned by every flow that opens a session.
type AuthResult struct {
	AccessToken           string                 `json:"accessToken"`
	RefreshToken          string                 `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time              `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time              `json:"refreshTokenExpiresAt"`
	Principal             model.PrincipalSummary `json:"user"`
}

// RegisterInput is the payload for creating a platform admin.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService runs the credential flows: login, registration, refresh,
// logout and invitation activation.  The session store is the source of
// truth for token validity; a token is live only while its exact string is
// stored under the principal's session key.
type AuthService struct {
	principals PrincipalStore
	owners     OwnerProfileStore
	sessions   kvstore.Store
	cfg        AuthConfig
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewAuthService(principals PrincipalStore, owners OwnerProfileStore, sessions kvstore.Store,
	cfg AuthConfig, logger *slog.Logger, m *metrics.Metrics) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		principals: principals,
		owners:     owners,
		sessions:   sessions,
		cfg:        cfg,
		logger:     logger.With("component", "auth"),
		metrics:    m,
	}
}

// LoginAdmin authenticates a platform admin.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.login(ctx, model.RolePlatformAdmin, email, password)
	s.record("admin_login", err)
	return res, err
}

// LoginOwner authenticates a salon owner.  An invited owner who never set a
// password gets ErrNotActivated.
func (s *AuthService) LoginOwner(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.login(ctx, model.RoleSalonOwner, email, password)
	s.record("owner_login", err)
	return res, err
}

func (s *AuthService) login(ctx context.Context, role model.Role, email, password string) (*AuthResult, error) {
	p, err := s.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password, s.cfg.BcryptCost)
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr("lookup principal", err)
	}
	if p.Role != role {
		utils.BurnPasswordCheck(password, s.cfg.BcryptCost)
		return nil, ErrInvalidCredentials
	}
	if !p.HasPassword() {
		return nil, ErrNotActivated
	}
	if !utils.VerifyPassword(p.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	res, err := s.openSession(ctx, p)
	if err != nil {
		return nil, err
	}
	s.markPresence(ctx, p, true)
	return res, nil
}

// RegisterAdmin creates a platform admin and signs it in.
func (s *AuthService) RegisterAdmin(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	res, err := s.registerAdmin(ctx, in)
	s.record("admin_register", err)
	return res, err
}

func (s *AuthService) registerAdmin(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, invalid("email is invalid")
	}
	if len(in.Password) < utils.MinPasswordLength {
		return nil, invalid("password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	p := &model.Principal{
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         model.RolePlatformAdmin,
	}
	if err := s.principals.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, storeErr("create principal", err)
	}
	return s.openSession(ctx, p)
}

// Refresh exchanges a refresh token for a new access/refresh pair.  The
// presented token must verify with the refresh secret, belong to
// principalID, carry the principal's current session version and equal the
// stored refresh entry.  Both entries are replaced, so the presented refresh
// token stops working.  An empty principalID means "the token's subject".
func (s *AuthService) Refresh(ctx context.Context, principalID, refreshToken string) (*AuthResult, error) {
	res, err := s.refresh(ctx, principalID, refreshToken)
	s.record("refresh", err)
	return res, err
}

func (s *AuthService) refresh(ctx context.Context, principalID, refreshToken string) (*AuthResult, error) {
	claims, err := utils.VerifyToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil || claims.Subject == "" {
		return nil, ErrAccessDenied
	}
	if principalID == "" {
		principalID = claims.Subject
	}
	if claims.Subject != principalID {
		return nil, ErrAccessDenied
	}
	p, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, storeErr("lookup principal", err)
	}
	if claims.SessionVersion != p.SessionVersion || claims.Role != string(p.Role) {
		return nil, ErrAccessDenied
	}
	stored, found, err := s.sessions.Get(ctx, SessionKey(p.ID, SessionRefresh))
	if err != nil {
		return nil, storeErr("read session", err)
	}
	if !found || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		return nil, ErrAccessDenied
	}
	return s.openSession(ctx, p)
}

// Logout revokes every session of the principal: the session version is
// bumped and all auth:<id>: entries are deleted.  Logging out an unknown or
// already logged-out principal succeeds.
func (s *AuthService) Logout(ctx context.Context, principalID string) error {
	err := s.logout(ctx, principalID)
	s.record("logout", err)
	return err
}

func (s *AuthService) logout(ctx context.Context, principalID string) error {
	if principalID == "" {
		return nil
	}
	p, err := s.principals.GetByID(ctx, principalID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return storeErr("lookup principal", err)
	}
	if p != nil {
		if err := s.principals.BumpSessionVersion(ctx, p.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return storeErr("bump session version", err)
		}
	}
	if _, err := s.sessions.DeleteByPrefix(ctx, SessionPrefix(principalID)); err != nil {
		return storeErr("delete sessions", err)
	}
	if p != nil {
		s.markPresence(ctx, p, false)
	}
	return nil
}

// SetOwnerPassword activates an invited owner: the password is stored, the
// invitation marked consumed and a session opened.  Calling it again simply
// replaces the password and reissues tokens.
func (s *AuthService) SetOwnerPassword(ctx context.Context, invitationID, password string) (*AuthResult, error) {
	res, err := s.setOwnerPassword(ctx, invitationID, password)
	s.record("set_password", err)
	return res, err
}

func (s *AuthService) setOwnerPassword(ctx context.Context, invitationID, password string) (*AuthResult, error) {
	if len(password) < utils.MinPasswordLength {
		return nil, invalid("password must be at least 6 characters")
	}
	op, err := s.owners.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("lookup invitation", err)
	}
	p, err := s.principals.GetByID(ctx, op.PrincipalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("lookup principal", err)
	}
	switch p.Role {
	case "":
		p.Role = model.RoleSalonOwner
	case model.RoleSalonOwner:
	default:
		// An invitation never grants control over an admin or employee account.
		return nil, ErrNotFound
	}
	if op.InvitationConsumedAt != nil && p.HasPassword() {
		return nil, conflict("invitation has already been used")
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.principals.SetPassword(ctx, p.ID, hash, p.Role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("set password", err)
	}
	p.PasswordHash = hash
	if err := s.owners.MarkInvitationConsumed(ctx, op.ID); err != nil {
		return nil, storeErr("consume invitation", err)
	}
	res, err := s.openSession(ctx, p)
	if err != nil {
		return nil, err
	}
	s.markPresence(ctx, p, true)
	return res, nil
}

// Me returns the caller's own summary.
func (s *AuthService) Me(ctx context.Context, actor *utils.Claims) (model.PrincipalSummary, error) {
	if actor == nil || actor.Subject == "" {
		return model.PrincipalSummary{}, ErrUnauthorized
	}
	p, err := s.principals.GetByID(ctx, actor.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PrincipalSummary{}, ErrUnauthorized
		}
		return model.PrincipalSummary{}, storeErr("lookup principal", err)
	}
	return p.Summary(), nil
}

// openSession mints an access/refresh pair for p and records both in the
// session store.  A session write failure fails the whole flow: a token that
// is not stored would be rejected by the guard anyway.
func (s *AuthService) openSession(ctx context.Context, p *model.Principal) (*AuthResult, error) {
	base := utils.Claims{
		Email:            p.Email,
		Role:             string(p.Role),
		SessionVersion:   p.SessionVersion,
		RegisteredClaims: jwt.RegisteredClaims{Subject: p.ID},
	}
	access, err := utils.IssueToken(base, s.cfg.AccessSecret, s.cfg.accessTTL(p.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := utils.IssueToken(base, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, SessionKey(p.ID, SessionAccess), access.Value, s.cfg.accessTTL(p.Role)); err != nil {
		return nil, storeErr("write access session", err)
	}
	if err := s.sessions.Set(ctx, SessionKey(p.ID, SessionRefresh), refresh.Value, s.cfg.RefreshTTL); err != nil {
		return nil, storeErr("write refresh session", err)
	}
	return &AuthResult{
		AccessToken:           access.Value,
		RefreshToken:          refresh.Value,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
		Principal:             p.Summary(),
	}, nil
}

// markPresence flips is_active for roles that show presence.  The flag is
// informational, so a failure is logged and swallowed.
func (s *AuthService) markPresence(ctx context.Context, p *model.Principal, active bool) {
	if !p.Role.TracksPresence() {
		return
	}
	if err := s.principals.SetActive(ctx, p.ID, active); err != nil {
		s.logger.Warn("update presence failed", slog.String("principal_id", p.ID), slog.Any("error", err))
		return
	}
	p.IsActive = active
}

func (s *AuthService) record(flow string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidCredentials):
		outcome = "invalid_credentials"
	case errors.Is(err, ErrNotActivated):
		outcome = "not_activated"
	case errors.Is(err, ErrUnauthorized):
		outcome = "denied"
	case errors.Is(err, ErrStoreFailure):
		outcome = "store_failure"
		s.logger.Error("credential flow failed", slog.String("flow", flow), slog.Any("error", err))
	default:
		outcome = "error"
	}
	s.metrics.Auth(flow, outcome)
}
