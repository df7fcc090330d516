package service

import (
	"context"
	"crypto/subtle"
	"slices"

	"github.com/iliyamo/salon-management/internal/kvstore"
	"github.com/iliyamo/salon-management/internal/model"
	"github.com/iliyamo/salon-management/internal/utils"
)

// Guard decides whether a presented access token may reach a protected
// operation.
type Guard struct {
	sessions     kvstore.Store
	accessSecret string
}

func NewGuard(sessions kvstore.Store, accessSecret string) *Guard {
	return &Guard{sessions: sessions, accessSecret: accessSecret}
}

// Authorize verifies raw, confirms the token is still the stored access
// session (logout revokes tokens that have not yet expired) and then checks
// its role against roles, where an empty set admits any role.  A revoked
// token is always ErrUnauthorized, whatever route it is presented to.
func (g *Guard) Authorize(ctx context.Context, raw string, roles ...model.Role) (*utils.Claims, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}
	claims, err := utils.VerifyToken(raw, g.accessSecret)
	if err != nil || claims.Subject == "" {
		return nil, ErrUnauthorized
	}
	stored, found, err := g.sessions.Get(ctx, SessionKey(claims.Subject, SessionAccess))
	if err != nil {
		return nil, storeErr("read session", err)
	}
	if !found || subtle.ConstantTimeCompare([]byte(stored), []byte(raw)) != 1 {
		return nil, ErrUnauthorized
	}
	if len(roles) > 0 && !slices.Contains(roles, model.Role(claims.Role)) {
		return nil, ErrForbidden
	}
	return claims, nil
}
