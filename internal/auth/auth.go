// Package auth bridges an external identity provider to the engine's notion
// of the current user. Credentials, tokens and signup flows live outside;
// this package only maps an asserted identity onto a stored profile.
package auth

import (
	"context"

	"stablecore/internal/core"
	"stablecore/pkg/domain"
)

// Identity is what the external provider asserts about the caller.
type Identity struct {
	Subject string // stable provider-side id, used as the profile id when known
	Name    string
	Email   string
}

// Manager resolves identities to user profiles and drives the session
// scalars of the engine.
type Manager struct {
	svc *core.Service
}

// NewManager returns a manager bound to the given service.
func NewManager(svc *core.Service) *Manager {
	return &Manager{svc: svc}
}

// SignIn resolves the identity to an existing profile, by id first and then
// by email, and marks it as the current user. Unknown identities fail; member
// profiles are created by stable owners, not by signing in.
func (m *Manager) SignIn(ctx context.Context, id Identity) (domain.UserProfile, domain.CommandResult) {
	if u, ok := m.svc.Store().GetUser(id.Subject); ok {
		return m.svc.SignIn(ctx, u.ID)
	}
	if id.Email != "" {
		for _, u := range m.svc.Store().ListUsers() {
			if u.Email != nil && *u.Email == id.Email {
				return m.svc.SignIn(ctx, u.ID)
			}
		}
	}
	return domain.UserProfile{}, domain.Failf("no profile for identity %q", id.Subject)
}

// SignOut clears the current user and stable selection.
func (m *Manager) SignOut(ctx context.Context) domain.CommandResult {
	return m.svc.SignOut(ctx)
}

// Current returns the signed-in profile, if any.
func (m *Manager) Current() (domain.UserProfile, bool) {
	id := m.svc.Store().CurrentUserID()
	if id == "" {
		return domain.UserProfile{}, false
	}
	return m.svc.Store().GetUser(id)
}
