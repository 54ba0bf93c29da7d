package auth

import (
	"context"
	"testing"

	"stablecore/internal/core"
	"stablecore/pkg/domain"
)

func newManager(t *testing.T) (*Manager, *core.Service) {
	t.Helper()
	svc := core.NewInMemoryService()
	return NewManager(svc), svc
}

func seedProfile(t *testing.T, svc *core.Service, name, email string) domain.UserProfile {
	t.Helper()
	var u domain.UserProfile
	err := svc.Store().RunInTransaction(context.Background(), func(tx *core.Transaction) error {
		profile := domain.UserProfile{Name: name}
		if email != "" {
			profile.Email = &email
		}
		var err error
		u, err = tx.CreateUser(profile)
		return err
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return u
}

func TestSignInBySubject(t *testing.T) {
	mgr, svc := newManager(t)
	u := seedProfile(t, svc, "Anna", "")

	got, res := mgr.SignIn(context.Background(), Identity{Subject: u.ID})
	if !res.Success {
		t.Fatalf("sign in: %s", res.Reason)
	}
	if got.ID != u.ID {
		t.Fatalf("wrong profile: %+v", got)
	}
	if cur, ok := mgr.Current(); !ok || cur.ID != u.ID {
		t.Fatalf("current user not set")
	}
}

func TestSignInFallsBackToEmail(t *testing.T) {
	mgr, svc := newManager(t)
	u := seedProfile(t, svc, "Anna", "anna@example.com")

	got, res := mgr.SignIn(context.Background(), Identity{Subject: "oidc|12345", Email: "anna@example.com"})
	if !res.Success {
		t.Fatalf("sign in: %s", res.Reason)
	}
	if got.ID != u.ID {
		t.Fatalf("email lookup picked wrong profile: %+v", got)
	}
}

func TestSignInUnknownIdentityFails(t *testing.T) {
	mgr, _ := newManager(t)
	_, res := mgr.SignIn(context.Background(), Identity{Subject: "oidc|nobody", Email: "nobody@example.com"})
	if res.Success {
		t.Fatalf("unknown identities must not create profiles")
	}
	if _, ok := mgr.Current(); ok {
		t.Fatalf("failed sign in must not set a current user")
	}
}

func TestSignOutClearsSession(t *testing.T) {
	mgr, svc := newManager(t)
	u := seedProfile(t, svc, "Anna", "")
	if _, res := mgr.SignIn(context.Background(), Identity{Subject: u.ID}); !res.Success {
		t.Fatalf("sign in failed: %s", res.Reason)
	}

	if res := mgr.SignOut(context.Background()); !res.Success {
		t.Fatalf("sign out: %s", res.Reason)
	}
	if _, ok := mgr.Current(); ok {
		t.Fatalf("session must be cleared")
	}
}
