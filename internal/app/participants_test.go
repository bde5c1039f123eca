package app_test

import (
	"context"
	"errors"
	"testing"

	"formship-quiz-service/internal/domain"
)

func TestRegisterLoginRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.participants.Register(ctx, " Ada@Example.com ", "Ada", "pw-123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Participant.Email != "ada@example.com" || !reg.Participant.IsAuthenticatedUser {
		t.Fatalf("unexpected participant %+v", reg.Participant)
	}
	if string(reg.Participant.PasswordHash) == "pw-123" {
		t.Fatalf("password stored in clear")
	}

	login, err := f.participants.Login(ctx, "ada@example.com", "pw-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := f.issuer.ParseParticipant(login.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.ParticipantID != reg.Participant.ID || claims.Type != "participant" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.participants.Register(ctx, "dup@example.com", "One", "pw"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := f.participants.Register(ctx, "DUP@example.com", "Two", "pw")
	if domain.KindOf(err) != domain.KindConflict || !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.participants.Register(ctx, "known@example.com", "Known", "right"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.participants.CreateAnonymous(ctx, "anon@example.com", "Anon"); err != nil {
		t.Fatalf("anonymous: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		kind     domain.Kind
	}{
		{name: "unknown email", email: "nobody@example.com", password: "x", kind: domain.KindUnauthorized},
		{name: "wrong password", email: "known@example.com", password: "wrong", kind: domain.KindUnauthorized},
		{name: "anonymous record has no password", email: "anon@example.com", password: "x", kind: domain.KindUnauthorized},
		{name: "missing password", email: "known@example.com", password: "", kind: domain.KindValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.participants.Login(ctx, tc.email, tc.password); domain.KindOf(err) != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestLogoutRevokesTokenAndEndsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requester, token := f.registered(t, "bye@example.com")

	if err := f.participants.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := f.participants.Authenticate(ctx, token); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}
	p, err := f.store.GetParticipant(ctx, requester.Participant.ID)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if domain.StateOf(p) != domain.SessionRegisteredUnverified {
		t.Fatalf("expected REGISTERED_UNVERIFIED after logout, got %s", domain.StateOf(p))
	}

	again, err := f.participants.Login(ctx, "bye@example.com", "secret-pw")
	if err != nil {
		t.Fatalf("login after logout: %v", err)
	}
	if domain.StateOf(again.Participant) != domain.SessionActive {
		t.Fatalf("expected SESSION_ACTIVE after login, got %s", domain.StateOf(again.Participant))
	}
}

func TestDeleteParticipantRemovesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := f.addQuiz(t, published(domain.AccessPublic))
	requester, _ := f.registered(t, "gone@example.com")

	if _, err := f.ledger.Link(ctx, requester, quiz); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := f.participants.Delete(ctx, requester.Participant.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rows := f.participations(t, quiz.ID); len(rows) != 0 {
		t.Fatalf("expected ledger rows removed, got %d", len(rows))
	}
	if _, err := f.store.GetParticipant(ctx, requester.Participant.ID); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant gone, got %v", err)
	}
}

func TestResolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, participantToken := f.registered(t, "resolve@example.com")

	acct, err := f.accounts.Register(ctx, "author@example.com", "Author", "pw", "Author Co")
	if err != nil {
		t.Fatalf("account register: %v", err)
	}

	r, err := f.resolver.Resolve(ctx, "")
	if _, ok := r.(domain.Anonymous); !ok || err != nil {
		t.Fatalf("expected anonymous, got %T %v", r, err)
	}
	r, err = f.resolver.Resolve(ctx, participantToken)
	if _, ok := r.(domain.ParticipantRequester); !ok || err != nil {
		t.Fatalf("expected participant, got %T %v", r, err)
	}
	r, err = f.resolver.Resolve(ctx, acct.Token)
	ar, ok := r.(domain.AccountRequester)
	if !ok || err != nil {
		t.Fatalf("expected account user, got %T %v", r, err)
	}
	if m, ok := ar.MembershipFor(acct.AccountID); !ok || m.Role != domain.RoleOwner {
		t.Fatalf("expected owner membership, got %+v", ar.Memberships)
	}
	if _, err := f.resolver.Resolve(ctx, "garbage"); domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}
}

func TestAccountTokenIsNotAParticipantToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct, err := f.accounts.Register(ctx, "author2@example.com", "Author", "pw", "")
	if err != nil {
		t.Fatalf("account register: %v", err)
	}
	if _, _, err := f.participants.Authenticate(ctx, acct.Token); domain.KindOf(err) != domain.KindUnauthorized {
		t.Fatalf("expected account token rejected as participant credential, got %v", err)
	}
}
