package auth

import (
	"errors"
	"testing"
	"time"

	"formship-quiz-service/internal/domain"
	jwt "github.com/golang-jwt/jwt/v5"
)

func TestParticipantTokenRoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, time.Hour)
	p := domain.Participant{ID: "p123", Email: "a@x.com", Name: "Ann"}

	tok, err := iss.IssueParticipant(p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := iss.ParseParticipant(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ParticipantID != "p123" || claims.Email != "a@x.com" || claims.Name != "Ann" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Type != TypeParticipant || claims.ID == "" {
		t.Fatalf("expected participant type and jti, got %+v", claims)
	}
	if PeekType(tok) != TypeParticipant {
		t.Fatalf("expected peek to report participant")
	}
}

func TestTokenClassesAreNotInterchangeable(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, time.Hour)

	accountTok, err := iss.IssueAccount(domain.User{ID: "u1", Email: "owner@x.com"})
	if err != nil {
		t.Fatalf("issue account: %v", err)
	}
	if _, err := iss.ParseParticipant(accountTok); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token for account token, got %v", err)
	}

	participantTok, err := iss.IssueParticipant(domain.Participant{ID: "p1"})
	if err != nil {
		t.Fatalf("issue participant: %v", err)
	}
	if _, err := iss.ParseAccount(participantTok); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token for participant token, got %v", err)
	}
}

func TestParticipantTokenWithoutTypeRejected(t *testing.T) {
	claims := jwt.MapClaims{
		"participant_id": "p1",
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	iss := NewIssuer("secret", time.Hour, time.Hour)
	if _, err := iss.ParseParticipant(tok); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestExpiredAndTamperedTokensRejected(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	iss := NewIssuerWithClock("secret", time.Minute, time.Minute, func() time.Time { return now })

	tok, err := iss.IssueParticipant(domain.Participant{ID: "p1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = start.Add(2 * time.Minute)
	if _, err := iss.ParseParticipant(tok); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	now = start
	other := NewIssuerWithClock("other-secret", time.Minute, time.Minute, func() time.Time { return now })
	if _, err := other.ParseParticipant(tok); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected signature mismatch to be rejected, got %v", err)
	}
}
