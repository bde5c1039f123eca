package auth

import (
	"errors"
	"fmt"
	"time"

	"formship-quiz-service/internal/domain"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token classes. A token of one class is never accepted where the other is expected.
const (
	TypeParticipant = "participant"
	TypeAccount     = "account"
)

// ParticipantClaims is the payload of a participant session token.
type ParticipantClaims struct {
	ParticipantID string `json:"participant_id"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Type          string `json:"type"`
	jwt.RegisteredClaims
}

// AccountClaims is the payload of an account user token.
type AccountClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens for both credential classes.
type Issuer struct {
	secret         []byte
	participantTTL time.Duration
	accountTTL     time.Duration
	now            func() time.Time
}

func NewIssuer(secret string, participantTTL, accountTTL time.Duration) *Issuer {
	return &Issuer{
		secret:         []byte(secret),
		participantTTL: participantTTL,
		accountTTL:     accountTTL,
		now:            time.Now,
	}
}

// NewIssuerWithClock is test-only for deterministic expiry.
func NewIssuerWithClock(secret string, participantTTL, accountTTL time.Duration, now func() time.Time) *Issuer {
	iss := NewIssuer(secret, participantTTL, accountTTL)
	iss.now = now
	return iss
}

// IssueParticipant signs a participant-class token.
func (i *Issuer) IssueParticipant(p domain.Participant) (string, error) {
	claims := ParticipantClaims{
		ParticipantID:    p.ID,
		Email:            p.Email,
		Name:             p.Name,
		Type:             TypeParticipant,
		RegisteredClaims: i.registered(p.ID, i.participantTTL),
	}
	return i.sign(claims)
}

// IssueAccount signs an account-class token.
func (i *Issuer) IssueAccount(u domain.User) (string, error) {
	claims := AccountClaims{
		UserID:           u.ID,
		Email:            u.Email,
		Type:             TypeAccount,
		RegisteredClaims: i.registered(u.ID, i.accountTTL),
	}
	return i.sign(claims)
}

// ParseParticipant verifies signature, expiry and the participant discriminator.
func (i *Issuer) ParseParticipant(tok string) (*ParticipantClaims, error) {
	claims := &ParticipantClaims{}
	if err := i.parse(tok, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeParticipant {
		return nil, fmt.Errorf("%w: not a participant token", domain.ErrInvalidToken)
	}
	if claims.ParticipantID == "" {
		return nil, fmt.Errorf("%w: missing participant_id", domain.ErrInvalidToken)
	}
	return claims, nil
}

// ParseAccount verifies signature, expiry and the account discriminator.
func (i *Issuer) ParseAccount(tok string) (*AccountClaims, error) {
	claims := &AccountClaims{}
	if err := i.parse(tok, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccount {
		return nil, fmt.Errorf("%w: not an account token", domain.ErrInvalidToken)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", domain.ErrInvalidToken)
	}
	return claims, nil
}

// PeekType returns the unverified type claim so callers can route to the right parser.
// The result must never be trusted on its own.
func PeekType(tok string) string {
	var claims struct {
		Type string `json:"type"`
		jwt.RegisteredClaims
	}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return ""
	}
	return claims.Type
}

func (i *Issuer) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *Issuer) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *Issuer) parse(tok string, claims jwt.Claims) error {
	t, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: token expired", domain.ErrInvalidToken)
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !t.Valid {
		return domain.ErrInvalidToken
	}
	return nil
}
