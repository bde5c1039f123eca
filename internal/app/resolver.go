package app

import (
	"context"

	"formship-quiz-service/internal/auth"
	"formship-quiz-service/internal/domain"
)

// Resolver turns an optional bearer token into a Requester.
type Resolver struct {
	participants *ParticipantService
	accounts     *AccountService
}

func NewResolver(participants *ParticipantService, accounts *AccountService) *Resolver {
	return &Resolver{participants: participants, accounts: accounts}
}

// Resolve returns Anonymous for an empty token. Tokens that fail verification
// are rejected rather than downgraded to anonymous.
func (r *Resolver) Resolve(ctx context.Context, token string) (domain.Requester, error) {
	if token == "" {
		return domain.Anonymous{}, nil
	}
	switch auth.PeekType(token) {
	case auth.TypeAccount:
		return r.accounts.Authenticate(ctx, token)
	case auth.TypeParticipant:
		p, _, err := r.participants.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return domain.ParticipantRequester{Participant: p}, nil
	}
	return nil, domain.Unauthorized("unrecognised credential", domain.ErrInvalidToken)
}

// requireManager allows owners and admins of accountID.
func requireManager(requester domain.Requester, accountID string) (domain.AccountRequester, error) {
	acct, ok := requester.(domain.AccountRequester)
	if !ok {
		return domain.AccountRequester{}, domain.Unauthorized("account login required", nil)
	}
	m, ok := acct.MembershipFor(accountID)
	if !ok || !m.Role.CanManage() {
		return domain.AccountRequester{}, domain.Forbidden("", "you do not manage this account")
	}
	return acct, nil
}

// requireMember allows any member of accountID.
func requireMember(requester domain.Requester, accountID string) error {
	acct, ok := requester.(domain.AccountRequester)
	if !ok {
		return domain.Unauthorized("account login required", nil)
	}
	if _, ok := acct.MembershipFor(accountID); !ok {
		return domain.Forbidden("", "you are not a member of this account")
	}
	return nil
}
