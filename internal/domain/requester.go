package domain

// Requester identifies who is asking for access. It is a closed set:
// Anonymous, AccountRequester and ParticipantRequester.
type Requester interface {
	requester()
}

// Anonymous is a visitor without a recognised credential.
type Anonymous struct{}

// AccountRequester is an authenticated account user with their memberships.
type AccountRequester struct {
	User        User
	Memberships []Membership
}

// ParticipantRequester is a participant whose token decoded successfully.
type ParticipantRequester struct {
	Participant Participant
}

func (Anonymous) requester()            {}
func (AccountRequester) requester()     {}
func (ParticipantRequester) requester() {}

// MembershipFor returns the user's membership in accountID, if any.
func (a AccountRequester) MembershipFor(accountID string) (Membership, bool) {
	for _, m := range a.Memberships {
		if m.AccountID == accountID {
			return m, true
		}
	}
	return Membership{}, false
}

// SessionState is the participant authentication state.
type SessionState string

const (
	SessionAnonymous            SessionState = "ANONYMOUS"
	SessionRegisteredUnverified SessionState = "REGISTERED_UNVERIFIED"
	SessionActive               SessionState = "SESSION_ACTIVE"
)

// StateOf derives the session state of a participant whose token verified.
func StateOf(p Participant) SessionState {
	switch {
	case !p.Registered():
		return SessionAnonymous
	case p.IsAuthenticatedUser:
		return SessionActive
	default:
		return SessionRegisteredUnverified
	}
}

// ParticipantOf returns the participant behind r. Account users and
// anonymous visitors have none.
func ParticipantOf(r Requester) (Participant, bool) {
	if v, ok := r.(ParticipantRequester); ok {
		return v.Participant, true
	}
	return Participant{}, false
}
