package domain

// Action tells the client which flow to drive after a denial.
type Action string

const (
	ActionQuizUnavailable Action = "QUIZ_UNAVAILABLE"
	ActionRequireAuth     Action = "REQUIRE_AUTH"
	ActionRequireEmail    Action = "REQUIRE_EMAIL"
	ActionNotInvited      Action = "NOT_INVITED"
	ActionRequirePassword Action = "REQUIRE_PASSWORD"
	ActionInvalidSetting  Action = "INVALID_SETTING"
)

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Action  Action `json:"required_action,omitempty"`

	// Owner is set when the allow came from the owner short-circuit.
	Owner bool `json:"-"`
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denial with a human reason and a machine action.
func Deny(action Action, reason string) Decision {
	return Decision{Reason: reason, Action: action}
}

// Err converts a denial into a Forbidden error carrying its action.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &Error{Kind: KindForbidden, Action: d.Action, Message: d.Reason}
}
