package domain

import "time"

// AccessControl governs who may view or attempt a quiz.
type AccessControl string

const (
	AccessPublic        AccessControl = "public"
	AccessInvitation    AccessControl = "invitation"
	AccessLoginRequired AccessControl = "login_required"
	AccessPassword      AccessControl = "password"
)

// Valid reports whether the mode is one of the known access modes.
func (a AccessControl) Valid() bool {
	switch a {
	case AccessPublic, AccessInvitation, AccessLoginRequired, AccessPassword:
		return true
	}
	return false
}

// Role is an account membership role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// CanManage reports whether the role may administer quizzes of its account.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Quiz carries the catalog fields the access and scoring logic reads.
type Quiz struct {
	ID                string        `json:"id"`
	AccountID         string        `json:"accountId"`
	Title             string        `json:"title"`
	AccessControl     AccessControl `json:"accessControl"`
	IsPublished       bool          `json:"isPublished"`
	IsTesting         bool          `json:"isTesting"`
	RequirePassword   bool          `json:"requirePassword"`
	Password          *string       `json:"-"`
	AllowAnonymous    bool          `json:"allowAnonymous"`
	RequireName       bool          `json:"requireName"`
	DisplayResults    bool          `json:"displayResults"`
	IsTimed           bool          `json:"isTimed"`
	QuizTimeLimit     *int          `json:"quizTimeLimit,omitempty"` // minutes
	AreQuestionsTimed bool          `json:"areQuestionsTimed"`
	TimePerQuestion   *int          `json:"timePerQuestion,omitempty"` // seconds
	CreatedAt         time.Time     `json:"createdAt"`
}

// Question is a multiple choice question keyed by option letter.
type Question struct {
	ID            string            `json:"id"`
	QuizID        string            `json:"quizId"`
	Text          string            `json:"text"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer,omitempty"`
	Order         int               `json:"order"`
}

// Participant is a person taking quizzes. PasswordHash is empty for anonymous records.
type Participant struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email,omitempty"`
	Name                string    `json:"name,omitempty"`
	PasswordHash        []byte    `json:"-"`
	IsAuthenticatedUser bool      `json:"isAuthenticatedUser"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Registered reports whether the participant has credentials on file.
func (p Participant) Registered() bool {
	return len(p.PasswordHash) > 0
}

// Participation is the per-(participant, quiz) ledger row.
type Participation struct {
	ID              string     `json:"id"`
	ParticipantID   string     `json:"participantId"`
	QuizID          string     `json:"quizId"`
	FinalScore      *float64   `json:"finalScore"`
	HasCompleted    bool       `json:"hasCompleted"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	RespondedAt     *time.Time `json:"respondedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// InvitedUser is an allow-list entry for an invitation-gated quiz.
type InvitedUser struct {
	ID           string    `json:"id"`
	QuizID       string    `json:"quizId"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"isActive"`
	HasResponded bool      `json:"hasResponded"`
	InvitedAt    time.Time `json:"invitedAt"`
}

// Account is the tenant that owns quizzes.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is an authenticated account user (a quiz author), distinct from participants.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Membership links a user to an account with a role.
type Membership struct {
	AccountID string `json:"accountId"`
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
}

// ResultEvent is published when a participant completes a quiz.
type ResultEvent struct {
	QuizID        string    `json:"quizId"`
	ParticipantID string    `json:"participantId"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Score         float64   `json:"score"`
	Total         int       `json:"total"`
	CompletedAt   time.Time `json:"completedAt"`
}
