package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"formship-quiz-service/internal/domain"
)

// Store is an in-memory implementation of every app repository. It mirrors
// the relational constraints: unique registered emails, one participation
// per (participant, quiz), one invitation per (quiz, email) and cascades.
type Store struct {
	mu sync.RWMutex

	quizzes        map[string]domain.Quiz
	questions      map[string][]domain.Question
	participants   map[string]domain.Participant
	participations map[string]domain.Participation
	invitations    map[string]domain.InvitedUser
	accounts       map[string]domain.Account
	users          map[string]domain.User
	memberships    []domain.Membership
}

func NewStore() *Store {
	return &Store{
		quizzes:        make(map[string]domain.Quiz),
		questions:      make(map[string][]domain.Question),
		participants:   make(map[string]domain.Participant),
		participations: make(map[string]domain.Participation),
		invitations:    make(map[string]domain.InvitedUser),
		accounts:       make(map[string]domain.Account),
		users:          make(map[string]domain.User),
	}
}

// Catalog

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

func (s *Store) GetQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	return cloneQuestions(s.questions[quizID]), nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	qs := cloneQuestions(questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	s.questions[quiz.ID] = qs
	return nil
}

func (s *Store) SetPublished(_ context.Context, quizID string, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	q.IsPublished = published
	s.quizzes[quizID] = q
	return nil
}

// DeleteQuiz removes a quiz with its questions, participations and invitations.
func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	delete(s.questions, quizID)
	for id, p := range s.participations {
		if p.QuizID == quizID {
			delete(s.participations, id)
		}
	}
	for key, inv := range s.invitations {
		if inv.QuizID == quizID {
			delete(s.invitations, key)
		}
	}
	return nil
}

// Participants

func (s *Store) CreateParticipant(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Registered() {
		for _, existing := range s.participants {
			if existing.Registered() && strings.EqualFold(existing.Email, p.Email) {
				return domain.ErrEmailTaken
			}
		}
	}
	s.participants[p.ID] = p
	return nil
}

func (s *Store) GetParticipant(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *Store) FindRegisteredByEmail(_ context.Context, email string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.Registered() && strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (s *Store) SetAuthenticated(_ context.Context, id string, authenticated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.IsAuthenticatedUser = authenticated
	s.participants[id] = p
	return nil
}

func (s *Store) DeleteParticipant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[id]; !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.participants, id)
	for pid, p := range s.participations {
		if p.ParticipantID == id {
			delete(s.participations, pid)
		}
	}
	return nil
}

// Participations

func (s *Store) GetParticipation(_ context.Context, participantID, quizID string) (domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participations {
		if p.ParticipantID == participantID && p.QuizID == quizID {
			return p, nil
		}
	}
	return domain.Participation{}, domain.ErrParticipationNotFound
}

func (s *Store) CreateParticipation(_ context.Context, row domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participations {
		if p.ParticipantID == row.ParticipantID && p.QuizID == row.QuizID {
			return domain.ErrParticipationExists
		}
	}
	s.participations[row.ID] = row
	return nil
}

func (s *Store) CompleteParticipation(_ context.Context, id string, score float64, durationSeconds *int, at time.Time) (domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participations[id]
	if !ok {
		return domain.Participation{}, domain.ErrParticipationNotFound
	}
	if p.HasCompleted {
		return domain.Participation{}, domain.ErrAlreadySubmitted
	}
	p.FinalScore = &score
	p.HasCompleted = true
	p.DurationSeconds = durationSeconds
	p.RespondedAt = &at
	s.participations[id] = p
	return p, nil
}

func (s *Store) ListByQuiz(_ context.Context, quizID string) ([]domain.Participation, error) {
	return s.filterParticipations(func(p domain.Participation) bool { return p.QuizID == quizID }), nil
}

func (s *Store) ListByParticipant(_ context.Context, participantID string) ([]domain.Participation, error) {
	return s.filterParticipations(func(p domain.Participation) bool { return p.ParticipantID == participantID }), nil
}

func (s *Store) DeleteByParticipant(_ context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.participations {
		if p.ParticipantID == participantID {
			delete(s.participations, id)
		}
	}
	return nil
}

func (s *Store) filterParticipations(keep func(domain.Participation) bool) []domain.Participation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participation, 0)
	for _, p := range s.participations {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Invitations

func invitationKey(quizID, email string) string {
	return quizID + "|" + strings.ToLower(email)
}

func (s *Store) IsInvited(_ context.Context, quizID, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[invitationKey(quizID, email)]
	return ok && inv.IsActive, nil
}

func (s *Store) AddInvitation(_ context.Context, inv domain.InvitedUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := invitationKey(inv.QuizID, inv.Email)
	if _, ok := s.invitations[key]; ok {
		return domain.ErrInvitationExists
	}
	s.invitations[key] = inv
	return nil
}

func (s *Store) ReactivateInvitation(_ context.Context, quizID, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := invitationKey(quizID, email)
	inv, ok := s.invitations[key]
	if !ok {
		return false, domain.ErrInvitationNotFound
	}
	if inv.IsActive {
		return false, nil
	}
	inv.IsActive = true
	s.invitations[key] = inv
	return true, nil
}

func (s *Store) ListInvitations(_ context.Context, quizID string) ([]domain.InvitedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.InvitedUser, 0)
	for _, inv := range s.invitations {
		if inv.QuizID == quizID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) DeactivateInvitation(_ context.Context, quizID, email string) error {
	return s.updateInvitation(quizID, email, func(inv *domain.InvitedUser) { inv.IsActive = false })
}

func (s *Store) MarkResponded(_ context.Context, quizID, email string) error {
	return s.updateInvitation(quizID, email, func(inv *domain.InvitedUser) { inv.HasResponded = true })
}

func (s *Store) updateInvitation(quizID, email string, fn func(*domain.InvitedUser)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := invitationKey(quizID, email)
	inv, ok := s.invitations[key]
	if !ok {
		return domain.ErrInvitationNotFound
	}
	fn(&inv)
	s.invitations[key] = inv
	return nil
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, account domain.Account, owner domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, owner.Email) {
			return domain.ErrEmailTaken
		}
	}
	s.accounts[account.ID] = account
	s.users[owner.ID] = owner
	s.memberships = append(s.memberships, domain.Membership{AccountID: account.ID, UserID: owner.ID, Role: domain.RoleOwner})
	return nil
}

// AddMembership attaches an existing user to an account.
func (s *Store) AddMembership(_ context.Context, m domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[m.AccountID]; !ok {
		return domain.ErrAccountNotFound
	}
	if _, ok := s.users[m.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	for i, existing := range s.memberships {
		if existing.AccountID == m.AccountID && existing.UserID == m.UserID {
			s.memberships[i].Role = m.Role
			return nil
		}
	}
	s.memberships = append(s.memberships, m)
	return nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) ListMemberships(_ context.Context, userID string) ([]domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Membership, 0)
	for _, m := range s.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}
