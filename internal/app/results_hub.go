package app

import (
	"sync"

	"formship-quiz-service/internal/domain"
)

// ResultsHub fans completed submissions out to per-quiz subscribers.
type ResultsHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.ResultEvent]struct{}
}

func NewResultsHub() *ResultsHub {
	return &ResultsHub{subscribers: make(map[string]map[chan domain.ResultEvent]struct{})}
}

// Subscribe returns a channel of result events for quizID.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *ResultsHub) Subscribe(quizID string) (<-chan domain.ResultEvent, func()) {
	ch := make(chan domain.ResultEvent, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.ResultEvent]struct{})
		h.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of its quiz. A full subscriber
// loses its oldest pending event instead of blocking the publisher.
func (h *ResultsHub) Publish(ev domain.ResultEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[ev.QuizID] {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// Subscribers reports the number of live subscriptions for quizID.
func (h *ResultsHub) Subscribers(quizID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[quizID])
}
