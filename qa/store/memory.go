package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m3rciful/qarelay/qa/domain"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store for tests and local runs.
// Each method is atomic on its own, matching the per-row guarantees of Postgres.
type Memory struct {
	mu           sync.RWMutex
	participants map[string]*domain.Participant
	speakers     map[string]domain.Speaker
	questions    map[string]domain.Question
	now          func() time.Time
}

// NewMemory constructs an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		participants: make(map[string]*domain.Participant),
		speakers:     make(map[string]domain.Speaker),
		questions:    make(map[string]domain.Question),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// participant returns the row for telegramID, creating it when missing. Callers hold mu.
func (m *Memory) participant(telegramID string) *domain.Participant {
	p, ok := m.participants[telegramID]
	if !ok {
		now := m.now()
		p = &domain.Participant{TelegramID: telegramID, CreatedAt: now, UpdatedAt: now}
		m.participants[telegramID] = p
	}
	return p
}

func (m *Memory) SetPendingQuestion(_ context.Context, telegramID, questionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.participant(telegramID)
	p.PendingQuestionID = &questionID
	p.UpdatedAt = m.now()
	return nil
}

func (m *Memory) PendingQuestion(_ context.Context, telegramID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[telegramID]
	if !ok || p.PendingQuestionID == nil || *p.PendingQuestionID == "" {
		return "", false, nil
	}
	return *p.PendingQuestionID, true, nil
}

func (m *Memory) ClearPendingQuestion(_ context.Context, telegramID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.participants[telegramID]; ok {
		p.PendingQuestionID = nil
		p.UpdatedAt = m.now()
	}
	return nil
}

func (m *Memory) ClearPendingQuestionIf(_ context.Context, telegramID, questionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[telegramID]
	if !ok || p.PendingQuestionID == nil || *p.PendingQuestionID != questionID {
		return false, nil
	}
	p.PendingQuestionID = nil
	p.UpdatedAt = m.now()
	return true, nil
}

func (m *Memory) UpsertProfile(_ context.Context, part domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.participant(part.TelegramID)
	p.FullName = cloneString(part.FullName)
	p.Username = cloneString(part.Username)
	p.UpdatedAt = m.now()
	return nil
}

func (m *Memory) Participant(_ context.Context, telegramID string) (domain.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[telegramID]
	if !ok {
		return domain.Participant{}, fmt.Errorf("participant %s: %w", telegramID, domain.ErrNotFound)
	}
	out := *p
	out.FullName = cloneString(p.FullName)
	out.Username = cloneString(p.Username)
	out.PendingQuestionID = cloneString(p.PendingQuestionID)
	return out, nil
}

func (m *Memory) Speaker(_ context.Context, id string) (domain.Speaker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.speakers[id]
	if !ok {
		return domain.Speaker{}, fmt.Errorf("speaker %s: %w", id, domain.ErrNotFound)
	}
	s.TelegramID = cloneString(s.TelegramID)
	return s, nil
}

func (m *Memory) UpsertSpeaker(_ context.Context, s domain.Speaker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.TelegramID = cloneString(s.TelegramID)
	m.speakers[s.ID] = s
	return nil
}

func (m *Memory) CreateQuestion(_ context.Context, q *domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.questions[q.ID]; exists {
		return fmt.Errorf("create question %s: %w: duplicate id", q.ID, domain.ErrPersistence)
	}
	if _, ok := m.speakers[q.SpeakerID]; !ok {
		return fmt.Errorf("create question %s: %w: unknown speaker %s", q.ID, domain.ErrPersistence, q.SpeakerID)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = m.now()
	}
	m.questions[q.ID] = cloneQuestion(*q)
	return nil
}

func (m *Memory) Question(_ context.Context, id string) (domain.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return domain.Question{}, fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
	}
	return cloneQuestion(q), nil
}

func (m *Memory) QuestionDetails(_ context.Context, id string) (domain.QuestionDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return domain.QuestionDetails{}, fmt.Errorf("question details %s: %w", id, domain.ErrNotFound)
	}
	s, ok := m.speakers[q.SpeakerID]
	if !ok {
		return domain.QuestionDetails{}, fmt.Errorf("question details %s: %w", id, domain.ErrNotFound)
	}
	return domain.QuestionDetails{Question: cloneQuestion(q), SpeakerName: s.Name}, nil
}

func (m *Memory) MarkAnswered(_ context.Context, id, text string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return fmt.Errorf("mark answered %s: %w", id, domain.ErrNotFound)
	}
	if q.IsAnswered {
		return fmt.Errorf("mark answered %s: %w", id, domain.ErrAlreadyAnswered)
	}
	q.AnswerText = &text
	q.AnsweredAt = &at
	q.IsAnswered = true
	m.questions[id] = q
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneQuestion(q domain.Question) domain.Question {
	q.EventID = cloneString(q.EventID)
	q.SessionID = cloneString(q.SessionID)
	q.AuthorName = cloneString(q.AuthorName)
	q.AuthorUsername = cloneString(q.AuthorUsername)
	q.AuthorTelegramID = cloneString(q.AuthorTelegramID)
	q.AnswerText = cloneString(q.AnswerText)
	if q.AnsweredAt != nil {
		at := *q.AnsweredAt
		q.AnsweredAt = &at
	}
	return q
}
