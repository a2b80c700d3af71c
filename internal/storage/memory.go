package storage

import (
	"sync"
	"time"

	"rashid-gateway/internal/model"
)

type MemoryStorage struct {
	sessions map[string]*model.Session
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*model.Session),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Backup() error {
	return nil
}

func (m *MemoryStorage) CreateSession(session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.MatchResultID]; exists {
		return ErrSessionExists
	}

	m.sessions[session.MatchResultID] = session.Clone()
	return nil
}

func (m *MemoryStorage) GetSession(matchResultID string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[matchResultID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return session.Clone(), nil
}

func (m *MemoryStorage) UpdateSession(session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.MatchResultID]; !exists {
		return ErrSessionNotFound
	}

	session.UpdatedAt = time.Now()
	m.sessions[session.MatchResultID] = session.Clone()
	return nil
}

func (m *MemoryStorage) UpdateState(matchResultID string, state model.SessionState, sourceURL string, chunksIndexed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[matchResultID]
	if !exists {
		return ErrSessionNotFound
	}

	session.State = state
	session.SourceURL = sourceURL
	session.ChunksIndexed = chunksIndexed
	session.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) DeleteSession(matchResultID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[matchResultID]; !exists {
		return ErrSessionNotFound
	}

	delete(m.sessions, matchResultID)
	return nil
}

func (m *MemoryStorage) ListSessions() ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session.Clone())
	}

	return sessions, nil
}

func (m *MemoryStorage) AddMessage(matchResultID string, message *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[matchResultID]
	if !exists {
		return ErrSessionNotFound
	}

	session.Messages = append(session.Messages, *message)
	session.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStorage) GetMessages(matchResultID string) ([]*model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[matchResultID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	messages := make([]*model.Message, len(session.Messages))
	for i := range session.Messages {
		msg := session.Messages[i]
		messages[i] = &msg
	}

	return messages, nil
}

func (m *MemoryStorage) UpdateSummary(matchResultID string, summary model.SummarySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[matchResultID]
	if !exists {
		return ErrSessionNotFound
	}

	session.Summary = summary
	session.UpdatedAt = time.Now()
	return nil
}
