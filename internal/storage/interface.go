package storage

import (
	"rashid-gateway/internal/model"
)

// Storage keeps assistant sessions keyed by match result id. Reads hand out
// copies; all mutation goes through the store so that concurrent callers
// never share a live session.
type Storage interface {
	CreateSession(session *model.Session) error
	GetSession(matchResultID string) (*model.Session, error)
	UpdateSession(session *model.Session) error
	UpdateState(matchResultID string, state model.SessionState, sourceURL string, chunksIndexed int) error
	DeleteSession(matchResultID string) error
	ListSessions() ([]*model.Session, error)

	AddMessage(matchResultID string, message *model.Message) error
	GetMessages(matchResultID string) ([]*model.Message, error)
	UpdateSummary(matchResultID string, summary model.SummarySnapshot) error

	Init() error
	Close() error
	Backup() error
}
