package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionState tracks retrieval-context initialization for one match result.
// Failed sessions may be re-initialized; Initializing and Ready ones must not
// trigger a second init call.
type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StateInitializing  SessionState = "initializing"
	StateReady         SessionState = "ready"
	StateFailed        SessionState = "failed"
)

// Message is one transcript entry. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Citations []string  `json:"citations,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SummarySnapshot is the on-demand conversation summary panel. Text is only
// refreshed while Open is true; a closed panel goes stale until reopened.
type SummarySnapshot struct {
	Text string `json:"text"`
	Open bool   `json:"open"`
}

// Session is the assistant conversation keyed by a match result id.
type Session struct {
	MatchResultID string          `json:"match_result_id"`
	State         SessionState    `json:"state"`
	SourceURL     string          `json:"source_url,omitempty"`
	ChunksIndexed int             `json:"chunks_indexed"`
	Messages      []Message       `json:"messages"`
	Summary       SummarySnapshot `json:"summary"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Ready reports whether chat turns are allowed for this session.
func (s *Session) Ready() bool {
	return s.State == StateReady
}

// Clone returns a copy that is safe to read and marshal while the original
// keeps changing. Message values are immutable once appended, so copying the
// slice is enough.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}
