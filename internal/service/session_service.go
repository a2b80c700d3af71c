package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rashid-gateway/internal/client/rag"
	"rashid-gateway/internal/config"
	"rashid-gateway/internal/model"
	"rashid-gateway/internal/storage"
	"rashid-gateway/pkg/logger"
)

// ErrEmptyMatchResultID: initialization was asked for without an identifier.
var ErrEmptyMatchResultID = errors.New("match_result_id is required")

// Assistant-facing product strings. Backend failures surface here, inside the
// transcript, not as HTTP errors.
const (
	MsgGreeting      = "مرحبًا 👋 أنا راشد. صف مشروعك (القطاع/المرحلة/التمويل) وسأرشّح برامج مناسبة. سأقوم بالتهيئة تلقائيًا الآن."
	MsgNoMatchResult = "لا يوجد Match Result ID — لا يمكن التهيئة."
	MsgInitPending   = "التهيئة قيد الانتظار… لحظات."
	MsgSummaryFirst  = "ابدأ بالتهيئة أولًا (تتم تلقائيًا)…"
	MsgInitOKNoSrc   = "تمت التهيئة ✓ — لا يوجد مصدر لهذه المطابقة."

	msgInitRequested = "ابدأ التهيئة تلقائيًا لمعرّف المطابقة: %s"
	msgInitOKWithSrc = "تمت التهيئة ✓ — مصدر: %s · المقاطع: %d"
	msgInitFailed    = "فشل التهيئة: %v"
	msgChatFailed    = "حصل خطأ أثناء المعالجة: %v"
	msgSummaryFailed = "تعذّر التلخيص: %v"
)

// TurnStateFunc is notified when an assistant turn starts or finishes; the
// voice gate uses it to drive its thinking phase.
type TurnStateFunc func(matchResultID string, inFlight bool)

// SessionService owns the chat session lifecycle: one retrieval context per
// match result, strictly ordered turns, and the summary snapshot. Storage is
// the synchronization point: it hands out copies and serializes mutation, so
// s.mu only has to make the state transitions and turn sequencing atomic.
type SessionService struct {
	storage storage.Storage
	rag     rag.Client
	sessCfg *config.SessionConfig

	OnTurnState TurnStateFunc

	mu       sync.Mutex
	inflight map[string]bool
	seq      map[string]uint64
}

func NewSessionService(cfg *config.Config, ragClient rag.Client) *SessionService {
	var store storage.Storage

	if cfg.Storage.Type == "disk" {
		store = storage.NewDiskStorage(cfg.Storage.DataDir, cfg.Storage.CacheSize)
	} else {
		store = storage.NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		store = storage.NewMemoryStorage()
		store.Init()
	}

	s := &SessionService{
		storage:  store,
		rag:      ragClient,
		sessCfg:  &cfg.Session,
		inflight: make(map[string]bool),
		seq:      make(map[string]uint64),
	}

	if s.sessCfg.CleanupInterval > 0 && s.sessCfg.TTL > 0 {
		go s.cleanupExpiredSessions()
	}

	return s
}

// NewSessionServiceWith wires explicit storage, for tests and embedding.
func NewSessionServiceWith(store storage.Storage, ragClient rag.Client) *SessionService {
	return &SessionService{
		storage:  store,
		rag:      ragClient,
		sessCfg:  &config.SessionConfig{},
		inflight: make(map[string]bool),
		seq:      make(map[string]uint64),
	}
}

func (s *SessionService) GetStorage() storage.Storage {
	return s.storage
}

// InitFromMatchResult prepares the retrieval context for one match result.
// Exactly one backend call per session: Initializing and Ready sessions are
// never re-initialized unless hardReset asks for it; a Failed session may
// retry once more. The outcome lands in the transcript either way.
func (s *SessionService) InitFromMatchResult(ctx context.Context, matchResultID string, hardReset bool) (*model.Session, error) {
	mrid := strings.TrimSpace(matchResultID)
	if mrid == "" {
		return nil, ErrEmptyMatchResultID
	}

	if _, err := s.ensureSession(mrid); err != nil {
		return nil, err
	}

	// Check-and-set under the lock so two racing inits cannot both pass
	// the state guard.
	s.mu.Lock()
	sess, err := s.storage.GetSession(mrid)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	switch sess.State {
	case model.StateInitializing:
		s.mu.Unlock()
		return sess, nil
	case model.StateReady:
		if !hardReset {
			s.mu.Unlock()
			return sess, nil
		}
	}

	if hardReset {
		sess.State = model.StateInitializing
		sess.SourceURL = ""
		sess.ChunksIndexed = 0
		sess.Summary = model.SummarySnapshot{}
		sess.Messages = []model.Message{
			newMessage(model.RoleAssistant, MsgGreeting),
			newMessage(model.RoleUser, fmt.Sprintf(msgInitRequested, mrid)),
		}
		err = s.storage.UpdateSession(sess)
	} else {
		err = s.storage.UpdateState(mrid, model.StateInitializing, "", 0)
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.seq[mrid]++
	turn := s.seq[mrid]
	s.mu.Unlock()

	res, initErr := s.rag.Init(ctx, mrid)

	s.mu.Lock()
	if s.seq[mrid] != turn {
		s.mu.Unlock()
		// A newer request superseded this one; its result must not land.
		return s.storage.GetSession(mrid)
	}

	if initErr != nil {
		err = s.storeInitOutcome(mrid, model.StateFailed, "", 0, fmt.Sprintf(msgInitFailed, initErr))
		logger.Warnf("rag init failed for %s: %v", mrid, initErr)
	} else {
		content := MsgInitOKNoSrc
		if res.SourceURL != "" && res.ChunksIndexed > 0 {
			content = fmt.Sprintf(msgInitOKWithSrc, res.SourceURL, res.ChunksIndexed)
		}
		err = s.storeInitOutcome(mrid, model.StateReady, res.SourceURL, res.ChunksIndexed, content)
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return s.storage.GetSession(mrid)
}

func (s *SessionService) storeInitOutcome(mrid string, state model.SessionState, sourceURL string, chunks int, content string) error {
	if err := s.storage.UpdateState(mrid, state, sourceURL, chunks); err != nil {
		return err
	}
	msg := newMessage(model.RoleAssistant, content)
	return s.storage.AddMessage(mrid, &msg)
}

// Send runs one chat turn. Blank input, a missing retrieval context and an
// in-flight turn are all no-ops or guidance messages; backend failures become
// transcript content.
func (s *SessionService) Send(ctx context.Context, matchResultID, text string) (*model.Session, error) {
	mrid := strings.TrimSpace(matchResultID)
	if mrid == "" {
		return nil, ErrEmptyMatchResultID
	}

	sess, err := s.ensureSession(mrid)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return sess, nil
	}

	if !sess.Ready() {
		guidance := newMessage(model.RoleAssistant, MsgInitPending)
		if err := s.storage.AddMessage(mrid, &guidance); err != nil {
			return nil, err
		}
		return s.storage.GetSession(mrid)
	}

	s.mu.Lock()
	if s.inflight[mrid] {
		s.mu.Unlock()
		return sess, nil
	}
	s.inflight[mrid] = true
	s.seq[mrid]++
	turn := s.seq[mrid]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, mrid)
		s.mu.Unlock()
	}()

	if s.OnTurnState != nil {
		s.OnTurnState(mrid, true)
		defer s.OnTurnState(mrid, false)
	}

	userMsg := newMessage(model.RoleUser, text)
	if err := s.storage.AddMessage(mrid, &userMsg); err != nil {
		return nil, err
	}

	res, chatErr := s.rag.Chat(ctx, mrid, text)

	s.mu.Lock()
	if s.seq[mrid] != turn {
		s.mu.Unlock()
		return s.storage.GetSession(mrid)
	}

	var reply model.Message
	if chatErr != nil {
		reply = newMessage(model.RoleAssistant, fmt.Sprintf(msgChatFailed, chatErr))
	} else {
		content := res.Reply
		if content == "" {
			content = "—"
		}
		reply = newMessage(model.RoleAssistant, content)
		reply.Citations = res.Citations
	}
	err = s.storage.AddMessage(mrid, &reply)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if chatErr == nil {
		logger.WithFields(logrus.Fields{
			"match_result_id": mrid,
			"turn":            turn,
		}).Debug("chat turn stored")
		s.refreshSummaryIfOpen(ctx, mrid)
	}
	return s.storage.GetSession(mrid)
}

// ToggleSummary opens or closes the summary panel. Closing is purely local;
// opening fetches a fresh summary first.
func (s *SessionService) ToggleSummary(ctx context.Context, matchResultID string) (*model.Session, error) {
	mrid := strings.TrimSpace(matchResultID)
	if mrid == "" {
		return nil, ErrEmptyMatchResultID
	}

	sess, err := s.ensureSession(mrid)
	if err != nil {
		return nil, err
	}

	if !sess.Ready() {
		guidance := newMessage(model.RoleAssistant, MsgSummaryFirst)
		if err := s.storage.AddMessage(mrid, &guidance); err != nil {
			return nil, err
		}
		return s.storage.GetSession(mrid)
	}

	if sess.Summary.Open {
		if err := s.storage.UpdateSummary(mrid, model.SummarySnapshot{Text: sess.Summary.Text, Open: false}); err != nil {
			return nil, err
		}
		return s.storage.GetSession(mrid)
	}

	summary, sumErr := s.rag.Summary(ctx, mrid)
	if sumErr != nil {
		failure := newMessage(model.RoleAssistant, fmt.Sprintf(msgSummaryFailed, sumErr))
		if err := s.storage.AddMessage(mrid, &failure); err != nil {
			return nil, err
		}
		return s.storage.GetSession(mrid)
	}

	if err := s.storage.UpdateSummary(mrid, model.SummarySnapshot{Text: summary, Open: true}); err != nil {
		return nil, err
	}
	return s.storage.GetSession(mrid)
}

// refreshSummaryIfOpen re-fetches after a successful turn, and only then. A
// closed panel stays stale until reopened. Fetch failures are ignored.
func (s *SessionService) refreshSummaryIfOpen(ctx context.Context, mrid string) {
	sess, err := s.storage.GetSession(mrid)
	if err != nil || !sess.Summary.Open {
		return
	}

	summary, err := s.rag.Summary(ctx, mrid)
	if err != nil {
		logger.Debugf("summary refresh failed for %s: %v", mrid, err)
		return
	}

	if err := s.storage.UpdateSummary(mrid, model.SummarySnapshot{Text: summary, Open: true}); err != nil {
		logger.Warnf("persist summary for %s: %v", mrid, err)
	}
}

// Reset clears the transcript back to the greeting. Initialization state is
// kept: the retrieval context is still valid.
func (s *SessionService) Reset(matchResultID string) (*model.Session, error) {
	sess, err := s.storage.GetSession(strings.TrimSpace(matchResultID))
	if err != nil {
		return nil, err
	}

	sess.Messages = []model.Message{newMessage(model.RoleAssistant, MsgGreeting)}
	sess.Summary.Open = false
	if err := s.storage.UpdateSession(sess); err != nil {
		return nil, err
	}
	return s.storage.GetSession(sess.MatchResultID)
}

func (s *SessionService) GetSession(matchResultID string) (*model.Session, error) {
	return s.storage.GetSession(strings.TrimSpace(matchResultID))
}

// GetTranscript returns just the messages, for clients polling the
// conversation without the session envelope.
func (s *SessionService) GetTranscript(matchResultID string) ([]*model.Message, error) {
	return s.storage.GetMessages(strings.TrimSpace(matchResultID))
}

// AppendTranscript adds an externally produced utterance (voice companion,
// speech recognition) to a session without running a chat turn.
func (s *SessionService) AppendTranscript(ctx context.Context, matchResultID, role, text string) error {
	mrid := strings.TrimSpace(matchResultID)
	text = strings.TrimSpace(text)
	if mrid == "" || text == "" {
		return nil
	}
	if role != model.RoleUser {
		role = model.RoleAssistant
	}

	if _, err := s.ensureSession(mrid); err != nil {
		return err
	}

	msg := newMessage(role, text)
	return s.storage.AddMessage(mrid, &msg)
}

func (s *SessionService) ensureSession(matchResultID string) (*model.Session, error) {
	sess, err := s.storage.GetSession(matchResultID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, storage.ErrSessionNotFound) {
		return nil, err
	}

	now := time.Now()
	sess = &model.Session{
		MatchResultID: matchResultID,
		State:         model.StateUninitialized,
		Messages:      []model.Message{newMessage(model.RoleAssistant, MsgGreeting)},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.storage.CreateSession(sess); err != nil {
		if errors.Is(err, storage.ErrSessionExists) {
			return s.storage.GetSession(matchResultID)
		}
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) cleanupExpiredSessions() {
	ticker := time.NewTicker(s.sessCfg.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		sessions, err := s.storage.ListSessions()
		if err != nil {
			logger.Errorf("session cleanup: %v", err)
			continue
		}

		cutoff := time.Now().Add(-s.sessCfg.TTL)
		for _, sess := range sessions {
			if sess.UpdatedAt.Before(cutoff) {
				if err := s.storage.DeleteSession(sess.MatchResultID); err != nil {
					logger.Warnf("delete expired session %s: %v", sess.MatchResultID, err)
				} else {
					logger.Infof("expired session %s removed", sess.MatchResultID)
				}
			}
		}
	}
}

func newMessage(role, content string) model.Message {
	return model.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}
