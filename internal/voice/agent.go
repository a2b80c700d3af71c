package voice

import (
	"context"
	"strings"
	"sync"
	"time"

	"rashid-gateway/pkg/logger"
)

// TranscriptSink receives companion/recognizer text for the attached match
// result. The gateway wires this to the chat session service.
type TranscriptSink func(ctx context.Context, matchResultID, role, text string)

// Agent owns one companion connection and the gate it drives. Without a
// configured companion URL the agent still works: the gate simply runs with
// connected=false and presence never gates listening.
type Agent struct {
	gate *Gate
	sink TranscriptSink

	mu         sync.Mutex
	conn       *Conn
	activeMRID string
}

func NewAgent(rec Recognizer, tts Speaker, sink TranscriptSink) *Agent {
	return &Agent{
		gate: NewGate(rec, tts),
		sink: sink,
	}
}

// Connect dials the companion and binds its events to the gate. The previous
// connection, if any, is closed first.
func (a *Agent) Connect(ctx context.Context, wsURL string, dialTimeout time.Duration) error {
	a.mu.Lock()
	old := a.conn
	a.conn = nil
	a.mu.Unlock()
	if old != nil {
		old.Close()
	}

	conn, err := Dial(ctx, wsURL, dialTimeout, Events{
		OnPresence:   a.gate.SetPersonPresent,
		OnSpeakState: a.gate.SetBotSpeaking,
		OnTTSStart:   func() { a.gate.SetTTSBusy(true) },
		OnTTSEnd:     func() { a.gate.SetTTSBusy(false) },
		OnVoiceResponse: func(text string) {
			a.deliver(text)
		},
		OnServerResponse: func(text string) {
			a.deliver(text)
		},
		OnClosed: func(err error) {
			if err != nil {
				logger.Warnf("voice companion connection lost: %v", err)
			}
			a.gate.SetConnected(false)
		},
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	// Mark connected before the reader runs; an immediate drop must not have
	// its OnClosed overwritten by a late SetConnected(true).
	a.gate.SetConnected(true)
	conn.Start()
	return nil
}

// Attach points companion/voice transcripts at a match result session.
func (a *Agent) Attach(matchResultID string) {
	a.mu.Lock()
	a.activeMRID = strings.TrimSpace(matchResultID)
	a.mu.Unlock()
}

func (a *Agent) SetVoiceEnabled(enabled bool) {
	a.gate.SetVoiceEnabled(enabled)
}

// HandleRecognized takes a recognizer utterance: it lands in the attached
// transcript as the user and is mirrored to the companion.
func (a *Agent) HandleRecognized(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	a.mu.Lock()
	mrid := a.activeMRID
	conn := a.conn
	a.mu.Unlock()

	if conn != nil {
		if err := conn.SendUserText(text); err != nil {
			logger.Warnf("voice: forward user_text failed: %v", err)
		}
	}
	if a.sink != nil && mrid != "" {
		a.sink(ctx, mrid, "user", text)
	}
}

func (a *Agent) deliver(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	a.mu.Lock()
	mrid := a.activeMRID
	a.mu.Unlock()

	if a.sink != nil && mrid != "" {
		a.sink(context.Background(), mrid, "assistant", text)
	}
}

func (a *Agent) Gate() *Gate {
	return a.gate
}

func (a *Agent) State() State {
	return a.gate.Snapshot()
}

func (a *Agent) Close() {
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
