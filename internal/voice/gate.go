// Package voice holds the speech-recognition gate and the client for the
// voice/vision companion service.
package voice

import "sync"

// Phase is the outward-facing state of the assistant's voice loop.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseListening Phase = "listening"
	PhaseThinking  Phase = "thinking"
	PhaseSpeaking  Phase = "speaking"
)

// AllowListen decides whether the microphone may be live. Without a companion
// connection the presence signal is unavailable and does not gate listening.
func AllowListen(voiceEnabled, personPresent, connected, botSpeaking, ttsBusy bool) bool {
	return voiceEnabled && (personPresent || !connected) && !botSpeaking && !ttsBusy
}

// Recognizer is the speech-to-text engine the gate drives. The real engine
// lives in the browser; servers and tests plug in their own.
type Recognizer interface {
	Start()
	Abort()
}

// Speaker is whatever plays assistant audio; Stop silences it immediately.
type Speaker interface {
	Stop()
}

// Gate recomputes AllowListen on every signal change and starts or aborts the
// recognizer on the flip. A recognizer end event restarts listening only if
// the gate still allows it, which keeps a changed condition from looping the
// engine forever.
type Gate struct {
	mu sync.Mutex

	voiceEnabled  bool
	personPresent bool
	connected     bool
	botSpeaking   bool
	ttsBusy       bool

	thinking  bool
	listening bool

	rec Recognizer
	tts Speaker
}

func NewGate(rec Recognizer, tts Speaker) *Gate {
	return &Gate{rec: rec, tts: tts}
}

// SetVoiceEnabled toggles the whole voice feature. Turning it off aborts
// recognition and silences TTS synchronously.
func (g *Gate) SetVoiceEnabled(enabled bool) {
	g.mu.Lock()
	g.voiceEnabled = enabled
	if !enabled && g.tts != nil {
		g.tts.Stop()
	}
	g.applyLocked()
	g.mu.Unlock()
}

func (g *Gate) SetPersonPresent(present bool) {
	g.mu.Lock()
	g.personPresent = present
	g.applyLocked()
	g.mu.Unlock()
}

func (g *Gate) SetConnected(connected bool) {
	g.mu.Lock()
	g.connected = connected
	g.applyLocked()
	g.mu.Unlock()
}

func (g *Gate) SetBotSpeaking(speaking bool) {
	g.mu.Lock()
	g.botSpeaking = speaking
	g.applyLocked()
	g.mu.Unlock()
}

func (g *Gate) SetTTSBusy(busy bool) {
	g.mu.Lock()
	g.ttsBusy = busy
	g.applyLocked()
	g.mu.Unlock()
}

// SetThinking marks an assistant turn in flight. It does not touch the
// listen decision; it only affects the reported phase.
func (g *Gate) SetThinking(thinking bool) {
	g.mu.Lock()
	g.thinking = thinking
	g.mu.Unlock()
}

// OnRecognizerEnd is called by the engine when recognition stops on its own.
// Listening resumes only if the gate still allows it at that moment.
func (g *Gate) OnRecognizerEnd() {
	g.mu.Lock()
	g.listening = false
	g.applyLocked()
	g.mu.Unlock()
}

func (g *Gate) applyLocked() {
	allow := AllowListen(g.voiceEnabled, g.personPresent, g.connected, g.botSpeaking, g.ttsBusy)
	switch {
	case allow && !g.listening:
		g.listening = true
		if g.rec != nil {
			g.rec.Start()
		}
	case !allow && g.listening:
		g.listening = false
		if g.rec != nil {
			g.rec.Abort()
		}
	}
}

func (g *Gate) AllowListen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return AllowListen(g.voiceEnabled, g.personPresent, g.connected, g.botSpeaking, g.ttsBusy)
}

func (g *Gate) Listening() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listening
}

// Phase reports the current loop state with the fixed precedence
// thinking > speaking > listening > idle.
func (g *Gate) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.thinking:
		return PhaseThinking
	case g.botSpeaking || g.ttsBusy:
		return PhaseSpeaking
	case g.listening:
		return PhaseListening
	default:
		return PhaseIdle
	}
}

// State is a snapshot of every gate input plus the derived outputs.
type State struct {
	VoiceEnabled  bool  `json:"voice_enabled"`
	PersonPresent bool  `json:"person_present"`
	Connected     bool  `json:"connected"`
	BotSpeaking   bool  `json:"bot_speaking"`
	TTSBusy       bool  `json:"tts_busy"`
	AllowListen   bool  `json:"allow_listen"`
	Listening     bool  `json:"listening"`
	Phase         Phase `json:"phase"`
}

func (g *Gate) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := State{
		VoiceEnabled:  g.voiceEnabled,
		PersonPresent: g.personPresent,
		Connected:     g.connected,
		BotSpeaking:   g.botSpeaking,
		TTSBusy:       g.ttsBusy,
		Listening:     g.listening,
	}
	st.AllowListen = AllowListen(g.voiceEnabled, g.personPresent, g.connected, g.botSpeaking, g.ttsBusy)
	switch {
	case g.thinking:
		st.Phase = PhaseThinking
	case g.botSpeaking || g.ttsBusy:
		st.Phase = PhaseSpeaking
	case g.listening:
		st.Phase = PhaseListening
	default:
		st.Phase = PhaseIdle
	}
	return st
}
