package voice

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rashid-gateway/pkg/logger"
)

const defaultDialTimeout = 15 * time.Second

// Events are the companion service callbacks a Conn owner subscribes to.
// Nil callbacks are skipped.
type Events struct {
	OnPresence       func(present bool)
	OnSpeakState     func(speaking bool)
	OnTTSStart       func()
	OnTTSEnd         func()
	OnVoiceResponse  func(text string)
	OnServerResponse func(text string)
	OnClosed         func(err error)
}

type envelope struct {
	Event    string `json:"event"`
	Present  *bool  `json:"present,omitempty"`
	Speaking *bool  `json:"speaking,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Conn is an owned connection to the voice/vision companion. One reader
// goroutine dispatches inbound events; Close tears everything down and is
// safe to call more than once.
type Conn struct {
	ws     *websocket.Conn
	events Events

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func Dial(ctx context.Context, wsURL string, dialTimeout time.Duration, events Events) (*Conn, error) {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ws, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ws:     ws,
		events: events,
		done:   make(chan struct{}),
	}
	return c, nil
}

// Start launches the reader goroutine. Dial leaves the connection idle so the
// owner can finish its own wiring first; no callback fires before Start.
func (c *Conn) Start() {
	go c.readLoop()
}

func (c *Conn) readLoop() {
	for {
		var env envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			c.shutdown(err)
			return
		}
		c.dispatch(env)
	}
}

func (c *Conn) dispatch(env envelope) {
	switch env.Event {
	case "presence":
		if c.events.OnPresence != nil && env.Present != nil {
			c.events.OnPresence(*env.Present)
		}
	case "speak_state":
		if c.events.OnSpeakState != nil && env.Speaking != nil {
			c.events.OnSpeakState(*env.Speaking)
		}
	case "tts_start":
		if c.events.OnTTSStart != nil {
			c.events.OnTTSStart()
		}
	case "tts_end":
		if c.events.OnTTSEnd != nil {
			c.events.OnTTSEnd()
		}
	case "voice_response":
		if c.events.OnVoiceResponse != nil {
			c.events.OnVoiceResponse(env.Text)
		}
	case "server_response":
		if c.events.OnServerResponse != nil {
			c.events.OnServerResponse(env.Text)
		}
	default:
		logger.Debugf("voice: ignoring event %q", env.Event)
	}
}

// SendUserText forwards a recognized utterance to the companion.
func (c *Conn) SendUserText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	payload, err := json.Marshal(envelope{Event: "user_text", Text: text})
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		_ = c.ws.Close()
		close(c.done)
		if c.events.OnClosed != nil {
			c.events.OnClosed(err)
		}
	})
}
