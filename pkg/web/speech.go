package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-companion/pkg/stt"
	"github.com/teslashibe/go-companion/pkg/tts"
)

// Speech protocol frame types.
const (
	// server to engine
	FrameRecognitionStart = "recognition.start"
	FrameRecognitionStop  = "recognition.stop"
	FrameSpeak            = "speak"
	FrameCancel           = "cancel"

	// engine to server
	FrameVoices            = "voices"
	FrameRecognitionResult = "recognition.result"
	FrameRecognitionError  = "recognition.error"
)

// Recognition error codes raised outside the engine's own set.
const (
	// CodeDisconnected is reported when the engine goes away mid-session.
	CodeDisconnected = "disconnected"
	// CodeEnded is sent by the page when the browser ends a session that
	// was not stopped.
	CodeEnded = "ended"
)

// engineSendBuffer is the number of commands queued for a slow engine.
const engineSendBuffer = 32

var errEngineBusy = errors.New("web: speech engine not keeping up")

// SpeechFrame is one message on /ws/speech.
type SpeechFrame struct {
	Type      string         `json:"type"`
	Config    *stt.Config    `json:"config,omitempty"`
	Utterance *tts.Utterance `json:"utterance,omitempty"`
	Voices    []tts.Voice    `json:"voices,omitempty"`
	Results   []stt.Result   `json:"results,omitempty"`
	Code      string         `json:"code,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// engineConn is the websocket surface RemoteSpeech needs.
type engineConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type engine struct {
	conn engineConn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (e *engine) close() {
	e.once.Do(func() {
		close(e.done)
		e.conn.Close()
	})
}

// RemoteSpeech is a recognizer and synthesizer backed by a browser tab
// connected to /ws/speech. One engine is attached at a time; a newer
// connection replaces the older one.
type RemoteSpeech struct {
	logger *slog.Logger

	mu        sync.Mutex
	engine    *engine
	handler   stt.Handler
	listening bool
	voices    []tts.Voice
}

// NewRemoteSpeech creates a remote engine with nothing attached.
func NewRemoteSpeech(logger *slog.Logger) *RemoteSpeech {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteSpeech{logger: logger.With("component", "web.speech")}
}

// Available reports whether an engine is attached.
func (r *RemoteSpeech) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine != nil
}

// Start asks the engine to begin recognition.
func (r *RemoteSpeech) Start(cfg stt.Config, h stt.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return stt.ErrUnavailable
	}
	if r.listening {
		return stt.ErrAlreadyStarted
	}
	if err := r.sendLocked(SpeechFrame{Type: FrameRecognitionStart, Config: &cfg}); err != nil {
		return err
	}
	r.listening = true
	r.handler = h
	return nil
}

// Stop asks the engine to end recognition.
func (r *RemoteSpeech) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listening {
		return stt.ErrNotStarted
	}
	r.listening = false
	r.handler = nil
	if r.engine == nil {
		return nil
	}
	return r.sendLocked(SpeechFrame{Type: FrameRecognitionStop})
}

// Speak sends an utterance to the engine.
func (r *RemoteSpeech) Speak(u tts.Utterance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return tts.ErrUnavailable
	}
	return r.sendLocked(SpeechFrame{Type: FrameSpeak, Utterance: &u})
}

// Cancel tells the engine to drop queued and playing speech.
func (r *RemoteSpeech) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return nil
	}
	return r.sendLocked(SpeechFrame{Type: FrameCancel})
}

// Voices returns the voices the engine last reported.
func (r *RemoteSpeech) Voices() []tts.Voice {
	r.mu.Lock()
	defer r.mu.Unlock()
	voices := make([]tts.Voice, len(r.voices))
	copy(voices, r.voices)
	return voices
}

// Attach serves conn as the speech engine until it disconnects or is
// replaced. It blocks.
func (r *RemoteSpeech) Attach(conn engineConn) {
	e := &engine{
		conn: conn,
		send: make(chan []byte, engineSendBuffer),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	previous := r.engine
	r.engine = e
	r.voices = nil
	orphan := r.endSessionLocked()
	r.mu.Unlock()

	if previous != nil {
		r.logger.Info("speech engine replaced")
		previous.close()
	} else {
		r.logger.Info("speech engine attached")
	}
	orphan.disconnected()

	go r.writePump(e)
	r.readPump(e)
}

func (r *RemoteSpeech) readPump(e *engine) {
	defer r.detach(e)

	for {
		_, data, err := e.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame SpeechFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			r.logger.Warn("malformed speech frame", "error", err)
			continue
		}
		r.dispatch(e, frame)
	}
}

func (r *RemoteSpeech) writePump(e *engine) {
	defer e.close()
	for {
		select {
		case data := <-e.send:
			if err := e.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				r.logger.Debug("speech engine write failed", "error", err)
				return
			}
		case <-e.done:
			return
		}
	}
}

func (r *RemoteSpeech) dispatch(e *engine, frame SpeechFrame) {
	r.mu.Lock()
	if r.engine != e {
		r.mu.Unlock()
		return
	}
	var h stt.Handler
	if r.listening {
		h = r.handler
	}

	switch frame.Type {
	case FrameVoices:
		r.voices = frame.Voices
		r.mu.Unlock()
		r.logger.Debug("engine voices", "count", len(frame.Voices))

	case FrameRecognitionResult:
		r.mu.Unlock()
		if h != nil {
			h.OnResult(stt.ResultEvent{Results: frame.Results})
		}

	case FrameRecognitionError:
		r.mu.Unlock()
		if h != nil {
			h.OnError(stt.ErrorEvent{Code: frame.Code, Message: frame.Message})
		}

	default:
		r.mu.Unlock()
		r.logger.Debug("unknown speech frame", "type", frame.Type)
	}
}

// detach clears e if it is still the attached engine and fails an active
// recognition session.
func (r *RemoteSpeech) detach(e *engine) {
	e.close()

	r.mu.Lock()
	if r.engine != e {
		r.mu.Unlock()
		return
	}
	r.engine = nil
	r.voices = nil
	orphan := r.endSessionLocked()
	r.mu.Unlock()

	r.logger.Info("speech engine detached")
	orphan.disconnected()
}

type orphanedSession struct {
	handler stt.Handler
}

func (o orphanedSession) disconnected() {
	if o.handler != nil {
		o.handler.OnError(stt.ErrorEvent{Code: CodeDisconnected, Message: "speech engine disconnected"})
	}
}

// endSessionLocked ends the active recognition session and returns its
// handler so the caller can report the loss outside the lock.
func (r *RemoteSpeech) endSessionLocked() orphanedSession {
	if !r.listening {
		return orphanedSession{}
	}
	h := r.handler
	r.listening = false
	r.handler = nil
	return orphanedSession{handler: h}
}

func (r *RemoteSpeech) sendLocked(frame SpeechFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("web: encode %s: %w", frame.Type, err)
	}
	select {
	case r.engine.send <- data:
		return nil
	default:
		return errEngineBusy
	}
}

// Verify RemoteSpeech implements both capabilities at compile time.
var (
	_ stt.Recognizer  = (*RemoteSpeech)(nil)
	_ tts.Synthesizer = (*RemoteSpeech)(nil)
)
