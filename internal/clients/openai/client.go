package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"intake-server/internal/observability"

	"github.com/gorilla/websocket"
)

const realtimeURL = "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview-2024-10-01"

// ErrMalformedEvent indicates a frame that could not be decoded. The
// session remains usable; callers should log and keep reading.
var ErrMalformedEvent = errors.New("malformed realtime event")

// SessionConfig holds the one-time session configuration sent after the
// realtime connection opens.
type SessionConfig struct {
	Voice        string
	Instructions string
}

// Event is a decoded server event from the realtime session. Only the
// fields the bridge dispatches on are decoded; everything else rides along
// in Type for logging.
type Event struct {
	Type       string      `json:"type"`
	Delta      string      `json:"delta,omitempty"`
	ItemID     string      `json:"item_id,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
	Error      *EventError `json:"error,omitempty"`
}

// EventError carries the error payload of an "error" event.
type EventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// RealtimeSession is one websocket session to the OpenAI realtime API.
// Reads must come from a single goroutine; writes are mutex-protected so
// timer-deferred sends can share the connection with the dispatcher.
type RealtimeSession struct {
	conn       *websocket.Conn
	logger     *observability.Logger
	writeMutex sync.Mutex
	closeOnce  sync.Once
}

// Dial opens a realtime session authenticated with the given API key.
func Dial(ctx context.Context, apiKey string, logger *observability.Logger) (*RealtimeSession, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, realtimeURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to OpenAI realtime endpoint: %w", err)
	}

	return &RealtimeSession{conn: conn, logger: logger}, nil
}

// Configure sends the one-time session.update with audio formats, server
// VAD and the behavioral instructions.
func (s *RealtimeSession) Configure(ctx context.Context, cfg SessionConfig) error {
	update := map[string]interface{}{
		"type": "session.update",
		"session": map[string]interface{}{
			"turn_detection":      map[string]string{"type": "server_vad"},
			"input_audio_format":  "g711_ulaw",
			"output_audio_format": "g711_ulaw",
			"voice":               cfg.Voice,
			"instructions":        cfg.Instructions,
			"modalities":          []string{"text", "audio"},
			"temperature":         0.8,
		},
	}
	if err := s.writeJSON(update); err != nil {
		return fmt.Errorf("failed to send session update: %w", err)
	}
	s.logger.Info(ctx, "Realtime session configured")
	return nil
}

// AppendAudio forwards one base64 µ-law payload into the session's input
// audio buffer.
func (s *RealtimeSession) AppendAudio(payload string) error {
	return s.writeJSON(map[string]interface{}{
		"type":  "input_audio_buffer.append",
		"audio": payload,
	})
}

// Truncate tells the session to discard the unplayed remainder of an
// in-flight response item beyond audioEndMs.
func (s *RealtimeSession) Truncate(itemID string, audioEndMs int) error {
	return s.writeJSON(map[string]interface{}{
		"type":          "conversation.item.truncate",
		"item_id":       itemID,
		"content_index": 0,
		"audio_end_ms":  audioEndMs,
	})
}

// CreateResponse asks the session to produce a response following the
// given one-off instructions.
func (s *RealtimeSession) CreateResponse(instructions string) error {
	return s.writeJSON(map[string]interface{}{
		"type": "response.create",
		"response": map[string]interface{}{
			"instructions": instructions,
		},
	})
}

// ReadEvent blocks until the next server event arrives. A decode failure
// returns ErrMalformedEvent and leaves the session usable; any other error
// means the connection is gone.
func (s *RealtimeSession) ReadEvent() (Event, error) {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return Event{}, err
	}

	var event Event
	if err := json.Unmarshal(msg, &event); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return event, nil
}

// Close shuts the session down; safe to call more than once.
func (s *RealtimeSession) Close() {
	s.closeOnce.Do(func() {
		s.writeMutex.Lock()
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMutex.Unlock()
		s.conn.Close()
	})
}

func (s *RealtimeSession) writeJSON(v interface{}) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return s.conn.WriteJSON(v)
}
