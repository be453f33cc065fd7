package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"intake-server/internal/clients/openai"
	"intake-server/internal/intake/handoff"
	"intake-server/internal/intake/record"
	"intake-server/internal/observability"

	"github.com/gorilla/websocket"
)

const markLabel = "responsePart"

const farewellInstructions = "Thank the caller warmly, tell them the support team has everything " +
	"it needs and will follow up shortly, and say goodbye."

// callerSocket is the slice of *websocket.Conn the bridge uses on the
// caller side, split out so tests can drive the dispatcher without a
// network connection.
type callerSocket interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// aiSession is the slice of the realtime client the bridge drives.
// Satisfied by *openai.RealtimeSession.
type aiSession interface {
	Configure(ctx context.Context, cfg openai.SessionConfig) error
	AppendAudio(payload string) error
	Truncate(itemID string, audioEndMs int) error
	CreateResponse(instructions string) error
	ReadEvent() (openai.Event, error)
	Close()
}

// Config holds per-bridge tunables.
type Config struct {
	Voice        string
	Instructions string
	// SettleDelay is how long to wait after connecting before sending the
	// session configuration, so the send does not race the remote
	// session's readiness.
	SettleDelay time.Duration
}

// DefaultConfig returns the bridge tunables used in production
func DefaultConfig() Config {
	return Config{
		Voice:        "alloy",
		Instructions: sessionInstructions,
		SettleDelay:  100 * time.Millisecond,
	}
}

const sessionInstructions = "You are a friendly phone intake assistant for a web hosting support " +
	"team. Collect five things from the caller, one question at a time: their name, their email " +
	"address, a short description of the problem, when the problem started, and the domain name it " +
	"affects. Confirm each answer back to the caller. Whenever you have learned one or more of " +
	"these values, speak a single line that is exactly one JSON object holding what you know so " +
	"far, using the keys \"name\", \"email\", \"problem\", \"time\" and \"tcp\" for the affected " +
	"domain. Keep every other reply short and conversational."

// Bridge relays events between one caller media-stream connection and one
// realtime AI session. All session state below the connections is owned by
// the dispatch goroutine inside Run; the reader goroutines only decode and
// forward. Writes to the caller socket are mutex-protected because the
// deferred close timer shares the connection with the dispatcher.
type Bridge struct {
	logger *observability.Logger
	cfg    Config

	caller        callerSocket
	callerWriteMu sync.Mutex
	ai            aiSession
	ctrl          *handoff.Controller

	streamSid string
	latestMs  int
	playback  playbackTracker
	rec       record.Record

	closeTimer *time.Timer
}

// New wires a bridge over an accepted caller connection and a dialed AI
// session. The handoff controller must be dedicated to this call.
func New(caller callerSocket, ai aiSession, ctrl *handoff.Controller, cfg Config, logger *observability.Logger) *Bridge {
	return &Bridge{
		logger: logger,
		cfg:    cfg,
		caller: caller,
		ai:     ai,
		ctrl:   ctrl,
	}
}

// Run relays events until the caller side goes away. It blocks; the caller
// connection closing is the sole cancellation trigger. The AI session is
// always closed before Run returns.
func (b *Bridge) Run(ctx context.Context) {
	defer b.ai.Close()
	defer func() {
		if b.closeTimer != nil {
			b.closeTimer.Stop()
		}
	}()

	// Deferred so the configuration send does not race session readiness.
	settle := time.AfterFunc(b.cfg.SettleDelay, func() {
		cfg := openai.SessionConfig{Voice: b.cfg.Voice, Instructions: b.cfg.Instructions}
		if err := b.ai.Configure(ctx, cfg); err != nil {
			b.logger.Error(ctx, "Failed to configure realtime session", err)
		}
	})
	defer settle.Stop()

	callerFrames := make(chan callerFrame)
	aiEvents := make(chan openai.Event)

	go b.readCaller(ctx, callerFrames)
	go b.readAI(ctx, aiEvents)

	aiOpen := true
	for {
		select {
		case frame, ok := <-callerFrames:
			if !ok {
				// Caller is gone: tear down the AI side and hand off
				// whatever record exists.
				b.ai.Close()
				if aiEvents != nil {
					go drainEvents(aiEvents)
				}
				b.ctrl.CallerGone(ctx, &b.rec)
				return
			}
			b.handleCallerFrame(ctx, frame, aiOpen)

		case event, ok := <-aiEvents:
			if !ok {
				// AI side closed on its own; the caller connection is
				// left to close on its own account.
				b.logger.Warn(ctx, "Realtime session closed, caller stream continues")
				aiOpen = false
				aiEvents = nil
				continue
			}
			b.handleAIEvent(ctx, event)
		}
	}
}

// drainEvents keeps the AI reader from blocking on its channel send while
// it unwinds after the caller side has gone away.
func drainEvents(events <-chan openai.Event) {
	for range events {
	}
}

func (b *Bridge) readCaller(ctx context.Context, frames chan<- callerFrame) {
	defer close(frames)
	for {
		_, msg, err := b.caller.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Info(ctx, "Caller stream closed")
			} else {
				b.logger.Error(ctx, "Caller stream read error", err)
			}
			return
		}

		var frame callerFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			b.logger.Error(ctx, "Failed to parse caller frame", err)
			continue
		}
		frames <- frame
	}
}

func (b *Bridge) readAI(ctx context.Context, events chan<- openai.Event) {
	defer close(events)
	for {
		event, err := b.ai.ReadEvent()
		if err != nil {
			if errors.Is(err, openai.ErrMalformedEvent) {
				b.logger.Error(ctx, "Failed to parse realtime event", err)
				continue
			}
			b.logger.Info(ctx, "Realtime session read ended")
			return
		}
		events <- event
	}
}

func (b *Bridge) handleCallerFrame(ctx context.Context, frame callerFrame, aiOpen bool) {
	switch frame.Event {
	case "start":
		b.streamSid = frame.Start.StreamSid
		b.latestMs = 0
		b.playback.Reset()
		b.logger.Info(ctx, fmt.Sprintf("Caller stream started: %s", b.streamSid))

	case "media":
		if ts, err := strconv.Atoi(frame.Media.Timestamp); err == nil {
			b.latestMs = ts
		}
		if !aiOpen {
			// No buffering: audio before the AI session is up is dropped.
			return
		}
		if err := b.ai.AppendAudio(frame.Media.Payload); err != nil {
			b.logger.Error(ctx, "Failed to forward caller audio", err)
		}

	case "mark":
		b.playback.PopMark()

	case "stop":
		b.logger.Info(ctx, fmt.Sprintf("Caller stream stopped: %s", frame.Stop.StreamSid))

	default:
		b.logger.Debug(ctx, fmt.Sprintf("Unknown caller event: %s", frame.Event))
	}
}

func (b *Bridge) handleAIEvent(ctx context.Context, event openai.Event) {
	switch event.Type {
	case "response.audio.delta":
		b.playback.OnAudioDelta(event.ItemID, b.latestMs)
		b.sendMedia(ctx, event.Delta)

	case "input_audio_buffer.speech_started":
		itemID, elapsed, ok := b.playback.Interrupt(b.latestMs)
		if !ok {
			return
		}
		b.logger.Info(ctx, fmt.Sprintf("Caller barge-in, truncating %s at %dms", itemID, elapsed))
		if err := b.ai.Truncate(itemID, elapsed); err != nil {
			b.logger.Error(ctx, "Failed to truncate response", err)
		}
		b.sendClear(ctx)

	case "response.audio_transcript.done":
		if b.rec.MergeFragment(event.Transcript) {
			b.logger.Info(ctx, "Merged intake fields from response transcript")
		}

	case "response.done":
		b.ctrl.CheckAndHandoff(ctx, &b.rec, b)

	case "session.created", "session.updated":
		b.logger.Info(ctx, fmt.Sprintf("Realtime session event: %s", event.Type))

	case "error":
		err := fmt.Errorf("realtime error event")
		if event.Error != nil {
			err = fmt.Errorf("realtime error: %s (%s)", event.Error.Message, event.Error.Code)
		}
		b.logger.Error(ctx, "Realtime session reported an error", err)

	default:
		b.logger.Debug(ctx, fmt.Sprintf("Unhandled realtime event: %s", event.Type))
	}
}

// sendMedia forwards one AI audio chunk to the caller and queues a
// playback marker behind it.
func (b *Bridge) sendMedia(ctx context.Context, payload string) {
	media := mediaFrame{Event: "media", StreamSid: b.streamSid, Media: mediaPayload{Payload: payload}}
	if err := b.writeCaller(media); err != nil {
		b.logger.Error(ctx, "Failed to send audio to caller", err)
		return
	}

	mark := markFrame{Event: "mark", StreamSid: b.streamSid, Mark: markName{Name: markLabel}}
	if err := b.writeCaller(mark); err != nil {
		b.logger.Error(ctx, "Failed to send playback marker", err)
		return
	}
	b.playback.PushMark(markLabel)
}

// sendClear flushes caller-side audio that is queued but not yet played.
func (b *Bridge) sendClear(ctx context.Context) {
	if err := b.writeCaller(clearFrame{Event: "clear", StreamSid: b.streamSid}); err != nil {
		b.logger.Error(ctx, "Failed to clear caller audio buffer", err)
	}
}

func (b *Bridge) writeCaller(v interface{}) error {
	b.callerWriteMu.Lock()
	defer b.callerWriteMu.Unlock()
	return b.caller.WriteJSON(v)
}

// SayFarewell asks the AI session to speak the scripted goodbye.
func (b *Bridge) SayFarewell() error {
	return b.ai.CreateResponse(farewellInstructions)
}

// ScheduleClose closes the caller connection after the given delay so the
// farewell can be delivered before teardown.
func (b *Bridge) ScheduleClose(after time.Duration) {
	b.closeTimer = time.AfterFunc(after, func() {
		b.callerWriteMu.Lock()
		b.caller.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		b.callerWriteMu.Unlock()
		b.caller.Close()
	})
}
