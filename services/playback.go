package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mediadeck/types"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// ErrUnknownTrack is returned when a toggle names a track outside the library
var ErrUnknownTrack = errors.New("unknown track")

// Broadcaster receives playback updates for connected clients
type Broadcaster interface {
	BroadcastPlayback(msg types.PlaybackMessage)
}

// PlaybackController applies toggle events, one at a time, to the selection
// and the engine
type PlaybackController interface {
	Run(ctx context.Context)
	Toggle(ctx context.Context, track string) (types.PlaybackState, error)
	State() types.PlaybackState
	Tracks() []types.AudioFile
}

type toggleEvent struct {
	track string
	reply chan types.PlaybackState
}

// playbackController serialises toggles through a single event loop
type playbackController struct {
	tracks []types.AudioFile
	known  map[string]bool
	engine Engine
	hub    Broadcaster
	events chan toggleEvent

	mu        sync.RWMutex
	selection Selection
}

// NewPlaybackController creates a controller over the startup track list.
// hub may be nil.
func NewPlaybackController(tracks []types.AudioFile, engine Engine, hub Broadcaster, stopPreviousOnSwitch bool) PlaybackController {
	known := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		known[t.Path] = true
	}
	return &playbackController{
		tracks:    tracks,
		known:     known,
		engine:    engine,
		hub:       hub,
		events:    make(chan toggleEvent),
		selection: Selection{StopPreviousOnSwitch: stopPreviousOnSwitch},
	}
}

// Run drains toggle events until ctx is done
func (pc *playbackController) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-pc.events:
			ev.reply <- pc.handle(ev.track)
		}
	}
}

// Toggle submits a tap on track and waits for it to be applied
func (pc *playbackController) Toggle(ctx context.Context, track string) (types.PlaybackState, error) {
	if !pc.known[track] {
		return types.PlaybackState{}, fmt.Errorf("%w: %s", ErrUnknownTrack, track)
	}

	ev := toggleEvent{track: track, reply: make(chan types.PlaybackState, 1)}
	select {
	case pc.events <- ev:
	case <-ctx.Done():
		return types.PlaybackState{}, ctx.Err()
	}

	select {
	case state := <-ev.reply:
		return state, nil
	case <-ctx.Done():
		return types.PlaybackState{}, ctx.Err()
	}
}

// State returns the current selection
func (pc *playbackController) State() types.PlaybackState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	active, playing := pc.selection.Active()
	return types.PlaybackState{Active: active, Playing: playing}
}

// Tracks returns the track list the controller accepts
func (pc *playbackController) Tracks() []types.AudioFile {
	return pc.tracks
}

func (pc *playbackController) handle(track string) types.PlaybackState {
	pc.mu.Lock()
	t := pc.selection.Activate(track)
	pc.mu.Unlock()

	logctx := log.WithField("track", track)
	state := types.PlaybackState{
		Active:  t.Active,
		Playing: t.Active != "",
		Stopped: t.Halted,
	}

	for _, prev := range t.Halted {
		if err := pc.engine.Stop(prev); err != nil {
			logctx.WithError(err).WithField("previous", prev).Warn("stop previous track")
		}
		pc.broadcast(types.PlaybackActionStop, prev, t.Active)
	}

	switch {
	case t.Stop != "":
		state.Action, state.Track = types.PlaybackActionStop, t.Stop
		if err := pc.engine.Stop(t.Stop); err != nil {
			logctx.WithError(err).Warn("stop track")
		}
	case t.Play != "":
		state.Action, state.Track = types.PlaybackActionPlay, t.Play
		if err := pc.engine.Play(t.Play); err != nil {
			logctx.WithError(err).Warn("play track")
		}
	}

	pc.broadcast(state.Action, state.Track, state.Active)
	logctx.WithField("action", string(state.Action)).WithField("active", state.Active).Debug("toggle applied")
	return state
}

func (pc *playbackController) broadcast(action types.PlaybackAction, track, active string) {
	if pc.hub == nil {
		return
	}
	pc.hub.BroadcastPlayback(types.PlaybackMessage{
		ID:        uuid.New().String(),
		Type:      string(action),
		Track:     track,
		Active:    active,
		Timestamp: time.Now(),
	})
}
