package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediadeck/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineCall struct {
	Action string
	Track  string
}

// recordingEngine records every engine call in order
type recordingEngine struct {
	mu      sync.Mutex
	calls   []engineCall
	playErr error
}

func (e *recordingEngine) Play(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{"play", name})
	return e.playErr
}

func (e *recordingEngine) Stop(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{"stop", name})
	return nil
}

func (e *recordingEngine) Calls() []engineCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engineCall(nil), e.calls...)
}

type recordingHub struct {
	mu       sync.Mutex
	messages []types.PlaybackMessage
}

func (h *recordingHub) BroadcastPlayback(msg types.PlaybackMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func testTracks(names ...string) []types.AudioFile {
	files := make([]types.AudioFile, 0, len(names))
	for _, n := range names {
		files = append(files, types.AudioFile{Filename: n, Path: n, Format: "mp3"})
	}
	return files
}

func startController(t *testing.T, engine Engine, hub Broadcaster, stopPrevious bool) PlaybackController {
	t.Helper()
	pc := NewPlaybackController(testTracks("a.mp3", "b.mp3"), engine, hub, stopPrevious)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go pc.Run(ctx)
	return pc
}

func TestPlayback_ToggleSameTrack(t *testing.T) {
	engine := &recordingEngine{}
	hub := &recordingHub{}
	pc := startController(t, engine, hub, false)
	ctx := context.Background()

	state, err := pc.Toggle(ctx, "a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", state.Active)
	assert.True(t, state.Playing)
	assert.Equal(t, types.PlaybackActionPlay, state.Action)

	state, err = pc.Toggle(ctx, "a.mp3")
	require.NoError(t, err)
	assert.Empty(t, state.Active)
	assert.False(t, state.Playing)
	assert.Equal(t, types.PlaybackActionStop, state.Action)
	assert.Equal(t, "a.mp3", state.Track)

	assert.Equal(t, []engineCall{{"play", "a.mp3"}, {"stop", "a.mp3"}}, engine.Calls())
	assert.Equal(t, types.PlaybackState{}, pc.State())

	require.Len(t, hub.messages, 2)
	assert.Equal(t, "play", hub.messages[0].Type)
	assert.Equal(t, "a.mp3", hub.messages[0].Active)
	assert.Equal(t, "stop", hub.messages[1].Type)
	assert.Empty(t, hub.messages[1].Active)
	assert.NotEqual(t, hub.messages[0].ID, hub.messages[1].ID)
}

// Known issue: switching from a.mp3 to b.mp3 never stops a.mp3.
func TestPlayback_SwitchLeavesPreviousPlaying(t *testing.T) {
	engine := &recordingEngine{}
	pc := startController(t, engine, nil, false)
	ctx := context.Background()

	_, err := pc.Toggle(ctx, "a.mp3")
	require.NoError(t, err)
	state, err := pc.Toggle(ctx, "b.mp3")
	require.NoError(t, err)

	assert.Equal(t, "b.mp3", state.Active)
	assert.Empty(t, state.Stopped)
	assert.Equal(t, []engineCall{{"play", "a.mp3"}, {"play", "b.mp3"}}, engine.Calls())
	for _, c := range engine.Calls() {
		assert.False(t, c.Action == "stop" && c.Track == "a.mp3", "a.mp3 must not receive stop")
	}
}

func TestPlayback_StopPreviousOnSwitch(t *testing.T) {
	engine := &recordingEngine{}
	pc := startController(t, engine, nil, true)
	ctx := context.Background()

	_, err := pc.Toggle(ctx, "a.mp3")
	require.NoError(t, err)
	state, err := pc.Toggle(ctx, "b.mp3")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.mp3"}, state.Stopped)
	assert.Equal(t, []engineCall{{"play", "a.mp3"}, {"stop", "a.mp3"}, {"play", "b.mp3"}}, engine.Calls())
}

func TestPlayback_UnknownTrack(t *testing.T) {
	engine := &recordingEngine{}
	pc := startController(t, engine, nil, false)

	_, err := pc.Toggle(context.Background(), "zzz.mp3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTrack))
	assert.Empty(t, engine.Calls())
}

func TestPlayback_EngineErrorKeepsSelection(t *testing.T) {
	engine := &recordingEngine{playErr: errors.New("no audio device")}
	pc := startController(t, engine, nil, false)

	state, err := pc.Toggle(context.Background(), "a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", state.Active)
	assert.Equal(t, "a.mp3", pc.State().Active)
}

func TestPlayback_ToggleWithoutRunningLoop(t *testing.T) {
	pc := NewPlaybackController(testTracks("a.mp3"), &recordingEngine{}, nil, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pc.Toggle(ctx, "a.mp3")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPlayback_ConcurrentToggles(t *testing.T) {
	engine := &recordingEngine{}
	pc := startController(t, engine, nil, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pc.Toggle(context.Background(), "a.mp3")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// an even number of taps on one entry always ends with nothing selected
	assert.Empty(t, pc.State().Active)
	assert.Len(t, engine.Calls(), 20)
}
