package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediadeck/services"
	"mediadeck/testsupport"
	"mediadeck/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the configuration at a temp library and settings file
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SETTINGS_FILE", filepath.Join(dir, "settings.json"))
	t.Setenv("LIBRARY_LOCATION", filepath.Join(dir, "library"))
	t.Setenv("PLAYER_COMMAND", "")
	t.Setenv("LOG_LEVEL", "error")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "library"), 0755))
	return filepath.Join(dir, "library")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "two"}}, []columnAlignment{alignRight})
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "two")
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestPhotoCommand(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "beach.jpg")
	require.NoError(t, os.WriteFile(path, testsupport.JPEG(testsupport.PhotoOptions{
		Exif: true,
		GPS: &testsupport.GPSOptions{
			Latitude:     testsupport.Float(48.8584),
			LatitudeRef:  "N",
			Longitude:    testsupport.Float(2.2945),
			LongitudeRef: "E",
		},
	}), 0644))

	out, err := execute(t, "", "photo", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Photo: beach.jpg")
	assert.Contains(t, out, "Image: 8x6 jpeg")
	assert.Contains(t, out, "ISOSpeedRatings=100")
	assert.Contains(t, out, "Location: 48.8584")
	assert.Contains(t, out, "openstreetmap.org")
}

func TestPhotoCommand_Placeholders(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "notes.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	out, err := execute(t, "", "photo", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Image: (no image)")
	assert.Contains(t, out, "Metadata: (none)")
	assert.Contains(t, out, "Location: (no location)")
}

func TestPhotoCommand_JSON(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, os.WriteFile(path, testsupport.PNG(4, 4), 0644))

	out, err := execute(t, "", "photo", "--json", path)
	require.NoError(t, err)

	var view types.PhotoView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "plain.png", view.Name)
	require.NotNil(t, view.Image)
	assert.Equal(t, "png", view.Image.Format)
	assert.Nil(t, view.Location)
}

func TestTracksCommand(t *testing.T) {
	library := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(library, "b.mp3"), testsupport.MP3("Bee", "Band", ""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(library, "a.mp3"), testsupport.MP3("Ay", "", ""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(library, "cover.jpg"), []byte("jpg"), 0644))

	out, err := execute(t, "", "tracks")
	require.NoError(t, err)
	assert.Contains(t, out, "a.mp3")
	assert.Contains(t, out, "Bee")
	assert.NotContains(t, out, "cover.jpg")
	assert.Less(t, strings.Index(out, "a.mp3"), strings.Index(out, "b.mp3"))
}

func TestTracksCommand_MissingDir(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "tracks", "--dir", filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Contains(t, out, "No tracks found")
}

func TestResolveTrack(t *testing.T) {
	tracks := []types.AudioFile{
		{Filename: "a.mp3", Path: "a.mp3"},
		{Filename: "b.mp3", Path: "sub/b.mp3"},
	}

	name, ok := resolveTrack(tracks, "2")
	assert.True(t, ok)
	assert.Equal(t, "sub/b.mp3", name)

	name, ok = resolveTrack(tracks, "b.mp3")
	assert.True(t, ok)
	assert.Equal(t, "sub/b.mp3", name)

	_, ok = resolveTrack(tracks, "3")
	assert.False(t, ok)
	_, ok = resolveTrack(tracks, "0")
	assert.False(t, ok)
	_, ok = resolveTrack(tracks, "c.mp3")
	assert.False(t, ok)
}

func TestRunPlayer(t *testing.T) {
	tracks := []types.AudioFile{
		{Filename: "a.mp3", Path: "a.mp3"},
		{Filename: "b.mp3", Path: "b.mp3"},
	}
	controller := services.NewPlaybackController(tracks, services.LogEngine{}, nil, false)

	var out bytes.Buffer
	err := runPlayer(context.Background(), strings.NewReader("1\n1\n2\nzzz\nq\n2\n"), &out, tracks, controller)
	require.NoError(t, err)

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "▶ a.mp3")+strings.Count(text, "▶ b.mp3"))
	assert.Contains(t, text, "■ a.mp3")
	assert.Contains(t, text, `no track "zzz"`)
	// the tap after "q" is never applied
	assert.Equal(t, "b.mp3", controller.State().Active)
}

// TestRunPlayer_Cancel returns as soon as the context ends, even while
// waiting for input
func TestRunPlayer_Cancel(t *testing.T) {
	tracks := []types.AudioFile{{Filename: "a.mp3", Path: "a.mp3"}}
	controller := services.NewPlaybackController(tracks, services.LogEngine{}, nil, false)

	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- runPlayer(ctx, in, &out, tracks, controller)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("player kept waiting for input after cancel")
	}
}

func TestPlayCommand(t *testing.T) {
	library := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(library, "a.mp3"), testsupport.MP3("Ay", "", ""), 0644))

	out, err := execute(t, "a.mp3\na.mp3\n", "play")
	require.NoError(t, err)
	assert.Contains(t, out, "▶ a.mp3")
	assert.Contains(t, out, "■ a.mp3")
}
