package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mediadeck/cmd"
	"mediadeck/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecordingEngine records the engine calls the playback loop makes
type RecordingEngine struct {
	mu    sync.Mutex
	calls []string
}

func (e *RecordingEngine) Play(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "play "+name)
	return nil
}

func (e *RecordingEngine) Stop(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "stop "+name)
	return nil
}

// Calls returns a copy of the recorded calls
func (e *RecordingEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// TestHelper provides utilities for testing the mediadeck server
type TestHelper struct {
	Server      *httptest.Server
	TestDataDir string
	LibraryDir  string
	Engine      *RecordingEngine
	Router      *gin.Engine
	cancel      context.CancelFunc
}

// TestOptions tweaks the server configuration for a test
type TestOptions struct {
	Files                map[string][]byte // relative to the library directory
	StopPreviousOnSwitch bool
}

// NewTestHelper creates a server over a temporary library holding opts.Files
func NewTestHelper(t *testing.T, opts TestOptions) *TestHelper {
	testDir := t.TempDir()
	libraryDir := filepath.Join(testDir, "library")
	require.NoError(t, os.MkdirAll(libraryDir, 0755))
	t.Setenv("SETTINGS_FILE", filepath.Join(testDir, "settings.json"))

	helper := &TestHelper{
		TestDataDir: testDir,
		LibraryDir:  libraryDir,
		Engine:      &RecordingEngine{},
	}
	for path, content := range opts.Files {
		helper.CreateTestFile(t, filepath.Join("library", path), content)
	}

	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		ServerPort:           8080,
		LibraryLocation:      libraryDir,
		AudioExtensions:      ".mp3",
		StopPreviousOnSwitch: opts.StopPreviousOnSwitch,
		PreviewSize:          64,
		MaxUploadBytes:       1 << 20,
		LogLevel:             "error",
		LogFormat:            "text",
	}

	server := cmd.NewServer(cfg, afero.NewOsFs(), helper.Engine)
	ctx, cancel := context.WithCancel(context.Background())
	server.Run(ctx)

	helper.Router = server.Router
	helper.Server = httptest.NewServer(server.Router)
	helper.cancel = cancel
	return helper
}

// Cleanup stops the server and its background loops
func (h *TestHelper) Cleanup(t *testing.T) {
	if h.Server != nil {
		h.Server.Close()
	}
	h.cancel()
}

// MakeRequest makes an HTTP request to the test server
func (h *TestHelper) MakeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reqBody)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close()

	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), string(body))
	}
}

// GetJSON makes a GET request and unmarshals JSON response
func (h *TestHelper) GetJSON(t *testing.T, path string, target interface{}) *http.Response {
	resp := h.MakeRequest(t, "GET", path, nil)
	decodeBody(t, resp, target)
	return resp
}

// PostJSON makes a POST request with JSON body and unmarshals JSON response
func (h *TestHelper) PostJSON(t *testing.T, path string, requestBody interface{}, target interface{}) *http.Response {
	resp := h.MakeRequest(t, "POST", path, requestBody)
	decodeBody(t, resp, target)
	return resp
}

// UploadPhoto posts content as the multipart "image" field
func (h *TestHelper) UploadPhoto(t *testing.T, filename string, content []byte, target interface{}) *http.Response {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(h.Server.URL+"/api/photos", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	decodeBody(t, resp, target)
	return resp
}

// ConnectWebSocket connects to a WebSocket endpoint
func (h *TestHelper) ConnectWebSocket(t *testing.T, path string) *websocket.Conn {
	wsURL := "ws" + h.Server.URL[4:] + path // Replace http:// with ws://

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return conn
}

// AssertFileExists checks if a file exists in the test data directory
func (h *TestHelper) AssertFileExists(t *testing.T, relativePath string) {
	fullPath := filepath.Join(h.TestDataDir, relativePath)
	_, err := os.Stat(fullPath)
	assert.NoError(t, err, "File should exist: %s", relativePath)
}

// CreateTestFile creates a test file with specified content
func (h *TestHelper) CreateTestFile(t *testing.T, relativePath string, content []byte) {
	fullPath := filepath.Join(h.TestDataDir, relativePath)

	err := os.MkdirAll(filepath.Dir(fullPath), 0755)
	require.NoError(t, err)

	err = os.WriteFile(fullPath, content, 0644)
	require.NoError(t, err)
}
