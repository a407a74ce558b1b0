package services

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
)

// Engine is the external audio engine the selection drives
type Engine interface {
	Play(name string) error
	Stop(name string) error
}

// LogEngine only records requests. It backs the server when no player command
// is configured and clients play through the stream endpoint.
type LogEngine struct{}

func (LogEngine) Play(name string) error {
	log.WithField("track", name).Info("play requested")
	return nil
}

func (LogEngine) Stop(name string) error {
	log.WithField("track", name).Info("stop requested")
	return nil
}

// CommandEngine plays each track with its own external player process.
// The command template is split on whitespace; "{file}" is replaced with the
// track path, or the path is appended when the placeholder is absent.
type CommandEngine struct {
	root     string
	template []string

	mu      sync.Mutex
	running map[string]*exec.Cmd
}

// NewCommandEngine creates an engine resolving track names under root
func NewCommandEngine(root, command string) (*CommandEngine, error) {
	template := strings.Fields(command)
	if len(template) == 0 {
		return nil, fmt.Errorf("empty player command")
	}
	return &CommandEngine{
		root:     root,
		template: template,
		running:  make(map[string]*exec.Cmd),
	}, nil
}

func (e *CommandEngine) args(path string) []string {
	args := make([]string, 0, len(e.template))
	replaced := false
	for _, a := range e.template[1:] {
		if strings.Contains(a, "{file}") {
			a = strings.ReplaceAll(a, "{file}", path)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}

// Play starts a player for name, restarting it if one is already running
func (e *CommandEngine) Play(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cmd, ok := e.running[name]; ok {
		e.kill(name, cmd)
	}

	path := filepath.Join(e.root, filepath.FromSlash(name))
	cmd := exec.Command(e.template[0], e.args(path)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player for %s: %w", name, err)
	}
	e.running[name] = cmd

	go e.reap(name, cmd)
	return nil
}

// Stop kills the player for name. Stopping a track that is not playing is a no-op.
func (e *CommandEngine) Stop(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cmd, ok := e.running[name]
	if !ok {
		return nil
	}
	return e.kill(name, cmd)
}

// IsPlaying reports whether a player process for name is still running
func (e *CommandEngine) IsPlaying(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[name]
	return ok
}

// Close stops every running player
func (e *CommandEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, cmd := range e.running {
		e.kill(name, cmd)
	}
	return nil
}

// kill must be called with mu held
func (e *CommandEngine) kill(name string, cmd *exec.Cmd) error {
	delete(e.running, name)
	if cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop player for %s: %w", name, err)
	}
	return nil
}

func (e *CommandEngine) reap(name string, cmd *exec.Cmd) {
	err := cmd.Wait()
	log.WithField("track", name).WithField("exit", fmt.Sprint(err)).Debug("player exited")

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[name] == cmd {
		delete(e.running, name)
	}
}
