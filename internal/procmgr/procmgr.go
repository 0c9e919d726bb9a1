// Package procmgr starts and stops a local twin-serverest process in the
// background and tracks it through a PID file.
package procmgr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// DefaultStateDir holds the PID file and the twin's log.
const DefaultStateDir = ".serverest"

const pidFileName = "twin.json"

// ErrNotRunning is returned by Stop when no tracked twin is alive.
var ErrNotRunning = errors.New("twin is not running")

// Twin describes how to launch the twin binary.
type Twin struct {
	Binary   string
	Port     int
	SeedFile string
	DataFile string
	Verbose  bool
}

// Entry is what the PID file records about a running twin.
type Entry struct {
	PID     int       `json:"pid"`
	Port    int       `json:"port"`
	Binary  string    `json:"binary"`
	Log     string    `json:"log"`
	Started time.Time `json:"started"`
}

// URL is the base URL of the tracked twin.
func (e Entry) URL() string { return "http://localhost:" + strconv.Itoa(e.Port) }

// Manager keeps its PID file and logs under Dir.
type Manager struct {
	Dir string
}

// New returns a Manager rooted at dir, or DefaultStateDir when empty.
func New(dir string) *Manager {
	if dir == "" {
		dir = DefaultStateDir
	}
	return &Manager{Dir: dir}
}

func (m *Manager) pidPath() string { return filepath.Join(m.Dir, pidFileName) }

// Load returns the tracked entry. ok is false when nothing is tracked.
func (m *Manager) Load() (entry Entry, ok bool, err error) {
	data, err := os.ReadFile(m.pidPath())
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("parsing %s: %w", m.pidPath(), err)
	}
	return entry, true, nil
}

func (m *Manager) save(e Entry) error {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.pidPath(), data, 0o644)
}

// Args builds the twin's command line.
func (t Twin) Args() ([]string, error) {
	args := []string{"--port", strconv.Itoa(t.Port)}
	if t.Verbose {
		args = append(args, "--verbose")
	}
	for flag, path := range map[string]string{"--seed-file": t.SeedFile, "--data": t.DataFile} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", flag, err)
		}
		args = append(args, flag, abs)
	}
	return args, nil
}

// Start launches the twin detached from the caller with output going to a
// log file, and records it. A twin that is already tracked and alive is an
// error.
func (m *Manager) Start(t Twin) (Entry, error) {
	if e, ok, _ := m.Load(); ok && IsRunning(e.PID) {
		return Entry{}, fmt.Errorf("twin already running (pid %d, port %d)", e.PID, e.Port)
	}

	binary, err := exec.LookPath(t.Binary)
	if err != nil {
		return Entry{}, fmt.Errorf("twin binary: %w", err)
	}
	if binary, err = filepath.Abs(binary); err != nil {
		return Entry{}, fmt.Errorf("resolving binary path: %w", err)
	}
	args, err := t.Args()
	if err != nil {
		return Entry{}, err
	}

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("creating state dir: %w", err)
	}
	logPath := filepath.Join(m.Dir, "twin.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("creating log file: %w", err)
	}

	cmd := exec.Command(binary, args...)
	cmd.Env = os.Environ()
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setDetachedProcessAttrs(cmd)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return Entry{}, fmt.Errorf("starting twin: %w", err)
	}
	go func() {
		cmd.Wait()
		logFile.Close()
	}()

	e := Entry{PID: cmd.Process.Pid, Port: t.Port, Binary: binary, Log: logPath, Started: time.Now()}
	if err := m.save(e); err != nil {
		return e, fmt.Errorf("recording pid: %w", err)
	}
	return e, nil
}

// WaitReady polls ready until it reports true or ctx ends.
func WaitReady(ctx context.Context, ready func(context.Context) bool) error {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		if ready(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("twin not ready: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// Stop sends SIGTERM to the tracked twin, giving it time to persist its
// state, then SIGKILL after grace. The PID file is removed either way.
func (m *Manager) Stop(grace time.Duration) error {
	e, ok, err := m.Load()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRunning
	}
	defer os.Remove(m.pidPath())

	if !IsRunning(e.PID) {
		return ErrNotRunning
	}
	proc, err := os.FindProcess(e.PID)
	if err != nil {
		return ErrNotRunning
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return ErrNotRunning
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !IsRunning(e.PID) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	proc.Signal(syscall.SIGKILL)
	return nil
}

// IsRunning checks if a process with the given PID is still alive.
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds. Signal 0 probes existence.
	return proc.Signal(syscall.Signal(0)) == nil
}
