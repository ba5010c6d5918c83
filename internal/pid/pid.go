package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/netfault/internal/errors"
	pkgerrors "github.com/pkg/errors"
)

const DefaultName = "netfault.pid"

// ErrAlreadyRunning is the cause reported when another live process holds the file
var ErrAlreadyRunning = pkgerrors.New("another instance is already running")

// File guards a single running instance through a PID file
type File struct {
	path string
}

// New returns a File named name inside dir, or inside the temp dir when dir is empty
func New(dir, name string) *File {
	if dir == "" {
		dir = os.TempDir()
	}
	if name == "" {
		name = DefaultName
	}
	return &File{path: filepath.Join(dir, name)}
}

func (f *File) Path() string {
	return f.path
}

// Write records the current process ID. A stale file left by a dead process
// is replaced.
func (f *File) Write() error {
	errFactory := errors.New()

	if running, err := f.running(); err != nil {
		return errFactory.Wrap(err)
	} else if running {
		return errFactory.Wrap(errors.NewIOError("write pid file", ErrAlreadyRunning))
	}

	if err := os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(err)
	}

	return nil
}

// Remove deletes the PID file
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(err)
	}

	return nil
}

func (f *File) running() (bool, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		// unreadable content is treated as stale
		return false, nil
	}
	if pid == os.Getpid() {
		return false, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	return process.Signal(syscall.Signal(0)) == nil, nil
}
