// Package scene launches scene scripts as fire-and-forget subprocesses.
//
// A scene is an executable living in the configured scene directory,
// triggered by button events. The device model's contract ends at a
// successful launch; exit status and output are logged, never returned.
package scene

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hubforge/homehub/internal/infrastructure/config"
	"github.com/hubforge/homehub/internal/infrastructure/logging"
)

// defaultTimeout is the maximum scene runtime when config leaves it unset.
const defaultTimeout = 30 * time.Second

// ErrInvalidCommand is returned for commands that escape the scene
// directory or are empty.
var ErrInvalidCommand = errors.New("scene: invalid command")

// Runner launches scene scripts. Safe for concurrent use; each trigger
// runs in its own goroutine.
type Runner struct {
	dir     string
	timeout time.Duration
	logger  *logging.Logger
}

// NewRunner creates a scene runner over the configured scene directory.
func NewRunner(cfg config.Scenes, logger *logging.Logger) *Runner {
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		dir:     cfg.Directory,
		timeout: timeout,
		logger:  logger,
	}
}

// Trigger launches a scene script asynchronously. The launch itself is
// the whole contract: failures are logged, nothing is returned, and the
// caller never observes the script's outcome.
func (r *Runner) Trigger(command string, args ...string) {
	path, err := r.resolve(command)
	if err != nil {
		r.logger.Error("scene trigger rejected", "command", command, "error", err)
		return
	}

	go r.run(path, args)
}

func (r *Runner) run(path string, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = r.dir

	// Own process group, so a timeout kill reaches the script's children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	r.logger.Info("scene started", "command", path, "args", args)

	out, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Warn("scene finished with error",
			"command", path, "error", err, "output", strings.TrimSpace(string(out)))
		return
	}
	r.logger.Info("scene finished", "command", path)
}

// resolve maps a configured command name to an executable inside the
// scene directory, rejecting anything that would escape it.
func (r *Runner) resolve(command string) (string, error) {
	if command == "" {
		return "", ErrInvalidCommand
	}

	path := filepath.Join(r.dir, command)
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	absDir, err := filepath.Abs(r.dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if abs != absDir && !strings.HasPrefix(abs, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes scene directory", ErrInvalidCommand, command)
	}
	return abs, nil
}
