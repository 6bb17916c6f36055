package reload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ExitStatus is the process exit status used when a restart fails.
const ExitStatus = 2

// DefaultProcess is the supervised process name, after the host entry script.
const DefaultProcess = "app"

// ErrSupervisor wraps every restart failure.
var ErrSupervisor = errors.New("reload: supervisor restart failed")

// Supervisor restarts a named process.
type Supervisor interface {
	Restart(ctx context.Context, process string) error
}

// SupervisorFunc adapts a function into a Supervisor.
type SupervisorFunc func(ctx context.Context, process string) error

// Restart calls the underlying function.
func (fn SupervisorFunc) Restart(ctx context.Context, process string) error {
	return fn(ctx, process)
}

// NameToken is replaced by the process name in CommandSupervisor arguments.
const NameToken = "{name}"

// CommandSupervisor restarts a process by running a supervisor CLI, e.g.
// `pm2 restart {name}`.
type CommandSupervisor struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// PM2 returns the default pm2 supervisor command.
func PM2() CommandSupervisor {
	return CommandSupervisor{Command: "pm2", Args: []string{"restart", NameToken}, Timeout: 30 * time.Second}
}

// Restart runs the command and reports a non-zero exit as an error carrying
// the command's combined output.
func (c CommandSupervisor) Restart(ctx context.Context, process string) error {
	if strings.TrimSpace(c.Command) == "" {
		return errors.New("reload: supervisor command is empty")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = strings.ReplaceAll(arg, NameToken, process)
	}

	cmd := exec.CommandContext(ctx, c.Command, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(output.String()); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", c.Command, strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("%s %s: %w", c.Command, strings.Join(args, " "), err)
	}
	return nil
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithProcess sets the supervised process name.
func WithProcess(name string) Option {
	return func(c *Coordinator) {
		if name = strings.TrimSpace(name); name != "" {
			c.process = name
		}
	}
}

// WithExit replaces os.Exit. Tests use it to observe fatal failures.
func WithExit(exit func(int)) Option {
	return func(c *Coordinator) {
		if exit != nil {
			c.exit = exit
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// Coordinator requests the restart of one named process.
type Coordinator struct {
	supervisor Supervisor
	process    string
	exit       func(int)
	logger     zerolog.Logger
}

// NewCoordinator returns a Coordinator using supervisor.
func NewCoordinator(supervisor Supervisor, opts ...Option) *Coordinator {
	c := &Coordinator{
		supervisor: supervisor,
		process:    DefaultProcess,
		exit:       os.Exit,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Process returns the supervised process name.
func (c *Coordinator) Process() string { return c.process }

// Reload asks the supervisor to restart the process. On failure the exit
// function is called with ExitStatus; the wrapped ErrSupervisor is returned
// for exit functions that do not terminate.
func (c *Coordinator) Reload(ctx context.Context) error {
	if c.supervisor == nil {
		return c.fail(errors.New("no supervisor configured"))
	}
	started := time.Now()
	if err := c.supervisor.Restart(ctx, c.process); err != nil {
		return c.fail(err)
	}
	c.logger.Info().
		Str("process", c.process).
		Dur("duration", time.Since(started)).
		Msg("restart requested")
	return nil
}

func (c *Coordinator) fail(cause error) error {
	err := fmt.Errorf("%w: process %q: %v", ErrSupervisor, c.process, cause)
	c.logger.Error().
		Err(cause).
		Str("process", c.process).
		Int("exit_status", ExitStatus).
		Msg("restart failed, terminating")
	c.exit(ExitStatus)
	return err
}
