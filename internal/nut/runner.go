package nut

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/model"
)

// Runner builds and runs driver commands.
type Runner struct {
	dir         string
	mibDir      string
	timeout     time.Duration
	snmpTimeout time.Duration
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDriverDir sets the directory holding the driver executables.
func WithDriverDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithMIBDir sets the MIB directory handed to snmp-ups.
func WithMIBDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.mibDir = dir
	}
}

// WithDriverTimeout bounds one driver run.
func WithDriverTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithSNMPTimeout sets the per-request timeout of snmp-ups.
func WithSNMPTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.snmpTimeout = d
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner with the defaults of config.NewConfig.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		dir:         config.DefaultNUTPath,
		mibDir:      config.DefaultMIBDatabase,
		timeout:     config.DefaultDriverTimeout,
		snmpTimeout: config.DefaultSNMPTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRunnerFromConfig creates a Runner from the NUT settings of cfg.
func NewRunnerFromConfig(cfg *config.Config, logger *slog.Logger) *Runner {
	return NewRunner(
		WithDriverDir(cfg.NUTPath),
		WithMIBDir(cfg.MIBDatabase),
		WithDriverTimeout(cfg.DriverTimeout),
		WithSNMPTimeout(cfg.SNMPTimeout),
		WithRunnerLogger(logger),
	)
}

// FindExecutable returns the path of the driver name if it is executable.
func (r *Runner) FindExecutable(name string) (string, error) {
	path := filepath.Join(r.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s", ErrDriverNotFound, path)
	}
	return path, nil
}

// Command builds the discovery command of q. cred may be nil.
func (r *Runner) Command(q model.AssetQuery, cred *config.Credential) (*Command, error) {
	name, err := Driver(q.Protocol)
	if err != nil {
		return nil, err
	}
	path, err := r.FindExecutable(name)
	if err != nil {
		return nil, err
	}

	cmd, err := newCommand(path, q.Protocol, q.Address, q.Port)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		if err := cmd.applyCredential(*cred); err != nil {
			return nil, err
		}
	}
	cmd.applySNMPTimeout(r.snmpTimeout)
	cmd.applyMIBDir(r.mibDir)
	return cmd, nil
}

// Run executes cmd and returns its standard output.
func (r *Runner) Run(ctx context.Context, cmd *Command) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	env := append(os.Environ(), cmd.Env...)
	if cmd.StatePath {
		stateDir, err := os.MkdirTemp("", "nut")
		if err != nil {
			return "", fmt.Errorf("failed to create state directory: %w", err)
		}
		defer os.RemoveAll(stateDir)
		env = append(env, "NUT_STATEPATH="+stateDir)
	}

	r.logger.Debug("running driver", "path", cmd.Path, "args", cmd.Args)

	proc := exec.CommandContext(ctx, cmd.Path, cmd.Args...) //nolint:gosec // Driver path comes from the configured NUT directory
	proc.Env = env
	proc.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	if err := proc.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrDriverFailed, ctxErr)
		}
		r.logger.Debug("driver failed", "path", cmd.Path, "stderr", stderr.String())
		return "", classify(cmd.Protocol, stderr.String(), err)
	}
	return stdout.String(), nil
}

// classify turns driver stderr into an operator friendly error.
func classify(protocol, stderr string, runErr error) error {
	if protocol == model.ProtocolPowercom {
		if strings.Contains(stderr, "Error when get client token on") {
			return ErrInvalidCredentials
		}
		if strings.Contains(stderr, "Could not connect to device") {
			return ErrConnectionFailed
		}
	}

	msg := strings.TrimSpace(stderr)
	if msg == "" {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			msg = exitErr.String()
		} else {
			msg = runErr.Error()
		}
	}
	return fmt.Errorf("%w: %s", ErrDriverFailed, msg)
}
