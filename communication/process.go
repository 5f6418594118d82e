package communication

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Process runs a game host as a child process and talks to it over its
// standard streams. The host's stderr is forwarded to the log.
type Process struct {
	name    string
	args    []string
	timeout time.Duration
	logger  zerolog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Closer
	conn   *Conn
	exit   chan error
}

// NewProcess prepares a host launched as name args... without starting it.
// A zero timeout waits for snapshots indefinitely.
func NewProcess(timeout time.Duration, name string, args ...string) *Process {
	return &Process{
		name:    name,
		args:    args,
		timeout: timeout,
		logger:  log.With().Str("host", name).Logger(),
	}
}

// Reset restarts the host and returns its initial snapshot.
func (p *Process) Reset(ctx context.Context) (Snapshot, error) {
	p.Close()

	cmd := exec.Command(p.name, p.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to open host stdin")
	}
	// Wait would close pipes from StdoutPipe while the last snapshot is
	// still unread, so the read ends are owned here.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to open host stdout")
	}
	stderr, stderrW, err := os.Pipe()
	if err != nil {
		stdout.Close()
		stdoutW.Close()
		return Snapshot{}, errors.Wrap(err, "failed to open host stderr")
	}
	cmd.Stdout, cmd.Stderr = stdoutW, stderrW
	err = cmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if err != nil {
		stdout.Close()
		stderr.Close()
		return Snapshot{}, errors.Wrapf(err, "failed to start host %s", p.name)
	}
	p.logger.Info().Msgf("started host process %d", cmd.Process.Pid)

	p.cmd, p.stdin, p.stdout = cmd, stdin, stdout
	p.conn = NewConn(stdout, stdin)
	p.exit = make(chan error, 1)
	go p.forward(stderr)
	go func(exit chan<- error) {
		exit <- cmd.Wait()
	}(p.exit)

	return p.receive(ctx)
}

func (p *Process) forward(stderr io.ReadCloser) {
	defer stderr.Close()
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		p.logger.Warn().Msg(scanner.Text())
	}
}

// Step sends cmd and returns the host's answer.
func (p *Process) Step(ctx context.Context, cmd Command) (Snapshot, error) {
	if p.conn == nil {
		return Snapshot{}, errors.Wrap(ErrHostClosed, "host not started")
	}
	if err := p.conn.Send(cmd); err != nil {
		return Snapshot{}, err
	}
	return p.receive(ctx)
}

func (p *Process) receive(ctx context.Context) (Snapshot, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	snap, err := p.conn.Receive(ctx)
	if err != nil && errors.Is(err, ErrHostClosed) {
		select {
		case exitErr := <-p.exit:
			p.exit <- exitErr
			if exitErr != nil {
				return snap, errors.Wrapf(err, "host exited: %v", exitErr)
			}
		case <-time.After(100 * time.Millisecond):
		}
	}
	return snap, err
}

// Close stops the host. It is safe to call on a process that never started.
func (p *Process) Close() error {
	if p.cmd == nil {
		return nil
	}
	p.conn.Close()
	p.stdin.Close()
	select {
	case <-p.exit:
	case <-time.After(2 * time.Second):
		if err := p.cmd.Process.Kill(); err != nil {
			p.logger.Warn().Err(err).Msg("failed to kill host")
		}
		<-p.exit
	}
	p.stdout.Close()
	p.cmd, p.stdin, p.stdout, p.conn = nil, nil, nil, nil
	return nil
}
