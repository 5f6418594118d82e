package communication

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxLine = 1 << 20

// Conn speaks the line-delimited JSON protocol: every command written is
// answered by exactly one snapshot line. Lines that are not JSON objects,
// such as startup banners, are logged and skipped. Once a read or write
// fails the Conn stays broken.
type Conn struct {
	w     io.Writer
	lines chan []byte

	mu        sync.Mutex
	err       error
	readErr   error
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn starts reading r in the background.
func NewConn(r io.Reader, w io.Writer) *Conn {
	c := &Conn{w: w, lines: make(chan []byte), done: make(chan struct{})}
	go c.read(r)
	return c
}

func (c *Conn) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	defer close(c.lines)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' {
			log.Debug().Msgf("host: %s", line)
			continue
		}
		select {
		case c.lines <- append([]byte(nil), line...):
		case <-c.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.mu.Lock()
		c.readErr = err
		c.mu.Unlock()
	}
}

// Err returns the error that broke the connection, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
	return c.err
}

// Send writes one command line.
func (c *Conn) Send(cmd Command) error {
	if err := c.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to encode command")
	}
	if _, err := c.w.Write(append(data, '\n')); err != nil {
		return c.fail(errors.Wrapf(ErrHostClosed, "failed to send command: %v", err))
	}
	return nil
}

// Receive reads the next snapshot, waiting until ctx is done.
func (c *Conn) Receive(ctx context.Context) (Snapshot, error) {
	if err := c.Err(); err != nil {
		return Snapshot{}, err
	}
	select {
	case line, ok := <-c.lines:
		if !ok {
			c.mu.Lock()
			cause := c.readErr
			c.mu.Unlock()
			if cause != nil {
				return Snapshot{}, c.fail(errors.Wrapf(ErrHostClosed, "read failed: %v", cause))
			}
			return Snapshot{}, c.fail(errors.Wrap(ErrHostClosed, "host output ended"))
		}
		snap := emptySnapshot()
		if err := json.Unmarshal(line, &snap); err != nil {
			return Snapshot{}, c.fail(errors.Wrapf(err, "failed to decode snapshot %q", truncate(line)))
		}
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, c.fail(errors.Wrap(ctx.Err(), "no snapshot from host"))
	}
}

// Step sends cmd and waits for the resulting snapshot.
func (c *Conn) Step(ctx context.Context, cmd Command) (Snapshot, error) {
	if err := c.Send(cmd); err != nil {
		return Snapshot{}, err
	}
	return c.Receive(ctx)
}

// Close breaks the connection and stops the reader once its input ends.
func (c *Conn) Close() {
	c.fail(errors.Wrap(ErrHostClosed, "connection closed"))
	c.closeOnce.Do(func() { close(c.done) })
}

func truncate(line []byte) []byte {
	if len(line) > 80 {
		return line[:80]
	}
	return line
}
