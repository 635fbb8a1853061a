// Package exiftool drives a persistent exiftool process in stay_open mode.
//
// Commands are written to exiftool's stdin one argument per line and
// terminated with -execute<N>. Output is read from stdout up to the
// matching {ready<N>} marker; -echo4 places the same marker on stderr once
// processing is complete, so both streams stay in lockstep. The two streams
// are read concurrently.
package exiftool

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	thserrors "github.com/five82/thumbsync/internal/errors"
	"github.com/five82/thumbsync/internal/logging"
)

// WriteMode selects what happens to the file exiftool rewrites.
type WriteMode int

const (
	// Overwrite replaces the file in place (-overwrite_original).
	Overwrite WriteMode = iota
	// Backup leaves exiftool's FILE_original copy next to the file.
	Backup
)

// String returns a human-readable name for the mode.
func (m WriteMode) String() string {
	if m == Backup {
		return "backup"
	}
	return "overwrite"
}

// Response is the output of one executed command.
type Response struct {
	Stdout string
	Stderr string
}

type lineResult struct {
	text string
	err  error
}

// Client owns one exiftool process. Methods are safe for concurrent use;
// commands are serialized.
type Client struct {
	binary string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	stderr *bufio.Scanner
	seq    int
	closed bool
}

// Start launches exiftool. binary empty means "exiftool" on PATH.
func Start(binary string) (*Client, error) {
	if binary == "" {
		binary = "exiftool"
	}

	cmd := exec.Command(binary, "-stay_open", "True", "-@", "-")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, thserrors.NewIOError("exiftool stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, thserrors.NewIOError("exiftool stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, thserrors.NewIOError("exiftool stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, thserrors.NewCommandStartError(binary, err)
	}
	logging.Debug("exiftool started", "binary", binary, "pid", cmd.Process.Pid)

	out := bufio.NewScanner(stdout)
	out.Buffer(make([]byte, 64*1024), 16*1024*1024)
	errs := bufio.NewScanner(stderr)
	errs.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Client{
		binary: binary,
		cmd:    cmd,
		stdin:  stdin,
		stdout: out,
		stderr: errs,
	}, nil
}

// Binary returns the executable the client was started with.
func (c *Client) Binary() string {
	return c.binary
}

// Execute runs one command and returns its output. If ctx is cancelled
// while exiftool is busy the process is killed, since its streams can no
// longer be resynchronized.
func (c *Client) Execute(ctx context.Context, args ...string) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Response{}, thserrors.NewOperationFailedError("exiftool is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return Response{}, thserrors.NewCancelledError()
	}

	c.seq++
	marker := fmt.Sprintf("{ready%d}", c.seq)

	var b strings.Builder
	for _, arg := range args {
		if strings.ContainsAny(arg, "\r\n") {
			return Response{}, thserrors.NewMetadataError(fmt.Sprintf("argument contains a newline: %q", arg), nil)
		}
		b.WriteString(arg)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "-echo4\n%s\n-execute%d\n", marker, c.seq)

	if _, err := io.WriteString(c.stdin, b.String()); err != nil {
		return Response{}, thserrors.NewIOError("writing to exiftool", err)
	}

	// Both streams are drained at once: exiftool blocks on a full stderr
	// pipe before it ever prints the stdout marker.
	done := make(chan struct{})
	var resp Response
	var readErr error
	go func() {
		defer close(done)
		var g errgroup.Group
		g.Go(func() error {
			var err error
			resp.Stdout, err = readUntil(c.stdout, marker)
			return err
		})
		g.Go(func() error {
			var err error
			resp.Stderr, err = readUntil(c.stderr, marker)
			return err
		})
		readErr = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		_ = c.cmd.Process.Kill()
		<-done
		c.closed = true
		return Response{}, thserrors.NewCancelledError()
	}

	if readErr != nil {
		c.closed = true
		return Response{}, thserrors.NewIOError("reading from exiftool", readErr)
	}
	return resp, nil
}

// readUntil collects lines until one starts with marker.
func readUntil(s *bufio.Scanner, marker string) (string, error) {
	var out strings.Builder
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, marker) {
			return out.String(), nil
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := s.Err(); err != nil {
		return out.String(), err
	}
	return out.String(), io.ErrUnexpectedEOF
}

// ReadTags returns every tag exiftool reports for path, keyed by tag name.
func (c *Client) ReadTags(ctx context.Context, path string) (map[string]string, error) {
	resp, err := c.Execute(ctx, BuildReadArgs(path)...)
	if err != nil {
		return nil, err
	}
	if msg := firstError(resp.Stderr); msg != "" {
		return nil, thserrors.NewMetadataError(fmt.Sprintf("reading %s: %s", path, msg), nil)
	}
	tags, err := parseJSONTags(resp.Stdout)
	if err != nil {
		return nil, thserrors.NewMetadataError(fmt.Sprintf("reading %s", path), err)
	}
	return tags, nil
}

// WriteTags writes tags to path. extra arguments (for example
// "-api", "QuickTimeUTC") are placed before the tag assignments.
func (c *Client) WriteTags(ctx context.Context, path string, tags map[string]string, mode WriteMode, extra ...string) error {
	args := BuildWriteArgs(path, tags, mode, extra...)
	resp, err := c.Execute(ctx, args...)
	if err != nil {
		return err
	}
	if msg := firstError(resp.Stderr); msg != "" {
		return thserrors.NewMetadataError(fmt.Sprintf("writing %s: %s", path, msg), nil)
	}
	sum := parseWriteSummary(resp.Stdout)
	if sum.Failed > 0 {
		return thserrors.NewMetadataError(fmt.Sprintf("writing %s: %d file(s) not updated", path, sum.Failed), nil)
	}
	if w := strings.TrimSpace(resp.Stderr); w != "" {
		logging.Debug("exiftool warning", "file", path, "stderr", w)
	}
	return nil
}

// Close ends the stay_open loop and waits for the process to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		_ = c.stdin.Close()
		_ = c.cmd.Wait()
		return nil
	}
	c.closed = true

	if _, err := io.WriteString(c.stdin, "-stay_open\nFalse\n"); err != nil {
		_ = c.cmd.Process.Kill()
		return thserrors.NewIOError("stopping exiftool", err)
	}
	if err := c.stdin.Close(); err != nil {
		return thserrors.NewIOError("closing exiftool stdin", err)
	}
	if err := c.cmd.Wait(); err != nil {
		return thserrors.NewCommandWaitError(c.binary, err)
	}
	return nil
}
