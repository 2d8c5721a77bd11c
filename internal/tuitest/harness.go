// Package tuitest drives terminal programs under a pseudo terminal and
// records what they draw, for end-to-end assertions on rendered screens.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const (
	defaultCols     = 120
	defaultRows     = 32
	defaultDeadline = 5 * time.Second
)

// Options describe one program launch.
type Options struct {
	Argv []string
	Dir  string
	Env  []string
	Cols int
	Rows int
	// Deadline bounds the whole run, script plus exit.
	Deadline time.Duration
	// OKExitCodes lists codes besides zero that count as a clean exit.
	OKExitCodes []int
}

// Keystroke is one scripted input: wait After, then send Bytes.
type Keystroke struct {
	After time.Duration
	Bytes []byte
}

// Key builds a Keystroke.
func Key(after time.Duration, b []byte) Keystroke {
	return Keystroke{After: after, Bytes: b}
}

// Capture holds the raw terminal stream and the parsed screens.
type Capture struct {
	Raw     []byte
	Screens []Screen
	Elapsed time.Duration
}

// Drive launches the program on a pty, replays the script, waits for it to
// exit, and returns everything it drew.
func Drive(ctx context.Context, opts Options, script ...Keystroke) (*Capture, error) {
	if len(opts.Argv) == 0 {
		return nil, errors.New("tuitest: argv is required")
	}
	cols := opts.Cols
	if cols <= 0 {
		cols = defaultCols
	}
	rows := opts.Rows
	if rows <= 0 {
		rows = defaultRows
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.Argv[0], opts.Argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = mergedEnv(opts.Env)

	okCodes := map[int]struct{}{0: {}}
	for _, code := range opts.OKExitCodes {
		okCodes[code] = struct{}{}
	}

	size := &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	var stream bytes.Buffer
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		answerer := newQueryAnswerer(ptmx)
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				answerer.Feed(chunk)
				_, _ = stream.Write(chunk)
			}
			if readErr != nil {
				return
			}
		}
	}()

	start := time.Now()
	for _, stroke := range script {
		if stroke.After > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("tuitest: deadline hit before script finished: %w", ctx.Err())
			case <-time.After(stroke.After):
			}
		}
		if len(stroke.Bytes) > 0 {
			if _, err := ptmx.Write(stroke.Bytes); err != nil {
				return nil, fmt.Errorf("tuitest: send keystroke: %w", err)
			}
		}
	}

	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()

	select {
	case err := <-waited:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				if _, ok := okCodes[exitErr.ExitCode()]; ok {
					break
				}
			}
			return nil, fmt.Errorf("tuitest: program exited with error: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: deadline waiting for program exit: %w", ctx.Err())
	}

	// Closing the pty lets the reader goroutine hit EOF and finish.
	_ = ptmx.Close()
	<-drained

	raw := stream.Bytes()
	return &Capture{
		Raw:     raw,
		Screens: parseScreens(raw),
		Elapsed: time.Since(start),
	}, nil
}

func mergedEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

// Raw byte sequences for keys the scripts send most often.
var (
	KeyEnter = []byte{'\r'}
	KeyEsc   = []byte{27}
	KeyCtrlC = []byte{3}
)
