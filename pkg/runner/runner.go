// Package runner plays a session interactively: it shows the current node,
// reads the next destination from the player and advances until the session
// completes or the input ends.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/questline/internal/presentation/tui"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/session"
)

// ContentRenderer transforms markdown before it is written, e.g. to ANSI.
type ContentRenderer func(string) (string, error)

// Runner drives one session over a line-oriented reader and writer.
type Runner struct {
	sessions *session.Manager
	in       io.Reader
	out      io.Writer
	render   ContentRenderer
	logger   *slog.Logger
	prompt   string
}

// Option configures a Runner.
type Option func(*Runner)

// WithRenderer configures the content renderer (e.g. glamour).
func WithRenderer(render ContentRenderer) Option {
	return func(r *Runner) {
		r.render = render
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithPrompt replaces the default "> " prompt.
func WithPrompt(prompt string) Option {
	return func(r *Runner) {
		r.prompt = prompt
	}
}

// New creates a Runner reading choices from in and writing reports to out.
func New(sessions *session.Manager, in io.Reader, out io.Writer, opts ...Option) *Runner {
	r := &Runner{
		sessions: sessions,
		in:       in,
		out:      out,
		render:   func(s string) (string, error) { return s, nil },
		logger:   slog.New(slog.DiscardHandler),
		prompt:   "> ",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type line struct {
	text string
	err  error
}

// Run plays sessionID. It returns the last snapshot when the session completes,
// the player types quit, or the input is exhausted. Rejected choices are
// reported to the player and do not end the loop.
func (r *Runner) Run(ctx context.Context, sessionID int) (*session.Snapshot, error) {
	snap, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	lines := r.pump(done)
	for {
		if err := r.show(snap); err != nil {
			return snap, err
		}
		if snap.Complete {
			fmt.Fprintln(r.out, "The quest is complete.")
			return snap, nil
		}

		choice, quit, err := r.read(ctx, lines)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return snap, nil
			}
			return snap, err
		}
		if quit {
			return snap, nil
		}

		res, err := r.sessions.Advance(ctx, sessionID, choice)
		switch {
		case errors.Is(err, domain.ErrIllegalTransition), errors.Is(err, domain.ErrUnknownNode):
			r.logger.Debug("choice rejected", "session_id", sessionID, "choice", choice, "err", err)
			fmt.Fprintf(r.out, "Cannot go to %d from here.\n", choice)
			continue
		case err != nil:
			return snap, err
		}
		snap = &res.Snapshot
	}
}

func (r *Runner) show(snap *session.Snapshot) error {
	text, err := r.render(tui.SessionReport(snap.Session, snap.Next, snap.Complete))
	if err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	_, err = fmt.Fprint(r.out, text)
	return err
}

// read prompts until the player enters a node id or quits.
func (r *Runner) read(ctx context.Context, lines <-chan line) (choice int, quit bool, err error) {
	for {
		fmt.Fprint(r.out, r.prompt)

		var l line
		select {
		case <-ctx.Done():
			return 0, false, ctx.Err()
		case l = <-lines:
		}
		if l.err != nil {
			return 0, false, l.err
		}

		text, err := SanitizeInput(l.text)
		if err != nil {
			fmt.Fprintf(r.out, "Input rejected: %v\n", err)
			continue
		}

		text = strings.TrimSpace(text)
		switch strings.ToLower(text) {
		case "":
			continue
		case "q", "quit", "exit":
			return 0, true, nil
		}

		id, err := strconv.Atoi(text)
		if err != nil {
			fmt.Fprintf(r.out, "Enter a node id, or q to stop.\n")
			continue
		}
		return id, false, nil
	}
}

// pump reads lines in the background so a blocked read never outlives ctx.
// It stops once done is closed and any in-flight read has returned.
func (r *Runner) pump(done <-chan struct{}) <-chan line {
	ch := make(chan line, 1)
	go func() {
		defer close(ch)
		br := bufio.NewReader(r.in)
		// One byte past the limit is enough for SanitizeInput to reject it.
		keep := maxInputSize() + 1
		for {
			text, err := readLine(br, keep)
			select {
			case ch <- line{text: text, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

// readLine returns the next line without its terminator, holding at most keep
// bytes of it. The rest of a longer line is consumed and dropped. A final line
// without a newline is returned before io.EOF.
func readLine(br *bufio.Reader, keep int) (string, error) {
	var buf []byte
	for {
		frag, err := br.ReadSlice('\n')
		if room := keep - len(buf); room > 0 {
			buf = append(buf, frag[:min(len(frag), room)]...)
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(buf) > 0:
			err = nil
		}
		text := strings.TrimSuffix(string(buf), "\n")
		return strings.TrimSuffix(text, "\r"), err
	}
}
