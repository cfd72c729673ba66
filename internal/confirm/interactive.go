package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/OlsenJo/data-extract-app/internal/ingest"
)

// Interactive prompts the operator and waits for y/N. A zero timeout waits
// forever; otherwise expiry resolves to Rejected, recorded as a skip.
//
// A single reader goroutine owns the input stream for the lifetime of the
// gate, so a prompt abandoned by timeout does not fight a later prompt for
// the same bytes.
type Interactive struct {
	out     io.Writer
	timeout time.Duration
	lines   chan string
	readErr chan error
	err     error
}

// NewInteractive creates a gate reading decisions from in (normally stdin).
func NewInteractive(in io.Reader, out io.Writer, timeout time.Duration) *Interactive {
	g := &Interactive{
		out:     out,
		timeout: timeout,
		lines:   make(chan string),
		readErr: make(chan error, 1),
	}
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			g.lines <- scanner.Text()
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		g.readErr <- err
		close(g.lines)
	}()
	return g
}

// StdinIsTTY reports whether stdin is attached to a terminal. Wiring refuses
// an interactive gate on a non-terminal stdin so unattended runs fail fast
// instead of hanging on a prompt nobody will answer.
func StdinIsTTY() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// Confirm renders the summary and prompts until a line arrives, the timeout
// expires or ctx is canceled.
func (g *Interactive) Confirm(ctx context.Context, summary ingest.BatchSummary) (Decision, error) {
	summary.WriteText(g.out)
	fmt.Fprintf(g.out, "Load %d accepted rows for %s? [y/N]: ", summary.Accepted, summary.Unit)

	var expired <-chan time.Time
	if g.timeout > 0 {
		timer := time.NewTimer(g.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(g.out)
		return Rejected, ctx.Err()
	case <-expired:
		fmt.Fprintln(g.out)
		fmt.Fprintln(g.out, "confirmation timed out, skipping unit")
		return Rejected, nil
	case line, ok := <-g.lines:
		if !ok {
			if g.err == nil {
				g.err = <-g.readErr
			}
			return Rejected, fmt.Errorf("read confirmation: %w", g.err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return Accepted, nil
		default:
			return Rejected, nil
		}
	}
}
