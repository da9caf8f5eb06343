package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"evilanalysis/src/logx"
	"evilanalysis/src/state"
	"evilanalysis/src/ui/session"
)

// lines are re-read from the store at this pace
const flushInterval = 150 * time.Millisecond

var keyCommands = map[byte]session.Command{
	't': session.CmdThreat,
	's': session.CmdSettings,
	'e': session.CmdNextEngine,
	'x': session.CmdEnable,
	'+': session.CmdMultiPVUp,
	'=': session.CmdMultiPVUp,
	'-': session.CmdMultiPVDown,
	'g': session.CmdGoMode,
	'y': session.CmdSynced,
	'r': session.CmdFlip,
	'f': session.CmdFlush,
	'q': session.CmdQuit,
	'Q': session.CmdQuit,
}

var lineCommands = map[string]session.Command{
	"threat":   session.CmdThreat,
	"settings": session.CmdSettings,
	"engine":   session.CmdNextEngine,
	"enable":   session.CmdEnable,
	"go":       session.CmdGoMode,
	"synced":   session.CmdSynced,
	"flip":     session.CmdFlip,
	"undo":     session.CmdBack,
	"redo":     session.CmdForward,
	"quit":     session.CmdQuit,
}

type CLIProcessing struct {
	sess  *session.Session
	store *state.Memory
	in    *os.File
	out   io.Writer
	logx  logx.Logger
}

func NewCLI(sess *session.Session, store *state.Memory, l logx.Logger) *CLIProcessing {
	return &CLIProcessing{sess: sess, store: store, in: os.Stdin, out: os.Stdout, logx: l}
}

// raw processing
// - single keys toggle panel state, see keyCommands
// - left/right arrow keys step through the moves
// - q or Ctrl+C to exit
// - redraw when the panel view changes
func (c *CLIProcessing) Run(ctx context.Context) error {
	fd := int(c.in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		c.logx.Infof("raw mode unavailable (%v), using line mode", err)
		return c.RunLineMode(ctx)
	}
	defer term.Restore(fd, oldState) //nolint:errcheck
	c.out = crlfWriter{c.out}

	keys := make(chan session.Command)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		readErr <- readKeys(bufio.NewReader(c.in), keys, done)
	}()

	return c.loop(ctx, keys, readErr, "t threat, s settings, e engine, x enable, +/- multipv, g go, y synced, ←/→ moves, q quit")
}

// readKeys decodes raw key presses into commands until the input ends
// or done is closed. A read already blocked on the terminal stays blocked
// until the next key.
func readKeys(r *bufio.Reader, keys chan<- session.Command, done <-chan struct{}) error {
	send := func(cmd session.Command) bool {
		select {
		case keys <- cmd:
			return true
		case <-done:
			return false
		}
	}
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b == 3 { // Ctrl+C
			send(session.CmdQuit)
			return nil
		}
		if b == 0x1b { // escape sequence, possible arrow
			b1, err := r.ReadByte()
			if err != nil {
				continue
			}
			b2, err := r.ReadByte()
			if err != nil {
				continue
			}
			if b1 == '[' {
				var cmd session.Command
				switch b2 {
				case 'D':
					cmd = session.CmdBack
				case 'C':
					cmd = session.CmdForward
				}
				if cmd != "" && !send(cmd) {
					return nil
				}
			}
			continue
		}
		if cmd, ok := keyCommands[b]; ok && !send(cmd) {
			return nil
		}
	}
}

// RunLineMode reads one command per line, for pipes and dumb terminals.
func (c *CLIProcessing) RunLineMode(ctx context.Context) error {
	cmds := make(chan session.Command)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if cmd, ok := parseLine(line); ok {
				select {
				case cmds <- cmd:
				case <-done:
					return
				}
			} else {
				fmt.Fprintf(c.out, "unknown command: %s\n", line)
			}
		}
		readErr <- scanner.Err()
	}()
	return c.loop(ctx, cmds, readErr, "commands: threat settings engine enable + - go synced flip undo redo quit")
}

func parseLine(line string) (session.Command, bool) {
	if cmd, ok := lineCommands[line]; ok {
		return cmd, true
	}
	if len(line) == 1 {
		cmd, ok := keyCommands[line[0]]
		return cmd, ok
	}
	return "", false
}

func (c *CLIProcessing) loop(ctx context.Context, cmds <-chan session.Command, readErr <-chan error, help string) error {
	changes := make(chan state.Change, 64)
	unsub := c.store.Subscribe(changes)
	defer unsub()

	tick := time.NewTicker(flushInterval)
	defer tick.Stop()

	c.redraw(help, true)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err == io.EOF {
				return nil
			}
			return err
		case cmd := <-cmds:
			if c.sess.Do(cmd) {
				fmt.Fprintln(c.out, "\nQuitting")
				return nil
			}
			c.redraw(help, false)
		case ch := <-changes:
			c.sess.Notify(ch)
			c.redraw(help, false)
		case <-tick.C:
			if c.sess.Panel().Flush() {
				c.redraw(help, false)
			}
		}
	}
}

func (c *CLIProcessing) redraw(help string, force bool) {
	v, changed := c.sess.Render()
	if !changed && !force {
		return
	}
	var buf bytes.Buffer
	buf.WriteString("\033[H\033[2J")
	cur, total := c.sess.Cursor()
	fmt.Fprintf(&buf, "FEN: %s\nMoves: %s (%d/%d)\n\n", c.sess.FEN(), strings.Join(c.sess.Moves(), " "), cur, total)
	Draw(&buf, v)
	fmt.Fprintf(&buf, "\n%s%s%s\n", dimF, help, reset)
	c.out.Write(buf.Bytes()) //nolint:errcheck
}

// crlfWriter restores carriage returns that raw mode no longer adds.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
