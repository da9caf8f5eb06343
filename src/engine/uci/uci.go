package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"evilanalysis/src/base"
	"evilanalysis/src/engine"
	"evilanalysis/src/logx"
)

type UCIExecutor struct {
	// init
	path string
	args []string

	// process
	cmd  *exec.Cmd
	in   io.WriteCloser
	out  io.ReadCloser
	inmu sync.Mutex

	// read stdout
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// subscribers
	submu sync.Mutex
	subs  map[int]chan<- engine.AnalysisInfo
	subid int

	// runtime
	mu         sync.RWMutex
	running    bool
	name       string
	lastFEN    string
	lines      chan string
	bestMoveCh chan struct{}
	logx       logx.Logger
}

// to open a process, need to call Init()
func NewUCIExec(logx logx.Logger, enginePath string, engineArgs ...string) *UCIExecutor {
	return &UCIExecutor{
		path: enginePath, args: engineArgs, logx: logx,
		subs:       make(map[int]chan<- engine.AnalysisInfo),
		bestMoveCh: make(chan struct{}, 1), // buffered: send won't block if nobody WaitDone yet
	}
}

// open process and check
func (e *UCIExecutor) Init(ctx context.Context) error {
	if e.path == "" {
		return errors.New("engine path must not be empty")
	}

	cmd := exec.Command(e.path, e.args...)
	in, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("error connect to stdin of engine %s: %w", e.path, err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("error connect to stdout of engine %s: %w", e.path, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error open %s engine: %w", e.path, err)
	}
	e.cmd = cmd
	e.logx.Infof("started engine %s (pid %d)", e.path, cmd.Process.Pid)

	e.attach(in, out)
	if err := e.handshake(ctx); err != nil {
		e.Close()
		return err
	}
	return nil
}

func (e *UCIExecutor) attach(in io.WriteCloser, out io.ReadCloser) {
	e.in = in
	e.out = out
	e.lines = make(chan string, 256)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.wg.Add(1)
	go e.stdoutLoop(e.ctx)
}

func (e *UCIExecutor) handshake(ctx context.Context) error {
	if err := e.Exec("uci"); err != nil {
		return err
	}
	if err := e.waitCompare(ctx, "uciok", engine.UCIHandshakeTimeout); err != nil {
		return fmt.Errorf("error read uciok: %w", err)
	}
	if err := e.checkReady(ctx); err != nil {
		return err
	}
	e.logx.Infof("open engine: %s", e.Name())
	return nil
}

// name reported with "id name", empty until the handshake is done
func (e *UCIExecutor) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// command executable
func (e *UCIExecutor) Exec(cmd string) error {
	e.inmu.Lock()
	defer e.inmu.Unlock()
	if e.in == nil {
		return engine.ErrNotRunning
	}
	e.logx.Debugf("GUI: %s", cmd)
	_, err := io.WriteString(e.in, cmd+"\n")
	return err
}

func (e *UCIExecutor) SetOption(name, value string) error {
	if value == "" {
		return e.Exec(fmt.Sprintf("setoption name %s", name))
	}
	return e.Exec(fmt.Sprintf("setoption name %s value %s", name, value))
}

func (e *UCIExecutor) SetPosition(fen string, moves []string) error {
	e.mu.Lock()
	newGame := e.lastFEN != fen
	e.lastFEN = fen
	e.mu.Unlock()

	if newGame {
		if err := e.Exec("ucinewgame"); err != nil {
			return err
		}
	}
	cmd := fmt.Sprintf("position fen %s", fen)
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	if err := e.Exec(cmd); err != nil {
		return err
	}
	return e.checkReady(context.Background())
}

func (e *UCIExecutor) StartAnalysis(mode base.GoMode) error {
	if !e.alive() {
		return engine.ErrNotRunning
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return engine.ErrAlreadyRunning
	}
	// forget a bestmove signal of a finished search
	select {
	case <-e.bestMoveCh:
	default:
	}

	e.running = true
	cmd := mode.Command()
	e.logx.Infof("start analyze: %s", cmd)
	if err := e.Exec(cmd); err != nil {
		e.running = false
		return err
	}
	return nil
}

func (e *UCIExecutor) StopAnalysis() error {
	e.mu.RLock()
	running := e.running
	e.mu.RUnlock()
	if !e.alive() {
		return engine.ErrNotRunning
	}
	if !running {
		return nil
	}
	e.logx.Info("stop analyze")
	return e.Exec("stop")
}

// WaitDone returns once bestmove arrives, ctx is done or the process is gone.
func (e *UCIExecutor) WaitDone(ctx context.Context) {
	e.mu.RLock()
	running := e.running
	e.mu.RUnlock()
	if !running || e.ctx == nil {
		return
	}
	select {
	case <-e.bestMoveCh:
	case <-ctx.Done():
	case <-e.ctx.Done():
	}
}

func (e *UCIExecutor) alive() bool {
	e.inmu.Lock()
	defer e.inmu.Unlock()
	return e.in != nil
}

func (e *UCIExecutor) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

func (e *UCIExecutor) Subscribe(ch chan<- engine.AnalysisInfo) (unsubscribe func()) {
	e.submu.Lock()
	defer e.submu.Unlock()

	id := e.subid
	e.subs[id] = ch
	e.subid++

	return func() {
		e.submu.Lock()
		defer e.submu.Unlock()
		delete(e.subs, id)
	}
}

// Terminate process
func (e *UCIExecutor) Close() {
	if !e.alive() {
		return
	}
	_ = e.Exec("quit")

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		if e.cmd != nil && e.cmd.Process != nil {
			_ = e.cmd.Process.Kill()
		}
		_ = e.out.Close()
		<-done
	}
	e.cancel()

	e.inmu.Lock()
	_ = e.in.Close()
	e.in = nil
	e.inmu.Unlock()

	if e.cmd != nil {
		_ = e.cmd.Wait()
	}
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	e.logx.Info("uci-process terminated")
}

func (e *UCIExecutor) checkReady(ctx context.Context) error {
	if err := e.Exec("isready"); err != nil {
		return err
	}
	if err := e.waitCompare(ctx, "readyok", engine.UCIHandshakeTimeout); err != nil {
		return fmt.Errorf("error read readyok: %w", err)
	}
	return nil
}

func (e *UCIExecutor) waitCompare(ctx context.Context, str string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return errors.New("engine output closed")
			}
			if strings.HasPrefix(line, str) {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for %s", str)
		case <-ctx.Done():
			return ctx.Err()
		case <-e.ctx.Done():
			return errors.New("stopped")
		}
	}
}

func (e *UCIExecutor) stdoutLoop(ctx context.Context) {
	defer e.wg.Done()
	defer close(e.lines)
	scr := bufio.NewScanner(e.out)
	for scr.Scan() {
		line := strings.TrimSpace(scr.Text())
		if line == "" {
			continue
		}
		e.logx.Debugf("ENGINE: %s", line)

		switch {
		case strings.HasPrefix(line, "info "):
			if info, ok := ParseInfo(line); ok {
				e.publish(info)
			}
			// info lines are not needed by handshake waits
			continue
		case strings.HasPrefix(line, "bestmove"):
			e.saveBest(line)
		case strings.HasPrefix(line, "id name "):
			e.mu.Lock()
			e.name = strings.TrimPrefix(line, "id name ")
			e.mu.Unlock()
		}

		select {
		case e.lines <- line:
		default:
			e.logx.Debugf("drop engine line (buffer full)")
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// ParseInfo reads an "info" line. Lines without a pv are not analysis lines.
func ParseInfo(line string) (engine.AnalysisInfo, bool) {
	info := engine.AnalysisInfo{MultiPV: 1}
	fld := strings.Fields(line)
	n := len(fld)
	for i := 1; i < n; i++ {
		switch fld[i] {
		case "depth":
			if i+1 < n {
				info.Depth, _ = strconv.Atoi(fld[i+1])
				i++
			}
		case "seldepth":
			if i+1 < n {
				info.SelDepth, _ = strconv.Atoi(fld[i+1])
				i++
			}
		case "multipv":
			if i+1 < n {
				if v, err := strconv.Atoi(fld[i+1]); err == nil && v > 0 {
					info.MultiPV = v
				}
				i++
			}
		case "nodes":
			if i+1 < n {
				info.Nodes, _ = strconv.ParseInt(fld[i+1], 10, 64)
				i++
			}
		case "nps":
			if i+1 < n {
				info.NPS, _ = strconv.ParseInt(fld[i+1], 10, 64)
				i++
			}
		case "time":
			if i+1 < n {
				info.TimeMs, _ = strconv.ParseInt(fld[i+1], 10, 64)
				i++
			}
		case "score":
			if i+2 < n {
				v, err := strconv.Atoi(fld[i+2])
				if err == nil {
					switch fld[i+1] {
					case "cp":
						info.ScoreCP = v
						info.MateIn = 0
						info.HasScore = true
					case "mate":
						info.MateIn = v
						info.HasScore = true
					}
				}
				i += 2
			}
		case "string":
			// free text up to the end of line
			return info, false
		case "pv":
			info.PV = append([]string(nil), fld[i+1:]...)
			i = n // pv is always last
		default:
			// skip like "hashfull", "currmove", "lowerbound" etc
		}
	}
	return info, len(info.PV) > 0
}

func (e *UCIExecutor) saveBest(best string) {
	e.logx.Debugf("save best move: %s", best)
	info := engine.AnalysisInfo{Done: true}
	if f := strings.Fields(best); len(f) >= 2 {
		info.BestMove = f[1]
	}

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	select {
	// signal to WaitDone()
	case e.bestMoveCh <- struct{}{}:
	default:
	}
	e.publish(info)
}

// info lines are dropped for slow subscribers, bestmove gets a grace period
func (e *UCIExecutor) publish(info engine.AnalysisInfo) {
	e.submu.Lock()
	defer e.submu.Unlock()

	for _, ch := range e.subs {
		if info.Done {
			timer := time.NewTimer(time.Second)
			select {
			case ch <- info:
			case <-timer.C:
				e.logx.Warn("subscriber missed bestmove")
			}
			timer.Stop()
			continue
		}
		select {
		case ch <- info:
		default:
		}
	}
}
