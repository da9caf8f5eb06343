// Package manager runs engine searches on behalf of the store: every
// search request gets a process (one per engine and tab), results flow back
// into the store as ranked lines and a progress percentage.
package manager

import (
	"context"
	"sync"

	"evilanalysis/src/base"
	"evilanalysis/src/chesslib/rules"
	"evilanalysis/src/engine"
	"evilanalysis/src/engine/uci"
	"evilanalysis/src/logx"
	"evilanalysis/src/state"
)

type Store interface {
	Subscribe(ch chan<- state.Change) (unsubscribe func())
	Searches() []state.SearchRequest
	Engine(name string) (base.Engine, bool)
	SetLines(key state.ResultKey, searchKey string, lines []base.BestMoves)
	SetProgress(engine, tab string, progress float64)
}

// Factory creates an engine that is not initialised yet.
type Factory func(e base.Engine) engine.Engine

func UCIFactory(l logx.Logger) Factory {
	return func(e base.Engine) engine.Engine {
		return uci.NewUCIExec(l.Named(e.Name), e.Path, e.Args...)
	}
}

type procKey struct {
	engine string
	tab    string
}

type process struct {
	desc base.Engine
	eng  engine.Engine
	run  *run
}

type run struct {
	req    state.SearchRequest
	cancel context.CancelFunc
	unsub  func()
	done   chan struct{}
}

type Manager struct {
	store   Store
	factory Factory
	logx    logx.Logger

	mu    sync.Mutex
	procs map[procKey]*process
}

func New(store Store, factory Factory, l logx.Logger) *Manager {
	return &Manager{store: store, factory: factory, logx: l, procs: make(map[procKey]*process)}
}

// Run reconciles searches until ctx is done, then closes every process.
func (m *Manager) Run(ctx context.Context) error {
	ch := make(chan state.Change, 64)
	unsub := m.store.Subscribe(ch)
	defer unsub()
	defer m.Close()

	m.Reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-ch:
			if c.Kind == state.ChangeSearch || c.Kind == state.ChangeEngines {
				m.Reconcile(ctx)
			}
		}
	}
}

// Reconcile makes the running searches match the requested ones.
func (m *Manager) Reconcile(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[procKey]state.SearchRequest)
	for _, req := range m.store.Searches() {
		want[procKey{req.Engine, req.Tab}] = req
	}

	for key, p := range m.procs {
		desc, ok := m.store.Engine(key.engine)
		if !ok || !desc.Loaded || desc.Path != p.desc.Path || !base.EqualMoves(desc.Args, p.desc.Args) {
			m.logx.Infof("engine %s changed, closing process", key.engine)
			m.stopRun(p)
			p.eng.Close()
			delete(m.procs, key)
			continue
		}
		if _, ok := want[key]; !ok {
			m.stopRun(p)
		}
	}

	for key, req := range want {
		if err := m.start(ctx, key, req); err != nil {
			m.logx.Errorf("search %s on %s: %v", req.SearchKey(), req.Engine, err)
		}
	}
}

func (m *Manager) start(ctx context.Context, key procKey, req state.SearchRequest) error {
	p := m.procs[key]
	if p != nil && p.run != nil && p.run.req.Equal(req) {
		return nil
	}
	if p == nil {
		desc, ok := m.store.Engine(req.Engine)
		if !ok || !desc.Loaded {
			return state.ErrEngineNotLoaded
		}
		eng := m.factory(desc)
		if err := eng.Init(ctx); err != nil {
			return err
		}
		p = &process{desc: desc, eng: eng}
		m.procs[key] = p
	}
	m.stopRun(p)

	for _, o := range req.Options {
		if err := p.eng.SetOption(o.Name, o.Value); err != nil {
			return err
		}
	}
	if err := p.eng.SetPosition(req.FEN, req.Moves); err != nil {
		return err
	}

	ch := make(chan engine.AnalysisInfo, 256)
	unsub := p.eng.Subscribe(ch)
	if err := p.eng.StartAnalysis(req.Go); err != nil {
		unsub()
		return err
	}

	rctx, cancel := context.WithCancel(ctx)
	r := &run{req: req, cancel: cancel, unsub: unsub, done: make(chan struct{})}
	p.run = r
	m.store.SetProgress(req.Engine, req.Tab, 0)
	go m.consume(rctx, r, ch)
	m.logx.Debugf("search %s started on %s", req.SearchKey(), req.Engine)
	return nil
}

// stopRun returns once the run can no longer write into the store.
func (m *Manager) stopRun(p *process) {
	r := p.run
	if r == nil {
		return
	}
	p.run = nil
	r.cancel()
	<-r.done
	r.unsub()

	if err := p.eng.StopAnalysis(); err != nil {
		m.logx.Warnf("stop %s: %v", r.req.Engine, err)
	}
	wctx, cancel := context.WithTimeout(context.Background(), engine.StopAnalyzeTimeout)
	p.eng.WaitDone(wctx)
	cancel()
}

func (m *Manager) consume(ctx context.Context, r *run, ch <-chan engine.AnalysisInfo) {
	defer close(r.done)

	key := r.req.Result()
	searchKey := r.req.SearchKey()
	var lineFEN string
	if pos, _, err := rules.Replay(r.req.FEN, r.req.Moves); err == nil {
		lineFEN = pos.FEN()
	}

	var lines []base.BestMoves
	for {
		select {
		case <-ctx.Done():
			return
		case info := <-ch:
			if info.Done {
				m.store.SetLines(key, searchKey, contiguous(lines))
				m.store.SetProgress(r.req.Engine, r.req.Tab, 100)
				return
			}
			idx := info.MultiPV - 1
			if idx < 0 {
				idx = 0
			}
			for len(lines) <= idx {
				lines = append(lines, base.BestMoves{})
			}
			lines[idx] = base.BestMoves{
				MultiPV: idx + 1,
				SAN:     rules.LineToSAN(lineFEN, info.PV),
				UCI:     info.PV,
				Score:   info.Score(),
				Depth:   info.Depth,
				Nodes:   info.Nodes,
				NPS:     info.NPS,
			}
			// an empty set means "no analysis"; wait for the best line
			if got := contiguous(lines); len(got) > 0 {
				m.store.SetLines(key, searchKey, got)
			}
			if idx == 0 {
				m.store.SetProgress(r.req.Engine, r.req.Tab, engine.Progress(info, r.req.Go))
			}
		}
	}
}

// lines reported so far, ranks without a gap
func contiguous(lines []base.BestMoves) []base.BestMoves {
	out := make([]base.BestMoves, 0, len(lines))
	for _, l := range lines {
		if l.MultiPV == 0 {
			break
		}
		out = append(out, l)
	}
	return out
}

// Close stops every search and terminates the processes.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, p := range m.procs {
		m.stopRun(p)
		p.eng.Close()
		delete(m.procs, key)
	}
}
