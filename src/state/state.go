// Package state is the shared store of the analysis application. Cells are
// guarded by one mutex; every setter that changes a value notifies the
// subscribers after the lock is released.
package state

import (
	"errors"
	"fmt"
	"sync"

	"evilanalysis/src/base"
)

var (
	ErrEngineNotLoaded = errors.New("engine is not loaded")
	ErrEngineExists    = errors.New("engine already exists")
)

// number of search keys remembered per (engine, tab, puzzle)
const maxLinesPerResult = 256

type ChangeKind uint8

const (
	ChangeTab ChangeKind = iota
	ChangePuzzle
	ChangeThreat
	ChangeSelected
	ChangeEngines
	ChangeSettings
	ChangeLines
	ChangeProgress
	ChangeSearch
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeTab:
		return "tab"
	case ChangePuzzle:
		return "puzzle"
	case ChangeThreat:
		return "threat"
	case ChangeSelected:
		return "selected"
	case ChangeEngines:
		return "engines"
	case ChangeSettings:
		return "settings"
	case ChangeLines:
		return "lines"
	case ChangeProgress:
		return "progress"
	case ChangeSearch:
		return "search"
	default:
	}
	return ""
}

// Change is a notification only. Sends never block, so a subscriber must
// read the current state instead of relying on every change arriving.
type Change struct {
	Kind   ChangeKind
	Engine string
	Tab    string
}

type ResultKey struct {
	Engine string
	Tab    string
	Puzzle string
}

type engineTab struct {
	engine string
	tab    string
}

type lineSet struct {
	order []string
	sets  map[string][]base.BestMoves
}

type Memory struct {
	mu       sync.RWMutex
	tab      string
	puzzle   string
	selected string
	threat   map[string]bool
	engines  []base.Engine
	settings map[engineTab]base.EngineSettings
	lines    map[ResultKey]*lineSet
	progress map[engineTab]float64
	searches map[engineTab]SearchRequest

	// subscribers
	submu sync.Mutex
	subs  map[int]chan<- Change
	subid int
}

func NewMemory(tab string) *Memory {
	return &Memory{
		tab:      tab,
		threat:   make(map[string]bool),
		settings: make(map[engineTab]base.EngineSettings),
		lines:    make(map[ResultKey]*lineSet),
		progress: make(map[engineTab]float64),
		searches: make(map[engineTab]SearchRequest),
		subs:     make(map[int]chan<- Change),
	}
}

func (m *Memory) Subscribe(ch chan<- Change) (unsubscribe func()) {
	m.submu.Lock()
	defer m.submu.Unlock()

	id := m.subid
	m.subs[id] = ch
	m.subid++

	return func() {
		m.submu.Lock()
		defer m.submu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Memory) publish(c Change) {
	m.submu.Lock()
	defer m.submu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// ---- Tab / puzzle ----

func (m *Memory) ActiveTab() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tab
}

func (m *Memory) SetActiveTab(tab string) {
	m.mu.Lock()
	changed := m.tab != tab
	m.tab = tab
	m.mu.Unlock()
	if changed {
		m.publish(Change{Kind: ChangeTab, Tab: tab})
	}
}

func (m *Memory) ActivePuzzle() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puzzle
}

func (m *Memory) SetActivePuzzle(puzzle string) {
	m.mu.Lock()
	changed := m.puzzle != puzzle
	m.puzzle = puzzle
	m.mu.Unlock()
	if changed {
		m.publish(Change{Kind: ChangePuzzle})
	}
}

// ---- Threat ----

func (m *Memory) Threat(tab string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threat[tab]
}

func (m *Memory) SetThreat(tab string, threat bool) {
	m.mu.Lock()
	changed := m.threat[tab] != threat
	m.threat[tab] = threat
	m.mu.Unlock()
	if changed {
		m.publish(Change{Kind: ChangeThreat, Tab: tab})
	}
}

// ---- Engines ----

func (m *Memory) SelectedEngine() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// SelectEngine only accepts loaded engines.
func (m *Memory) SelectEngine(name string) error {
	m.mu.Lock()
	if !m.loadedLocked(name) {
		m.mu.Unlock()
		return fmt.Errorf("select %q: %w", name, ErrEngineNotLoaded)
	}
	changed := m.selected != name
	m.selected = name
	m.mu.Unlock()
	if changed {
		m.publish(Change{Kind: ChangeSelected, Engine: name})
	}
	return nil
}

func (m *Memory) loadedLocked(name string) bool {
	for _, e := range m.engines {
		if e.Name == name && e.Loaded {
			return true
		}
	}
	return false
}

func (m *Memory) Engines() []base.Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]base.Engine, len(m.engines))
	for i, e := range m.engines {
		out[i] = e.Clone()
	}
	return out
}

func (m *Memory) Engine(name string) (base.Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.engines {
		if e.Name == name {
			return e.Clone(), true
		}
	}
	return base.Engine{}, false
}

// SetEngines replaces the engine list. A selection that is no longer
// loaded moves to the first loaded engine.
func (m *Memory) SetEngines(engines []base.Engine) {
	m.mu.Lock()
	m.engines = make([]base.Engine, len(engines))
	for i, e := range engines {
		m.engines[i] = e.Clone()
	}
	selChanged := m.fixSelectionLocked()
	selected := m.selected
	m.mu.Unlock()

	m.publish(Change{Kind: ChangeEngines})
	if selChanged {
		m.publish(Change{Kind: ChangeSelected, Engine: selected})
	}
}

func (m *Memory) AddEngine(e base.Engine) error {
	m.mu.Lock()
	for _, have := range m.engines {
		if have.Name == e.Name {
			m.mu.Unlock()
			return fmt.Errorf("add %q: %w", e.Name, ErrEngineExists)
		}
	}
	m.engines = append(m.engines, e.Clone())
	selChanged := m.fixSelectionLocked()
	selected := m.selected
	m.mu.Unlock()

	m.publish(Change{Kind: ChangeEngines, Engine: e.Name})
	if selChanged {
		m.publish(Change{Kind: ChangeSelected, Engine: selected})
	}
	return nil
}

// UpdateEngine edits the named engine in place; false if there is none.
func (m *Memory) UpdateEngine(name string, fn func(e *base.Engine)) bool {
	m.mu.Lock()
	idx := -1
	for i := range m.engines {
		if m.engines[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	before := m.engines[idx].Clone()
	fn(&m.engines[idx])
	m.engines[idx] = m.engines[idx].Clone()
	after := m.engines[idx]
	selChanged := m.fixSelectionLocked()
	selected := m.selected
	m.mu.Unlock()

	if !sameEngine(before, after) {
		m.publish(Change{Kind: ChangeEngines, Engine: name})
	}
	if selChanged {
		m.publish(Change{Kind: ChangeSelected, Engine: selected})
	}
	return true
}

func sameEngine(a, b base.Engine) bool {
	return a.Name == b.Name && a.Path == b.Path && a.Loaded == b.Loaded &&
		a.Go == b.Go && base.EqualOptions(a.Options, b.Options) && base.EqualMoves(a.Args, b.Args)
}

func (m *Memory) fixSelectionLocked() bool {
	if m.selected != "" && m.loadedLocked(m.selected) {
		return false
	}
	prev := m.selected
	m.selected = ""
	for _, e := range m.engines {
		if e.Loaded {
			m.selected = e.Name
			break
		}
	}
	return prev != m.selected
}

// ---- Settings ----

func (m *Memory) Settings(engine, tab string) (base.EngineSettings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[engineTab{engine, tab}]
	return s.Clone(), ok
}

func (m *Memory) SetSettings(engine, tab string, s base.EngineSettings) {
	key := engineTab{engine, tab}
	m.mu.Lock()
	prev, ok := m.settings[key]
	m.settings[key] = s.Clone()
	m.mu.Unlock()
	if !ok || !prev.Equal(s) {
		m.publish(Change{Kind: ChangeSettings, Engine: engine, Tab: tab})
	}
}

// ---- Lines / progress ----

func (m *Memory) Lines(key ResultKey, searchKey string) ([]base.BestMoves, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ls, ok := m.lines[key]
	if !ok {
		return nil, false
	}
	lines, ok := ls.sets[searchKey]
	if !ok {
		return nil, false
	}
	return base.CloneLines(lines), true
}

func (m *Memory) SetLines(key ResultKey, searchKey string, lines []base.BestMoves) {
	if lines == nil {
		lines = []base.BestMoves{}
	}
	m.mu.Lock()
	ls, ok := m.lines[key]
	if !ok {
		ls = &lineSet{sets: make(map[string][]base.BestMoves)}
		m.lines[key] = ls
	}
	if _, have := ls.sets[searchKey]; !have {
		ls.order = append(ls.order, searchKey)
		if len(ls.order) > maxLinesPerResult {
			delete(ls.sets, ls.order[0])
			ls.order = ls.order[1:]
		}
	}
	ls.sets[searchKey] = base.CloneLines(lines)
	m.mu.Unlock()
	m.publish(Change{Kind: ChangeLines, Engine: key.Engine, Tab: key.Tab})
}

func (m *Memory) Progress(engine, tab string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress[engineTab{engine, tab}]
}

func (m *Memory) SetProgress(engine, tab string, progress float64) {
	key := engineTab{engine, tab}
	m.mu.Lock()
	changed := m.progress[key] != progress
	m.progress[key] = progress
	m.mu.Unlock()
	if changed {
		m.publish(Change{Kind: ChangeProgress, Engine: engine, Tab: tab})
	}
}

// ---- Searches ----

func (m *Memory) Search(engine, tab string) (SearchRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.searches[engineTab{engine, tab}]
	return r.clone(), ok
}

func (m *Memory) Searches() []SearchRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SearchRequest, 0, len(m.searches))
	for _, r := range m.searches {
		out = append(out, r.clone())
	}
	return out
}

// RequestSearch replaces the search of (req.Engine, req.Tab).
func (m *Memory) RequestSearch(req SearchRequest) {
	key := engineTab{req.Engine, req.Tab}
	m.mu.Lock()
	prev, ok := m.searches[key]
	m.searches[key] = req.clone()
	m.mu.Unlock()
	if !ok || !prev.Equal(req) {
		m.publish(Change{Kind: ChangeSearch, Engine: req.Engine, Tab: req.Tab})
	}
}

func (m *Memory) WithdrawSearch(engine, tab string) {
	key := engineTab{engine, tab}
	m.mu.Lock()
	_, ok := m.searches[key]
	delete(m.searches, key)
	m.mu.Unlock()
	if ok {
		m.publish(Change{Kind: ChangeSearch, Engine: engine, Tab: tab})
	}
}
