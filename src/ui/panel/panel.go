// Package panel is the engine analysis panel: it derives what to search for
// the current position, reads the cached lines of that search from the store
// and turns them into a View that a host (terminal or window) draws.
package panel

import (
	"fmt"

	"evilanalysis/src/base"
	"evilanalysis/src/logx"
	"evilanalysis/src/state"
	"evilanalysis/src/ui/events"
)

// Store is the part of the shared store the panel reads and writes.
type Store interface {
	ActiveTab() string
	ActivePuzzle() string
	Threat(tab string) bool
	SetThreat(tab string, threat bool)
	SelectEngine(name string) error
	Engines() []base.Engine
	Engine(name string) (base.Engine, bool)
	UpdateEngine(name string, fn func(e *base.Engine)) bool
	Settings(engine, tab string) (base.EngineSettings, bool)
	SetSettings(engine, tab string, s base.EngineSettings)
	Lines(key state.ResultKey, searchKey string) ([]base.BestMoves, bool)
	Progress(engine, tab string) float64
	RequestSearch(req state.SearchRequest)
	WithdrawSearch(engine, tab string)
}

// Rules is the chess knowledge the panel needs.
type Rules interface {
	// final FEN after the legal prefix of moves and whether the game is over
	Replay(fen string, moves []string) (string, bool, error)
	Validate(fen string) error
	SwapSideToMove(fen string) string
}

type analysisMode uint8

const (
	modeLiteral analysisMode = iota
	modeThreat
)

func modeOf(threat bool) analysisMode {
	if threat {
		return modeThreat
	}
	return modeLiteral
}

type derivation struct {
	finalFEN string
	gameOver bool
	err      error

	searchFEN   string
	searchMoves []string
	searchErr   error
	searchKey   string

	rowFEN string
}

func derive(r Rules, p Props, threat bool) derivation {
	var d derivation
	d.finalFEN, d.gameOver, d.err = r.Replay(p.FEN, p.Moves)

	switch modeOf(threat) {
	case modeThreat:
		from := d.finalFEN
		if d.err != nil {
			from = p.FEN
		}
		d.searchFEN = r.SwapSideToMove(from)
		d.searchMoves = []string{}
		if d.err == nil {
			d.rowFEN = r.SwapSideToMove(d.finalFEN)
		}
	case modeLiteral:
		d.searchFEN = p.FEN
		d.searchMoves = p.Moves
		d.rowFEN = d.finalFEN
	default:
		panic("panel: unknown analysis mode")
	}

	d.searchErr = r.Validate(d.searchFEN)
	d.searchKey = base.SearchKey(d.searchFEN, d.searchMoves)
	return d
}

// distinct error messages of both positions
func (d derivation) errors() []string {
	var out []string
	if d.err != nil {
		out = append(out, fmt.Sprintf(MsgInvalidPosition, d.err))
	}
	if d.searchErr != nil {
		msg := fmt.Sprintf(MsgInvalidPosition, d.searchErr)
		if len(out) == 0 || out[0] != msg {
			out = append(out, msg)
		}
	}
	return out
}

func (d derivation) firstErr() error {
	if d.err != nil {
		return d.err
	}
	return d.searchErr
}

// deferred holds the last lines read from the store. Store notifications
// only mark it stale; Flush re-reads it. A different key is always read
// at once.
type deferred struct {
	valid     bool
	stale     bool
	key       state.ResultKey
	searchKey string
	lines     []base.BestMoves
}

type BestMoves struct {
	store Store
	rules Rules
	bus   *events.Bus
	logx  logx.Logger

	settingsOpen bool
	lines        deferred

	prev    *Props
	view    View
	dirty   bool
	renders int
}

func New(store Store, rules Rules, bus *events.Bus, l logx.Logger) *BestMoves {
	if l == nil {
		l = logx.Nop()
	}
	return &BestMoves{store: store, rules: rules, bus: bus, logx: l}
}

// Renders counts the renders that were not skipped.
func (c *BestMoves) Renders() int {
	return c.renders
}

// Notify feeds a store change to the panel.
func (c *BestMoves) Notify(ch state.Change) {
	switch ch.Kind {
	case state.ChangeSearch:
		// requests are posted by the panel itself
	case state.ChangeLines:
		if c.prev != nil && ch.Engine == c.prev.Engine.Name {
			c.lines.stale = true
		}
	default:
		c.dirty = true
	}
}

// Invalidate forces the next Render.
func (c *BestMoves) Invalidate() {
	c.dirty = true
}

// Flush re-reads stale lines and reports whether a render is due.
func (c *BestMoves) Flush() bool {
	d := &c.lines
	if !d.valid || !d.stale {
		return c.dirty
	}
	lines, ok := c.store.Lines(d.key, d.searchKey)
	if !ok {
		lines = nil
	}
	d.lines = lines
	d.stale = false
	c.dirty = true
	return true
}

func (c *BestMoves) readLines(key state.ResultKey, searchKey string) []base.BestMoves {
	d := &c.lines
	if d.valid && d.key == key && d.searchKey == searchKey {
		return d.lines
	}
	lines, ok := c.store.Lines(key, searchKey)
	if !ok {
		lines = nil
	}
	*d = deferred{valid: true, key: key, searchKey: searchKey, lines: lines}
	return lines
}

// engine descriptor as the store knows it, the prop otherwise
func (c *BestMoves) engine(p Props) base.Engine {
	if e, ok := c.store.Engine(p.Engine.Name); ok {
		return e
	}
	return p.Engine
}

func (c *BestMoves) settings(e base.Engine, tab string) base.EngineSettings {
	if s, ok := c.store.Settings(e.Name, tab); ok {
		return s
	}
	return base.DefaultSettings(e)
}

// Render returns the view for p. When p equals the previous props and
// nothing changed since, the previous view is returned as is.
func (c *BestMoves) Render(p Props) View {
	if c.prev != nil && !c.dirty && PropsEqual(*c.prev, p) {
		return c.view
	}
	c.renders++
	c.dirty = false
	cp := p.clone()
	c.prev = &cp

	tab := c.store.ActiveTab()
	puzzle := c.store.ActivePuzzle()
	threat := c.store.Threat(tab)
	eng := c.engine(p)
	settings := c.settings(eng, tab)

	d := derive(c.rules, p, threat)
	key := state.ResultKey{Engine: p.Engine.Name, Tab: tab, Puzzle: puzzle}
	lines := c.readLines(key, d.searchKey)

	progress := c.store.Progress(p.Engine.Name, tab)
	if d.gameOver {
		progress = 0
	}

	v := View{
		Header: Header{
			Engine:         p.Engine.Name,
			Engines:        c.loadedEngines(),
			Threat:         threat,
			ThreatDisabled: !settings.Enabled,
			SettingsOpen:   c.settingsOpen,
		},
		Settings:  settings,
		Progress:  progress,
		Animated:  progress < 100 && settings.Enabled && !d.gameOver,
		Top:       EngineTop(lines, d.gameOver, settings.Enabled, progress, d.firstErr()),
		Rows:      c.rows(p, d, lines, settings, threat),
		SearchKey: d.searchKey,
	}
	c.view = v

	c.syncSettings(eng, tab, settings)
	c.requestSearch(p, tab, puzzle, settings, d)
	return v
}

func (c *BestMoves) loadedEngines() []string {
	var names []string
	for _, e := range c.store.Engines() {
		if e.Loaded {
			names = append(names, e.Name)
		}
	}
	return names
}

func (c *BestMoves) rows(p Props, d derivation, lines []base.BestMoves, s base.EngineSettings, threat bool) []Row {
	if errs := d.errors(); len(errs) > 0 {
		rows := make([]Row, 0, len(errs))
		for _, msg := range errs {
			rows = append(rows, messageRow(msg))
		}
		return rows
	}
	if d.gameOver {
		return []Row{messageRow(MsgGameOver)}
	}
	if lines == nil {
		if !s.Enabled {
			return []Row{messageRow(MsgNotEnabled)}
		}
		n := s.MultiPV()
		rows := make([]Row, n)
		for i := range rows {
			rows[i] = Row{Kind: RowPlaceholder}
		}
		return rows
	}
	if len(lines) == 0 {
		return []Row{messageRow(MsgNoAnalysis)}
	}
	rows := make([]Row, 0, len(lines))
	for i, l := range lines {
		rows = append(rows, Row{Kind: RowLine, Line: LineRow{
			Engine:      p.Engine.Name,
			Rank:        i + 1,
			SAN:         l.SAN,
			UCI:         l.UCI,
			FEN:         d.rowFEN,
			Score:       l.Score,
			Depth:       l.Depth,
			HalfMoves:   p.HalfMoves,
			Threat:      threat,
			Orientation: p.Orientation,
		}})
	}
	return rows
}

// syncSettings pulls the engine defaults into a synced tab record.
func (c *BestMoves) syncSettings(e base.Engine, tab string, s base.EngineSettings) {
	if !s.Synced {
		return
	}
	if base.EqualOptions(s.Options, e.Options) && s.Go == e.Go {
		return
	}
	s.Options = base.CloneOptions(e.Options)
	s.Go = e.Go
	c.store.SetSettings(e.Name, tab, s)
}

func (c *BestMoves) requestSearch(p Props, tab, puzzle string, s base.EngineSettings, d derivation) {
	if !s.Enabled || d.firstErr() != nil || d.gameOver {
		c.store.WithdrawSearch(p.Engine.Name, tab)
		return
	}
	c.store.RequestSearch(state.SearchRequest{
		Engine:  p.Engine.Name,
		Tab:     tab,
		Puzzle:  puzzle,
		FEN:     d.searchFEN,
		Moves:   d.searchMoves,
		Options: s.Options,
		Go:      s.Go,
	})
}

// ---- actions ----

// SelectEngine makes name the selected engine; only loaded engines qualify.
func (c *BestMoves) SelectEngine(name string) error {
	if err := c.store.SelectEngine(name); err != nil {
		return err
	}
	c.dirty = true
	return nil
}

// ToggleThreat is a no-op while the engine is disabled.
func (c *BestMoves) ToggleThreat() {
	if c.prev == nil {
		return
	}
	tab := c.store.ActiveTab()
	if !c.settings(c.engine(*c.prev), tab).Enabled {
		return
	}
	c.store.SetThreat(tab, !c.store.Threat(tab))
	c.dirty = true
}

func (c *BestMoves) ToggleSettings() {
	c.settingsOpen = !c.settingsOpen
	c.dirty = true
}

func (c *BestMoves) SettingsOpen() bool {
	return c.settingsOpen
}

// UpdateSettings edits the tab record of the current engine. Synced
// records also become the engine defaults.
func (c *BestMoves) UpdateSettings(fn func(s *base.EngineSettings)) {
	if c.prev == nil {
		return
	}
	tab := c.store.ActiveTab()
	eng := c.engine(*c.prev)
	s := c.settings(eng, tab)
	fn(&s)
	c.store.SetSettings(eng.Name, tab, s)
	if s.Synced {
		opts := base.CloneOptions(s.Options)
		mode := s.Go
		c.store.UpdateEngine(eng.Name, func(e *base.Engine) {
			e.Options = opts
			e.Go = mode
		})
	}
	c.dirty = true
	c.logx.Debugf("settings of %s in %s: enabled=%v synced=%v go=%s", eng.Name, tab, s.Enabled, s.Synced, s.Go)
}

// Scroll tells every listener that the lines scrolled.
func (c *BestMoves) Scroll() {
	if c.bus != nil {
		c.bus.Publish(events.Scroll)
	}
}
