package panel

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"evilanalysis/src/base"
	"evilanalysis/src/chesslib/rules"
	"evilanalysis/src/state"
	"evilanalysis/src/ui/events"
)

var sf = base.Engine{
	Name:   "sf",
	Path:   "/usr/bin/stockfish",
	Loaded: true,
	Go:     base.GoMode{Type: base.GoDepth, Value: 20},
}

func newPanel(t *testing.T, enabled bool) (*BestMoves, *state.Memory) {
	t.Helper()
	store := state.NewMemory("tab1")
	store.SetEngines([]base.Engine{sf, {Name: "off", Path: "/bin/off"}})
	s := base.DefaultSettings(sf)
	s.Enabled = enabled
	store.SetSettings("sf", "tab1", s)
	return New(store, rules.Chess{}, events.NewBus(), nil), store
}

func props(moves ...string) Props {
	return Props{Engine: sf, FEN: base.FEN_START_GAME, Moves: moves, Orientation: base.White}
}

func finalFEN(t *testing.T, fen string, moves ...string) string {
	t.Helper()
	pos, _, err := rules.Replay(fen, moves)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	return pos.FEN()
}

func TestInvalidFENShowsOnlyMessage(t *testing.T) {
	c, store := newPanel(t, true)
	p := props()
	p.FEN = "not a fen"
	v := c.Render(p)

	if len(v.Rows) != 1 {
		t.Fatalf("identical errors must be shown once, got %d rows", len(v.Rows))
	}
	if v.Rows[0].Kind != RowMessage || !strings.HasPrefix(v.Rows[0].Message, "Invalid position: ") {
		t.Fatalf("unexpected row %+v", v.Rows[0])
	}
	if v.Top.Loading || v.Top.ShowEval {
		t.Fatalf("no badges expected for an invalid position: %+v", v.Top)
	}
	if len(store.Searches()) != 0 {
		t.Fatalf("invalid position must not be searched")
	}
}

func TestBackrankPawnIsNotSearched(t *testing.T) {
	c, store := newPanel(t, true)
	p := props()
	p.FEN = "P3k3/8/8/8/8/8/8/4K3 w - - 0 1"
	v := c.Render(p)

	if len(v.Rows) != 1 || v.Rows[0].Kind != RowMessage || !strings.HasPrefix(v.Rows[0].Message, "Invalid position: ") {
		t.Fatalf("rows = %+v", v.Rows)
	}
	if _, ok := store.Search("sf", "tab1"); ok {
		t.Fatalf("position with a pawn on the back rank was searched")
	}
}

func TestThreatOnSwappedCheckIsInvalid(t *testing.T) {
	c, store := newPanel(t, true)
	store.SetThreat("tab1", true)
	p := props()
	// white is in check, so passing the move leaves the side not to move in check
	p.FEN = "4k3/8/8/8/8/8/4q3/4K3 w - - 0 1"
	v := c.Render(p)

	if len(v.Rows) != 1 || v.Rows[0].Kind != RowMessage {
		t.Fatalf("rows = %+v", v.Rows)
	}
	want := fmt.Sprintf(MsgInvalidPosition, rules.ErrOppositeCheck)
	if v.Rows[0].Message != want {
		t.Fatalf("message = %q, want %q", v.Rows[0].Message, want)
	}
	if _, ok := store.Search("sf", "tab1"); ok {
		t.Fatalf("invalid threat position was searched")
	}

	store.SetThreat("tab1", false)
	c.Invalidate()
	if v := c.Render(p); len(v.Rows) != 1 || v.Rows[0].Kind != RowPlaceholder {
		t.Fatalf("literal position must stay valid, rows = %+v", v.Rows)
	}
}

func TestThreatOnInvalidFENSwapsBase(t *testing.T) {
	c, store := newPanel(t, true)
	store.SetThreat("tab1", true)
	p := props("e2e4")
	p.FEN = "8/8/8/8/8/8/8/8 w - - 0 1"
	v := c.Render(p)

	// the moves are dropped, the base position passes the move
	if want := "8/8/8/8/8/8/8/8 b - - 0 1:"; v.SearchKey != want {
		t.Fatalf("key = %q, want %q", v.SearchKey, want)
	}
	if len(v.Rows) != 1 || v.Rows[0].Message != fmt.Sprintf(MsgInvalidPosition, rules.ErrInvalidKings) {
		t.Fatalf("rows = %+v", v.Rows)
	}
	if _, ok := store.Search("sf", "tab1"); ok {
		t.Fatalf("invalid position was searched")
	}
}

func TestGameOverWinsOverResults(t *testing.T) {
	c, store := newPanel(t, true)
	mate := []string{"f2f3", "e7e5", "g2g4", "d8h4"}
	key := state.ResultKey{Engine: "sf", Tab: "tab1"}
	store.SetLines(key, base.SearchKey(base.FEN_START_GAME, mate), []base.BestMoves{{MultiPV: 1, SAN: []string{"Kf2"}}})
	store.SetProgress("sf", "tab1", 60)

	v := c.Render(props(mate...))
	if len(v.Rows) != 1 || v.Rows[0].Message != MsgGameOver {
		t.Fatalf("rows = %+v", v.Rows)
	}
	if v.Progress != 0 || v.Animated {
		t.Fatalf("progress of a finished game: %v animated=%v", v.Progress, v.Animated)
	}
	if v.Top.ShowEval || v.Top.Loading || v.Top.ShowNPS {
		t.Fatalf("no badges for a finished game: %+v", v.Top)
	}
	if _, ok := store.Search("sf", "tab1"); ok {
		t.Fatalf("finished game must not be searched")
	}
}

func TestIllegalTrailingMovesAreIgnored(t *testing.T) {
	c, _ := newPanel(t, true)
	v := c.Render(props("e2e4", "e2e4", "zz"))
	if len(v.Rows) != 1 || v.Rows[0].Kind != RowPlaceholder {
		t.Fatalf("rows = %+v", v.Rows)
	}
}

func TestThreatTogglesSearchKey(t *testing.T) {
	c, store := newPanel(t, true)
	p := props("e2e4")
	literal := base.SearchKey(base.FEN_START_GAME, []string{"e2e4"})
	threat := rules.SwapSideToMove(finalFEN(t, base.FEN_START_GAME, "e2e4")) + ":"

	if v := c.Render(p); v.SearchKey != literal {
		t.Fatalf("key = %q, want %q", v.SearchKey, literal)
	}
	c.ToggleThreat()
	v := c.Render(p)
	if v.SearchKey != threat || !v.Header.Threat {
		t.Fatalf("threat key = %q, want %q", v.SearchKey, threat)
	}
	req, ok := store.Search("sf", "tab1")
	if !ok || req.SearchKey() != threat {
		t.Fatalf("search request = %+v", req)
	}
	c.ToggleThreat()
	if v := c.Render(p); v.SearchKey != literal {
		t.Fatalf("key after second toggle = %q", v.SearchKey)
	}
}

func TestThreatNeedsEnabledEngine(t *testing.T) {
	c, store := newPanel(t, false)
	v := c.Render(props("e2e4"))
	if !v.Header.ThreatDisabled {
		t.Fatalf("threat toggle must be disabled")
	}
	c.ToggleThreat()
	if store.Threat("tab1") {
		t.Fatalf("threat toggled on a disabled engine")
	}
}

func TestNoResultRows(t *testing.T) {
	c, store := newPanel(t, false)
	v := c.Render(props("e2e4"))
	if len(v.Rows) != 1 || v.Rows[0].Message != MsgNotEnabled {
		t.Fatalf("disabled rows = %+v", v.Rows)
	}
	if v.Top.Loading {
		t.Fatalf("disabled engine is not loading")
	}
	if _, ok := store.Search("sf", "tab1"); ok {
		t.Fatalf("disabled engine must not search")
	}

	c.UpdateSettings(ToggleEnabled)
	v = c.Render(props("e2e4"))
	if len(v.Rows) != 1 || v.Rows[0].Kind != RowPlaceholder {
		t.Fatalf("default MultiPV must give one placeholder, got %+v", v.Rows)
	}
	if !v.Top.Loading || v.Top.ShowEval {
		t.Fatalf("top = %+v", v.Top)
	}

	c.UpdateSettings(AdjustMultiPV(2))
	v = c.Render(props("e2e4"))
	if len(v.Rows) != 3 {
		t.Fatalf("MultiPV 3 must give 3 placeholders, got %d", len(v.Rows))
	}
	for _, r := range v.Rows {
		if r.Kind != RowPlaceholder {
			t.Fatalf("unexpected row %+v", r)
		}
	}
}

func TestEmptyResultSet(t *testing.T) {
	c, store := newPanel(t, true)
	store.SetLines(state.ResultKey{Engine: "sf", Tab: "tab1"}, base.SearchKey(base.FEN_START_GAME, nil), nil)
	v := c.Render(props())
	if len(v.Rows) != 1 || v.Rows[0].Message != MsgNoAnalysis {
		t.Fatalf("rows = %+v", v.Rows)
	}
	if v.Top.Loading {
		t.Fatalf("a result exists, nothing is loading")
	}
}

func TestLinesAreRenderedInOrder(t *testing.T) {
	c, store := newPanel(t, true)
	lines := []base.BestMoves{
		{MultiPV: 1, SAN: []string{"e5"}, UCI: []string{"e7e5"}, Score: base.Score{Value: 25}, Depth: 18, NPS: 1234567},
		{MultiPV: 2, SAN: []string{"c5"}, UCI: []string{"c7c5"}, Score: base.Score{Value: 30}, Depth: 18},
		{MultiPV: 3, SAN: []string{"e6"}, UCI: []string{"e7e6"}, Score: base.Score{Value: 40}, Depth: 17},
	}
	store.SetLines(state.ResultKey{Engine: "sf", Tab: "tab1"}, base.SearchKey(base.FEN_START_GAME, []string{"e2e4"}), lines)
	store.SetProgress("sf", "tab1", 40)

	p := props("e2e4")
	p.HalfMoves = 1
	v := c.Render(p)
	if len(v.Rows) != 3 {
		t.Fatalf("want 3 rows, got %d", len(v.Rows))
	}
	want := finalFEN(t, base.FEN_START_GAME, "e2e4")
	for i, r := range v.Rows {
		if r.Kind != RowLine || r.Line.UCI[0] != lines[i].UCI[0] || r.Line.Rank != i+1 {
			t.Fatalf("row %d = %+v", i, r)
		}
		if r.Line.FEN != want || r.Line.Engine != "sf" || r.Line.HalfMoves != 1 || r.Line.Threat {
			t.Fatalf("row %d context = %+v", i, r.Line)
		}
	}
	top := v.Top
	if !top.ShowEval || top.Score.Value != 25 || top.Depth != 18 {
		t.Fatalf("top must come from the best line: %+v", top)
	}
	if !top.ShowNPS || top.NPS != "1.2M/s" || top.Loading {
		t.Fatalf("nps badge = %+v", top)
	}
	if !v.Animated || v.Progress != 40 {
		t.Fatalf("progress = %v animated=%v", v.Progress, v.Animated)
	}
}

func TestThreatRowsUseSwappedPosition(t *testing.T) {
	c, store := newPanel(t, true)
	store.SetThreat("tab1", true)
	swapped := rules.SwapSideToMove(finalFEN(t, base.FEN_START_GAME, "e2e4"))
	store.SetLines(state.ResultKey{Engine: "sf", Tab: "tab1"}, swapped+":", []base.BestMoves{{MultiPV: 1, SAN: []string{"d4"}, UCI: []string{"d2d4"}}})

	v := c.Render(props("e2e4"))
	if len(v.Rows) != 1 || v.Rows[0].Kind != RowLine {
		t.Fatalf("rows = %+v", v.Rows)
	}
	if l := v.Rows[0].Line; l.FEN != swapped || !l.Threat {
		t.Fatalf("threat row = %+v", l)
	}
}

func TestEqualPropsSkipRender(t *testing.T) {
	c, _ := newPanel(t, true)
	c.Render(props("e2e4", "e7e5"))
	c.Render(props("e2e4", "e7e5"))
	if c.Renders() != 1 {
		t.Fatalf("equal props rendered %d times", c.Renders())
	}

	p := props("e2e4", "e7e5")
	p.Engine.Options = []base.EngineOption{{Name: base.OptionMultiPV, Value: "4"}}
	c.Render(p)
	if c.Renders() != 1 {
		t.Fatalf("engines are compared by name")
	}

	c.Render(props("e2e4"))
	if c.Renders() != 2 {
		t.Fatalf("changed moves must render")
	}
	p = props("e2e4")
	p.Orientation = base.Black
	c.Render(p)
	if c.Renders() != 3 {
		t.Fatalf("changed orientation must render")
	}
}

func TestPropsEqual(t *testing.T) {
	a := props("e2e4", "e7e5")
	b := props("e2e4", "e7e5")
	if !PropsEqual(a, b) {
		t.Fatalf("deep equal props differ")
	}
	b.Moves = []string{"e7e5", "e2e4"}
	if PropsEqual(a, b) {
		t.Fatalf("move order matters")
	}
	b = props("e2e4")
	if PropsEqual(a, b) {
		t.Fatalf("move count matters")
	}
	b = props("e2e4", "e7e5")
	b.HalfMoves = 2
	if PropsEqual(a, b) {
		t.Fatalf("half moves matter")
	}
}

func TestDeferredLinesWaitForFlush(t *testing.T) {
	c, store := newPanel(t, true)
	p := props("e2e4")
	c.Render(p)

	key := state.ResultKey{Engine: "sf", Tab: "tab1"}
	store.SetLines(key, base.SearchKey(base.FEN_START_GAME, []string{"e2e4"}), []base.BestMoves{{MultiPV: 1, SAN: []string{"e5"}, UCI: []string{"e7e5"}}})
	c.Notify(state.Change{Kind: state.ChangeLines, Engine: "sf", Tab: "tab1"})

	if v := c.Render(p); v.Rows[0].Kind != RowPlaceholder {
		t.Fatalf("lines must wait for a flush")
	}
	if !c.Flush() {
		t.Fatalf("flush of stale lines must ask for a render")
	}
	if v := c.Render(p); v.Rows[0].Kind != RowLine {
		t.Fatalf("lines not shown after flush: %+v", v.Rows)
	}
}

func TestKeyChangeReadsAtOnce(t *testing.T) {
	c, store := newPanel(t, true)
	key := state.ResultKey{Engine: "sf", Tab: "tab1"}
	store.SetLines(key, base.SearchKey(base.FEN_START_GAME, []string{"e2e4"}), []base.BestMoves{{MultiPV: 1, SAN: []string{"e5"}, UCI: []string{"e7e5"}}})
	store.SetLines(key, base.SearchKey(base.FEN_START_GAME, []string{"d2d4"}), []base.BestMoves{{MultiPV: 1, SAN: []string{"d5"}, UCI: []string{"d7d5"}}})

	c.Render(props("e2e4"))
	v := c.Render(props("d2d4"))
	if v.Rows[0].Kind != RowLine || v.Rows[0].Line.UCI[0] != "d7d5" {
		t.Fatalf("lines of the old key shown: %+v", v.Rows)
	}
}

func TestSyncedSettingsFollowEngine(t *testing.T) {
	c, store := newPanel(t, true)
	store.UpdateEngine("sf", func(e *base.Engine) {
		e.Options = []base.EngineOption{{Name: base.OptionMultiPV, Value: "2"}}
	})
	c.Render(props())
	s, _ := store.Settings("sf", "tab1")
	if s.MultiPV() != 2 || !s.Enabled {
		t.Fatalf("synced settings not pulled from the engine: %+v", s)
	}

	c.UpdateSettings(ToggleSynced)
	store.UpdateEngine("sf", func(e *base.Engine) {
		e.Options = []base.EngineOption{{Name: base.OptionMultiPV, Value: "5"}}
	})
	c.Notify(state.Change{Kind: state.ChangeEngines})
	c.Render(props())
	if s, _ := store.Settings("sf", "tab1"); s.MultiPV() != 2 {
		t.Fatalf("unsynced settings changed: %+v", s)
	}
}

func TestSyncedEditsBecomeEngineDefaults(t *testing.T) {
	c, store := newPanel(t, true)
	c.Render(props())

	c.UpdateSettings(AdjustMultiPV(1))
	e, _ := store.Engine("sf")
	if base.DefaultSettings(e).MultiPV() != 2 {
		t.Fatalf("synced edit not propagated: %+v", e.Options)
	}

	c.UpdateSettings(func(s *base.EngineSettings) {
		s.Synced = false
		s.Go = base.GoMode{Type: base.GoTime, Value: 1000}
	})
	e, _ = store.Engine("sf")
	if e.Go.Type != base.GoDepth {
		t.Fatalf("local edit leaked into the engine: %+v", e.Go)
	}
	s, _ := store.Settings("sf", "tab1")
	if s.Go.Type != base.GoTime {
		t.Fatalf("local edit lost: %+v", s.Go)
	}
}

func TestSelectEngine(t *testing.T) {
	c, store := newPanel(t, true)
	if err := c.SelectEngine("off"); !errors.Is(err, state.ErrEngineNotLoaded) {
		t.Fatalf("unloaded engine selected: %v", err)
	}
	if err := c.SelectEngine("sf"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if store.SelectedEngine() != "sf" {
		t.Fatalf("selected = %q", store.SelectedEngine())
	}
	v := c.Render(props())
	if len(v.Header.Engines) != 1 || v.Header.Engines[0] != "sf" {
		t.Fatalf("picker must list loaded engines only: %v", v.Header.Engines)
	}
}

func TestScrollPublishes(t *testing.T) {
	bus := events.NewBus()
	ch := make(chan events.Event, 1)
	bus.Subscribe(ch)
	c := New(state.NewMemory("tab1"), rules.Chess{}, bus, nil)
	c.Scroll()
	if ev := <-ch; ev != events.Scroll {
		t.Fatalf("got %q", ev)
	}
}

func TestToggleSettings(t *testing.T) {
	c, _ := newPanel(t, true)
	c.Render(props())
	c.ToggleSettings()
	if v := c.Render(props()); !v.Header.SettingsOpen {
		t.Fatalf("settings not open")
	}
}

func TestNotation(t *testing.T) {
	tests := []struct {
		row  LineRow
		want string
	}{
		{LineRow{SAN: []string{"e4", "e5", "Nf3"}}, "1. e4 e5 2. Nf3"},
		{LineRow{SAN: []string{"e5", "Nf3"}, HalfMoves: 1}, "1... e5 2. Nf3"},
		{LineRow{SAN: []string{"Nf3", "Nc6"}, HalfMoves: 22}, "12. Nf3 Nc6"},
		{LineRow{SAN: []string{"d4"}, HalfMoves: 1, Threat: true}, "2. d4"},
		{LineRow{}, ""},
	}
	for _, tt := range tests {
		if got := tt.row.Notation(); got != tt.want {
			t.Errorf("Notation(%v, %d) = %q, want %q", tt.row.SAN, tt.row.HalfMoves, got, tt.want)
		}
	}
}

func TestEngineTop(t *testing.T) {
	lines := []base.BestMoves{{MultiPV: 1, Score: base.Score{Type: base.ScoreMate, Value: 3}, Depth: 9, NPS: 850000}}

	if top := EngineTop(nil, false, true, 0, nil); !top.Loading || top.ShowEval || top.ShowNPS {
		t.Fatalf("no result: %+v", top)
	}
	if top := EngineTop(nil, false, true, 0, errors.New("bad")); top.Loading {
		t.Fatalf("error suppresses loading")
	}
	if top := EngineTop(nil, false, false, 0, nil); top.Loading {
		t.Fatalf("disabled engine is not loading")
	}
	top := EngineTop(lines, false, true, 50, nil)
	if !top.ShowNPS || top.NPS != "850k/s" || !top.ShowEval || top.Score.String() != "M3" || top.Depth != 9 {
		t.Fatalf("running: %+v", top)
	}
	if top := EngineTop(lines, false, true, 100, nil); top.ShowNPS || !top.ShowEval {
		t.Fatalf("finished: %+v", top)
	}
	if top := EngineTop(lines, true, true, 50, nil); top.ShowEval || top.ShowNPS {
		t.Fatalf("game over: %+v", top)
	}
	if top := EngineTop([]base.BestMoves{{MultiPV: 1}}, false, true, 10, nil); top.Score.String() != "+0.00" {
		t.Fatalf("missing score must read 0, got %s", top.Score)
	}
}

func TestCycleGoMode(t *testing.T) {
	s := base.EngineSettings{Go: base.GoMode{Type: base.GoDepth, Value: 12}}
	seen := []base.GoType{}
	for i := 0; i < 4; i++ {
		CycleGoMode(&s)
		seen = append(seen, s.Go.Type)
	}
	want := []base.GoType{base.GoTime, base.GoNodes, base.GoInfinite, base.GoDepth}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("cycle = %v, want %v", seen, want)
		}
	}
	if s.Go.Value != 20 {
		t.Fatalf("depth default = %d", s.Go.Value)
	}
}
