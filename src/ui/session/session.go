// Package session keeps what a host window shows besides the panel: the
// game being browsed and the move cursor. Hosts translate keys and clicks
// into Session commands and redraw when Render reports a new view.
package session

import (
	"evilanalysis/src/base"
	"evilanalysis/src/chesslib/rules"
	"evilanalysis/src/logx"
	"evilanalysis/src/state"
	"evilanalysis/src/ui/panel"
)

type Command string

const (
	CmdThreat      Command = "threat"
	CmdSettings    Command = "settings"
	CmdNextEngine  Command = "engine"
	CmdEnable      Command = "enable"
	CmdMultiPVUp   Command = "multipv+"
	CmdMultiPVDown Command = "multipv-"
	CmdGoMode      Command = "go"
	CmdSynced      Command = "synced"
	CmdBack        Command = "back"
	CmdForward     Command = "forward"
	CmdFlip        Command = "flip"
	CmdFlush       Command = "flush"
	CmdScroll      Command = "scroll"
	CmdQuit        Command = "quit"
)

type Session struct {
	store *state.Memory
	panel *panel.BestMoves
	logx  logx.Logger

	fen         string
	moves       []string
	cursor      int
	orientation base.Color

	renders int
}

func New(store *state.Memory, p *panel.BestMoves, fen string, moves []string, orientation base.Color, l logx.Logger) *Session {
	if fen == "" {
		fen = base.FEN_START_GAME
	}
	if l == nil {
		l = logx.Nop()
	}
	return &Session{
		store:       store,
		panel:       p,
		logx:        l,
		fen:         fen,
		moves:       append([]string(nil), moves...),
		cursor:      len(moves),
		orientation: orientation,
		renders:     -1,
	}
}

func (s *Session) Panel() *panel.BestMoves {
	return s.panel
}

// Props for the position under the cursor and the selected engine.
func (s *Session) Props() panel.Props {
	eng, _ := s.store.Engine(s.store.SelectedEngine())
	return panel.Props{
		Engine:      eng,
		FEN:         s.fen,
		Moves:       s.moves[:s.cursor],
		HalfMoves:   rules.HalfMoves(s.fen) + s.cursor,
		Orientation: s.orientation,
	}
}

// Render returns the panel view and whether it differs from the last one.
func (s *Session) Render() (panel.View, bool) {
	v := s.panel.Render(s.Props())
	changed := s.panel.Renders() != s.renders
	s.renders = s.panel.Renders()
	return v, changed
}

// Cursor returns the number of moves played and the total.
func (s *Session) Cursor() (int, int) {
	return s.cursor, len(s.moves)
}

func (s *Session) Moves() []string {
	return append([]string(nil), s.moves[:s.cursor]...)
}

func (s *Session) FEN() string {
	return s.fen
}

func (s *Session) Orientation() base.Color {
	return s.orientation
}

// SetGame replaces the browsed game, the cursor goes to its end.
func (s *Session) SetGame(fen string, moves []string) {
	if fen == "" {
		fen = base.FEN_START_GAME
	}
	s.fen = fen
	s.moves = append([]string(nil), moves...)
	s.cursor = len(s.moves)
}

// Do runs cmd and reports whether the host should quit.
func (s *Session) Do(cmd Command) bool {
	switch cmd {
	case CmdQuit:
		return true
	case CmdThreat:
		s.panel.ToggleThreat()
	case CmdSettings:
		s.panel.ToggleSettings()
	case CmdNextEngine:
		s.nextEngine()
	case CmdEnable:
		s.panel.UpdateSettings(panel.ToggleEnabled)
	case CmdMultiPVUp:
		s.panel.UpdateSettings(panel.AdjustMultiPV(1))
	case CmdMultiPVDown:
		s.panel.UpdateSettings(panel.AdjustMultiPV(-1))
	case CmdGoMode:
		s.panel.UpdateSettings(panel.CycleGoMode)
	case CmdSynced:
		s.panel.UpdateSettings(panel.ToggleSynced)
	case CmdBack:
		if s.cursor > 0 {
			s.cursor--
		}
	case CmdForward:
		if s.cursor < len(s.moves) {
			s.cursor++
		}
	case CmdFlip:
		if s.orientation == base.White {
			s.orientation = base.Black
		} else {
			s.orientation = base.White
		}
	case CmdFlush:
		s.panel.Flush()
	case CmdScroll:
		s.panel.Scroll()
	default:
		s.logx.Warnf("unknown command %q", cmd)
	}
	return false
}

func (s *Session) nextEngine() {
	var loaded []string
	for _, e := range s.store.Engines() {
		if e.Loaded {
			loaded = append(loaded, e.Name)
		}
	}
	if len(loaded) == 0 {
		return
	}
	cur := s.store.SelectedEngine()
	next := loaded[0]
	for i, name := range loaded {
		if name == cur {
			next = loaded[(i+1)%len(loaded)]
			break
		}
	}
	if err := s.panel.SelectEngine(next); err != nil {
		s.logx.Errorf("select engine: %v", err)
	}
}

// Notify forwards a store change to the panel.
func (s *Session) Notify(ch state.Change) {
	s.panel.Notify(ch)
}
