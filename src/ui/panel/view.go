package panel

import (
	"fmt"
	"strings"

	"evilanalysis/src/base"
)

const (
	MsgInvalidPosition = "Invalid position: %s"
	MsgGameOver        = "Game is over"
	MsgNoAnalysis      = "No analysis available"
	MsgNotEnabled      = "Engine isn't enabled"
	MsgLoading         = "Loading…"
)

// Props is everything the parent passes to the panel.
type Props struct {
	Engine      base.Engine
	FEN         string
	Moves       []string
	HalfMoves   int
	Orientation base.Color
}

// PropsEqual decides whether a render can be skipped. Engines are compared
// by name only, moves element by element.
func PropsEqual(a, b Props) bool {
	return a.Engine.Name == b.Engine.Name &&
		a.FEN == b.FEN &&
		a.Orientation == b.Orientation &&
		a.HalfMoves == b.HalfMoves &&
		base.EqualMoves(a.Moves, b.Moves)
}

func (p Props) clone() Props {
	p.Engine = p.Engine.Clone()
	if p.Moves != nil {
		p.Moves = append([]string(nil), p.Moves...)
	}
	return p
}

type Header struct {
	Engine         string
	Engines        []string // loaded engines the picker offers
	Threat         bool
	ThreatDisabled bool
	SettingsOpen   bool
}

type RowKind uint8

const (
	RowMessage RowKind = iota
	RowPlaceholder
	RowLine
)

type Row struct {
	Kind    RowKind
	Message string
	Line    LineRow
}

// LineRow is one analysed line as the row widget needs it.
type LineRow struct {
	Engine      string
	Rank        int
	SAN         []string
	UCI         []string
	FEN         string // position the line starts from
	Score       base.Score
	Depth       int
	HalfMoves   int
	Threat      bool
	Orientation base.Color
}

// Notation renders the line as numbered SAN, e.g. "12. Nf3 Nc6 13. Bb5"
// or "12... Nc6 13. Bb5".
func (l LineRow) Notation() string {
	ply := l.HalfMoves
	if l.Threat {
		ply++
	}
	var sb strings.Builder
	for i, san := range l.SAN {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch {
		case ply%2 == 0:
			fmt.Fprintf(&sb, "%d. ", ply/2+1)
		case i == 0:
			fmt.Fprintf(&sb, "%d... ", ply/2+1)
		}
		sb.WriteString(san)
		ply++
	}
	return sb.String()
}

type View struct {
	Header   Header
	Settings base.EngineSettings
	Progress float64
	Animated bool
	Top      TopView
	Rows     []Row
	// key the rows were looked up with
	SearchKey string
}

func messageRow(msg string) Row {
	return Row{Kind: RowMessage, Message: msg}
}
