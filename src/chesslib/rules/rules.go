// Package rules is the chess rules collaborator of the analysis panel:
// FEN decoding, UCI move parsing and replay, terminal detection and SAN
// conversion of engine lines. Move generation comes from notnil/chess.
package rules

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

var (
	ErrEmptyFEN        = errors.New("empty fen")
	ErrInvalidKings    = errors.New("each side must have exactly one king")
	ErrOppositeCheck   = errors.New("side not to move is in check")
	ErrPawnsOnBackrank = errors.New("pawns on the first or last rank")
	ErrIllegalMove     = errors.New("illegal move")
)

type Position struct {
	pos *chess.Position
}

// ParsePosition decodes and validates a FEN.
func ParsePosition(fen string) (*Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, ErrEmptyFEN
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	p := &Position{pos: chess.NewGame(opt).Position()}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Position) validate() error {
	var white, black int
	var kingSq chess.Square
	for sq, pc := range p.pos.Board().SquareMap() {
		if pc.Type() == chess.Pawn && (sq.Rank() == chess.Rank1 || sq.Rank() == chess.Rank8) {
			return ErrPawnsOnBackrank
		}
		if pc.Type() != chess.King {
			continue
		}
		if pc.Color() == chess.White {
			white++
		} else {
			black++
		}
		if pc.Color() != p.pos.Turn() {
			kingSq = sq
		}
	}
	if white != 1 || black != 1 {
		return ErrInvalidKings
	}
	// the opponent king must not be capturable
	for _, m := range p.pos.ValidMoves() {
		if m.S2() == kingSq {
			return ErrOppositeCheck
		}
	}
	return nil
}

// ParseUCI finds the legal move written in coordinate notation (e2e4, e7e8q).
func (p *Position) ParseUCI(text string) (*chess.Move, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(text) == 4 || len(text) == 5 {
		for _, legal := range p.pos.ValidMoves() {
			if (chess.UCINotation{}).Encode(p.pos, legal) == text {
				return legal, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrIllegalMove, text)
}

func (p *Position) Apply(m *chess.Move) *Position {
	return &Position{pos: p.pos.Update(m)}
}

// SAN of a legal move of this position
func (p *Position) SAN(m *chess.Move) string {
	return chess.AlgebraicNotation{}.Encode(p.pos, m)
}

// IsTerminal reports a position without legal continuation:
// checkmate, stalemate or insufficient material.
func (p *Position) IsTerminal() bool {
	if len(p.pos.ValidMoves()) == 0 {
		return true
	}
	return insufficientMaterial(p.pos.Board())
}

func (p *Position) FEN() string {
	return p.pos.String()
}

func (p *Position) WhiteToMove() bool {
	return p.pos.Turn() == chess.White
}

// plies played before this position according to its move counters
func (p *Position) HalfMoves() int {
	return HalfMoves(p.FEN())
}

// Replay applies moves on top of fen. Replay stops at the first move that
// does not parse or is illegal; the position of the valid prefix and the
// number of applied moves are returned. A nil position means fen itself
// is invalid.
func Replay(fen string, moves []string) (*Position, int, error) {
	pos, err := ParsePosition(fen)
	if err != nil {
		return nil, 0, err
	}
	for i, text := range moves {
		m, err := pos.ParseUCI(text)
		if err != nil {
			return pos, i, nil
		}
		pos = pos.Apply(m)
	}
	return pos, len(moves), nil
}

// LoadPGN reads the main line of a PGN game: its start position and the
// moves in coordinate notation.
func LoadPGN(r io.Reader) (string, []string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", nil, err
	}
	g := chess.NewGame()
	if err := g.UnmarshalText(data); err != nil {
		return "", nil, fmt.Errorf("read pgn: %w", err)
	}
	moves := make([]string, 0, len(g.Moves()))
	for _, m := range g.Moves() {
		moves = append(moves, chess.UCINotation{}.Encode(nil, m))
	}
	return g.Positions()[0].String(), moves, nil
}

// LineToSAN converts an engine line to SAN starting from fen.
// Conversion stops at the first move that is not legal.
func LineToSAN(fen string, uci []string) []string {
	pos, err := ParsePosition(fen)
	if err != nil {
		return nil
	}
	san := make([]string, 0, len(uci))
	for _, text := range uci {
		m, err := pos.ParseUCI(text)
		if err != nil {
			break
		}
		san = append(san, pos.SAN(m))
		pos = pos.Apply(m)
	}
	return san
}

// SwapSideToMove passes the move to the other side. The en passant square
// no longer applies and is cleared. Text that is not a FEN is returned as is.
func SwapSideToMove(fen string) string {
	fld := strings.Fields(fen)
	if len(fld) < 2 {
		return fen
	}
	switch fld[1] {
	case "w":
		fld[1] = "b"
	case "b":
		fld[1] = "w"
	default:
		return fen
	}
	if len(fld) > 3 {
		fld[3] = "-"
	}
	return strings.Join(fld, " ")
}

// HalfMoves from the side and fullmove fields of a FEN, 0 when missing.
func HalfMoves(fen string) int {
	fld := strings.Fields(fen)
	n := 0
	if len(fld) > 5 {
		if full, err := strconv.Atoi(fld[5]); err == nil && full > 0 {
			n = (full - 1) * 2
		}
	}
	if len(fld) > 1 && fld[1] == "b" {
		n++
	}
	return n
}

func insufficientMaterial(b *chess.Board) bool {
	var minors []chess.Square
	var bishops []chess.Square
	for sq, pc := range b.SquareMap() {
		switch pc.Type() {
		case chess.King:
		case chess.Knight:
			minors = append(minors, sq)
		case chess.Bishop:
			minors = append(minors, sq)
			bishops = append(bishops, sq)
		default:
			return false
		}
	}
	if len(minors) <= 1 {
		return true
	}
	// only bishops, all on squares of one color
	if len(bishops) != len(minors) {
		return false
	}
	shade := squareShade(bishops[0])
	for _, sq := range bishops[1:] {
		if squareShade(sq) != shade {
			return false
		}
	}
	return true
}

func squareShade(sq chess.Square) int {
	return (int(sq.File()) + int(sq.Rank())) % 2
}

// Chess adapts this package to the analysis panel.
type Chess struct{}

// Replay returns the final FEN of the valid move prefix and whether the
// game is over there.
func (Chess) Replay(fen string, moves []string) (string, bool, error) {
	pos, _, err := Replay(fen, moves)
	if err != nil {
		return "", false, err
	}
	return pos.FEN(), pos.IsTerminal(), nil
}

func (Chess) Validate(fen string) error {
	_, err := ParsePosition(fen)
	return err
}

func (Chess) SwapSideToMove(fen string) string {
	return SwapSideToMove(fen)
}
