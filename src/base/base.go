package base

import (
	"fmt"
	"strconv"
	"strings"
)

// Forsyth–Edwards Notation
const FEN_START_GAME string = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// name of the engine option with the number of reported lines
const OptionMultiPV string = "MultiPV"

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
	}
	return ""
}

func ColorFromString(s string) Color {
	if strings.ToLower(s) == "black" {
		return Black
	}
	return White
}

// ---- Search settings ----

type GoType uint8

const (
	GoDepth GoType = iota
	GoTime
	GoNodes
	GoInfinite
)

func (t GoType) String() string {
	switch t {
	case GoDepth:
		return "depth"
	case GoTime:
		return "time"
	case GoNodes:
		return "nodes"
	case GoInfinite:
		return "infinite"
	default:
	}
	return ""
}

func GoTypeFromString(s string) (GoType, error) {
	switch s {
	case "depth":
		return GoDepth, nil
	case "time":
		return GoTime, nil
	case "nodes":
		return GoNodes, nil
	case "infinite":
		return GoInfinite, nil
	default:
	}
	return GoDepth, fmt.Errorf("unknown go type %q", s)
}

// GoMode is the limit of one search. Value is plies for GoDepth,
// milliseconds for GoTime and nodes for GoNodes.
type GoMode struct {
	Type  GoType `json:"type"`
	Value int64  `json:"value"`
}

// UCI "go" command
func (g GoMode) Command() string {
	switch g.Type {
	case GoDepth:
		return fmt.Sprintf("go depth %d", g.Value)
	case GoTime:
		return fmt.Sprintf("go movetime %d", g.Value)
	case GoNodes:
		return fmt.Sprintf("go nodes %d", g.Value)
	default:
	}
	return "go infinite"
}

func (g GoMode) String() string {
	if g.Type == GoInfinite {
		return g.Type.String()
	}
	return fmt.Sprintf("%s %d", g.Type, g.Value)
}

// go mode json goes as {"type":"depth","value":20}
func (t GoType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *GoType) UnmarshalText(b []byte) error {
	v, err := GoTypeFromString(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type EngineOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func EqualOptions(a, b []EngineOption) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func CloneOptions(opts []EngineOption) []EngineOption {
	if opts == nil {
		return nil
	}
	out := make([]EngineOption, len(opts))
	copy(out, opts)
	return out
}

// SetOption replaces the value of name or appends it.
func SetOption(opts []EngineOption, name, value string) []EngineOption {
	out := CloneOptions(opts)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, EngineOption{Name: name, Value: value})
}

// ---- Engines ----

type Engine struct {
	Name    string         `json:"name"`
	Path    string         `json:"path"`
	Args    []string       `json:"args,omitempty"`
	Loaded  bool           `json:"loaded"`
	Options []EngineOption `json:"options,omitempty"`
	Go      GoMode         `json:"go"`
}

func (e Engine) Clone() Engine {
	e.Options = CloneOptions(e.Options)
	if e.Args != nil {
		e.Args = append([]string(nil), e.Args...)
	}
	return e
}

// settings of one engine inside one tab
type EngineSettings struct {
	Enabled bool           `json:"enabled"`
	Synced  bool           `json:"synced"` // mirrors the engine defaults
	Options []EngineOption `json:"options,omitempty"`
	Go      GoMode         `json:"go"`
}

func DefaultSettings(e Engine) EngineSettings {
	return EngineSettings{
		Enabled: false,
		Synced:  true,
		Options: CloneOptions(e.Options),
		Go:      e.Go,
	}
}

func (s EngineSettings) Clone() EngineSettings {
	s.Options = CloneOptions(s.Options)
	return s
}

func (s EngineSettings) Equal(o EngineSettings) bool {
	return s.Enabled == o.Enabled && s.Synced == o.Synced && s.Go == o.Go && EqualOptions(s.Options, o.Options)
}

// MultiPV of the settings, 1 if the option is unset or not a number
func (s EngineSettings) MultiPV() int {
	for _, o := range s.Options {
		if o.Name != OptionMultiPV {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(o.Value))
		if err != nil || n < 1 {
			return 1
		}
		return n
	}
	return 1
}

// ---- Analysis ----

type ScoreType uint8

const (
	ScoreCP ScoreType = iota
	ScoreMate
)

type Score struct {
	Type  ScoreType
	Value int
}

// +0.35, -1.20, M3, -M2
func (s Score) String() string {
	if s.Type == ScoreMate {
		if s.Value < 0 {
			return fmt.Sprintf("-M%d", -s.Value)
		}
		return fmt.Sprintf("M%d", s.Value)
	}
	return fmt.Sprintf("%+.2f", float64(s.Value)/100.0)
}

// one line reported by an engine
type BestMoves struct {
	MultiPV int // 1 = best
	SAN     []string
	UCI     []string
	Score   Score
	Depth   int
	Nodes   int64
	NPS     int64
}

func CloneLines(lines []BestMoves) []BestMoves {
	if lines == nil {
		return nil
	}
	out := make([]BestMoves, len(lines))
	for i, l := range lines {
		l.SAN = append([]string(nil), l.SAN...)
		l.UCI = append([]string(nil), l.UCI...)
		out[i] = l
	}
	return out
}

// SearchKey identifies the line set of a position: "<fen>:<m1,m2,...>"
func SearchKey(fen string, moves []string) string {
	return fen + ":" + strings.Join(moves, ",")
}

// EqualMoves is element-wise and order sensitive.
func EqualMoves(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
