package engine

import (
	"context"
	"errors"
	"time"

	"evilanalysis/src/base"
)

var (
	ErrNotRunning     = errors.New("no running engine process")
	ErrAlreadyRunning = errors.New("analysis already running")
)

type AnalysisInfo struct {
	Depth    int      // current depth
	SelDepth int      // selective depth
	MultiPV  int      // rank of the line, 1 = best
	TimeMs   int64    // elapsed time in ms
	Nodes    int64    // searched nodes
	NPS      int64    // nodes per second
	ScoreCP  int      // centipawns, + = advantage for side to move
	MateIn   int      // mate in N moves (0 if none)
	HasScore bool     // a score was reported
	PV       []string // principal variation, uci moves
	BestMove string   // set on the final message of a search
	Done     bool     // bestmove received
}

func (i AnalysisInfo) Score() base.Score {
	if i.MateIn != 0 {
		return base.Score{Type: base.ScoreMate, Value: i.MateIn}
	}
	return base.Score{Type: base.ScoreCP, Value: i.ScoreCP}
}

const (
	UCIHandshakeTimeout = 2 * time.Second  // uci / isready
	UCIBestMoveTimeout  = 30 * time.Second // go ...
	StopAnalyzeTimeout  = 5 * time.Second  // bestmove after stop
)

// Engine is one engine process searching one position at a time.
type Engine interface {
	Init(ctx context.Context) error
	SetOption(name, value string) error
	SetPosition(fen string, moves []string) error
	StartAnalysis(mode base.GoMode) error
	StopAnalysis() error
	WaitDone(ctx context.Context)
	Subscribe(ch chan<- AnalysisInfo) (unsubscribe func())
	Close()
}

// Progress of a search in percent. An infinite search stays below 100
// until the engine reports bestmove.
func Progress(info AnalysisInfo, mode base.GoMode) float64 {
	if info.Done {
		return 100
	}
	var p float64
	switch mode.Type {
	case base.GoDepth:
		if mode.Value > 0 {
			p = float64(info.Depth) / float64(mode.Value) * 100
		}
	case base.GoTime:
		if mode.Value > 0 {
			p = float64(info.TimeMs) / float64(mode.Value) * 100
		}
	case base.GoNodes:
		if mode.Value > 0 {
			p = float64(info.Nodes) / float64(mode.Value) * 100
		}
	default:
		return 99.9
	}
	if p >= 100 {
		// the engine may still finish the iteration
		return 99.9
	}
	return p
}
