package panel

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"evilanalysis/src/base"
)

// TopView holds the badges above the lines.
type TopView struct {
	Loading  bool
	ShowNPS  bool
	NPS      string
	ShowEval bool
	Score    base.Score
	Depth    int
}

// EngineTop summarises a result set. A nil set means no result yet, an
// empty one means the engine finished without lines.
func EngineTop(lines []base.BestMoves, gameOver, enabled bool, progress float64, err error) TopView {
	var top TopView
	top.Loading = enabled && !gameOver && err == nil && lines == nil
	if gameOver || len(lines) == 0 {
		return top
	}
	best := lines[0]
	if progress < 100 && enabled {
		top.ShowNPS = true
		top.NPS = FormatNPS(best.NPS)
	}
	top.ShowEval = true
	top.Score = best.Score
	top.Depth = best.Depth
	return top
}

// FormatNPS gives 850k/s, 1.2M/s.
func FormatNPS(nps int64) string {
	v, prefix := humanize.ComputeSI(float64(nps))
	return fmt.Sprintf("%s%s/s", humanize.FtoaWithDigits(v, 1), prefix)
}
