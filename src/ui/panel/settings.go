package panel

import (
	"strconv"

	"evilanalysis/src/base"
)

// Edits of the settings form, passed to UpdateSettings.

func ToggleEnabled(s *base.EngineSettings) {
	s.Enabled = !s.Enabled
}

func ToggleSynced(s *base.EngineSettings) {
	s.Synced = !s.Synced
}

const maxMultiPV = 8

// AdjustMultiPV moves the MultiPV option by delta within 1..8.
func AdjustMultiPV(delta int) func(s *base.EngineSettings) {
	return func(s *base.EngineSettings) {
		n := s.MultiPV() + delta
		if n < 1 {
			n = 1
		}
		if n > maxMultiPV {
			n = maxMultiPV
		}
		s.Options = base.SetOption(s.Options, base.OptionMultiPV, strconv.Itoa(n))
	}
}

// defaults applied when switching the go mode
var goDefaults = map[base.GoType]int64{
	base.GoDepth:    20,
	base.GoTime:     5000,
	base.GoNodes:    1000000,
	base.GoInfinite: 0,
}

// CycleGoMode switches depth → time → nodes → infinite → depth.
func CycleGoMode(s *base.EngineSettings) {
	next := (s.Go.Type + 1) % (base.GoInfinite + 1)
	s.Go = base.GoMode{Type: next, Value: goDefaults[next]}
}
