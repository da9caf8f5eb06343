package engine

import (
	"testing"

	"evilanalysis/src/base"
)

func TestProgress(t *testing.T) {
	cases := []struct {
		name string
		info AnalysisInfo
		mode base.GoMode
		want float64
	}{
		{"depth half", AnalysisInfo{Depth: 10}, base.GoMode{Type: base.GoDepth, Value: 20}, 50},
		{"time quarter", AnalysisInfo{TimeMs: 250}, base.GoMode{Type: base.GoTime, Value: 1000}, 25},
		{"nodes", AnalysisInfo{Nodes: 1000}, base.GoMode{Type: base.GoNodes, Value: 4000}, 25},
		{"depth reached", AnalysisInfo{Depth: 20}, base.GoMode{Type: base.GoDepth, Value: 20}, 99.9},
		{"infinite", AnalysisInfo{Depth: 40}, base.GoMode{Type: base.GoInfinite}, 99.9},
		{"done", AnalysisInfo{Depth: 3, Done: true}, base.GoMode{Type: base.GoInfinite}, 100},
		{"zero limit", AnalysisInfo{Depth: 3}, base.GoMode{Type: base.GoDepth}, 0},
	}
	for _, c := range cases {
		if got := Progress(c.info, c.mode); got != c.want {
			t.Errorf("%s: Progress = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestInfoScore(t *testing.T) {
	if s := (AnalysisInfo{ScoreCP: 31}).Score(); s != (base.Score{Type: base.ScoreCP, Value: 31}) {
		t.Fatalf("cp score = %+v", s)
	}
	if s := (AnalysisInfo{ScoreCP: 31, MateIn: -2}).Score(); s != (base.Score{Type: base.ScoreMate, Value: -2}) {
		t.Fatalf("mate score = %+v", s)
	}
}
