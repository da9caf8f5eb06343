package cli

import (
	"fmt"
	"io"
	"strings"

	"evilanalysis/src/ui/panel"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dimF   = "\033[90m"
	greenF = "\033[32m"
	redF   = "\033[31m"
	cyanF  = "\033[36m"
)

const barWidth = 24

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Draw prints the panel view.
func Draw(w io.Writer, v panel.View) {
	h := v.Header
	engine := h.Engine
	if engine == "" {
		engine = "no engine"
	}
	threat := "threat " + onOff(h.Threat)
	if h.ThreatDisabled {
		threat = dimF + threat + reset
	}
	fmt.Fprintf(w, "%s%s%s  [%s]  engines: %s\n", bold, engine, reset, threat, strings.Join(h.Engines, ", "))

	if h.SettingsOpen {
		s := v.Settings
		fmt.Fprintf(w, "%s  enabled %s | synced %s | multipv %d | %s%s\n",
			cyanF, onOff(s.Enabled), onOff(s.Synced), s.MultiPV(), s.Go, reset)
	}

	fmt.Fprintln(w, progressBar(v.Progress, v.Animated))
	if top := topLine(v.Top); top != "" {
		fmt.Fprintln(w, top)
	}

	for _, r := range v.Rows {
		switch r.Kind {
		case panel.RowMessage:
			fmt.Fprintf(w, "  %s\n", r.Message)
		case panel.RowPlaceholder:
			fmt.Fprintf(w, "  %s%s%s\n", dimF, strings.Repeat("░", barWidth), reset)
		case panel.RowLine:
			l := r.Line
			fmt.Fprintf(w, "  %s%6s%s  %s\n", scoreColor(l.Score.Value), l.Score, reset, l.Notation())
		}
	}
}

func progressBar(progress float64, animated bool) string {
	n := int(progress / 100 * barWidth)
	if n > barWidth {
		n = barWidth
	}
	if n < 0 {
		n = 0
	}
	bar := strings.Repeat("█", n) + strings.Repeat("·", barWidth-n)
	if animated {
		return fmt.Sprintf("%s %3.0f%% …", bar, progress)
	}
	return fmt.Sprintf("%s %3.0f%%", bar, progress)
}

func topLine(t panel.TopView) string {
	var parts []string
	if t.Loading {
		parts = append(parts, panel.MsgLoading)
	}
	if t.ShowNPS {
		parts = append(parts, t.NPS)
	}
	if t.ShowEval {
		parts = append(parts, t.Score.String(), fmt.Sprintf("depth %d", t.Depth))
	}
	return strings.Join(parts, " | ")
}

func scoreColor(v int) string {
	switch {
	case v > 0:
		return greenF
	case v < 0:
		return redF
	default:
	}
	return ""
}
