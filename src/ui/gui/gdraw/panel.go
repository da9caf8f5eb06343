package gdraw

import (
	"fmt"
	"image"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font"

	"evilanalysis/src/ui/gui/gbase"
	"evilanalysis/src/ui/gui/ghelper"
	"evilanalysis/src/ui/panel"
)

// PanelDrawer draws the rows part of the panel view: progress bar, badges
// and lines. It remembers where each line went for hit testing.
type PanelDrawer struct {
	X, Y, W, H int
	Scroll     int // first visible row

	face  font.Face
	theme gbase.Palette
	phase float64 // animated progress stripe

	lineRects []image.Rectangle
	lines     []panel.LineRow
}

func NewPanelDrawer(x, y, w, h int, face font.Face, theme gbase.Palette) *PanelDrawer {
	return &PanelDrawer{X: x, Y: y, W: w, H: h, face: face, theme: theme}
}

// Update advances the progress animation, dt in seconds.
func (pd *PanelDrawer) Update(dt float64) {
	pd.phase += dt
	if pd.phase > 1 {
		pd.phase -= 1
	}
}

// ScrollBy moves the visible window; it reports whether it moved.
func (pd *PanelDrawer) ScrollBy(rows, total int) bool {
	next := pd.Scroll + rows
	if last := total - pd.visibleRows(); next > last {
		next = last
	}
	if next < 0 {
		next = 0
	}
	moved := next != pd.Scroll
	pd.Scroll = next
	return moved
}

func (pd *PanelDrawer) visibleRows() int {
	n := (pd.H - 2*gbase.LineH) / gbase.LineH
	if n < 1 {
		return 1
	}
	return n
}

// LineAt returns the line drawn under (px, py).
func (pd *PanelDrawer) LineAt(px, py int) (panel.LineRow, bool) {
	pt := image.Pt(px, py)
	for i, r := range pd.lineRects {
		if pt.In(r) {
			return pd.lines[i], true
		}
	}
	return panel.LineRow{}, false
}

func (pd *PanelDrawer) Draw(screen *ebiten.Image, v panel.View) {
	pd.lineRects = pd.lineRects[:0]
	pd.lines = pd.lines[:0]

	y := pd.Y
	pd.drawProgress(screen, y, v.Progress, v.Animated)
	y += gbase.ProgressH + gbase.Padding

	x := pd.X
	for _, badge := range badges(v.Top) {
		text.Draw(screen, badge, pd.face, x, y+12, pd.theme.Accent)
		x += text.BoundString(pd.face, badge).Dx() + 2*gbase.Padding
	}
	y += gbase.LineH

	rows := v.Rows
	if pd.Scroll > 0 && pd.Scroll < len(rows) {
		rows = rows[pd.Scroll:]
	}
	for i, r := range rows {
		if i >= pd.visibleRows() {
			break
		}
		pd.drawRow(screen, y, r)
		y += gbase.LineH
	}
}

func (pd *PanelDrawer) drawProgress(screen *ebiten.Image, y int, progress float64, animated bool) {
	w := float64(pd.W)
	ghelper.DrawRect(screen, float64(pd.X), float64(y), w, gbase.ProgressH, pd.theme.Placeholder)
	done := w * progress / 100
	ghelper.DrawRect(screen, float64(pd.X), float64(y), done, gbase.ProgressH, pd.theme.Accent)
	if animated && done > 0 {
		// stripe running over the filled part
		sw := done / 6
		sx := float64(pd.X) + (done-sw)*pd.phase
		ghelper.DrawRect(screen, sx, float64(y), sw, gbase.ProgressH, pd.theme.ButtonFill)
	}
}

func (pd *PanelDrawer) drawRow(screen *ebiten.Image, y int, r panel.Row) {
	switch r.Kind {
	case panel.RowMessage:
		text.Draw(screen, r.Message, pd.face, pd.X, y+14, pd.theme.MenuText)
	case panel.RowPlaceholder:
		ghelper.DrawRect(screen, float64(pd.X), float64(y+4), float64(pd.W), gbase.LineH-8, pd.theme.Placeholder)
	case panel.RowLine:
		l := r.Line
		col := pd.theme.MenuText
		switch {
		case l.Score.Value > 0:
			col = pd.theme.Good
		case l.Score.Value < 0:
			col = pd.theme.Bad
		}
		score := fmt.Sprintf("%7s", l.Score)
		text.Draw(screen, score, pd.face, pd.X, y+14, col)
		moves := clip(pd.face, l.Notation(), pd.W-64)
		text.Draw(screen, moves, pd.face, pd.X+64, y+14, pd.theme.MenuText)
		pd.lineRects = append(pd.lineRects, image.Rect(pd.X, y, pd.X+pd.W, y+gbase.LineH))
		pd.lines = append(pd.lines, l)
	}
}

func badges(t panel.TopView) []string {
	var out []string
	if t.Loading {
		// basicfont has no ellipsis glyph
		out = append(out, strings.ReplaceAll(panel.MsgLoading, "…", "..."))
	}
	if t.ShowNPS {
		out = append(out, t.NPS)
	}
	if t.ShowEval {
		out = append(out, "Eval "+t.Score.String(), fmt.Sprintf("Depth %d", t.Depth))
	}
	return out
}

// clip cuts s at a word boundary so that it fits into w pixels.
func clip(face font.Face, s string, w int) string {
	if text.BoundString(face, s).Dx() <= w {
		return s
	}
	words := strings.Fields(s)
	for len(words) > 1 {
		words = words[:len(words)-1]
		cut := strings.Join(words, " ") + " ..."
		if text.BoundString(face, cut).Dx() <= w {
			return cut
		}
	}
	return s
}
