package ghelper

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font"

	"evilanalysis/src/ui/gui/gbase"
)

// ---- Button ----

type Button struct {
	Label      string
	X, Y, W, H int
	Image      *ebiten.Image // pre-rendered rounded rect with stroke
	Active     *ebiten.Image // drawn instead of Image while On
	On         bool
	Disabled   bool

	Hover         bool
	Pressed       bool
	Scale         float64
	TargetScale   float64
	OffsetY       float64
	TargetOffsetY float64
	AnimSpeed     float64 // per second
}

func NewButton(label string, x, y, w, h int, theme gbase.Palette) *Button {
	return &Button{
		Label:       label,
		X:           x,
		Y:           y,
		W:           w,
		H:           h,
		Image:       RenderRoundedRect(w, h, 8, theme.ButtonFill, theme.ButtonStroke, 1.5),
		Active:      RenderRoundedRect(w, h, 8, theme.ButtonFill, theme.Accent, 2.5),
		Scale:       1,
		TargetScale: 1,
	}
}

func (b *Button) Contains(px, py int) bool {
	return PointInRect(px, py, b.X, b.Y, b.W, b.H)
}

// HandleInput is called every Update; it reports a click released on the button.
func (b *Button) HandleInput(px, py int, justClicked, justReleased bool) bool {
	inside := b.Contains(px, py) && !b.Disabled
	b.Hover = inside

	if justClicked && inside {
		b.Pressed = true
		b.TargetScale = 0.96
		b.TargetOffsetY = 3.0
	}
	if justReleased {
		clicked := b.Pressed && inside
		b.Pressed = false
		b.TargetOffsetY = 0
		if clicked {
			b.TargetScale = 1.03
			return true
		}
		b.TargetScale = 1.0
	}
	if !b.Pressed {
		b.TargetOffsetY = 0
		if inside {
			b.TargetScale = 1.02
		} else {
			b.TargetScale = 1.0
		}
	}
	return false
}

// UpdateAnim approaches the target values, dt in seconds.
func (b *Button) UpdateAnim(dt float64) {
	if b.AnimSpeed <= 0 {
		b.AnimSpeed = 8.0
	}
	approach := func(cur *float64, target float64) {
		t := 1.0 - math.Exp(-b.AnimSpeed*dt)
		*cur = *cur*(1.0-t) + target*t
	}
	approach(&b.Scale, b.TargetScale)
	approach(&b.OffsetY, b.TargetOffsetY)

	// click bounce settles back
	if !b.Pressed && math.Abs(b.Scale-1.03) < 0.005 {
		b.TargetScale = 1.0
	}
}

func (b *Button) DrawAnimated(screen *ebiten.Image, face font.Face, theme gbase.Palette) {
	img := b.Image
	if b.On && b.Active != nil {
		img = b.Active
	}
	if img == nil {
		return
	}
	cx := float64(b.X + b.W/2)
	cy := float64(b.Y+b.H/2) + b.OffsetY

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-float64(img.Bounds().Dx())/2, -float64(img.Bounds().Dy())/2)
	op.GeoM.Scale(b.Scale, b.Scale)
	op.GeoM.Translate(cx, cy)
	op.Filter = ebiten.FilterLinear
	if b.Disabled {
		op.ColorScale.ScaleAlpha(0.4)
	}
	screen.DrawImage(img, op)

	col := theme.ButtonText
	if b.Disabled {
		col = theme.DimText
	}
	bounds := text.BoundString(face, b.Label)
	text.Draw(screen, b.Label, face, int(cx)-bounds.Dx()/2, int(cy)+bounds.Dy()/2, col)
}
