package gui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"evilanalysis/src/config"
	"evilanalysis/src/logx"
	"evilanalysis/src/state"
	"evilanalysis/src/ui/events"
	"evilanalysis/src/ui/gui/gbase"
	"evilanalysis/src/ui/gui/gdraw"
	"evilanalysis/src/ui/gui/ghelper"
	"evilanalysis/src/ui/gui/ghelper/gclipboard"
	"evilanalysis/src/ui/gui/ghelper/gdialog"
	"evilanalysis/src/ui/panel"
	"evilanalysis/src/ui/session"
)

// ticks between two reads of the deferred lines
const flushTicks = 6

type action struct {
	btn *ghelper.Button
	run func() error
}

type GUIProcessing struct {
	sess  *session.Session
	store *state.Memory
	cfg   *config.Config
	logx  logx.Logger
	theme gbase.Palette
	face  font.Face

	header   []*action
	settings []*action
	drawer   *gdraw.PanelDrawer

	threatBtn, settingsBtn       *ghelper.Button
	enabledBtn, syncedBtn, goBtn *ghelper.Button

	changes  chan state.Change
	uiEvents chan events.Event
	unsub    []func()

	view          panel.View
	status        string
	lastTick      time.Time
	prevMouseDown bool
	ticks         int
}

func NewGUI(sess *session.Session, store *state.Memory, bus *events.Bus, cfg *config.Config, l logx.Logger) *GUIProcessing {
	gp := &GUIProcessing{
		sess:     sess,
		store:    store,
		cfg:      cfg,
		logx:     l,
		theme:    gbase.PaletteFromString(cfg.Theme),
		face:     basicfont.Face7x13,
		changes:  make(chan state.Change, 256),
		uiEvents: make(chan events.Event, 8),
		lastTick: time.Now(),
	}
	gp.unsub = append(gp.unsub, store.Subscribe(gp.changes), bus.Subscribe(gp.uiEvents))
	gp.layout()
	return gp
}

func (gp *GUIProcessing) layout() {
	p := gbase.Padding
	w := (gp.cfg.WindowW - 2*p - 3*gbase.ButtonGap) / 4
	btn := func(row, col int, label string) *ghelper.Button {
		x := p + col*(w+gbase.ButtonGap)
		y := p + gbase.LineH + row*(gbase.ButtonH+gbase.ButtonGap)
		return ghelper.NewButton(label, x, y, w, gbase.ButtonH, gp.theme)
	}
	cmd := func(c session.Command) func() error {
		return func() error {
			gp.sess.Do(c)
			return nil
		}
	}

	gp.threatBtn = btn(1, 0, "Threat")
	gp.settingsBtn = btn(1, 1, "Settings")
	gp.header = []*action{
		{btn(0, 0, "Engine >"), cmd(session.CmdNextEngine)},
		{btn(0, 1, "Add engine"), gp.addEngine},
		{btn(0, 2, "Paste FEN"), gp.pasteFEN},
		{btn(0, 3, "Flip"), cmd(session.CmdFlip)},
		{gp.threatBtn, cmd(session.CmdThreat)},
		{gp.settingsBtn, cmd(session.CmdSettings)},
		{btn(1, 2, "< Move"), cmd(session.CmdBack)},
		{btn(1, 3, "Move >"), cmd(session.CmdForward)},
	}

	gp.enabledBtn = btn(2, 0, "Enabled")
	gp.syncedBtn = btn(2, 1, "Synced")
	gp.goBtn = btn(3, 0, "Go")
	gp.settings = []*action{
		{gp.enabledBtn, cmd(session.CmdEnable)},
		{gp.syncedBtn, cmd(session.CmdSynced)},
		{btn(2, 2, "MultiPV -"), cmd(session.CmdMultiPVDown)},
		{btn(2, 3, "MultiPV +"), cmd(session.CmdMultiPVUp)},
		{gp.goBtn, cmd(session.CmdGoMode)},
	}

	top := p + gbase.LineH + 4*(gbase.ButtonH+gbase.ButtonGap) + p
	gp.drawer = gdraw.NewPanelDrawer(p, top, gp.cfg.WindowW-2*p, gp.cfg.WindowH-top-gbase.LineH-p, gp.face, gp.theme)
}

func (gp *GUIProcessing) Run() error {
	defer func() {
		for _, u := range gp.unsub {
			u()
		}
	}()
	ebiten.SetWindowSize(gp.cfg.WindowW, gp.cfg.WindowH)
	ebiten.SetWindowTitle("EvilAnalysis")
	return ebiten.RunGame(gp)
}

func (gp *GUIProcessing) addEngine() error {
	res, err := gdialog.OpenEngine("Select UCI engine")
	if errors.Is(err, gdialog.ErrCancelled) {
		return nil
	} else if err != nil {
		return err
	}
	e, err := gp.cfg.AddEngine(res.Name, res.Path)
	if err != nil {
		return err
	}
	if err := gp.store.AddEngine(e); err != nil {
		return err
	}
	if err := gp.cfg.Save(); err != nil {
		gp.logx.Warnf("save config: %v", err)
	}
	if err := gp.sess.Panel().SelectEngine(e.Name); err != nil {
		return err
	}
	gp.status = "added " + e.Name
	return nil
}

func (gp *GUIProcessing) pasteFEN() error {
	s, err := gclipboard.ReadAll()
	if err != nil {
		return err
	}
	gp.sess.SetGame(strings.TrimSpace(s), nil)
	gp.status = "position pasted"
	return nil
}

// copyLine puts the line under the cursor on the clipboard.
func (gp *GUIProcessing) copyLine(mx, my int) {
	l, ok := gp.drawer.LineAt(mx, my)
	if !ok {
		return
	}
	if err := gclipboard.WriteAll(l.Notation()); err != nil {
		gp.status = fmt.Sprintf("copy failed: %v", err)
		return
	}
	gp.status = "line copied"
}

func (gp *GUIProcessing) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return gbase.ErrExit
	}

	now := time.Now()
	dt := now.Sub(gp.lastTick).Seconds()
	gp.lastTick = now
	gp.ticks++

	gp.drain()
	if gp.ticks%flushTicks == 0 {
		gp.sess.Panel().Flush()
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		gp.sess.Do(session.CmdBack)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		gp.sess.Do(session.CmdForward)
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		gp.sess.Do(session.CmdThreat)
	}

	mx, my := ebiten.CursorPosition()
	mouseDown := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	justPressed := mouseDown && !gp.prevMouseDown
	justReleased := !mouseDown && gp.prevMouseDown
	gp.prevMouseDown = mouseDown

	actions := gp.header
	if gp.view.Header.SettingsOpen {
		actions = append(append([]*action(nil), gp.header...), gp.settings...)
	}
	for _, a := range actions {
		clicked := a.btn.HandleInput(mx, my, justPressed, justReleased)
		a.btn.UpdateAnim(dt)
		if clicked {
			if err := a.run(); err != nil {
				gp.logx.Errorf("%s: %v", a.btn.Label, err)
				gp.status = err.Error()
			}
		}
	}

	if _, dy := ebiten.Wheel(); dy != 0 {
		if gp.drawer.ScrollBy(-int(dy), len(gp.view.Rows)) {
			gp.sess.Do(session.CmdScroll)
		}
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		gp.copyLine(mx, my)
	}

	gp.drawer.Update(dt)
	gp.view, _ = gp.sess.Render()
	gp.syncButtons()
	return nil
}

// drain hands queued notifications to the panel without blocking the frame.
func (gp *GUIProcessing) drain() {
	for {
		select {
		case ch := <-gp.changes:
			gp.sess.Notify(ch)
		case ev := <-gp.uiEvents:
			// the settings popover closes when the lines scroll
			if ev == events.Scroll && gp.sess.Panel().SettingsOpen() {
				gp.sess.Do(session.CmdSettings)
			}
		default:
			return
		}
	}
}

func (gp *GUIProcessing) syncButtons() {
	h := gp.view.Header
	gp.threatBtn.On = h.Threat
	gp.threatBtn.Disabled = h.ThreatDisabled
	gp.settingsBtn.On = h.SettingsOpen
	gp.enabledBtn.On = gp.view.Settings.Enabled
	gp.syncedBtn.On = gp.view.Settings.Synced
	gp.goBtn.Label = "Go " + gp.view.Settings.Go.String()
}

func (gp *GUIProcessing) Draw(screen *ebiten.Image) {
	screen.Fill(gp.theme.Bg)

	h := gp.view.Header
	engine := h.Engine
	if engine == "" {
		engine = "no engine loaded"
	}
	title := fmt.Sprintf("%s   (%s)", engine, strings.Join(h.Engines, ", "))
	text.Draw(screen, title, gp.face, gbase.Padding, gbase.Padding+14, gp.theme.MenuText)

	for _, a := range gp.header {
		a.btn.DrawAnimated(screen, gp.face, gp.theme)
	}
	if h.SettingsOpen {
		label := fmt.Sprintf("MultiPV %d", gp.view.Settings.MultiPV())
		for _, a := range gp.settings {
			a.btn.DrawAnimated(screen, gp.face, gp.theme)
		}
		x := gp.goBtn.X + gp.goBtn.W + gbase.Padding
		text.Draw(screen, label, gp.face, x, gp.goBtn.Y+gp.goBtn.H/2+5, gp.theme.MenuText)
	}

	gp.drawer.Draw(screen, gp.view)

	cur, total := gp.sess.Cursor()
	footer := fmt.Sprintf("move %d/%d  %s", cur, total, gp.status)
	text.Draw(screen, footer, gp.face, gbase.Padding, gp.cfg.WindowH-gbase.Padding, gp.theme.DimText)
}

func (gp *GUIProcessing) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return gp.cfg.WindowW, gp.cfg.WindowH
}
