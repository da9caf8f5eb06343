package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"evilanalysis/src/base"
	"evilanalysis/src/chesslib/rules"
	"evilanalysis/src/config"
	"evilanalysis/src/engine/manager"
	"evilanalysis/src/logx"
	"evilanalysis/src/state"
	clic "evilanalysis/src/ui/cli"
	"evilanalysis/src/ui/events"
	"evilanalysis/src/ui/gui"
	"evilanalysis/src/ui/gui/gbase"
	"evilanalysis/src/ui/panel"
	"evilanalysis/src/ui/session"
)

const (
	logfile string = "evilanalysis.log"
	mainTab string = "main"
)

func GetLogger(file *os.File, c *cli.Command) *logx.Logx {
	return logx.NewLogx(logx.Config{
		Level:   c.String("level"),
		Dev:     c.Bool("dev"),
		Console: c.Bool("console"),
	}, file)
}

type app struct {
	cfg    *config.Config
	store  *state.Memory
	bus    *events.Bus
	sess   *session.Session
	mgr    *manager.Manager
	logger *logx.Logx
}

func newApp(c *cli.Command, logger *logx.Logx) (*app, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if path := c.String("engine"); path != "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, err := cfg.AddEngine(name, path); err != nil {
			logger.Warnf("engine from flag: %v", err)
		}
		cfg.Selected = name
	}

	store := state.NewMemory(mainTab)
	store.SetEngines(cfg.Engines)
	if cfg.Selected != "" {
		if err := store.SelectEngine(cfg.Selected); err != nil {
			logger.Warnf("%v", err)
		}
	}
	if c.Bool("analyse") {
		if e, ok := store.Engine(store.SelectedEngine()); ok {
			s := base.DefaultSettings(e)
			s.Enabled = true
			store.SetSettings(e.Name, mainTab, s)
		}
	}
	if c.Bool("threat") {
		store.SetThreat(mainTab, true)
	}

	fen := c.String("fen")
	moves := strings.Fields(strings.ReplaceAll(c.String("moves"), ",", " "))
	if pgn := c.String("pgn"); pgn != "" {
		file, err := os.Open(pgn)
		if err != nil {
			return nil, fmt.Errorf("error open file: %w", err)
		}
		defer file.Close()
		if fen, moves, err = rules.LoadPGN(file); err != nil {
			return nil, err
		}
	}
	bus := events.NewBus()
	p := panel.New(store, rules.Chess{}, bus, logger.Named("panel"))
	sess := session.New(store, p, fen, moves, base.ColorFromString(c.String("orientation")), logger.Named("session"))
	mgr := manager.New(store, manager.UCIFactory(logger.Named("uci")), logger.Named("manager"))

	logger.Infof("loaded %d engines from %s", len(cfg.Engines), cfg.File())
	return &app{cfg: cfg, store: store, bus: bus, sess: sess, mgr: mgr, logger: logger}, nil
}

// run drives the engine manager next to ui. ui runs on the calling
// goroutine since ebiten needs the main thread.
func (a *app) run(ctx context.Context, ui func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.mgr.Run(gctx)
	})

	err := ui(gctx)
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

func openLog() (*os.File, error) {
	file, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("error open logfile: %w", err)
	}
	return file, nil
}

func RunGUI(ctx context.Context, c *cli.Command) error {
	file, err := openLog()
	if err != nil {
		return err
	}
	defer file.Close()
	logger := GetLogger(file, c)
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(c, logger)
	if err != nil {
		logger.Errorf("error init GUI: %v", err)
		return fmt.Errorf("error init GUI: %w", err)
	}
	g := gui.NewGUI(a.sess, a.store, a.bus, a.cfg, logger.Named("gui"))
	err = a.run(ctx, func(context.Context) error {
		return g.Run()
	})
	if errors.Is(err, gbase.ErrExit) {
		return nil
	}
	return err
}

func RunCLI(ctx context.Context, c *cli.Command) error {
	file, err := openLog()
	if err != nil {
		return err
	}
	defer file.Close()
	logger := GetLogger(file, c)
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(c, logger)
	if err != nil {
		return err
	}
	clic.EnableANSI()
	cl := clic.NewCLI(a.sess, a.store, logger.Named("cli"))
	run := cl.Run
	if c.Bool("lines") {
		run = cl.RunLineMode
	}
	return a.run(ctx, run)
}

func RunEvilAnalysis() error {
	ff := &cli.StringFlag{
		Name:  "fen",
		Usage: "position to analyse, FEN format",
		Value: base.FEN_START_GAME,
	}
	mf := &cli.StringFlag{
		Name:    "moves",
		Aliases: []string{"m"},
		Usage:   "moves played from the position, UCI notation separated by spaces or commas",
	}
	pf := &cli.StringFlag{
		Name:  "pgn",
		Usage: "path to a PGN file, replaces --fen and --moves",
	}
	ef := &cli.StringFlag{
		Name:    "engine",
		Aliases: []string{"e"},
		Usage:   "path to a UCI engine, added to the configured ones",
	}
	af := &cli.BoolFlag{
		Name:    "analyse",
		Aliases: []string{"a"},
		Usage:   "enable the selected engine at start",
	}
	tf := &cli.BoolFlag{
		Name:  "threat",
		Usage: "start in threat mode",
	}
	of := &cli.StringFlag{
		Name:  "orientation",
		Usage: "board orientation, white/black",
		Value: "white",
	}
	conf := &cli.StringFlag{
		Name:  "config",
		Usage: "path to the config file",
		Value: config.DefaultFile,
	}
	df := &cli.BoolFlag{
		Name:    "dev",
		Aliases: []string{"d"},
		Usage:   "dev encode log",
	}
	lf := &cli.StringFlag{
		Name:        "level",
		Aliases:     []string{"l"},
		Usage:       "level log",
		DefaultText: "info",
	}
	cf := &cli.BoolFlag{
		Name:    "console",
		Aliases: []string{"c"},
		Usage:   "console log",
	}
	lmf := &cli.BoolFlag{
		Name:  "lines",
		Usage: "read commands line by line instead of raw keys",
	}
	// root flags are inherited by the subcommands
	common := []cli.Flag{ff, mf, pf, ef, af, tf, of, conf, df, lf, cf}

	return (&cli.Command{
		Name:  "evilanalysis",
		Usage: "chess engine analysis panel",
		Flags: common,
		Commands: []*cli.Command{
			{
				Name:   "cli",
				Usage:  "analysis in the terminal",
				Flags:  []cli.Flag{lmf},
				Action: RunCLI,
			},
			{
				Name:   "gui",
				Usage:  "analysis window",
				Action: RunGUI,
			},
		},
		Action: RunGUI,
	}).Run(context.Background(), os.Args)
}
