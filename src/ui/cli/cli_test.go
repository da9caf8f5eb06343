package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"evilanalysis/src/base"
	"evilanalysis/src/ui/panel"
	"evilanalysis/src/ui/session"
)

func TestDrawLines(t *testing.T) {
	v := panel.View{
		Header:   panel.Header{Engine: "sf", Engines: []string{"sf", "lc0"}},
		Progress: 50,
		Animated: true,
		Top:      panel.TopView{ShowNPS: true, NPS: "1.2M/s", ShowEval: true, Score: base.Score{Value: 35}, Depth: 12},
		Rows: []panel.Row{
			{Kind: panel.RowLine, Line: panel.LineRow{SAN: []string{"e5", "Nf3"}, HalfMoves: 1, Score: base.Score{Value: 35}}},
			{Kind: panel.RowLine, Line: panel.LineRow{SAN: []string{"c5"}, HalfMoves: 1, Score: base.Score{Type: base.ScoreMate, Value: -2}}},
		},
	}
	var buf bytes.Buffer
	Draw(&buf, v)
	out := buf.String()
	for _, want := range []string{"sf", "sf, lc0", "threat off", " 50%", "1.2M/s | +0.35 | depth 12", "1... e5 2. Nf3", "-M2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "enabled") {
		t.Errorf("closed settings drawn:\n%s", out)
	}
}

func TestDrawMessagesAndSettings(t *testing.T) {
	v := panel.View{
		Header:   panel.Header{Engine: "sf", SettingsOpen: true, ThreatDisabled: true},
		Settings: base.EngineSettings{Synced: true, Go: base.GoMode{Type: base.GoDepth, Value: 20}},
		Rows:     []panel.Row{{Kind: panel.RowMessage, Message: panel.MsgNotEnabled}},
	}
	var buf bytes.Buffer
	Draw(&buf, v)
	out := buf.String()
	for _, want := range []string{panel.MsgNotEnabled, "enabled off", "synced on", "multipv 1", "depth 20"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}

func TestReadKeys(t *testing.T) {
	keys := make(chan session.Command, 16)
	err := readKeys(bufio.NewReader(strings.NewReader("tx+\x1b[D\x1b[Cz\x03")), keys, make(chan struct{}))
	if err != nil {
		t.Fatalf("readKeys: %v", err)
	}
	close(keys)
	var got []session.Command
	for k := range keys {
		got = append(got, k)
	}
	want := []session.Command{session.CmdThreat, session.CmdEnable, session.CmdMultiPVUp, session.CmdBack, session.CmdForward, session.CmdQuit}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestReadKeysStopsWhenDone(t *testing.T) {
	keys := make(chan session.Command)
	done := make(chan struct{})
	close(done)
	errc := make(chan error, 1)
	go func() {
		errc <- readKeys(bufio.NewReader(strings.NewReader("ttt")), keys, done)
	}()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("readKeys: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("readKeys blocked on a loop that is gone")
	}
}

func TestParseLine(t *testing.T) {
	if cmd, ok := parseLine("undo"); !ok || cmd != session.CmdBack {
		t.Fatalf("undo = %q %v", cmd, ok)
	}
	if cmd, ok := parseLine("-"); !ok || cmd != session.CmdMultiPVDown {
		t.Fatalf("- = %q %v", cmd, ok)
	}
	if _, ok := parseLine("e2e4"); ok {
		t.Fatalf("moves are not commands")
	}
}

func TestCRLFWriter(t *testing.T) {
	var buf bytes.Buffer
	n, err := crlfWriter{&buf}.Write([]byte("a\nb\n"))
	if err != nil || n != 4 || buf.String() != "a\r\nb\r\n" {
		t.Fatalf("n=%d err=%v out=%q", n, err, buf.String())
	}
}
