package respond_test

import (
	"testing"

	"github.com/sabouaram/httpengine/httpserver/respond"
)

func TestDecideKeepAlive_ShutdownOverridesEverything(t *testing.T) {
	d := respond.DecideKeepAlive(respond.Config{KeepAlive: respond.KeepAliveDefault}, true, false, true, 0)
	if !d.CloseAfter || d.Connection != "close" {
		t.Errorf("got %+v, want forced close", d)
	}
}

func TestDecideKeepAlive_MaxReqsCapForcesClose(t *testing.T) {
	cfg := respond.Config{KeepAlive: respond.KeepAliveDefault, MaxReqsPerConn: 5}
	d := respond.DecideKeepAlive(cfg, true, false, false, 5)
	if !d.CloseAfter {
		t.Error("expected close when reqsOnConn reaches the cap")
	}
}

func TestDecideKeepAlive_ModeClose(t *testing.T) {
	d := respond.DecideKeepAlive(respond.Config{KeepAlive: respond.KeepAliveClose}, true, false, false, 0)
	if !d.CloseAfter {
		t.Error("close mode always closes")
	}
}

func TestDecideKeepAlive_ModeRequest(t *testing.T) {
	cfg := respond.Config{KeepAlive: respond.KeepAliveRequest}

	d := respond.DecideKeepAlive(cfg, true, false, false, 0)
	if d.CloseAfter {
		t.Error("request mode should keep open when client requested keep-alive")
	}

	d2 := respond.DecideKeepAlive(cfg, false, false, false, 0)
	if !d2.CloseAfter {
		t.Error("request mode should close when client did not request keep-alive")
	}
}

func TestDecideKeepAlive_ModeDefault(t *testing.T) {
	cfg := respond.Config{KeepAlive: respond.KeepAliveDefault}

	d := respond.DecideKeepAlive(cfg, false, false, false, 0)
	if d.CloseAfter {
		t.Error("default mode should keep open unless client said close")
	}

	d2 := respond.DecideKeepAlive(cfg, false, true, false, 0)
	if !d2.CloseAfter {
		t.Error("default mode should close when client said close")
	}
}

func TestDecideKeepAlive_ConnectionAgreesWithCloseAfter(t *testing.T) {
	cases := []respond.KeepAliveDecision{
		respond.DecideKeepAlive(respond.Config{KeepAlive: respond.KeepAliveClose}, true, false, false, 0),
		respond.DecideKeepAlive(respond.Config{KeepAlive: respond.KeepAliveDefault}, false, false, false, 0),
	}
	for _, d := range cases {
		wantClose := d.Connection == "close"
		if wantClose != d.CloseAfter {
			t.Errorf("Connection %q disagrees with CloseAfter %v", d.Connection, d.CloseAfter)
		}
	}
}
