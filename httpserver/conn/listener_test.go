package conn_test

import (
	"net"
	"testing"
	"time"

	"github.com/sabouaram/httpengine/acl"
	"github.com/sabouaram/httpengine/httpserver/conn"
)

func localListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func TestListener_AcceptsAndTracksConnection(t *testing.T) {
	inner := localListener(t)
	table := conn.NewTable()
	l := conn.Wrap(inner, conn.Config{Port: 1, Table: table})

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		accepted <- c
	}()

	client, err := net.Dial("tcp", inner.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	select {
	case c := <-accepted:
		if table.Len() != 1 {
			t.Errorf("table len = %d, want 1", table.Len())
		}
		_ = c.Close()

		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) && table.Len() != 0 {
			time.Sleep(5 * time.Millisecond)
		}
		if table.Len() != 0 {
			t.Errorf("table len after close = %d, want 0", table.Len())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
}

func TestListener_RejectsOverMaxConns(t *testing.T) {
	inner := localListener(t)
	table := conn.NewTable()
	table.Add(&conn.Connection{ID: "existing"})

	l := conn.Wrap(inner, conn.Config{Port: 1, Table: table, MaxConns: 1})

	done := make(chan struct{})
	go func() {
		defer close(done)
		client, err := net.Dial("tcp", inner.Addr().String())
		if err != nil {
			return
		}
		defer client.Close()
		buf := make([]byte, 1)
		client.SetReadDeadline(time.Now().Add(time.Second))
		_, _ = client.Read(buf) // expect EOF: server rejected and closed
	}()

	result := make(chan error, 1)
	go func() {
		c, err := l.Accept()
		if err == nil {
			_ = c.Close()
		}
		result <- err
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client goroutine did not finish")
	}

	// The accept loop should still be blocked waiting for a non-rejected
	// connection since the only dialed socket was over the max-conns cap.
	select {
	case err := <-result:
		t.Fatalf("Accept returned unexpectedly: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestListener_RejectsBlacklistedIP(t *testing.T) {
	inner := localListener(t)
	table := conn.NewTable()
	blacklist := acl.New([]string{"127.0.0.1/32"})

	l := conn.Wrap(inner, conn.Config{Port: 1, Table: table, Blacklist: blacklist})

	go func() {
		_, _ = l.Accept()
	}()

	client, err := net.Dial("tcp", inner.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = client.Read(buf)
	if err == nil {
		t.Error("expected the blacklisted connection to be closed by the server")
	}
}
