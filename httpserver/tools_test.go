package httpserver_test

import (
	"context"
	"net"
	"testing"

	"github.com/sabouaram/httpengine/httpserver"
)

func TestPortNotUse_FreePort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if err := httpserver.PortNotUse(context.Background(), addr); err != nil {
		t.Errorf("expected freed port to report not-in-use, got %v", err)
	}
}

func TestPortInUse_BoundPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if err := httpserver.PortInUse(context.Background(), ln.Addr().String()); err == nil {
		t.Error("expected PortInUse to report the bound listener as in use")
	}
}

func TestPortInUse_FreePort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if err := httpserver.PortInUse(context.Background(), addr); err != nil {
		t.Errorf("expected freed port to report not-in-use, got %v", err)
	}
}
