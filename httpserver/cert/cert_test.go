package cert_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sabouaram/httpengine/httpserver/cert"
)

func TestNew_LoadsInitialBundle(t *testing.T) {
	pair := generateTempCert(t)

	m, err := cert.New("test", cert.Bundle{KeyFile: pair.KeyFile, CertFile: pair.CertFile})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tc := m.TLSConfig()
	if tc == nil {
		t.Fatal("TLSConfig() returned nil")
	}
	if len(tc.Certificates) == 0 && tc.GetCertificate == nil {
		t.Error("expected a usable certificate in the tls.Config")
	}
}

func TestNew_MissingFileFails(t *testing.T) {
	_, err := cert.New("test", cert.Bundle{KeyFile: "/nonexistent/key.pem", CertFile: "/nonexistent/cert.pem"})
	if err == nil {
		t.Fatal("expected an error for missing cert files")
	}
}

func TestPoll_ReloadsOnMtimeChange(t *testing.T) {
	pair := generateTempCert(t)

	m, err := cert.New("test", cert.Bundle{KeyFile: pair.KeyFile, CertFile: pair.CertFile})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before := m.TLSConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go m.Poll(ctx, 10*time.Millisecond)

	// Touch the cert file's mtime to simulate a rotated file on disk.
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(pair.CertFile, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.TLSConfig() != before {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Error("bundle was not reloaded after mtime change")
}

func TestNew_BadCAKeepsError(t *testing.T) {
	pair := generateTempCert(t)

	_, err := cert.New("test", cert.Bundle{
		KeyFile:  pair.KeyFile,
		CertFile: pair.CertFile,
		CAFile:   "/nonexistent/ca.pem",
	})
	if err == nil {
		t.Fatal("expected an error for a missing CA file")
	}
}
