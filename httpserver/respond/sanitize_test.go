package respond_test

import (
	"net/http"
	"testing"

	"github.com/sabouaram/httpengine/httpserver/respond"
)

func TestSanitizeHeaders_CleanAllStripsControlBytes(t *testing.T) {
	h := http.Header{"X-Custom": []string{"hello\x00world\x7f!"}}
	respond.SanitizeHeaders(h, true)

	if h.Get("X-Custom") != "helloworld!" {
		t.Errorf("got %q", h.Get("X-Custom"))
	}
}

func TestSanitizeHeaders_CleanAllStripsHighBytes(t *testing.T) {
	h := http.Header{"X-Custom": []string{"caf\xe9 noise"}}
	respond.SanitizeHeaders(h, true)

	if h.Get("X-Custom") != "caf noise" {
		t.Errorf("got %q", h.Get("X-Custom"))
	}
}

func TestSanitizeHeaders_DisabledOnlyCleansLocation(t *testing.T) {
	h := http.Header{
		"Location": []string{"/next\x00"},
		"X-Custom": []string{"raw\x00value"},
	}
	respond.SanitizeHeaders(h, false)

	if h.Get("Location") != "/next" {
		t.Errorf("Location = %q, want cleaned", h.Get("Location"))
	}
	if h.Get("X-Custom") != "raw\x00value" {
		t.Errorf("X-Custom should be untouched when clean_headers is off")
	}
}

func TestSanitizeHeaders_NoLocationIsNoop(t *testing.T) {
	h := http.Header{"X-Custom": []string{"raw\x00value"}}
	respond.SanitizeHeaders(h, false)

	if h.Get("X-Custom") != "raw\x00value" {
		t.Error("expected no change when Location is absent and clean_headers is off")
	}
}
