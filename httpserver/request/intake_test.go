package request_test

import (
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/sabouaram/httpengine/acl"
	"github.com/sabouaram/httpengine/httpserver/request"
)

func TestCollectClientIPs_Precedence(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Client-IP", "1.1.1.1")
	r.Header.Set("X-Forwarded-For", "2.2.2.2, 3.3.3.3")
	r.Header.Set("Forwarded", `for=4.4.4.4`)
	r.RemoteAddr = "5.5.5.5:1234"

	ips := request.CollectClientIPs(r.Header, r.RemoteAddr)
	want := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4", "5.5.5.5"}

	if len(ips) != len(want) {
		t.Fatalf("len(ips) = %d, want %d (%v)", len(ips), len(want), ips)
	}
	for i, w := range want {
		if ips[i].String() != w {
			t.Errorf("ips[%d] = %s, want %s", i, ips[i], w)
		}
	}
}

func TestCollectClientIPs_IPv4InIPv6Stripped(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[::ffff:192.0.2.1]:1234"

	ips := request.CollectClientIPs(r.Header, r.RemoteAddr)
	if len(ips) != 1 || ips[0].String() != "192.0.2.1" {
		t.Errorf("ips = %v, want [192.0.2.1]", ips)
	}
}

func TestPublicIP_SkipsPrivateRanges(t *testing.T) {
	private := acl.New([]string{"10.0.0.0/8", "127.0.0.0/8"})
	ips := []net.IP{net.ParseIP("10.1.2.3"), net.ParseIP("8.8.8.8"), net.ParseIP("9.9.9.9")}

	got := request.PublicIP(ips, private, 0)
	if got.String() != "8.8.8.8" {
		t.Errorf("PublicIP = %s, want 8.8.8.8", got)
	}
}

func TestPublicIP_AllPrivateFallsBackToFirst(t *testing.T) {
	private := acl.New([]string{"10.0.0.0/8"})
	ips := []net.IP{net.ParseIP("10.1.2.3"), net.ParseIP("10.4.5.6")}

	got := request.PublicIP(ips, private, 0)
	if got.String() != "10.1.2.3" {
		t.Errorf("PublicIP = %s, want 10.1.2.3", got)
	}
}

func TestPublicIP_NegativeOffsetFromEnd(t *testing.T) {
	ips := []net.IP{net.ParseIP("1.1.1.1"), net.ParseIP("2.2.2.2"), net.ParseIP("3.3.3.3")}

	got := request.PublicIP(ips, nil, -1)
	if got.String() != "3.3.3.3" {
		t.Errorf("PublicIP with offset -1 = %s, want 3.3.3.3", got)
	}
}

func TestPreQueueConfig_Evaluate_MissingRemoteAddr(t *testing.T) {
	var c request.PreQueueConfig
	_, rej := c.Evaluate("", nil, "example.com", "/")
	if rej == nil || rej.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 rejection, got %v", rej)
	}
}

func TestPreQueueConfig_Evaluate_Shutdown(t *testing.T) {
	c := request.PreQueueConfig{Shutdown: func() bool { return true }}
	_, rej := c.Evaluate("1.2.3.4:80", nil, "example.com", "/")
	if rej == nil || rej.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 rejection, got %v", rej)
	}
}

func TestPreQueueConfig_Evaluate_BlacklistSkipsSocketIP(t *testing.T) {
	c := request.PreQueueConfig{
		Blacklist: acl.New([]string{"9.9.9.9/32"}),
	}

	// The remote socket IP itself is exempt from the blacklist check.
	_, rej := c.Evaluate("9.9.9.9:80", []net.IP{net.ParseIP("9.9.9.9")}, "x", "/")
	if rej != nil {
		t.Fatalf("socket ip should be exempt from blacklist check, got %v", rej)
	}

	_, rej = c.Evaluate("1.2.3.4:80", []net.IP{net.ParseIP("9.9.9.9"), net.ParseIP("1.2.3.4")}, "x", "/")
	if rej == nil || rej.Status != http.StatusForbidden {
		t.Fatalf("expected 403 rejection for forwarded blacklisted ip, got %v", rej)
	}
}

func TestPreQueueConfig_Evaluate_HostNotAllowed(t *testing.T) {
	c := request.PreQueueConfig{AllowHosts: []string{"good.example.com"}}
	_, rej := c.Evaluate("1.2.3.4:80", nil, "bad.example.com:443", "/")
	if rej == nil || rej.Status != http.StatusForbidden {
		t.Fatalf("expected 403 rejection for disallowed host, got %v", rej)
	}

	_, rej = c.Evaluate("1.2.3.4:80", nil, "GOOD.EXAMPLE.COM:443", "/")
	if rej != nil {
		t.Fatalf("allowed host (case-insensitive, port stripped) should pass, got %v", rej)
	}
}

func TestPreQueueConfig_Evaluate_QueueSkip(t *testing.T) {
	c := request.PreQueueConfig{QueueSkipMatch: regexp.MustCompile(`^/health$`)}
	skip, rej := c.Evaluate("1.2.3.4:80", nil, "x", "/health")
	if rej != nil || !skip {
		t.Fatalf("expected skip=true, rej=nil, got skip=%v rej=%v", skip, rej)
	}
}

func TestPreQueueConfig_Evaluate_ActiveAndPendingCaps(t *testing.T) {
	c := request.PreQueueConfig{
		MaxActive:   2,
		ActiveCount: func() int { return 2 },
	}
	_, rej := c.Evaluate("1.2.3.4:80", nil, "x", "/")
	if rej == nil || rej.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for active cap, got %v", rej)
	}

	c = request.PreQueueConfig{
		MaxPending:   2,
		PendingCount: func() int { return 5 },
	}
	_, rej = c.Evaluate("1.2.3.4:80", nil, "x", "/")
	if rej == nil || rej.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for pending cap, got %v", rej)
	}
}
