package httpserver_test

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sabouaram/httpengine/httpserver"
)

func TestServerConfig_YAMLRoundTrip(t *testing.T) {
	cfg := httpserver.ServerConfig{
		Name:     "api",
		HTTPPort: 8080,
		Admission: httpserver.AdmissionConfig{
			MaxConnections: 100,
			MaxConcurrent:  10,
			DefaultACL:     []string{"10.0.0.0/8"},
		},
		Routing: httpserver.RoutingConfig{
			Rewrites: map[string]httpserver.RewriteConfig{
				`^/old/(.*)$`: {URL: "/new/$1"},
			},
		},
		TLS: httpserver.TLSConfig{
			PollInterval: 30 * time.Second,
		},
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got httpserver.ServerConfig
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Name != cfg.Name {
		t.Errorf("Name = %q, want %q", got.Name, cfg.Name)
	}
	if got.HTTPPort != cfg.HTTPPort {
		t.Errorf("HTTPPort = %d, want %d", got.HTTPPort, cfg.HTTPPort)
	}
	if got.Admission.MaxConnections != cfg.Admission.MaxConnections {
		t.Errorf("Admission.MaxConnections = %d, want %d", got.Admission.MaxConnections, cfg.Admission.MaxConnections)
	}
	if len(got.Admission.DefaultACL) != 1 || got.Admission.DefaultACL[0] != "10.0.0.0/8" {
		t.Errorf("Admission.DefaultACL = %v, want [10.0.0.0/8]", got.Admission.DefaultACL)
	}
	rw, ok := got.Routing.Rewrites[`^/old/(.*)$`]
	if !ok || rw.URL != "/new/$1" {
		t.Errorf("Routing.Rewrites round-trip mismatch: %+v", got.Routing.Rewrites)
	}
	if got.TLS.PollInterval != cfg.TLS.PollInterval {
		t.Errorf("TLS.PollInterval = %v, want %v", got.TLS.PollInterval, cfg.TLS.PollInterval)
	}

	if err := got.Validate(); err != nil {
		t.Errorf("round-tripped config should still validate: %v", err)
	}
}
