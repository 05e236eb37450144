package parser_test

import (
	"regexp"
	"testing"

	"github.com/sabouaram/httpengine/httpserver/parser"
)

func TestApplyRewrites_SubstitutesCaptureGroups(t *testing.T) {
	rewrites := []parser.Rewrite{
		{Match: regexp.MustCompile(`^/old/(\w+)$`), Replace: "/new/$1"},
	}

	got, headers := parser.ApplyRewrites(rewrites, "/old/42")
	if got != "/new/42" {
		t.Errorf("path = %q, want /new/42", got)
	}
	if len(headers) != 0 {
		t.Errorf("headers = %v, want empty", headers)
	}
}

func TestApplyRewrites_StopsAtLast(t *testing.T) {
	rewrites := []parser.Rewrite{
		{Match: regexp.MustCompile(`^/a$`), Replace: "/b", Last: true},
		{Match: regexp.MustCompile(`^/b$`), Replace: "/c"},
	}

	got, _ := parser.ApplyRewrites(rewrites, "/a")
	if got != "/b" {
		t.Errorf("path = %q, want /b (chain should stop at Last)", got)
	}
}

func TestApplyRewrites_MergesHeaders(t *testing.T) {
	rewrites := []parser.Rewrite{
		{Match: regexp.MustCompile(`^/x$`), Replace: "/x", Headers: map[string]string{"X-Test": "1"}},
	}

	_, headers := parser.ApplyRewrites(rewrites, "/x")
	if headers["X-Test"] != "1" {
		t.Errorf("headers[X-Test] = %q, want 1", headers["X-Test"])
	}
}

func TestDetectHTTPS_MatchesConfiguredHeader(t *testing.T) {
	detectors := []parser.HTTPSDetect{
		{Header: "X-Forwarded-Proto", Match: regexp.MustCompile(`^https$`)},
	}

	values := map[string]string{"X-Forwarded-Proto": "https"}
	got := parser.DetectHTTPS(detectors, func(name string) string { return values[name] })
	if !got {
		t.Error("expected DetectHTTPS to match")
	}
}

func TestDetectHTTPS_NoMatch(t *testing.T) {
	detectors := []parser.HTTPSDetect{
		{Header: "X-Forwarded-Proto", Match: regexp.MustCompile(`^https$`)},
	}

	got := parser.DetectHTTPS(detectors, func(string) string { return "http" })
	if got {
		t.Error("expected DetectHTTPS to not match")
	}
}

func TestParseQuery_RepeatedKeysSequence(t *testing.T) {
	v := parser.ParseQuery("x=1&x=2", false)
	if got := v["x"]; len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("x = %v, want [1 2]", got)
	}
}

func TestParseQuery_FlattenKeepsLast(t *testing.T) {
	v := parser.ParseQuery("x=1&x=2", true)
	if got := v["x"]; len(got) != 1 || got[0] != "2" {
		t.Errorf("x = %v, want [2]", got)
	}
}

func TestParseCookies_SplitsAndDecodes(t *testing.T) {
	cookies := parser.ParseCookies("a=1; b=hello%20world")
	if cookies["a"] != "1" {
		t.Errorf("a = %q, want 1", cookies["a"])
	}
	if cookies["b"] != "hello world" {
		t.Errorf("b = %q, want \"hello world\"", cookies["b"])
	}
}

func TestParseCookies_DropsMalformedPairs(t *testing.T) {
	cookies := parser.ParseCookies("a=1; malformed; b=2")
	if len(cookies) != 2 {
		t.Errorf("cookies = %v, want 2 entries", cookies)
	}
	if cookies["a"] != "1" || cookies["b"] != "2" {
		t.Errorf("cookies = %v", cookies)
	}
}

func TestParseCookies_Empty(t *testing.T) {
	cookies := parser.ParseCookies("")
	if len(cookies) != 0 {
		t.Errorf("cookies = %v, want empty", cookies)
	}
}
