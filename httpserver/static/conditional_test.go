package static_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sabouaram/httpengine/httpserver/static"
)

func statTempFile(t *testing.T, content string) os.FileInfo {
	t.Helper()
	dir := t.TempDir()
	full := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(full)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return info
}

func TestNotModified_IfNoneMatchExact(t *testing.T) {
	info := statTempFile(t, "hi")
	etag := static.ETag(info)

	if !static.NotModified(info, etag, "") {
		t.Error("expected match on identical ETag")
	}
}

func TestNotModified_IfNoneMatchWildcard(t *testing.T) {
	info := statTempFile(t, "hi")

	if !static.NotModified(info, "*", "") {
		t.Error("expected wildcard to always match")
	}
}

func TestNotModified_IfNoneMatchMismatch(t *testing.T) {
	info := statTempFile(t, "hi")

	if static.NotModified(info, `"bogus-etag"`, "") {
		t.Error("mismatched ETag should not be considered not-modified")
	}
}

func TestNotModified_IfModifiedSinceAfterMtime(t *testing.T) {
	info := statTempFile(t, "hi")
	future := info.ModTime().Add(time.Hour).Truncate(time.Second)

	if !static.NotModified(info, "", future.Format(time.RFC1123)) {
		t.Error("expected not-modified when If-Modified-Since is after mtime")
	}
}

func TestNotModified_IfModifiedSinceBeforeMtime(t *testing.T) {
	info := statTempFile(t, "hi")
	past := info.ModTime().Add(-time.Hour).Truncate(time.Second)

	if static.NotModified(info, "", past.Format(time.RFC1123)) {
		t.Error("expected modified when If-Modified-Since predates mtime")
	}
}

func TestNotModified_NoConditionalHeaders(t *testing.T) {
	info := statTempFile(t, "hi")

	if static.NotModified(info, "", "") {
		t.Error("expected false when neither conditional header is set")
	}
}

func TestNotModified_MalformedIfModifiedSinceIgnored(t *testing.T) {
	info := statTempFile(t, "hi")

	if static.NotModified(info, "", "not-a-date") {
		t.Error("malformed If-Modified-Since should be ignored, not treated as a match")
	}
}

func TestNotModified_IfNoneMatchTakesPriorityOverDate(t *testing.T) {
	info := statTempFile(t, "hi")
	past := info.ModTime().Add(-time.Hour).Truncate(time.Second)

	if static.NotModified(info, `"bogus-etag"`, past.Format(time.RFC1123)) {
		t.Error("If-None-Match mismatch should win over a stale If-Modified-Since")
	}
}
