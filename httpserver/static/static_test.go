package static_test

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/sabouaram/httpengine/httpserver/static"
)

func newTestServer(t *testing.T, files map[string]string) *static.Server {
	t.Helper()
	dir := t.TempDir()

	for name, content := range files {
		full := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	s, err := static.New(static.Config{
		Root:        dir,
		Index:       "index.html",
		TextContent: regexp.MustCompile(`^text/`),
		CacheMaxAge: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestResolve_PlainFile(t *testing.T) {
	s := newTestServer(t, map[string]string{"hello.txt": "hi"})

	res, err := s.Resolve("/hello.txt", "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Info.Size() != 2 {
		t.Errorf("size = %d, want 2", res.Info.Size())
	}
}

func TestResolve_PathTraversalRejected(t *testing.T) {
	s := newTestServer(t, map[string]string{"hello.txt": "hi"})

	_, err := s.Resolve("/../../etc/passwd", "", false)
	if err != static.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolve_DirectoryWithoutSlashRedirects(t *testing.T) {
	s := newTestServer(t, map[string]string{"sub/index.html": "index"})

	_, err := s.Resolve("/sub", "", false)
	if err != static.ErrIsDirectoryNeedsSlash {
		t.Fatalf("err = %v, want ErrIsDirectoryNeedsSlash", err)
	}
}

func TestResolve_DirectoryWithSlashServesIndex(t *testing.T) {
	s := newTestServer(t, map[string]string{"sub/index.html": "index"})

	res, err := s.Resolve("/sub/", "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(res.Path) != "index.html" {
		t.Errorf("path = %q, want index.html", res.Path)
	}
}

func TestResolve_MissingFile(t *testing.T) {
	s := newTestServer(t, map[string]string{})

	_, err := s.Resolve("/nope.txt", "", false)
	if err != static.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolve_InternalFileBypassesBase(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "outside.html")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := newTestServer(t, map[string]string{"hello.txt": "hi"})

	res, err := s.Resolve("", outside, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Path != outside {
		t.Errorf("path = %q, want %q", res.Path, outside)
	}
}

func TestResolve_GzSiblingPreferredForTextContent(t *testing.T) {
	s := newTestServer(t, map[string]string{
		"hello.txt":     "hi",
		"hello.txt.gz": "compressed",
	})

	res, err := s.Resolve("/hello.txt", "", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.GzSibling == "" {
		t.Error("expected a .gz sibling to be preferred")
	}
}

func TestResolve_GzSiblingNotUsedWhenClientDoesNotAcceptGzip(t *testing.T) {
	s := newTestServer(t, map[string]string{
		"hello.txt":    "hi",
		"hello.txt.gz": "compressed",
	})

	res, err := s.Resolve("/hello.txt", "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.GzSibling != "" {
		t.Error("gz sibling should not be used when client did not request it")
	}
}

func TestETag_IsQuotedTriple(t *testing.T) {
	s := newTestServer(t, map[string]string{"hello.txt": "hi"})
	res, err := s.Resolve("/hello.txt", "", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	etag := static.ETag(res.Info)
	if etag[0] != '"' || etag[len(etag)-1] != '"' {
		t.Errorf("ETag = %q, want quoted", etag)
	}
}

func TestCacheControl_FormatsMaxAge(t *testing.T) {
	s := newTestServer(t, map[string]string{})
	if got := s.CacheControl(); got != "public, max-age=3600" {
		t.Errorf("CacheControl() = %q, want public, max-age=3600", got)
	}
}

func TestServe_NotFound(t *testing.T) {
	s := newTestServer(t, map[string]string{})
	res, _ := s.Serve(static.Request{URLPath: "/missing.txt"})
	if res.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.Status)
	}
}

func TestServe_DirectoryRedirect(t *testing.T) {
	s := newTestServer(t, map[string]string{"sub/index.html": "index"})
	res, _ := s.Serve(static.Request{URLPath: "/sub"})
	if res.Status != http.StatusMovedPermanently {
		t.Errorf("status = %d, want 301", res.Status)
	}
	if res.Header.Get("Location") != "/sub/" {
		t.Errorf("Location = %q, want /sub/", res.Header.Get("Location"))
	}
}

func TestServe_PlainFileOK(t *testing.T) {
	s := newTestServer(t, map[string]string{"hello.txt": "hi"})
	res, resolved := s.Serve(static.Request{URLPath: "/hello.txt"})
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	if res.Header.Get("ETag") == "" {
		t.Error("expected ETag header")
	}
	if resolved == nil {
		t.Fatal("expected resolved file info")
	}
}

func TestServe_ConditionalGetNotModified(t *testing.T) {
	s := newTestServer(t, map[string]string{"hello.txt": "hi"})
	first, resolved := s.Serve(static.Request{URLPath: "/hello.txt"})
	if first.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", first.Status)
	}
	_ = resolved

	etag := first.Header.Get("ETag")
	second, _ := s.Serve(static.Request{URLPath: "/hello.txt", IfNoneMatch: etag})
	if second.Status != http.StatusNotModified {
		t.Errorf("status = %d, want 304", second.Status)
	}
}

func TestServe_RangeRequestPartialContent(t *testing.T) {
	s := newTestServer(t, map[string]string{"hello.txt": "0123456789"})
	res, _ := s.Serve(static.Request{URLPath: "/hello.txt", RangeHeader: "bytes=0-3"})
	if res.Status != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", res.Status)
	}
	if res.Header.Get("Content-Range") != "bytes 0-3/10" {
		t.Errorf("Content-Range = %q", res.Header.Get("Content-Range"))
	}
}

func TestServe_InvalidRangeFallsBackToFullResponse(t *testing.T) {
	s := newTestServer(t, map[string]string{"hello.txt": "0123456789"})
	res, _ := s.Serve(static.Request{URLPath: "/hello.txt", RangeHeader: "bytes=9999-10000"})
	if res.Status != http.StatusOK {
		t.Errorf("status = %d, want 200 (ignore invalid range)", res.Status)
	}
}

func TestServe_GzSiblingSetsContentEncoding(t *testing.T) {
	s := newTestServer(t, map[string]string{
		"hello.txt":    "hi",
		"hello.txt.gz": "compressed-bytes",
	})
	res, resolved := s.Serve(static.Request{URLPath: "/hello.txt", AcceptsGzip: true})
	if res.Header.Get("Content-Encoding") != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", res.Header.Get("Content-Encoding"))
	}
	if resolved.GzSibling == "" {
		t.Error("expected resolved.GzSibling to be set")
	}
}
