package multipart_test

import (
	"bytes"
	"mime/multipart"
	"os"
	"strings"
	"testing"

	libmp "github.com/sabouaram/httpengine/multipart"
)

func writeMultipart(t *testing.T) (body *bytes.Buffer, contentType string) {
	t.Helper()

	body = &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("name", "alice"); err != nil {
		t.Fatal(err)
	}

	fw, err := w.CreateFormFile("upload", "hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("hello world")); err != nil {
		t.Fatal(err)
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	return body, w.FormDataContentType()
}

func TestParse_MultipartFieldsAndFiles(t *testing.T) {
	body, ct := writeMultipart(t)

	dir := t.TempDir()
	res, err := libmp.Parse(body, ct, dir, 1<<20)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := res.Fields.Get("name"); got != "alice" {
		t.Errorf("field name = %q, want alice", got)
	}

	files := res.Files["upload"]
	if len(files) != 1 {
		t.Fatalf("len(files) = %d, want 1", len(files))
	}

	f := files[0]
	if f.Name != "hello.txt" {
		t.Errorf("file name = %q, want hello.txt", f.Name)
	}
	if f.Size != int64(len("hello world")) {
		t.Errorf("file size = %d, want %d", f.Size, len("hello world"))
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("reading spilled file: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("spilled content = %q", data)
	}

	res.DeleteAll()
	if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
		t.Errorf("DeleteAll() should remove spilled temp files")
	}
}

func TestParse_TooLarge(t *testing.T) {
	body, ct := writeMultipart(t)

	_, err := libmp.Parse(body, ct, t.TempDir(), 4)
	if err == nil {
		t.Fatalf("expected an error for a body over the cap")
	}

	var tooLarge libmp.ErrTooLarge
	if !errorsAs(err, &tooLarge) {
		t.Errorf("error = %v, want ErrTooLarge", err)
	}
}

func TestParse_URLEncoded(t *testing.T) {
	body := strings.NewReader("a=1&a=2&b=hello")

	res, err := libmp.Parse(body, "application/x-www-form-urlencoded", "", 1<<20)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := res.Fields["a"]; len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("field a = %v, want [1 2]", got)
	}
	if got := res.Fields.Get("b"); got != "hello" {
		t.Errorf("field b = %q, want hello", got)
	}
}

func errorsAs(err error, target *libmp.ErrTooLarge) bool {
	if e, ok := err.(libmp.ErrTooLarge); ok {
		*target = e
		return true
	}
	return false
}
