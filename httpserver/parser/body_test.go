package parser_test

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/sabouaram/httpengine/httpserver/parser"
)

func TestParseBody_HeadSkipsBody(t *testing.T) {
	res, err := parser.ParseBody(strings.NewReader("ignored"), http.MethodHead, "", "", true, false, 1024, t.TempDir())
	if err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if res.Kind != parser.BodyNone {
		t.Errorf("Kind = %v, want BodyNone", res.Kind)
	}
}

func TestParseBody_NoLengthOrTransferEncodingSkipsBody(t *testing.T) {
	res, err := parser.ParseBody(strings.NewReader("ignored"), http.MethodGet, "", "", false, false, 1024, t.TempDir())
	if err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if res.Kind != parser.BodyNone {
		t.Errorf("Kind = %v, want BodyNone", res.Kind)
	}
}

func TestParseBody_JSON(t *testing.T) {
	body := `{"x":1}`
	res, err := parser.ParseBody(strings.NewReader(body), http.MethodPost, "application/json", "", true, false, 1024, t.TempDir())
	if err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if res.Kind != parser.BodyJSON {
		t.Fatalf("Kind = %v, want BodyJSON", res.Kind)
	}
	m, ok := res.JSON.(map[string]any)
	if !ok || m["x"] != float64(1) {
		t.Errorf("JSON = %v", res.JSON)
	}
}

func TestParseBody_JSONParseFailure(t *testing.T) {
	_, err := parser.ParseBody(strings.NewReader("{not json"), http.MethodPost, "application/json", "", true, false, 1024, t.TempDir())
	if err == nil {
		t.Fatal("expected a JSON parse error")
	}
}

func TestParseBody_Raw(t *testing.T) {
	res, err := parser.ParseBody(strings.NewReader("hello"), http.MethodPost, "text/plain", "", true, false, 1024, t.TempDir())
	if err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if res.Kind != parser.BodyRaw || string(res.Raw) != "hello" {
		t.Errorf("result = %+v", res)
	}
}

func TestParseBody_TooLarge(t *testing.T) {
	_, err := parser.ParseBody(strings.NewReader("0123456789"), http.MethodPost, "text/plain", "", true, false, 5, t.TempDir())
	if err != parser.ErrBodyTooLarge {
		t.Fatalf("err = %v, want ErrBodyTooLarge", err)
	}
}

func TestParseBody_EncodedBodySkipsMultipartBranch(t *testing.T) {
	// Content-Encoding set means the multipart/JSON branches must not
	// fire even though the content type would otherwise match.
	res, err := parser.ParseBody(strings.NewReader(`{"x":1}`), http.MethodPost, "application/json", "gzip", true, false, 1024, t.TempDir())
	if err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if res.Kind != parser.BodyRaw {
		t.Errorf("Kind = %v, want BodyRaw when Content-Encoding is set", res.Kind)
	}
}

func writeMultipartBody(t *testing.T, fields map[string]string) (string, string) {
	t.Helper()

	var buf strings.Builder
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+k+`"`)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		_, _ = part.Write([]byte(v))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf.String(), w.FormDataContentType()
}

func TestParseBody_Multipart(t *testing.T) {
	body, contentType := writeMultipartBody(t, map[string]string{"a": "1"})

	res, err := parser.ParseBody(strings.NewReader(body), http.MethodPost, contentType, "", true, false, 1<<20, t.TempDir())
	if err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if res.Kind != parser.BodyMultipart {
		t.Fatalf("Kind = %v, want BodyMultipart", res.Kind)
	}
	if res.Params.Get("a") != "1" {
		t.Errorf("params[a] = %q, want 1", res.Params.Get("a"))
	}
}
