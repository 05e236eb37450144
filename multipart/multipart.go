/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package multipart adapts the standard library's mime/multipart reader to
// the shape the request-lifecycle engine expects from its given multipart
// collaborator (spec §1): fields plus files, bounded by a size cap, with
// files carrying {path, type, name, size, mtime}.
package multipart

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"time"
)

// File describes one uploaded file, spilled to a temp file on disk.
type File struct {
	Path  string
	Type  string
	Name  string
	Size  int64
	Mtime time.Time
}

// Result is the normalized output of a multipart or urlencoded body parse.
type Result struct {
	Fields url.Values
	Files  map[string][]File
}

// ErrTooLarge is returned when the body exceeds the configured cap.
type ErrTooLarge struct{ Limit int64 }

func (e ErrTooLarge) Error() string {
	return fmt.Sprintf("multipart body exceeds the %d byte cap", e.Limit)
}

// Parse reads a multipart/form-data (or application/x-www-form-urlencoded)
// body from r up to maxSize bytes, spilling files into tempDir. Fields are
// collected as repeated query-style values; files keep their upload order
// per field name.
func Parse(r io.Reader, contentType, tempDir string, maxSize int64) (Result, error) {
	res := Result{
		Fields: url.Values{},
		Files:  make(map[string][]File),
	}

	boundary, isMultipart := boundaryOf(contentType)
	if !isMultipart {
		body, err := readCapped(r, maxSize)
		if err != nil {
			return res, err
		}
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return res, err
		}
		res.Fields = form
		return res, nil
	}

	cr := &cappedReader{r: r, limit: maxSize}
	mr := multipart.NewReader(cr, boundary)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}

		name := part.FormName()
		if part.FileName() == "" {
			buf, err := io.ReadAll(part)
			_ = part.Close()
			if err != nil {
				return res, err
			}
			res.Fields.Add(name, string(buf))
			continue
		}

		f, err := spillToTemp(part, tempDir)
		_ = part.Close()
		if err != nil {
			return res, err
		}

		f.Name = part.FileName()
		f.Type = part.Header.Get("Content-Type")
		res.Files[name] = append(res.Files[name], f)
	}

	if cr.read > cr.limit {
		return res, ErrTooLarge{Limit: maxSize}
	}

	return res, nil
}

func boundaryOf(contentType string) (boundary string, ok bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	if mediaType != "multipart/form-data" && mediaType != "multipart/mixed" {
		return "", false
	}
	return params["boundary"], true
}

func spillToTemp(r io.Reader, dir string) (File, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return File{}, err
	}
	defer func() { _ = tmp.Close() }()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return File{}, err
	}

	st, err := os.Stat(tmp.Name())
	mtime := time.Now()
	if err == nil {
		mtime = st.ModTime()
	}

	return File{
		Path:  tmp.Name(),
		Size:  n,
		Mtime: mtime,
	}, nil
}

func readCapped(r io.Reader, limit int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: limit + 1}
	buf, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) > limit {
		return nil, ErrTooLarge{Limit: limit}
	}
	return buf, nil
}

type cappedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.limit {
		return n, ErrTooLarge{Limit: c.limit}
	}
	return n, err
}

// DeleteAll removes every spilled temp file in res, ignoring errors for
// files already gone. Called on every request outcome (spec §5: "owned by
// the Request that created them and deleted in a finally-equivalent path").
func (r Result) DeleteAll() {
	for _, files := range r.Files {
		for _, f := range files {
			_ = os.Remove(f.Path)
		}
	}
}

// ContentTypeIsMultipart reports whether the header's Content-Type names a
// multipart body, used by the parser component to pick the body path.
func ContentTypeIsMultipart(h http.Header) bool {
	_, ok := boundaryOf(h.Get("Content-Type"))
	return ok
}
