/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package parser

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/sabouaram/httpengine/multipart"
)

var (
	// MultipartRegex matches Content-Type values the body router
	// delegates to the multipart/urlencoded parser.
	MultipartRegex = regexp.MustCompile(`(?i)multipart|urlencoded`)

	// JSONRegex matches Content-Type values parsed as a JSON body.
	JSONRegex = regexp.MustCompile(`(?i)application/json`)
)

// BodyKind tags which branch of spec §4.5's body routing a request
// took.
type BodyKind uint8

const (
	BodyNone BodyKind = iota
	BodyMultipart
	BodyJSON
	BodyRaw
)

// ErrBodyTooLarge signals that the body exceeded the configured cap;
// the caller must destroy the socket without writing a response, per
// spec §4.5.
var ErrBodyTooLarge = errors.New("body exceeds configured maximum size")

// BodyResult is the parser's body-handling outcome merged into the
// Request's Params/Files.
type BodyResult struct {
	Kind   BodyKind
	Params url.Values
	JSON   any
	Raw    []byte
	Files  map[string][]multipart.File
}

// ParseBody implements spec §4.5's body routing. method/hasLength/
// hasTransferEncoding determine whether a body is expected at all;
// contentType and contentEncoding gate the multipart/JSON branches
// (an encoded body always falls through to the raw branch, since
// decoding is not this layer's job); maxSize is the hard cap.
func ParseBody(r io.Reader, method, contentType, contentEncoding string, hasLength, hasTransferEncoding bool, maxSize int64, tempDir string) (BodyResult, error) {
	if method == http.MethodHead || (!hasLength && !hasTransferEncoding) {
		return BodyResult{Kind: BodyNone}, nil
	}

	if contentEncoding == "" && MultipartRegex.MatchString(contentType) {
		res, err := multipart.Parse(r, contentType, tempDir, maxSize)
		if err != nil {
			res.DeleteAll() // discard any parts already spilled to disk before the failure
			var tooLarge multipart.ErrTooLarge
			if errors.As(err, &tooLarge) {
				return BodyResult{}, ErrBodyTooLarge
			}
			return BodyResult{}, err
		}
		return BodyResult{Kind: BodyMultipart, Params: res.Fields, Files: res.Files}, nil
	}

	raw, err := readCapped(r, maxSize)
	if err != nil {
		return BodyResult{}, err
	}

	if contentEncoding == "" && JSONRegex.MatchString(contentType) {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return BodyResult{}, err
		}
		return BodyResult{Kind: BodyJSON, JSON: v}, nil
	}

	return BodyResult{Kind: BodyRaw, Raw: raw}, nil
}

func readCapped(r io.Reader, maxSize int64) ([]byte, error) {
	limited := io.LimitReader(r, maxSize+1)
	buf, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) > maxSize {
		return nil, ErrBodyTooLarge
	}
	return buf, nil
}
