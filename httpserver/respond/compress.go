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

package respond

import (
	"bytes"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// Encoding names the supported content codings, ordered by the
// priority spec §4.9 mandates: brotli beats gzip beats deflate.
type Encoding string

const (
	EncodingNone    Encoding = ""
	EncodingBrotli  Encoding = "br"
	EncodingGzip    Encoding = "gzip"
	EncodingDeflate Encoding = "deflate"
)

var priority = []Encoding{EncodingBrotli, EncodingGzip, EncodingDeflate}

// NegotiateEncoding picks the best encoding both the client's
// Accept-Encoding header and the server support, or EncodingNone.
func NegotiateEncoding(acceptEncoding string) Encoding {
	accepted := map[Encoding]bool{}
	for _, tok := range strings.Split(acceptEncoding, ",") {
		tok = strings.TrimSpace(tok)
		if semi := strings.IndexByte(tok, ';'); semi >= 0 {
			tok = tok[:semi]
		}
		accepted[Encoding(tok)] = true
	}

	for _, enc := range priority {
		if accepted[enc] {
			return enc
		}
	}
	return EncodingNone
}

// ShouldCompress implements spec §4.9's five-condition compression
// gate: body non-empty, status 200, not already Content-Encoded, the
// client accepts a supported encoding, and either the handler asked
// for it (forceCompress, the X-Compress signal) or the body is
// text-like per cfg.TextContent.
func ShouldCompress(cfg Config, bodyEmpty bool, status int, alreadyEncoded bool, acceptEncoding string, forceCompress bool, contentType string) (Encoding, bool) {
	if bodyEmpty || status != 200 || alreadyEncoded {
		return EncodingNone, false
	}

	enc := NegotiateEncoding(acceptEncoding)
	if enc == EncodingNone {
		return EncodingNone, false
	}

	textLike := cfg.TextContent != nil && cfg.TextContent.MatchString(contentType)
	if !forceCompress && !textLike {
		return EncodingNone, false
	}

	return enc, true
}

// CompressBuffer compresses data synchronously with the chosen
// encoding, for the buffered-body case (spec §4.9: "update
// Content-Length to the compressed size, then write").
func CompressBuffer(enc Encoding, data []byte) ([]byte, error) {
	var buf bytes.Buffer

	switch enc {
	case EncodingBrotli:
		w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

	case EncodingGzip:
		w, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

	case EncodingDeflate:
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

	default:
		return data, nil
	}

	return buf.Bytes(), nil
}

// CompressStream wraps w with an encoder for the chosen encoding; the
// caller drops Content-Length for streamed bodies (spec §4.9).
// Closing the returned WriteCloser flushes and finalizes the encoder,
// it does not close w.
func CompressStream(enc Encoding, w io.Writer) (io.WriteCloser, error) {
	switch enc {
	case EncodingBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case EncodingGzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	case EncodingDeflate:
		return flate.NewWriter(w, flate.DefaultCompression)
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
