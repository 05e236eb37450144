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

package static

import (
	"strconv"
	"strings"
)

// Range is a resolved byte range, [From, To] inclusive.
type Range struct {
	From, To int64
}

// ParseRange implements spec §4.8's single-range support: only a
// singular "bytes=from-to" header (no comma) is honored; an empty
// "from" with a present "to" means "last N bytes"; an empty "to"
// means "through EOF". Invalid or malformed headers return ok=false,
// telling the caller to ignore the header and serve the whole file.
func ParseRange(header string, size int64) (r Range, ok bool) {
	if header == "" || strings.Contains(header, ",") {
		return Range{}, false
	}

	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return Range{}, false
	}

	spec := strings.TrimPrefix(header, prefix)
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return Range{}, false
	}

	fromStr, toStr := spec[:dash], spec[dash+1:]

	var from, to int64

	switch {
	case fromStr == "" && toStr != "":
		// suffix range: last N bytes
		n, err := strconv.ParseInt(toStr, 10, 64)
		if err != nil || n <= 0 {
			return Range{}, false
		}
		from = size - n
		if from < 0 {
			from = 0
		}
		to = size - 1

	case fromStr != "" && toStr == "":
		// open-ended range: from the given offset through EOF
		n, err := strconv.ParseInt(fromStr, 10, 64)
		if err != nil {
			return Range{}, false
		}
		from = n
		to = size - 1

	case fromStr != "" && toStr != "":
		f, err1 := strconv.ParseInt(fromStr, 10, 64)
		t, err2 := strconv.ParseInt(toStr, 10, 64)
		if err1 != nil || err2 != nil {
			return Range{}, false
		}
		from, to = f, t

	default:
		return Range{}, false
	}

	if from < 0 || to < from || to >= size {
		return Range{}, false
	}

	return Range{From: from, To: to}, true
}
