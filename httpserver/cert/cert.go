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

// Package cert hot-reloads the TLS certificate bundle described in
// spec §4.2: a key/cert pair plus an optional CA, polled for mtime
// drift and swapped into live handshakes without dropping existing
// connections.
package cert

import (
	"context"
	"os"
	"time"

	libatm "github.com/nabbar/golib/atomic"
	libcrt "github.com/nabbar/golib/certificates"
	liblog "github.com/nabbar/golib/logger"

	"crypto/tls"
)

// Bundle is the file set backing one CertManager.
type Bundle struct {
	KeyFile  string
	CertFile string
	CAFile   string
}

// Manager loads a Bundle into a *tls.Config and keeps it fresh by
// polling the source files for mtime changes. A failed reload keeps
// serving the previously loaded bundle.
type Manager struct {
	name string
	src  Bundle

	cfg  libatm.Value[*tls.Config]
	keyM libatm.Value[time.Time]
	crtM libatm.Value[time.Time]
	caM  libatm.Value[time.Time]
}

// New loads the initial bundle and returns a ready Manager. name is
// used only for log context.
func New(name string, src Bundle) (*Manager, error) {
	m := &Manager{
		name: name,
		src:  src,
		cfg:  libatm.NewValue[*tls.Config](),
		keyM: libatm.NewValue[time.Time](),
		crtM: libatm.NewValue[time.Time](),
		caM:  libatm.NewValue[time.Time](),
	}

	if err := m.reload(); err != nil {
		return nil, err
	}

	return m, nil
}

// TLSConfig returns the currently active configuration. Safe for
// concurrent use; the returned pointer must not be mutated.
func (m *Manager) TLSConfig() *tls.Config {
	return m.cfg.Load()
}

// Poll starts a background ticker that checks the source files for
// mtime drift every interval and reloads on change. It returns once
// ctx is cancelled.
func (m *Manager) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if m.changed() {
				m.safeReload()
			}
		}
	}
}

func (m *Manager) changed() bool {
	return mtimeOf(m.src.KeyFile) != m.keyM.Load() ||
		mtimeOf(m.src.CertFile) != m.crtM.Load() ||
		mtimeOf(m.src.CAFile) != m.caM.Load()
}

// safeReload attempts a reload, recovering from panics in the
// underlying parser and keeping the previous bundle active on any
// failure.
func (m *Manager) safeReload() {
	defer func() {
		if r := recover(); r != nil {
			liblog.ErrorLevel.Logf("cert bundle '%s' reload panicked, keeping previous bundle: %v", m.name, r)
		}
	}()

	if err := m.reload(); err != nil {
		liblog.ErrorLevel.Logf("cert bundle '%s' reload failed, keeping previous bundle: %v", m.name, err)
	} else {
		liblog.InfoLevel.Logf("cert bundle '%s' reloaded", m.name)
	}
}

func (m *Manager) reload() error {
	tc := libcrt.New()

	if err := tc.AddCertificatePairFile(m.src.KeyFile, m.src.CertFile); err != nil {
		return err
	}

	if m.src.CAFile != "" {
		if err := tc.AddRootCAFile(m.src.CAFile); err != nil {
			return err
		}
	}

	m.cfg.Store(tc.TlsConfig(""))
	m.keyM.Store(mtimeOf(m.src.KeyFile))
	m.crtM.Store(mtimeOf(m.src.CertFile))
	m.caM.Store(mtimeOf(m.src.CAFile))

	return nil
}

func mtimeOf(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}
