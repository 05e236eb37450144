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

package httpserver

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	liberr "github.com/nabbar/golib/errors"
)

// TLSConfig bundles spec §6's TLS config keys.
type TLSConfig struct {
	CertFile     string        `mapstructure:"https_cert_file" json:"https_cert_file" yaml:"https_cert_file" toml:"https_cert_file"`
	KeyFile      string        `mapstructure:"https_key_file" json:"https_key_file" yaml:"https_key_file" toml:"https_key_file"`
	CAFile       string        `mapstructure:"https_ca_file" json:"https_ca_file" yaml:"https_ca_file" toml:"https_ca_file"`
	PollInterval time.Duration `mapstructure:"https_cert_poll_ms" json:"https_cert_poll_ms" yaml:"https_cert_poll_ms" toml:"https_cert_poll_ms"`
	Force        bool          `mapstructure:"https_force" json:"https_force" yaml:"https_force" toml:"https_force"`
	HeaderDetect map[string]string `mapstructure:"https_header_detect" json:"https_header_detect" yaml:"https_header_detect" toml:"https_header_detect"`
	AllowHosts   []string      `mapstructure:"https_allow_hosts" json:"https_allow_hosts" yaml:"https_allow_hosts" toml:"https_allow_hosts"`
}

// AdmissionConfig bundles spec §6's admission-control config keys.
type AdmissionConfig struct {
	MaxConnections      int    `mapstructure:"http_max_connections" json:"http_max_connections" yaml:"http_max_connections" toml:"http_max_connections"`
	MaxConcurrent       int    `mapstructure:"http_max_concurrent_requests" json:"http_max_concurrent_requests" yaml:"http_max_concurrent_requests" toml:"http_max_concurrent_requests"`
	MaxQueueLength      int    `mapstructure:"http_max_queue_length" json:"http_max_queue_length" yaml:"http_max_queue_length" toml:"http_max_queue_length"`
	QueueSkipURIMatch   string `mapstructure:"http_queue_skip_uri_match" json:"http_queue_skip_uri_match" yaml:"http_queue_skip_uri_match" toml:"http_queue_skip_uri_match"`
	Blacklist           []string `mapstructure:"http_blacklist" json:"http_blacklist" yaml:"http_blacklist" toml:"http_blacklist"`
	AllowHosts          []string `mapstructure:"http_allow_hosts" json:"http_allow_hosts" yaml:"http_allow_hosts" toml:"http_allow_hosts"`
	DefaultACL          []string `mapstructure:"http_default_acl" json:"http_default_acl" yaml:"http_default_acl" toml:"http_default_acl"`
	PrivateIPRanges     []string `mapstructure:"http_private_ip_ranges" json:"http_private_ip_ranges" yaml:"http_private_ip_ranges" toml:"http_private_ip_ranges"`
	PublicIPOffset      int      `mapstructure:"http_public_ip_offset" json:"http_public_ip_offset" yaml:"http_public_ip_offset" toml:"http_public_ip_offset"`
}

// TimeoutConfig bundles spec §6's timeout config keys. Each is held and
// decoded as a time.Duration; no seconds-to-duration conversion is applied.
type TimeoutConfig struct {
	HTTP             time.Duration `mapstructure:"http_timeout" json:"http_timeout" yaml:"http_timeout" toml:"http_timeout"`
	KeepAlive        time.Duration `mapstructure:"http_keep_alive_timeout" json:"http_keep_alive_timeout" yaml:"http_keep_alive_timeout" toml:"http_keep_alive_timeout"`
	SocketPrelim     time.Duration `mapstructure:"http_socket_prelim_timeout" json:"http_socket_prelim_timeout" yaml:"http_socket_prelim_timeout" toml:"http_socket_prelim_timeout"`
	Request          time.Duration `mapstructure:"http_request_timeout" json:"http_request_timeout" yaml:"http_request_timeout" toml:"http_request_timeout"`
}

// BodyConfig bundles spec §6's request-body config keys.
type BodyConfig struct {
	MaxUploadSize    int64  `mapstructure:"http_max_upload_size" json:"http_max_upload_size" yaml:"http_max_upload_size" toml:"http_max_upload_size"`
	TempDir          string `mapstructure:"http_temp_dir" json:"http_temp_dir" yaml:"http_temp_dir" toml:"http_temp_dir"`
	AllowEmptyFiles  bool   `mapstructure:"http_allow_empty_files" json:"http_allow_empty_files" yaml:"http_allow_empty_files" toml:"http_allow_empty_files"`
	FlattenQuery     bool   `mapstructure:"http_flatten_query" json:"http_flatten_query" yaml:"http_flatten_query" toml:"http_flatten_query"`
	FullURIMatch     bool   `mapstructure:"http_full_uri_match" json:"http_full_uri_match" yaml:"http_full_uri_match" toml:"http_full_uri_match"`
}

// CompressionConfig bundles spec §6's compression config keys.
type CompressionConfig struct {
	TextContent  bool `mapstructure:"http_compress_text" json:"http_compress_text" yaml:"http_compress_text" toml:"http_compress_text"`
	EnableBrotli bool `mapstructure:"http_enable_brotli" json:"http_enable_brotli" yaml:"http_enable_brotli" toml:"http_enable_brotli"`
	GzipLevel    int  `mapstructure:"http_gzip_opts" json:"http_gzip_opts" yaml:"http_gzip_opts" toml:"http_gzip_opts"`
	BrotliLevel  int  `mapstructure:"http_brotli_opts" json:"http_brotli_opts" yaml:"http_brotli_opts" toml:"http_brotli_opts"`
}

// StaticConfig bundles spec §6's static-file config keys.
type StaticConfig struct {
	HtdocsDir string `mapstructure:"http_htdocs_dir" json:"http_htdocs_dir" yaml:"http_htdocs_dir" toml:"http_htdocs_dir"`
	Index     string `mapstructure:"http_static_index" json:"http_static_index" yaml:"http_static_index" toml:"http_static_index"`
	TTL       time.Duration `mapstructure:"http_static_ttl" json:"http_static_ttl" yaml:"http_static_ttl" toml:"http_static_ttl"`
}

// HeaderConfig bundles spec §6's response-header config keys.
type HeaderConfig struct {
	ResponseHeaders     map[string]string            `mapstructure:"http_response_headers" json:"http_response_headers" yaml:"http_response_headers" toml:"http_response_headers"`
	CodeResponseHeaders map[int]map[string]string    `mapstructure:"http_code_response_headers" json:"http_code_response_headers" yaml:"http_code_response_headers" toml:"http_code_response_headers"`
	URIResponseHeaders  []URIHeaderConfig             `mapstructure:"http_uri_response_headers" json:"http_uri_response_headers" yaml:"http_uri_response_headers" toml:"http_uri_response_headers"`
	CleanHeaders        bool                          `mapstructure:"http_clean_headers" json:"http_clean_headers" yaml:"http_clean_headers" toml:"http_clean_headers"`
	ServerSignature     string                        `mapstructure:"http_server_signature" json:"http_server_signature" yaml:"http_server_signature" toml:"http_server_signature"`
}

// URIHeaderConfig is one entry of HeaderConfig.URIResponseHeaders.
type URIHeaderConfig struct {
	Match   string            `mapstructure:"regex" json:"regex" yaml:"regex" toml:"regex"`
	Headers map[string]string `mapstructure:"headers" json:"headers" yaml:"headers" toml:"headers"`
}

// RoutingConfig bundles spec §6's rewrite/redirect config keys.
type RoutingConfig struct {
	Rewrites  map[string]RewriteConfig  `mapstructure:"http_rewrites" json:"http_rewrites" yaml:"http_rewrites" toml:"http_rewrites"`
	Redirects map[string]RedirectConfig `mapstructure:"http_redirects" json:"http_redirects" yaml:"http_redirects" toml:"http_redirects"`
}

// RewriteConfig is one entry of RoutingConfig.Rewrites.
type RewriteConfig struct {
	URL     string            `mapstructure:"url" json:"url" yaml:"url" toml:"url"`
	Headers map[string]string `mapstructure:"headers" json:"headers" yaml:"headers" toml:"headers"`
	Last    bool              `mapstructure:"last" json:"last" yaml:"last" toml:"last"`
}

// RedirectConfig is one entry of RoutingConfig.Redirects.
type RedirectConfig struct {
	URL     string            `mapstructure:"url" json:"url" yaml:"url" toml:"url"`
	Status  int               `mapstructure:"status" json:"status" yaml:"status" toml:"status"`
	Headers map[string]string `mapstructure:"headers" json:"headers" yaml:"headers" toml:"headers"`
}

// KeepAliveConfig bundles spec §6's keep-alive config keys.
type KeepAliveConfig struct {
	Mode           string `mapstructure:"http_keep_alives" json:"http_keep_alives" yaml:"http_keep_alives" toml:"http_keep_alives" validate:"omitempty,oneof=close request default 0 1 2"`
	MaxReqsPerConn int64  `mapstructure:"http_max_requests_per_connection" json:"http_max_requests_per_connection" yaml:"http_max_requests_per_connection" toml:"http_max_requests_per_connection"`
}

// LoggingConfig bundles spec §6's logging/metrics config keys.
type LoggingConfig struct {
	LogRequests       bool   `mapstructure:"http_log_requests" json:"http_log_requests" yaml:"http_log_requests" toml:"http_log_requests"`
	RegexLog          string `mapstructure:"http_regex_log" json:"http_regex_log" yaml:"http_regex_log" toml:"http_regex_log"`
	LogSocketErrors   bool   `mapstructure:"http_log_socket_errors" json:"http_log_socket_errors" yaml:"http_log_socket_errors" toml:"http_log_socket_errors"`
	LogPerf           bool   `mapstructure:"http_log_perf" json:"http_log_perf" yaml:"http_log_perf" toml:"http_log_perf"`
	PerfThresholdMs   int    `mapstructure:"http_perf_threshold_ms" json:"http_perf_threshold_ms" yaml:"http_perf_threshold_ms" toml:"http_perf_threshold_ms"`
	LogPerfReport     bool   `mapstructure:"http_log_perf_report" json:"http_log_perf_report" yaml:"http_log_perf_report" toml:"http_log_perf_report"`
	RecentRequests    int    `mapstructure:"http_recent_requests" json:"http_recent_requests" yaml:"http_recent_requests" toml:"http_recent_requests"`
	RegexText         string `mapstructure:"http_regex_text" json:"http_regex_text" yaml:"http_regex_text" toml:"http_regex_text"`
	RegexJSON         string `mapstructure:"http_regex_json" json:"http_regex_json" yaml:"http_regex_json" toml:"http_regex_json"`
	LegacyCallback    bool   `mapstructure:"http_legacy_callback_support" json:"http_legacy_callback_support" yaml:"http_legacy_callback_support" toml:"http_legacy_callback_support"`
}

// ServerConfig is the full declared configuration of one server
// instance, covering every key spec §6 enumerates.
type ServerConfig struct {
	// Name identifies this server instance within a Pool; it is
	// required.
	Name string `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`

	// HTTPPort/HTTPBindAddress and HTTPSPort/HTTPSBindAddress are
	// spec §6's "Ports and binds" keys.
	HTTPPort        int      `mapstructure:"http_port" json:"http_port" yaml:"http_port" toml:"http_port"`
	HTTPBindAddress string   `mapstructure:"http_bind_address" json:"http_bind_address" yaml:"http_bind_address" toml:"http_bind_address"`
	HTTPSPort       int      `mapstructure:"https_port" json:"https_port" yaml:"https_port" toml:"https_port"`
	HTTPSBindAddress string  `mapstructure:"https_bind_address" json:"https_bind_address" yaml:"https_bind_address" toml:"https_bind_address"`
	HTTPAltPorts    []int    `mapstructure:"http_alt_ports" json:"http_alt_ports" yaml:"http_alt_ports" toml:"http_alt_ports"`
	HTTPSAltPorts   []int    `mapstructure:"https_alt_ports" json:"https_alt_ports" yaml:"https_alt_ports" toml:"https_alt_ports"`
	HTTPS           bool     `mapstructure:"https" json:"https" yaml:"https" toml:"https"`

	TLS         TLSConfig         `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
	Admission   AdmissionConfig   `mapstructure:"admission" json:"admission" yaml:"admission" toml:"admission"`
	Timeouts    TimeoutConfig     `mapstructure:"timeouts" json:"timeouts" yaml:"timeouts" toml:"timeouts"`
	Body        BodyConfig        `mapstructure:"body" json:"body" yaml:"body" toml:"body"`
	Compression CompressionConfig `mapstructure:"compression" json:"compression" yaml:"compression" toml:"compression"`
	Static      StaticConfig      `mapstructure:"static" json:"static" yaml:"static" toml:"static"`
	Headers     HeaderConfig      `mapstructure:"headers" json:"headers" yaml:"headers" toml:"headers"`
	Routing     RoutingConfig     `mapstructure:"routing" json:"routing" yaml:"routing" toml:"routing"`
	KeepAlive   KeepAliveConfig   `mapstructure:"keep_alive" json:"keep_alive" yaml:"keep_alive" toml:"keep_alive"`
	Logging     LoggingConfig     `mapstructure:"logging" json:"logging" yaml:"logging" toml:"logging"`
}

// Clone returns a deep-enough copy of c: slices and maps are copied so
// the clone can be mutated without affecting the original (mirrors the
// teacher's ServerConfig.Clone contract).
func (c ServerConfig) Clone() ServerConfig {
	clone := c

	clone.HTTPAltPorts = append([]int(nil), c.HTTPAltPorts...)
	clone.HTTPSAltPorts = append([]int(nil), c.HTTPSAltPorts...)

	clone.TLS.AllowHosts = append([]string(nil), c.TLS.AllowHosts...)
	clone.TLS.HeaderDetect = cloneStringMap(c.TLS.HeaderDetect)

	clone.Admission.Blacklist = append([]string(nil), c.Admission.Blacklist...)
	clone.Admission.AllowHosts = append([]string(nil), c.Admission.AllowHosts...)
	clone.Admission.DefaultACL = append([]string(nil), c.Admission.DefaultACL...)
	clone.Admission.PrivateIPRanges = append([]string(nil), c.Admission.PrivateIPRanges...)

	clone.Headers.ResponseHeaders = cloneStringMap(c.Headers.ResponseHeaders)
	clone.Headers.CodeResponseHeaders = make(map[int]map[string]string, len(c.Headers.CodeResponseHeaders))
	for k, v := range c.Headers.CodeResponseHeaders {
		clone.Headers.CodeResponseHeaders[k] = cloneStringMap(v)
	}
	clone.Headers.URIResponseHeaders = append([]URIHeaderConfig(nil), c.Headers.URIResponseHeaders...)

	clone.Routing.Rewrites = make(map[string]RewriteConfig, len(c.Routing.Rewrites))
	for k, v := range c.Routing.Rewrites {
		v.Headers = cloneStringMap(v.Headers)
		clone.Routing.Rewrites[k] = v
	}
	clone.Routing.Redirects = make(map[string]RedirectConfig, len(c.Routing.Redirects))
	for k, v := range c.Routing.Redirects {
		v.Headers = cloneStringMap(v.Headers)
		clone.Routing.Redirects[k] = v
	}

	return clone
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate runs struct-tag validation (mirrors the teacher's
// validator-based ServerConfig.Validate, generalized to this
// package's error taxonomy).
func (c ServerConfig) Validate() liberr.Error {
	val := validator.New()
	err := val.Struct(c)
	if err == nil {
		return nil
	}

	if e, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorConfigValidate.Error(e)
	}

	out := ErrorConfigValidate.Error(nil)
	for _, e := range err.(validator.ValidationErrors) {
		out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.Field(), e.ActualTag()))
	}

	if out.HasParent() {
		return out
	}
	return nil
}
