// Package http builds the HTTP clients used for uploads: proxy-aware
// transports and cookie jars for credentialed requests.
package http

import (
	"crypto/tls"
	"fmt"
	nethttp "net/http"
	"net/http/cookiejar"
	"os"

	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"

	"github.com/nebula-ui/nebula-upload/internal/config"
	"github.com/nebula-ui/nebula-upload/internal/constants"
	"github.com/nebula-ui/nebula-upload/internal/logging"
)

// NewUploadClient creates an HTTP client tuned for streaming many file
// bodies concurrently, with the proxy settings from cfg.
//
// A nil cfg reads proxy settings from the environment (HTTP_PROXY,
// HTTPS_PROXY, NO_PROXY).
func NewUploadClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	if cfg == nil {
		cfg = &config.Config{ProxyMode: "system"}
	}

	baseClient, err := ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in a negotiator; use it as configured
		return baseClient, nil
	}

	// Every picked file opens its own request, there is no upload cap
	tr.MaxIdleConns = 512
	tr.MaxIdleConnsPerHost = 100
	tr.MaxConnsPerHost = 0
	tr.IdleConnTimeout = constants.HTTPIdleConnTimeout

	// Bodies are often already compressed
	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	// Set DISABLE_HTTP2=true environment variable to force HTTP/1.1
	if os.Getenv("DISABLE_HTTP2") == "true" || (proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true") {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0
	return baseClient, nil
}

// proxyActive reports whether requests go through a proxy. Proxies often
// break HTTP/2 streams mid-upload.
func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}

// NewCookieJar returns a jar for credentialed uploads. Cookies set by one
// response are sent with later requests to the same site.
func NewCookieJar() (nethttp.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}
