package http

import (
	"bytes"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/nebula-ui/nebula-upload/internal/config"
	"github.com/nebula-ui/nebula-upload/internal/logging"
)

func TestConfigureHTTPClient_Modes(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantErr   bool
		wantNTLM  bool
		wantProxy bool
	}{
		{name: "no proxy", cfg: &config.Config{ProxyMode: "no-proxy"}},
		{name: "empty mode", cfg: &config.Config{}},
		{name: "basic", cfg: &config.Config{ProxyMode: "basic", ProxyHost: "proxy.corp", ProxyPort: 3128}, wantProxy: true},
		{name: "basic without host falls back", cfg: &config.Config{ProxyMode: "basic"}},
		{name: "ntlm", cfg: &config.Config{ProxyMode: "ntlm", ProxyHost: "proxy.corp"}, wantNTLM: true},
		{name: "unknown mode", cfg: &config.Config{ProxyMode: "socks"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := ConfigureHTTPClient(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConfigureHTTPClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if client.Timeout != 0 {
				t.Errorf("expected no client timeout, got %v", client.Timeout)
			}

			if tt.wantNTLM {
				if _, ok := client.Transport.(ntlmssp.Negotiator); !ok {
					t.Fatalf("expected NTLM negotiator, got %T", client.Transport)
				}
				return
			}

			tr, ok := client.Transport.(*nethttp.Transport)
			if !ok {
				t.Fatalf("expected *http.Transport, got %T", client.Transport)
			}
			if (tr.Proxy != nil) != tt.wantProxy {
				t.Errorf("proxy configured = %v, want %v", tr.Proxy != nil, tt.wantProxy)
			}
		})
	}
}

func TestConfigureHTTPClient_FallbackWarnings(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{"ntlm without host", &config.Config{ProxyMode: "ntlm"}, "falling back to no-proxy mode"},
		{"basic without host", &config.Config{ProxyMode: "basic"}, "falling back to no-proxy mode"},
		{"basic without password", &config.Config{ProxyMode: "basic", ProxyHost: "proxy.corp", ProxyUser: "alice"}, "Proxy password missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewLogger(logging.ModeServer, &buf)

			if _, err := ConfigureHTTPClient(tt.cfg, logger); err != nil {
				t.Fatalf("ConfigureHTTPClient() error = %v", err)
			}
			out := buf.String()
			if !strings.Contains(out, tt.want) || !strings.Contains(out, `"level":"warn"`) {
				t.Errorf("expected warn entry containing %q, got %q", tt.want, out)
			}
		})
	}
}

func TestBuildProxyURL(t *testing.T) {
	u := buildProxyURL(&config.Config{ProxyHost: "proxy.corp", ProxyUser: "alice", ProxyPassword: "pw"})
	if u.Host != "proxy.corp:8080" {
		t.Errorf("expected default port 8080, got %s", u.Host)
	}
	if pw, ok := u.User.Password(); !ok || pw != "pw" || u.User.Username() != "alice" {
		t.Errorf("expected embedded credentials, got %v", u.User)
	}

	u = buildProxyURL(&config.Config{ProxyHost: "proxy.corp", ProxyPort: 3128, ProxyUser: "alice"})
	if u.User != nil {
		t.Error("credentials must not be embedded without a password")
	}
}

func TestNeedsProxyPassword(t *testing.T) {
	if !NeedsProxyPassword(&config.Config{ProxyMode: "ntlm", ProxyUser: "alice"}) {
		t.Error("ntlm with user and no password should need a password")
	}
	if NeedsProxyPassword(&config.Config{ProxyMode: "system", ProxyUser: "alice"}) {
		t.Error("system mode never prompts")
	}
	if NeedsProxyPassword(&config.Config{ProxyMode: "basic", ProxyUser: "alice", ProxyPassword: "pw"}) {
		t.Error("password already set")
	}
}

func TestNewUploadClient(t *testing.T) {
	t.Setenv("DISABLE_HTTP2", "true")

	client, err := NewUploadClient(&config.Config{ProxyMode: "no-proxy"}, nil)
	if err != nil {
		t.Fatalf("NewUploadClient() error = %v", err)
	}
	tr := client.Transport.(*nethttp.Transport)
	if tr.ForceAttemptHTTP2 {
		t.Error("DISABLE_HTTP2 should force HTTP/1.1")
	}
	if !tr.DisableCompression {
		t.Error("compression should be disabled for upload bodies")
	}
}

func TestWarmupProxyUsesAction(t *testing.T) {
	var method string
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		method = r.Method
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{Action: srv.URL + "/upload"}
	if err := warmupProxy(srv.Client(), cfg); err != nil {
		t.Fatalf("warmupProxy() error = %v", err)
	}
	if method != nethttp.MethodHead {
		t.Errorf("expected HEAD warmup, got %s", method)
	}
}

func TestNewCookieJar(t *testing.T) {
	jar, err := NewCookieJar()
	if err != nil {
		t.Fatalf("NewCookieJar() error = %v", err)
	}

	u, _ := url.Parse("https://uploads.acme.io/files")
	jar.SetCookies(u, []*nethttp.Cookie{{Name: "session", Value: "abc"}})

	cookies := jar.Cookies(u)
	if len(cookies) != 1 || cookies[0].Value != "abc" {
		t.Errorf("expected session cookie, got %v", cookies)
	}

	other, _ := url.Parse("https://other.example.com/")
	if len(jar.Cookies(other)) != 0 {
		t.Error("cookies must not leak to other sites")
	}
}
