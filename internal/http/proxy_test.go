package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/nebula-ui/nebula-upload/internal/config"
)

func TestProxyFuncWithBypass(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")

	tests := []struct {
		name       string
		noProxy    string
		target     string
		wantBypass bool
	}{
		{"empty list proxies everything", "", "https://uploads.example.com/upload", false},
		{"wildcard domain", "*.example.com", "https://uploads.example.com/upload", true},
		{"bare domain matches root", "example.com", "https://example.com/upload", true},
		{"bare domain matches subdomains", "example.com", "https://uploads.example.com/upload", true},
		{"cidr", "10.0.0.0/8", "http://10.1.2.3:8088/upload", true},
		{"no match", "*.internal.corp,10.0.0.0/8", "https://uploads.acme.io/upload", false},
		{"list with spaces", "*.example.com, 192.168.0.0/16, internal.corp", "https://internal.corp/upload", true},
		{"list with spaces, cidr", "*.example.com, 192.168.0.0/16, internal.corp", "http://192.168.1.100/upload", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxyFunc := proxyFuncWithBypass(proxyURL, tt.noProxy)
			req, _ := nethttp.NewRequest(nethttp.MethodPost, tt.target, nil)

			result, err := proxyFunc(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantBypass && result != nil {
				t.Errorf("expected bypass for %s, got %v", tt.target, result)
			}
			if !tt.wantBypass {
				if result == nil {
					t.Fatalf("expected proxy for %s, got direct", tt.target)
				}
				if result.Host != "proxy.corp:8080" {
					t.Errorf("expected proxy host proxy.corp:8080, got %s", result.Host)
				}
			}
		})
	}
}

func TestWarmupProxyRejected(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusProxyAuthRequired)
	}))
	defer srv.Close()

	err := warmupProxy(srv.Client(), &config.Config{ProxyWarmupURL: srv.URL})
	if err == nil {
		t.Fatal("expected an error for 407")
	}
}

func TestWarmupProxyWithoutURL(t *testing.T) {
	if err := warmupProxy(nethttp.DefaultClient, &config.Config{}); err != nil {
		t.Errorf("expected no-op without a URL, got %v", err)
	}
}
