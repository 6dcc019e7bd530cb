package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Request is one upload attempt as handed to a Transport.
type Request struct {
	URL             string
	Header          http.Header // Caller headers; Content-Type is always replaced
	Body            *MultipartBody
	WithCredentials bool // Send and keep cookies
}

// Response is what came back from the server.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ProgressFunc receives upload progress. total <= 0 means unknown.
type ProgressFunc func(loaded, total int64)

// Transport sends one request. Implementations call progress from any
// goroutine while the body is being sent and must return once the response
// has been read or the attempt failed.
type Transport interface {
	Send(ctx context.Context, req *Request, progress ProgressFunc) (*Response, error)
}

// HTTPTransport posts requests with net/http clients.
type HTTPTransport struct {
	client      *http.Client
	credentials *http.Client
}

// NewHTTPTransport returns a transport using client for plain requests.
// Credentialed requests use a copy of client carrying jar. A nil client uses
// a zero http.Client; a nil jar makes credentialed requests behave like plain
// ones.
func NewHTTPTransport(client *http.Client, jar http.CookieJar) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	credentialed := *client
	credentialed.Jar = jar

	plain := *client
	plain.Jar = nil

	return &HTTPTransport{client: &plain, credentials: &credentialed}
}

// Send posts req and reads the whole response body.
func (t *HTTPTransport) Send(ctx context.Context, req *Request, progress ProgressFunc) (*Response, error) {
	body, err := req.Body.Open()
	if err != nil {
		return nil, err
	}

	total := req.Body.Len()
	counter := newProgressReader(body, total, progress)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, counter)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.ContentLength = total
	httpReq.GetBody = nil
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", req.Body.ContentType())

	client := t.client
	if req.WithCredentials {
		client = t.credentials
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// progressReader reports bytes read from the request body. Reports are
// coalesced: one when sending starts, then one per whole-percent change.
type progressReader struct {
	r        io.ReadCloser
	total    int64
	progress ProgressFunc

	mu          sync.Mutex
	loaded      int64
	lastPercent int
	started     bool
}

func newProgressReader(r io.ReadCloser, total int64, progress ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, progress: progress, lastPercent: -1}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if !p.started {
		p.started = true
		p.lastPercent = 0
		p.report(0)
	}
	p.mu.Unlock()

	n, err := p.r.Read(buf)
	if n > 0 {
		p.mu.Lock()
		p.loaded += int64(n)
		if pct := Percent(p.loaded, p.total); pct != p.lastPercent {
			p.lastPercent = pct
			p.report(p.loaded)
		}
		p.mu.Unlock()
	}
	return n, err
}

func (p *progressReader) Close() error {
	return p.r.Close()
}

func (p *progressReader) report(loaded int64) {
	if p.progress != nil {
		p.progress(loaded, p.total)
	}
}

// Percent converts a byte count to a whole percentage, rounded down.
// An unknown or zero total reports 0.
func Percent(loaded, total int64) int {
	if total <= 0 || loaded <= 0 {
		return 0
	}
	if loaded >= total {
		return 100
	}
	return int(loaded * 100 / total)
}

var _ Transport = (*HTTPTransport)(nil)
