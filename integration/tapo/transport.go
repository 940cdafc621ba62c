package tapo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultTimeout = 10 * time.Second

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport posts a JSON body and hands back the raw response. Header
// values, Set-Cookie included, must be returned verbatim. Timeouts are
// the transport's business and come back as plain errors.
type Transport interface {
	Post(ctx context.Context, url string, body []byte, header http.Header) (*Response, error)
}

type HTTPTransport struct {
	Client *http.Client
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

// tapo.Transport
var _ Transport = (*HTTPTransport)(nil)

func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
