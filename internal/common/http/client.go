package http

import (
	"net/http"
	"time"
)

// Client is the shared outbound HTTP client. It is safe for concurrent use;
// all completion-provider calls go through one connection pool.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a client with a hard timeout. Pass 0 to rely on request
// contexts alone; the generation path does this and bounds each call with
// its own per-request deadline instead.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}
