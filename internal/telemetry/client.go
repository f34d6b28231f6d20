package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
)

// maxBodyBytes bounds the indicators payload; the real one is a few hundred bytes.
const maxBodyBytes = 64 << 10

// Source fetches one telemetry sample.
type Source interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// Client polls the simulator's local indicators endpoint.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) (*Client, error) {
	errFactory := errors.New()

	if url == "" {
		return nil, errFactory.WithData(ErrInvalidConfig, "empty telemetry url")
	}
	if timeout <= 0 {
		return nil, errFactory.WithData(ErrInvalidConfig, fmt.Sprintf("timeout %s", timeout))
	}

	return &Client{
		url:     url,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        1,
				MaxIdleConnsPerHost: 1,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}, nil
}

// Fetch performs one GET bounded by the client timeout (or ctx, whichever is
// sooner). Any failure means there is no valid sample for this tick.
func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Snapshot{}, errFactory.Wrap(ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Snapshot{}, errFactory.Wrap(ErrTimeout, err)
		}
		return Snapshot{}, errFactory.Wrap(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Snapshot{}, errFactory.WithData(ErrBadStatus, resp.Status)
	}

	var snap Snapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&snap); err != nil {
		if ctx.Err() != nil {
			return Snapshot{}, errFactory.Wrap(ErrTimeout, err)
		}
		return Snapshot{}, errFactory.Wrap(ErrDecodeFailed, err)
	}

	return snap, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
