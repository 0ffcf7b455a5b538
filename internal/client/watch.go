package client

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/packrat-app/packrat/internal/models"
)

// DocUpdate is one emission of a document watch. Asset is nil once the
// document is absent (deleted, or never existed).
type DocUpdate struct {
	Asset *models.Asset `json:"asset"`
}

// WatchCollection opens a live subscription to the full asset list. Every
// emission is the current complete list. The channel closes when ctx is
// cancelled or the server drops the stream; there is no automatic
// reconnect — restarting the watch is the caller's decision.
func (c *Client) WatchCollection(ctx context.Context) (<-chan []models.Asset, error) {
	body, err := c.openStream(ctx, "/assets/events")
	if err != nil {
		return nil, err
	}

	ch := make(chan []models.Asset)
	go func() {
		defer close(ch)
		defer body.Close()
		forEachEvent(body, func(data []byte) bool {
			var list []models.Asset
			if err := json.Unmarshal(data, &list); err != nil {
				return true
			}
			select {
			case ch <- list:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return ch, nil
}

// WatchDocument opens a live subscription to one asset. A nil Asset in an
// update signals absence.
func (c *Client) WatchDocument(ctx context.Context, id string) (<-chan DocUpdate, error) {
	body, err := c.openStream(ctx, "/assets/"+id+"/events")
	if err != nil {
		return nil, err
	}

	ch := make(chan DocUpdate)
	go func() {
		defer close(ch)
		defer body.Close()
		forEachEvent(body, func(data []byte) bool {
			var update DocUpdate
			if err := json.Unmarshal(data, &update); err != nil {
				return true
			}
			select {
			case ch <- update:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return ch, nil
}

func (c *Client) openStream(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, ErrUnauthenticated
		default:
			return nil, &APIError{Status: resp.StatusCode, Message: "watch failed"}
		}
	}
	return resp.Body, nil
}

// forEachEvent reads server-sent events and calls fn with each event's
// data payload. fn returning false stops the loop. The server emits
// single-line data frames, so accumulation across lines is not needed.
func forEachEvent(r io.Reader, fn func(data []byte) bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		if !fn([]byte(strings.TrimPrefix(line, "data: "))) {
			return
		}
	}
}
