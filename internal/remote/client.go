// Package remote sends hidden-list changes to the remote service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"vine_monitor/internal/model"
	"vine_monitor/internal/storage"
)

const (
	apiVersion         = 5
	actionSaveHidden   = "save_hidden_list"
	clientIDStorageKey = "general.uuid"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type saveHiddenRequest struct {
	APIVersion int            `json:"api_version"`
	Country    string         `json:"country"`
	Action     string         `json:"action"`
	UUID       string         `json:"uuid"`
	Items      []model.Change `json:"items"`
}

// Client posts change batches to the remote endpoint. Delivery is
// best-effort: requests run in the background and failures are only logged.
type Client struct {
	client   HTTPClient
	url      string
	country  string
	clientID string
	log      *slog.Logger
	wg       sync.WaitGroup
}

// New creates a Client.
func New(client HTTPClient, url, country, clientID string, log *slog.Logger) *Client {
	return &Client{
		client:   client,
		url:      url,
		country:  country,
		clientID: clientID,
		log:      log,
	}
}

// SaveHiddenList sends items to the remote service without waiting for the
// response.
func (c *Client) SaveHiddenList(ctx context.Context, items []model.Change) {
	body, err := json.Marshal(saveHiddenRequest{
		APIVersion: apiVersion,
		Country:    c.country,
		Action:     actionSaveHidden,
		UUID:       c.clientID,
		Items:      items,
	})
	if err != nil {
		c.log.Error("encode hidden list", "error", err)
		return
	}

	c.log.Debug("saving hidden items remotely", "count", len(items))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.post(context.WithoutCancel(ctx), body); err != nil {
			c.log.Warn("save hidden list", "url", c.url, "error", err)
		}
	}()
}

// Wait blocks until every in-flight request has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ClientID returns the persistent client identifier stored in st, creating
// one on first use.
func ClientID(ctx context.Context, st storage.Storage) (string, error) {
	var id string
	err := st.Update(ctx, clientIDStorageKey, func(old string, found bool) (string, error) {
		if found && old != "" {
			id = old
		} else {
			id = uuid.NewString()
		}
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("client id: %w", err)
	}
	return id, nil
}
