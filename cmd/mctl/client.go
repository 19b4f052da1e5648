package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// client calls the mission-control HTTP API
type client struct {
	base string
	http *http.Client
}

func newClient(opts *options) *client {
	return &client{
		base: strings.TrimRight(opts.server, "/"),
		http: &http.Client{Timeout: opts.timeout},
	}
}

type apiError struct {
	Error string `json:"error"`
}

// viewPath builds the API path of a view resource
func viewPath(name, resource string) string {
	path := "/api/views/" + url.PathEscape(name)
	if resource != "" {
		path += "/" + resource
	}
	return path
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
