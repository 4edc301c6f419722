package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/spawn"
)

// apiClient talks to the geospawn HTTP API on behalf of one device.
type apiClient struct {
	baseURL    string
	device     string
	httpClient *http.Client
}

func newAPIClient(baseURL, device string) *apiClient {
	return &apiClient{
		baseURL:    baseURL,
		device:     url.PathEscape(device),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type locationBody struct {
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Unavailable bool     `json:"unavailable,omitempty"`
}

// reportLocation posts a fix, or reports the sensor unavailable when fix is nil.
func (c *apiClient) reportLocation(ctx context.Context, fix *model.LocationFix) error {
	body := locationBody{Unavailable: true}
	if fix != nil {
		body = locationBody{Latitude: &fix.Latitude, Longitude: &fix.Longitude}
	}
	return c.do(ctx, http.MethodPost, "/location", body, http.StatusAccepted, nil)
}

func (c *apiClient) snapshot(ctx context.Context) (spawn.Snapshot, error) {
	var snap spawn.Snapshot
	err := c.do(ctx, http.MethodGet, "/spawns", nil, http.StatusOK, &snap)
	return snap, err
}

func (c *apiClient) imageLoaded(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodPost, "/spawns/"+url.PathEscape(key)+"/image-loaded", nil, http.StatusNoContent, nil)
}

func (c *apiClient) catch(ctx context.Context, key string) (model.Catch, error) {
	var caught model.Catch
	err := c.do(ctx, http.MethodPost, "/spawns/"+url.PathEscape(key)+"/catch", nil, http.StatusCreated, &caught)
	return caught, err
}

func (c *apiClient) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/devices/"+c.device+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
