// Package pokeapi is a client for the public PokéAPI creature database.
package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/udisondev/geospawn/internal/model"
)

const (
	DefaultBaseURL = "https://pokeapi.co/api/v2"
	DefaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pokeapi error %d: %s", e.Code, e.Body)
}

// Client fetches creature data over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. Empty baseURL means DefaultBaseURL;
// non-positive timeout means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetPokemon fetches GET {base}/pokemon/{id}.
func (c *Client) GetPokemon(ctx context.Context, id int) (*model.Pokemon, error) {
	var p model.Pokemon
	if err := c.get(ctx, "/pokemon/"+strconv.Itoa(id), &p); err != nil {
		return nil, fmt.Errorf("fetching pokemon %d: %w", id, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("fetching pokemon %d: %w", id, err)
	}
	return &p, nil
}

// ListPokemon fetches one page of the species list.
func (c *Client) ListPokemon(ctx context.Context, limit, offset int) (*model.SpeciesPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page model.SpeciesPage
	if err := c.get(ctx, "/pokemon?"+q.Encode(), &page); err != nil {
		return nil, fmt.Errorf("listing pokemon (limit=%d offset=%d): %w", limit, offset, err)
	}
	return &page, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformed, err)
	}
	return nil
}
