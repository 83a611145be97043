package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gateway is the backend the reconciler reads snapshots from and writes to
type Gateway interface {
	GetTrip(ctx context.Context, tripID string) (*Trip, error)
	PatchTrip(ctx context.Context, tripID string, patch *Patch) (*PatchResult, error)
}

// StatusError is a non-2xx backend reply
type StatusError struct {
	StatusCode       int
	Message          string
	ConflictingSeats []int
	Fields           map[string]string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     json.RawMessage `json:"errors"`
}

// HTTPGateway talks to the trips REST API under baseURL, e.g. http://host:8080/api/v1
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPGateway{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *HTTPGateway) GetTrip(ctx context.Context, tripID string) (*Trip, error) {
	var trip Trip
	if err := g.do(ctx, http.MethodGet, g.tripURL(tripID), nil, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (g *HTTPGateway) PatchTrip(ctx context.Context, tripID string, patch *Patch) (*PatchResult, error) {
	var result PatchResult
	if err := g.do(ctx, http.MethodPatch, g.tripURL(tripID), patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (g *HTTPGateway) tripURL(tripID string) string {
	return g.baseURL + "/trips/" + url.PathEscape(tripID)
}

func (g *HTTPGateway) do(ctx context.Context, method, target string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &StatusError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || env.Status == "error" {
		code := resp.StatusCode
		if code < 300 {
			code = env.StatusCode
		}
		return statusError(code, env)
	}

	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func statusError(code int, env envelope) *StatusError {
	se := &StatusError{StatusCode: code, Message: env.Message}
	if len(env.Errors) == 0 {
		return se
	}

	var conflict struct {
		ConflictingSeats []int `json:"conflicting_seats"`
	}
	if json.Unmarshal(env.Errors, &conflict) == nil && len(conflict.ConflictingSeats) > 0 {
		se.ConflictingSeats = conflict.ConflictingSeats
		return se
	}

	var fields map[string]string
	if json.Unmarshal(env.Errors, &fields) == nil {
		se.Fields = fields
		return se
	}

	var detail string
	if json.Unmarshal(env.Errors, &detail) == nil && detail != "" {
		se.Message = se.Message + ": " + detail
	}
	return se
}
