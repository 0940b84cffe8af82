package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/models"
)

// Toggler is the server side of an optimistic store
type Toggler interface {
	Toggle(ctx context.Context, kind models.Kind, targetID string) (models.ToggleResult, error)
}

// StateReader loads the state a store is seeded from
type StateReader interface {
	BatchState(ctx context.Context, kind models.Kind, targetIDs []string) (map[string]models.TargetState, error)
}

// HTTPToggler talks to the engagement API with a bearer token
type HTTPToggler struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPToggler(baseURL, token string, client *http.Client) *HTTPToggler {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPToggler{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    apperr.Kind     `json:"code"`
}

func (t *HTTPToggler) Toggle(ctx context.Context, kind models.Kind, targetID string) (models.ToggleResult, error) {
	var res models.ToggleResult
	path := fmt.Sprintf("/api/v1/engagements/%s/%s/toggle", kind, url.PathEscape(targetID))
	err := t.call(ctx, http.MethodPost, path, nil, &res)
	return res, err
}

func (t *HTTPToggler) BatchState(ctx context.Context, kind models.Kind, targetIDs []string) (map[string]models.TargetState, error) {
	state := map[string]models.TargetState{}
	path := fmt.Sprintf("/api/v1/engagements/%s/state", kind)
	err := t.call(ctx, http.MethodPost, path, models.BatchStateRequest{TargetIDs: targetIDs}, &state)
	return state, err
}

func (t *HTTPToggler) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return apperr.Unavailable("Could not reach the server", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperr.Unavailable(fmt.Sprintf("Unexpected response (%d)", resp.StatusCode), err)
	}
	if !env.Success {
		kind := env.Code
		if kind == "" {
			kind = apperr.PersistenceUnavailable
		}
		return apperr.New(kind, env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
