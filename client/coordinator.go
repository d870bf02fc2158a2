package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Transport is an http.RoundTripper that attaches the agent's access token
// to every request and, on an unauthorized response, refreshes once and
// retries. Concurrent rejected requests funnel into a single refresh
// through the agent.
type Transport struct {
	// Base performs the actual requests. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper

	Agent *Agent
}

func NewTransport(agent *Agent) *Transport {
	return &Transport{Agent: agent}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	ctx := req.Context()

	token, err := t.Agent.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := base.RoundTrip(authorized(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// The server may have revoked the session out from under us; try one
	// rotation and replay. Requests with unreplayable bodies keep the
	// original 401.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	pair, refreshErr := t.Agent.RefreshAfterReject(ctx, token)
	if refreshErr != nil {
		return resp, nil
	}

	retry := authorized(req, pair.AccessToken)
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return resp, nil
		}
		retry.Body = body
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return base.RoundTrip(retry)
}

// authorized clones the request with the bearer token set, leaving the
// caller's request untouched as RoundTrip requires.
func authorized(req *http.Request, token string) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return clone
}

// NewHTTPRefresher builds a RefreshFunc against the auth API's refresh
// endpoint. A rejected refresh token maps to ErrRefreshRejected; anything
// else (network errors, 5xx) surfaces as a transient error.
func NewHTTPRefresher(baseURL string, httpClient *http.Client) RefreshFunc {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/api/v1/auth/refresh"

	return func(ctx context.Context, refreshToken string) (*TokenPair, error) {
		payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("refresh request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var pair TokenPair
			if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
				return nil, fmt.Errorf("decode refresh response: %w", err)
			}
			return &pair, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, ErrRefreshRejected
		default:
			return nil, fmt.Errorf("refresh: unexpected status %d", resp.StatusCode)
		}
	}
}
