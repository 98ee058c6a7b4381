package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/api"
	mperrors "github.com/modelport/modelport/internal/errors"
)

const defaultPollInterval = 2 * time.Second

// ControlPlane talks to the endpoint control-plane API.
type ControlPlane struct {
	baseURL    string
	env        string
	authToken  string
	httpClient *http.Client

	// PollInterval overrides how often AwaitInService re-checks status.
	PollInterval time.Duration
}

func NewControlPlane(baseURL, env, authToken string) *ControlPlane {
	return &ControlPlane{
		baseURL:    strings.TrimRight(baseURL, "/"),
		env:        env,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *ControlPlane) endpointsURL(name string) string {
	url := c.baseURL + "/api/1.0/" + c.env + "/endpoints"
	if name != "" {
		url += "/" + name
	}
	return url
}

// Deploy submits the endpoint for creation. Every call carries a fresh
// idempotency key so a retried HTTP request cannot double-deploy.
func (c *ControlPlane) Deploy(ctx context.Context, req api.CreateEndpointRequest) (api.EndpointView, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return api.EndpointView{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointsURL(""), bytes.NewReader(body))
	if err != nil {
		return api.EndpointView{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Idempotency-Key", uuid.NewString())

	var view api.EndpointView
	if err := c.do(httpReq, http.StatusAccepted, &view); err != nil {
		return api.EndpointView{}, err
	}
	return view, nil
}

func (c *ControlPlane) Status(ctx context.Context, name string) (api.EndpointView, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointsURL(name), nil)
	if err != nil {
		return api.EndpointView{}, err
	}
	var view api.EndpointView
	if err := c.do(httpReq, http.StatusOK, &view); err != nil {
		return api.EndpointView{}, err
	}
	return view, nil
}

func (c *ControlPlane) List(ctx context.Context) ([]api.EndpointView, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointsURL(""), nil)
	if err != nil {
		return nil, err
	}
	var resp api.ListEndpointsResponse
	if err := c.do(httpReq, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Endpoints, nil
}

// AwaitInService polls until the endpoint reports IN_SERVICE, the endpoint
// fails, or the context expires.
func (c *ControlPlane) AwaitInService(ctx context.Context, name string) (api.EndpointView, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		view, err := c.Status(ctx, name)
		if err != nil {
			return api.EndpointView{}, err
		}
		switch view.State {
		case "IN_SERVICE":
			return view, nil
		case "FAILED":
			return view, fmt.Errorf("%w: %s", mperrors.ErrEndpointNotReady, view.FailureReason)
		}
		log.Info().Str("endpoint", name).Str("state", view.State).Msg("waiting for endpoint")

		select {
		case <-ctx.Done():
			return view, fmt.Errorf("%w: %v", mperrors.ErrEndpointNotReady, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *ControlPlane) Teardown(ctx context.Context, name string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpointsURL(name), nil)
	if err != nil {
		return err
	}
	return c.do(httpReq, http.StatusOK, nil)
}

func (c *ControlPlane) do(req *http.Request, wantStatus int, out any) error {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != wantStatus {
		var apiErr api.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d: %s", req.Method, req.URL.Path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
