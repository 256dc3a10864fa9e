package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to a modeling engine served over HTTP. The service exposes
// POST /forward taking a ForwardRequest and returning the modeled spectrum,
// and GET /health for reachability checks.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

type forwardResponse struct {
	Reflectance []float64 `json:"reflectance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates an engine client for the given base URL.
func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// ForwardModel implements Engine against the remote service.
func (c *Client) ForwardModel(ctx context.Context, req ForwardRequest) ([]float64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding forward request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forward", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating forward request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling modeling engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp errorResponse
		if json.Unmarshal(payload, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("modeling engine rejected request: %s", errResp.Error)
		}
		return nil, fmt.Errorf("modeling engine returned status %d", resp.StatusCode)
	}

	var fwd forwardResponse
	if err := json.NewDecoder(resp.Body).Decode(&fwd); err != nil {
		return nil, fmt.Errorf("decoding forward response: %w", err)
	}
	if len(fwd.Reflectance) != len(req.Wavelengths) {
		return nil, fmt.Errorf("engine returned %d samples for %d wavelengths", len(fwd.Reflectance), len(req.Wavelengths))
	}

	c.logger.WithFields(logrus.Fields{
		"wavelengths": len(req.Wavelengths),
		"parameters":  len(req.Parameters),
	}).Debug("Forward model call completed")

	return fwd.Reflectance, nil
}

// Ping checks that the engine service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("modeling engine not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("modeling engine health check returned status %d", resp.StatusCode)
	}
	return nil
}
