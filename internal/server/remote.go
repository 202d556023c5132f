package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"discussdraft/internal/models"
	"discussdraft/internal/orchestrator"
)

// RemoteGenerator sends generate messages to a running server. Failing to
// reach the server is reported as orchestrator.ErrRuntimeLost.
type RemoteGenerator struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewRemoteGenerator(baseURL string, hc *http.Client) *RemoteGenerator {
	if hc == nil {
		hc = http.DefaultClient
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &RemoteGenerator{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: hc}
}

func (g *RemoteGenerator) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationOutcome, error) {
	path := "/v1/messages/generate-main-post"
	if req.Kind == models.KindReply {
		path = "/v1/messages/generate-reply"
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return models.GenerationOutcome{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return models.GenerationOutcome{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTPClient.Do(httpReq)
	if err != nil {
		return models.GenerationOutcome{}, fmt.Errorf("%w: %v", orchestrator.ErrRuntimeLost, err)
	}
	defer resp.Body.Close()

	var out models.GenerationOutcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.GenerationOutcome{}, fmt.Errorf("%w: decode response: %v", orchestrator.ErrRuntimeLost, err)
	}
	if resp.StatusCode != http.StatusOK && out.Error == "" {
		out = models.Failed(fmt.Sprintf("draft service returned status %d", resp.StatusCode))
	}
	return out, nil
}
