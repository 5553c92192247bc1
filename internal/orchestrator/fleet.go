package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
)

// FleetClient speaks the worker fleets' execute/status/stop contract.
type FleetClient struct {
	http *http.Client
}

func NewFleetClient() *FleetClient {
	return &FleetClient{http: &http.Client{}}
}

// RemoteStatus is a fleet's view of one module test.
type RemoteStatus struct {
	TestID         string            `json:"test_id"`
	Status         domain.TestStatus `json:"status"`
	StartTime      float64           `json:"start_time"`
	EndTime        *float64          `json:"end_time,omitempty"`
	Error          string            `json:"error,omitempty"`
	CurrentMetrics map[string]any    `json:"current_metrics,omitempty"`
	Results        map[string]any    `json:"results,omitempty"`
}

// Start POSTs the test to the fleet and returns the module test id.
func (c *FleetClient) Start(ctx context.Context, baseURL string, params domain.TestParameters) (string, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encoding execute payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("starting test on fleet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fleet refused test: %s: %s", resp.Status, readDetail(resp.Body))
	}
	var out struct {
		TestID string `json:"test_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding execute response: %w", err)
	}
	if out.TestID == "" {
		return "", fmt.Errorf("fleet returned no test id")
	}
	return out.TestID, nil
}

// Status fetches the fleet's view of a running module test.
func (c *FleetClient) Status(ctx context.Context, baseURL, moduleID string) (RemoteStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/status/"+moduleID, nil)
	if err != nil {
		return RemoteStatus{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return RemoteStatus{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RemoteStatus{}, fmt.Errorf("fleet status: %s: %s", resp.Status, readDetail(resp.Body))
	}
	var out RemoteStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RemoteStatus{}, fmt.Errorf("decoding status response: %w", err)
	}
	return out, nil
}

// Stop asks the fleet to stop a module test. Best-effort; callers treat the
// local STOPPED state as authoritative regardless of the outcome.
func (c *FleetClient) Stop(ctx context.Context, baseURL, moduleID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, baseURL+"/execute/"+moduleID, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fleet stop: %s: %s", resp.Status, readDetail(resp.Body))
	}
	return nil
}

func readDetail(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(b, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	return string(b)
}
