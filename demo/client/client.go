// Package client is a thin typed HTTP client for the ReelForge API, used
// by the demo TUI.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"reelforge/types"
)

// Client talks to a running ReelForge server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) sessionURL(sessionID, suffix string) string {
	return c.baseURL + "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

func (c *Client) postJSON(rawURL string, body, out interface{}) error {
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	resp, err := c.httpClient.Post(rawURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) getJSON(rawURL string, out interface{}) error {
	resp, err := c.httpClient.Get(rawURL)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RegisterFiles registers uploaded clips with their raw durations.
func (c *Client) RegisterFiles(sessionID string, files []types.FileRef) error {
	body := map[string]interface{}{"files": files}
	return c.postJSON(c.sessionURL(sessionID, "/files"), body, nil)
}

// AnalyzeStart begins a stepwise analysis pass.
func (c *Client) AnalyzeStart(sessionID string) (types.AnalyzeProgress, error) {
	var prog types.AnalyzeProgress
	err := c.postJSON(c.sessionURL(sessionID, "/analyze/start"), nil, &prog)
	return prog, err
}

// AnalyzeStep processes the next queued clip.
func (c *Client) AnalyzeStep(sessionID string) (types.AnalyzeProgress, error) {
	var prog types.AnalyzeProgress
	err := c.postJSON(c.sessionURL(sessionID, "/analyze/step"), nil, &prog)
	return prog, err
}

// ApplyTimings runs the pacing balancer over the session storyboard.
func (c *Client) ApplyTimings(sessionID string, targetTotal float64, mode string) (*types.TimingPlan, error) {
	body := map[string]interface{}{"target_total": targetTotal, "mode": mode}
	var plan types.TimingPlan
	if err := c.postJSON(c.sessionURL(sessionID, "/timings"), body, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// StartExport submits an export task and returns its id.
func (c *Client) StartExport(sessionID string, optimized bool) (string, error) {
	body := map[string]interface{}{"optimized": optimized}
	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := c.postJSON(c.sessionURL(sessionID, "/export"), body, &out); err != nil {
		return "", err
	}
	return out.TaskID, nil
}

// ExportStatus polls an export task.
func (c *Client) ExportStatus(taskID string) (types.ExportTask, error) {
	var task types.ExportTask
	err := c.getJSON(c.baseURL+"/api/exports/"+url.PathEscape(taskID), &task)
	return task, err
}

// CancelExport requests cooperative cancellation of an export task.
func (c *Client) CancelExport(taskID string) (bool, error) {
	var out struct {
		Accepted bool `json:"accepted"`
	}
	err := c.postJSON(c.baseURL+"/api/exports/"+url.PathEscape(taskID)+"/cancel", nil, &out)
	return out.Accepted, err
}

// StatusLog fetches the session's rolling status log.
func (c *Client) StatusLog(sessionID string) ([]string, error) {
	var out struct {
		Log []string `json:"log"`
	}
	err := c.getJSON(c.sessionURL(sessionID, "/status"), &out)
	return out.Log, err
}
