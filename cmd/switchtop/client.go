package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/krisarmstrong/switchsim/mgmt/httpapi"
)

// apiClient polls a running switchsimd's administrative HTTP surface.
// It never mutates state: switchtop is a read-only dashboard.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *apiClient) get(path string, v any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *apiClient) fetchPorts() ([]httpapi.PortView, error) {
	var views []httpapi.PortView
	err := c.get("/api/v1/ports", &views)
	return views, err
}

func (c *apiClient) fetchSTP() (*httpapi.STPView, error) {
	var view httpapi.STPView
	if err := c.get("/api/v1/stp", &view); err != nil {
		return nil, err
	}
	return &view, nil
}
