// Package meraki provides a client for the Cisco Meraki Dashboard API v1.
// It covers the inventory endpoints used by this tool (organizations,
// networks, devices and network clients) with automatic pagination and
// rate-limit retry.
package meraki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Dashboard API v1 endpoint.
const DefaultBaseURL = "https://api.meraki.com/api/v1"

// Organization represents a Meraki organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Network represents a Meraki network.
type Network struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is a device or client object exactly as the API returned it.
// Numbers are kept as json.Number so they print back unchanged.
type Record map[string]any

// APIError is returned for any non-2xx, non-429 response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meraki API error %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

// ErrRetriesExhausted is returned when every attempt was rate limited.
var ErrRetriesExhausted = errors.New("meraki API request failed after retries")

// MerakiClient is an HTTP client wrapper for the Meraki Dashboard API.
type MerakiClient struct {
	apiKey     string
	baseURL    string
	maxRetries int
	client     *http.Client
	sleep      func(context.Context, time.Duration) error
}

// NewClient creates a new Meraki API client.
// maxRetries controls how many times a 429 response is retried; 0 uses the default of 6.
func NewClient(apiKey, baseURL string, maxRetries int) *MerakiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if maxRetries <= 0 {
		maxRetries = 6
	}
	return &MerakiClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxRetries: maxRetries,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		sleep: sleepContext,
	}
}

// GetOrganizations retrieves all organizations accessible by the API key.
func (m *MerakiClient) GetOrganizations(ctx context.Context) ([]Organization, error) {
	raws, err := m.getAllPages(ctx, "/organizations", url.Values{"perPage": []string{"1000"}})
	if err != nil {
		return nil, err
	}
	orgs := make([]Organization, 0, len(raws))
	for _, r := range raws {
		var o Organization
		if err := json.Unmarshal(r, &o); err == nil {
			orgs = append(orgs, o)
		}
	}
	return orgs, nil
}

// GetNetworks retrieves all networks for a given organization, in API order.
func (m *MerakiClient) GetNetworks(ctx context.Context, orgID string) ([]Network, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, errors.New("organization id is required")
	}
	path := fmt.Sprintf("/organizations/%s/networks", url.PathEscape(orgID))
	raws, err := m.getAllPages(ctx, path, url.Values{"perPage": []string{"1000"}})
	if err != nil {
		return nil, err
	}
	nets := make([]Network, 0, len(raws))
	for _, r := range raws {
		var n Network
		if err := json.Unmarshal(r, &n); err == nil {
			nets = append(nets, n)
		}
	}
	return nets, nil
}

// GetDevice retrieves a single device by serial.
func (m *MerakiClient) GetDevice(ctx context.Context, serial string) (Record, error) {
	path := fmt.Sprintf("/devices/%s", url.PathEscape(serial))
	body, _, err := m.doRequest(ctx, http.MethodGet, m.buildURL(path, nil))
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

// GetNetworkDevices retrieves every device claimed into a network.
func (m *MerakiClient) GetNetworkDevices(ctx context.Context, networkID string) ([]Record, error) {
	path := fmt.Sprintf("/networks/%s/devices", url.PathEscape(networkID))
	raws, err := m.getAllPages(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords(raws), nil
}

// GetNetworkClients retrieves all clients seen on a network, following every page.
func (m *MerakiClient) GetNetworkClients(ctx context.Context, networkID string) ([]Record, error) {
	path := fmt.Sprintf("/networks/%s/clients", url.PathEscape(networkID))
	raws, err := m.getAllPages(ctx, path, url.Values{"perPage": []string{"1000"}})
	if err != nil {
		return nil, err
	}
	return decodeRecords(raws), nil
}

func decodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// decodeRecords drops array elements that are not JSON objects.
func decodeRecords(raws []json.RawMessage) []Record {
	out := make([]Record, 0, len(raws))
	for _, r := range raws {
		rec, err := decodeRecord(r)
		if err != nil || rec == nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// getAllPages handles pagination for API endpoints that return arrays.
// It follows the Link header with rel="next" until all pages are retrieved.
func (m *MerakiClient) getAllPages(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	fullURL := m.buildURL(path, params)
	var all []json.RawMessage
	for {
		body, next, err := m.doRequest(ctx, http.MethodGet, fullURL)
		if err != nil {
			return nil, err
		}
		var page []json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode page of %s: %w", path, err)
		}
		all = append(all, page...)
		if next == "" {
			break
		}
		fullURL = next
	}
	return all, nil
}

// buildURL constructs a full API URL from a path and query parameters.
func (m *MerakiClient) buildURL(path string, params url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base := m.baseURL + path
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}

// doRequest executes an HTTP request with retry logic and rate limit handling.
// It retries on 429 (Too Many Requests), honouring Retry-After when present.
// Returns the response body, next page URL (from Link header), and any error.
func (m *MerakiClient) doRequest(ctx context.Context, method, fullURL string) ([]byte, string, error) {
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
		if err != nil {
			return nil, "", err
		}
		req.Header.Set("X-Cisco-Meraki-API-Key", m.apiKey)
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := m.client.Do(req)
		if err != nil {
			return nil, "", err
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := time.Second * time.Duration(1+attempt)
			if seconds, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && seconds >= 0 {
				wait = time.Duration(seconds) * time.Second
			}
			if err := m.sleep(ctx, wait); err != nil {
				return nil, "", err
			}
			continue
		}

		if resp.StatusCode >= 300 {
			return nil, "", &APIError{
				Method:     method,
				Path:       req.URL.Path,
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(body)),
			}
		}

		next := parseLinkNext(resp.Header.Get("Link"))
		return body, next, nil
	}
	return nil, "", ErrRetriesExhausted
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseLinkNext extracts the next page URL from a Link header.
// Example Link header: <https://api.meraki.com/api/v1/...?startingAfter=x>; rel="next"
func parseLinkNext(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	parts := strings.Split(linkHeader, ",")
	for _, part := range parts {
		section := strings.TrimSpace(part)
		if !strings.Contains(section, "rel=\"next\"") && !strings.Contains(section, "rel=next") {
			continue
		}
		start := strings.Index(section, "<")
		end := strings.Index(section, ">")
		if start == -1 || end == -1 || end <= start+1 {
			continue
		}
		return section[start+1 : end]
	}
	return ""
}
