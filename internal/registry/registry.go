// Package registry defines the item registry collaborator: the external
// service that knows which gateway hosts an item and which organisation
// owns it. It is consumed by contract authorization resolution.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrItemUnknown is returned when the registry has no record of an oid.
var ErrItemUnknown = errors.New("item unknown to registry")

// ItemRegistry resolves item ownership.
type ItemRegistry interface {
	// ResolveOwningGateway returns the agid hosting oid.
	ResolveOwningGateway(ctx context.Context, oid string) (string, error)

	// ResolveOwningOrg returns the cid owning oid.
	ResolveOwningOrg(ctx context.Context, oid string) (string, error)
}

// Client is an HTTP implementation of ItemRegistry.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an HTTP registry client. baseURL is the registry origin,
// e.g. "https://registry.internal:9400".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// itemResponse is the registry's item lookup payload.
type itemResponse struct {
	OID       string `json:"oid"`
	GatewayID string `json:"agid"`
	OwnerCID  string `json:"cid"`
}

func (c *Client) lookup(ctx context.Context, oid string) (*itemResponse, error) {
	lookupURL, err := url.JoinPath(c.baseURL, "items", url.PathEscape(oid))
	if err != nil {
		return nil, fmt.Errorf("failed to build registry URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("oid %s: %w", oid, ErrItemUnknown)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("registry returned status %d: %s", resp.StatusCode, string(body))
	}

	var item itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}
	return &item, nil
}

// ResolveOwningGateway returns the agid hosting oid.
func (c *Client) ResolveOwningGateway(ctx context.Context, oid string) (string, error) {
	item, err := c.lookup(ctx, oid)
	if err != nil {
		return "", err
	}
	return item.GatewayID, nil
}

// ResolveOwningOrg returns the cid owning oid.
func (c *Client) ResolveOwningOrg(ctx context.Context, oid string) (string, error) {
	item, err := c.lookup(ctx, oid)
	if err != nil {
		return "", err
	}
	return item.OwnerCID, nil
}

// MemoryRegistry is an in-memory ItemRegistry, used in tests and for
// single-process deployments without an external registry.
type MemoryRegistry struct {
	gateways map[string]string // oid -> agid
	owners   map[string]string // oid -> cid
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		gateways: make(map[string]string),
		owners:   make(map[string]string),
	}
}

// Add registers an item with its hosting gateway and owning organisation.
func (m *MemoryRegistry) Add(oid, agid, cid string) {
	m.gateways[oid] = agid
	m.owners[oid] = cid
}

func (m *MemoryRegistry) ResolveOwningGateway(ctx context.Context, oid string) (string, error) {
	agid, ok := m.gateways[oid]
	if !ok {
		return "", fmt.Errorf("oid %s: %w", oid, ErrItemUnknown)
	}
	return agid, nil
}

func (m *MemoryRegistry) ResolveOwningOrg(ctx context.Context, oid string) (string, error) {
	cid, ok := m.owners[oid]
	if !ok {
		return "", fmt.Errorf("oid %s: %w", oid, ErrItemUnknown)
	}
	return cid, nil
}
