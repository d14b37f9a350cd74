package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNoAddress = errors.New("no address for position")

type Address struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

type Geocoder interface {
	Reverse(ctx context.Context, pos Position) (Address, error)
}

type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *NominatimClient) Reverse(ctx context.Context, pos Position) (Address, error) {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(pos.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(pos.Longitude, 'f', -1, 64))
	query.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return Address{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Address{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Address{}, fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var payload struct {
		Address
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Address{}, err
	}
	if payload.Error != "" || (payload.DisplayName == "" && len(payload.Address.Address) == 0) {
		return Address{}, ErrNoAddress
	}
	return payload.Address, nil
}

var addressGroups = [][]string{
	{"amenity", "building", "road"},
	{"neighbourhood", "suburb", "quarter"},
	{"city", "town", "village", "county"},
	{"state"},
}

// ShortText picks one component per group, falling back to the full display name.
func (a Address) ShortText() string {
	var parts []string
	seen := make(map[string]bool)
	for _, group := range addressGroups {
		for _, key := range group {
			value := strings.TrimSpace(a.Address[key])
			if value == "" {
				continue
			}
			if !seen[value] {
				parts = append(parts, value)
				seen[value] = true
			}
			break
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(a.DisplayName)
	}
	return strings.Join(parts, ", ")
}
