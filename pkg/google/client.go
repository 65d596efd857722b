package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// searchFieldMask selects the place fields the engine consumes.
var searchFieldMask = strings.Join([]string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.location",
	"places.rating",
	"places.userRatingCount",
	"places.types",
	"places.primaryType",
	"places.businessStatus",
	"places.photos",
}, ",")

// Client performs Google Places API operations.
type Client interface {
	SearchText(ctx context.Context, req SearchTextRequest) (*SearchTextResponse, error)
	PhotoURL(photoName string, maxWidthPx int) string
}

// SearchTextRequest is the body of a Places Text Search call.
type SearchTextRequest struct {
	TextQuery      string        `json:"textQuery"`
	LanguageCode   string        `json:"languageCode,omitempty"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	LocationBias   *LocationBias `json:"locationBias,omitempty"`
}

// LocationBias biases results toward a circle.
type LocationBias struct {
	Circle Circle `json:"circle"`
}

// Circle is a center point and radius in meters.
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// LatLng is a WGS 84 coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchTextResponse is the response from Places Text Search.
type SearchTextResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID               string      `json:"id"`
	DisplayName      DisplayName `json:"displayName"`
	FormattedAddress string      `json:"formattedAddress"`
	Location         *LatLng     `json:"location,omitempty"`
	Rating           *float64    `json:"rating,omitempty"`
	UserRatingCount  int         `json:"userRatingCount"`
	Types            []string    `json:"types"`
	PrimaryType      string      `json:"primaryType"`
	BusinessStatus   string      `json:"businessStatus"`
	Photos           []Photo     `json:"photos"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// Photo references a place photo resource, e.g. "places/abc/photos/xyz".
type Photo struct {
	Name     string `json:"name"`
	WidthPx  int    `json:"widthPx"`
	HeightPx int    `json:"heightPx"`
}

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchText(ctx context.Context, in SearchTextRequest) (*SearchTextResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result SearchTextResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	return &result, nil
}

// PhotoURL returns the media URL for a photo resource name, or "" when
// photoName is empty.
func (c *httpClient) PhotoURL(photoName string, maxWidthPx int) string {
	if photoName == "" {
		return ""
	}
	if maxWidthPx <= 0 {
		maxWidthPx = 400
	}
	q := url.Values{}
	q.Set("maxWidthPx", fmt.Sprint(maxWidthPx))
	q.Set("key", c.apiKey)
	return c.baseURL + "/" + strings.TrimPrefix(photoName, "/") + "/media?" + q.Encode()
}
