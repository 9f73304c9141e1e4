// Package befood fetches restaurant menus from the BE Food marketplace API.
package befood

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is the public marketplace gateway.
const DefaultBaseURL = "https://gw.be.com.vn/api/v1/be-marketplace/web"

// Config configures a Client.
type Config struct {
	BaseURL string        `yaml:"base_url" default:"https://gw.be.com.vn/api/v1/be-marketplace/web"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout" default:"15s"`

	// Latitude and Longitude locate the customer; menus are location aware.
	Latitude  float64 `yaml:"latitude" default:"10.77253621500006"`
	Longitude float64 `yaml:"longitude" default:"106.69798153800008"`
}

// Client calls the restaurant detail endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	lat     float64
	lon     float64
}

// NewClient creates a Client. The transport is instrumented with otelhttp
// using tp.
func NewClient(cfg Config, tp trace.TracerProvider) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.Token,
		lat:     cfg.Latitude,
		lon:     cfg.Longitude,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(tp),
			),
		},
	}
}

// detailRequest mirrors the client info block the mobile web app sends.
type detailRequest struct {
	Locale              string  `json:"locale"`
	AppVersion          string  `json:"app_version"`
	Version             string  `json:"version"`
	DeviceType          int     `json:"device_type"`
	CustomerPackageName string  `json:"customer_package_name"`
	ScreenHeight        int     `json:"screen_height"`
	ScreenWidth         int     `json:"screen_width"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	RestaurantID        string  `json:"restaurant_id"`
}

type detailResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *Menu  `json:"data"`
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("befood: unexpected status %d: %s", e.StatusCode, e.Body)
}

// RestaurantMenu fetches the menu of one restaurant.
func (c *Client) RestaurantMenu(ctx context.Context, restaurantID string) (*Menu, error) {
	body, err := json.Marshal(detailRequest{
		Locale:              "vi",
		AppVersion:          "11269",
		Version:             "1.1.269",
		DeviceType:          3,
		CustomerPackageName: "xyz.be.food",
		ScreenHeight:        640,
		ScreenWidth:         360,
		Latitude:            c.lat,
		Longitude:           c.lon,
		RestaurantID:        restaurantID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/restaurant/detail", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("app_version", "11269")
	req.Header.Set("version", "1.1.269")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "restaurant %s", restaurantID)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	var out detailResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "decode restaurant %s", restaurantID)
	}
	if out.Data == nil {
		return nil, errors.Errorf("restaurant %s: empty response: %s", restaurantID, out.Message)
	}
	return out.Data, nil
}
