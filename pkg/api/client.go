// Package api describes the valuation backend's endpoints.
package api

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/property"
)

// Defaults
const (
	DefaultBaseURL      = "http://localhost:3001"
	DefaultCandidateTop = 10
)

// Client builds backend URLs relative to a base URL.
type Client struct {
	BaseURL string
}

// NewClient creates a client for baseURL. A trailing slash is ignored.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/")}
}

// CandidatesURL lists the top nearest EPC records to loc.
func (c *Client) CandidatesURL(loc geo.Location, top int) string {
	return c.endpoint("/epc", loc.Lat, loc.Lng, top)
}

// FeaturesURL returns the area attributes at a coordinate pair.
func (c *Client) FeaturesURL(lat, lng float64) string {
	return c.endpoint("/features", lat, lng, 1)
}

// PredictURL is the prediction endpoint. It takes a POSTed request payload.
func (c *Client) PredictURL() string {
	return c.BaseURL + "/predict"
}

func (c *Client) endpoint(path string, lat, lng float64, top int) string {
	q := url.Values{}
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lng))
	q.Set("top", strconv.Itoa(top))
	return c.BaseURL + path + "?" + encodeOrdered(q, "lat", "lon", "top")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// encodeOrdered encodes q with keys in the given order rather than sorted.
func encodeOrdered(q url.Values, keys ...string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(q.Get(k)))
	}
	return strings.Join(parts, "&")
}

// PredictionResponse is the body returned by the prediction endpoint.
type PredictionResponse struct {
	Prediction *property.Prediction `json:"prediction"`
}

// ErrNoPrediction is reported for a response without a prediction object.
var ErrNoPrediction = errors.New("response has no prediction")

// Validate reports whether the response carries a prediction.
func (r *PredictionResponse) Validate() error {
	if r.Prediction == nil {
		return ErrNoPrediction
	}
	return nil
}
