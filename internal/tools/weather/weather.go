// Package weather provides the get_weather tool backed by the Open-Meteo
// forecast API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ashutoshrp06/agentflow/internal/retryhttp"
	"github.com/ashutoshrp06/agentflow/internal/tools"
)

const DefaultEndpoint = "https://api.open-meteo.com/v1/forecast"

type Args struct {
	Lat float64 `json:"lat" jsonschema:"Latitude of the location"`
	Lon float64 `json:"lon" jsonschema:"Longitude of the location"`
}

// Service queries current conditions.
type Service struct {
	endpoint string
	http     *retryhttp.Client
}

// New creates a weather service. An empty endpoint uses Open-Meteo.
func New(endpoint string, client *retryhttp.Client) *Service {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = retryhttp.New(retryhttp.Config{})
	}
	return &Service{endpoint: endpoint, http: client}
}

// Tool returns get_weather.
func (s *Service) Tool() tools.Tool {
	return tools.Must[Args]("get_weather",
		"Get current temperature for provided coordinates.",
		func(ctx context.Context, args Args) (any, error) {
			return s.Current(ctx, args.Lat, args.Lon)
		})
}

// Current returns the "current" block of the forecast response: temperature
// in Celsius and wind speed, keyed as Open-Meteo names them.
func (s *Service) Current(ctx context.Context, lat, lon float64) (map[string]any, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range: lat=%g lon=%g", lat, lon)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("current", "temperature_2m,wind_speed_10m")

	body, err := s.http.Get(ctx, s.endpoint+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}

	var decoded struct {
		Current map[string]any `json:"current"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	if decoded.Current == nil {
		return nil, errors.New("weather response has no current conditions")
	}
	return decoded.Current, nil
}
