// Package weather implements the OpenWeather current-conditions provider. Only
// the two fields the rule needs are parsed: the temperature and the numeric
// condition codes.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"swelter/internal/types"
)

const (
	APIKeyEnvKey = "WEATHER_API_KEY"

	defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"
)

type OpenWeather struct {
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeather builds the provider. The circuit breaker keeps a flapping
// upstream from burning a whole batch cycle on doomed calls.
func NewOpenWeather(client *http.Client, apiKey string) *OpenWeather {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &OpenWeather{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  client,
		circuit: cb,
	}
}

// FromEnv builds the provider with the API key from WEATHER_API_KEY.
func FromEnv(client *http.Client) (*OpenWeather, error) {
	key := os.Getenv(APIKeyEnvKey)
	if key == "" {
		return nil, types.Err(types.ErrConfiguration, nil, "%s is not set", APIKeyEnvKey)
	}
	return NewOpenWeather(client, key), nil
}

// WithBaseURL points the provider at a different endpoint. Tests only.
func (p *OpenWeather) WithBaseURL(u string) *OpenWeather {
	p.baseURL = u
	return p
}

func (p *OpenWeather) Fetch(ctx context.Context, location string) (types.Observation, error) {
	values := url.Values{}
	values.Set("q", location)
	values.Set("appid", p.apiKey)
	values.Set("units", "imperial")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	if err != nil {
		return types.Observation{}, err
	}

	result, err := p.circuit.Execute(func() (any, error) {
		resp, execErr := p.client.Do(req)
		if execErr != nil {
			if errors.Is(execErr, context.DeadlineExceeded) {
				return nil, types.Err(types.ErrTimeout, execErr, "weather fetch for %q timed out", location)
			}
			return nil, types.Err(types.ErrUpstream, execErr, "")
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return nil, types.Err(types.ErrUpstream, readErr, "")
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &types.UpstreamError{API: "openweather", Status: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return types.Observation{}, types.Err(types.ErrUpstream, err, "weather circuit open")
		}
		return types.Observation{}, err
	}

	var payload struct {
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			ID int `json:"id"`
		} `json:"weather"`
	}
	if err := json.Unmarshal(result.([]byte), &payload); err != nil {
		return types.Observation{}, types.Err(types.ErrUpstream, err, "malformed weather response")
	}

	obs := types.Observation{TempF: payload.Main.Temp}
	for _, w := range payload.Weather {
		obs.ConditionIDs = append(obs.ConditionIDs, w.ID)
	}
	return obs, nil
}
