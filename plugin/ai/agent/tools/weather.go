package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai/jsonschema"
)

const defaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// WeatherTool answers current-weather questions through the OpenWeather
// API.
type WeatherTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// WeatherOption configures a WeatherTool.
type WeatherOption func(*WeatherTool)

// WithWeatherBaseURL overrides the API endpoint, used by tests.
func WithWeatherBaseURL(baseURL string) WeatherOption {
	return func(t *WeatherTool) {
		t.baseURL = baseURL
	}
}

// WithWeatherHTTPClient overrides the HTTP client.
func WithWeatherHTTPClient(client *http.Client) WeatherOption {
	return func(t *WeatherTool) {
		t.client = client
	}
}

// NewWeatherTool creates the weather tool.
func NewWeatherTool(apiKey string, opts ...WeatherOption) *WeatherTool {
	t := &WeatherTool{
		apiKey:  apiKey,
		baseURL: defaultOpenWeatherBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *WeatherTool) Name() string {
	return "weather"
}

func (t *WeatherTool) Description() string {
	return "Useful for when you need to answer questions about the current weather in a location."
}

func (t *WeatherTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"location": {
				Type:        jsonschema.String,
				Description: "The name of the location for which we need to find the weather",
			},
		},
		Required: []string{"location"},
	}
}

type weatherInput struct {
	Location string `json:"location"`
}

type weatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

func (t *WeatherTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var input weatherInput
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid weather arguments: %w", err)
	}
	if input.Location == "" {
		return "", fmt.Errorf("location is required")
	}

	endpoint := fmt.Sprintf("%s/weather?q=%s&appid=%s&units=metric",
		t.baseURL, url.QueryEscape(input.Location), url.QueryEscape(t.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var data weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode weather response: %w", err)
	}

	description := "unknown conditions"
	if len(data.Weather) > 0 {
		description = data.Weather[0].Description
	}
	return fmt.Sprintf("The temperature in %s is %.1f°C with %s.",
		input.Location, data.Main.Temp, description), nil
}

var _ Tool = (*WeatherTool)(nil)
