package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWeatherToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/weather", r.URL.Path)
		require.Equal(t, "Paris", r.URL.Query().Get("q"))
		require.Equal(t, "test-key", r.URL.Query().Get("appid"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		fmt.Fprint(w, `{"name":"Paris","main":{"temp":21.5},"weather":[{"description":"scattered clouds"}]}`)
	}))
	defer server.Close()

	tool := NewWeatherTool("test-key", WithWeatherBaseURL(server.URL))
	output, err := tool.Call(context.Background(), json.RawMessage(`{"location":"Paris"}`))
	require.NoError(t, err)
	require.Equal(t, "The temperature in Paris is 21.5°C with scattered clouds.", output)
}

func TestWeatherToolRequiresLocation(t *testing.T) {
	tool := NewWeatherTool("test-key")
	_, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestWeatherToolUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tool := NewWeatherTool("bad-key", WithWeatherBaseURL(server.URL))
	_, err := tool.Call(context.Background(), json.RawMessage(`{"location":"Paris"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}
