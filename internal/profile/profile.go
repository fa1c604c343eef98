package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address for the server.
	Addr string
	// Port is the binding port for the server.
	Port int
	// DSN points to the PostgreSQL database holding collections,
	// chunks and conversation transcripts.
	DSN string
	// Version is the current version of the server.
	Version string

	// UploadDir is where uploaded documents are staged before chunking.
	UploadDir string

	// OpenAIAPIKey authenticates chat and embedding calls.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the API endpoint (OpenAI-compatible providers).
	OpenAIBaseURL string
	// ChatModel is the model used for the agent reasoning loop.
	ChatModel string
	// EmbeddingModel is the model used to embed queries and chunks.
	EmbeddingModel string
	// EmbeddingDimensions is the width of stored vectors.
	EmbeddingDimensions int

	// OpenWeatherAPIKey enables the weather tool when set.
	OpenWeatherAPIKey string
	// TavilyAPIKey enables the web search tool when set.
	TavilyAPIKey string

	// ActivityTTL is the sliding expiry for session activity records.
	ActivityTTL time.Duration
	// MaxToolIterations caps the agent tool-use loop per call.
	MaxToolIterations int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Validate normalizes the profile and rejects configurations the
// server cannot start with.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if strings.TrimSpace(p.DSN) == "" {
		return errors.New("dsn is required")
	}
	if p.UploadDir == "" {
		p.UploadDir = "uploads"
	}
	if p.ChatModel == "" {
		p.ChatModel = "gpt-4o-mini"
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = "text-embedding-3-small"
	}
	if p.EmbeddingDimensions <= 0 {
		p.EmbeddingDimensions = 1536
	}
	if p.ActivityTTL <= 0 {
		p.ActivityTTL = 900 * time.Second
	}
	if p.MaxToolIterations <= 0 {
		p.MaxToolIterations = 5
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}
