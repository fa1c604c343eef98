package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lamberr/ragline/internal/profile"
	"github.com/lamberr/ragline/plugin/ai"
	"github.com/lamberr/ragline/plugin/ai/agent"
	"github.com/lamberr/ragline/plugin/ai/agent/tools"
	"github.com/lamberr/ragline/server"
	"github.com/lamberr/ragline/server/retrieval"
	apiv1 "github.com/lamberr/ragline/server/router/api/v1"
	"github.com/lamberr/ragline/store"
	"github.com/lamberr/ragline/store/db"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "ragline",
	Short: "ragline is a retrieval-augmented conversational agent service",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:                viper.GetString("mode"),
			Addr:                viper.GetString("addr"),
			Port:                viper.GetInt("port"),
			DSN:                 viper.GetString("dsn"),
			Version:             version,
			UploadDir:           viper.GetString("upload-dir"),
			OpenAIAPIKey:        viper.GetString("openai-api-key"),
			OpenAIBaseURL:       viper.GetString("openai-base-url"),
			ChatModel:           viper.GetString("chat-model"),
			EmbeddingModel:      viper.GetString("embedding-model"),
			EmbeddingDimensions: viper.GetInt("embedding-dimensions"),
			OpenWeatherAPIKey:   viper.GetString("openweather-api-key"),
			TavilyAPIKey:        viper.GetString("tavily-api-key"),
			ActivityTTL:         time.Duration(viper.GetInt("activity-ttl-seconds")) * time.Second,
			MaxToolIterations:   viper.GetInt("max-tool-iterations"),
		}
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("invalid profile: %w", err)
		}
		setupLogger(instanceProfile)
		return run(instanceProfile)
	},
}

func run(instanceProfile *profile.Profile) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("create db driver: %w", err)
	}
	storeInstance := store.New(driver, instanceProfile)
	defer storeInstance.Close()

	if err := storeInstance.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	llmService, err := ai.NewLLMService(ai.LLMConfig{
		APIKey:  instanceProfile.OpenAIAPIKey,
		BaseURL: instanceProfile.OpenAIBaseURL,
		Model:   instanceProfile.ChatModel,
	})
	if err != nil {
		return fmt.Errorf("create llm service: %w", err)
	}
	embeddingService, err := ai.NewEmbeddingService(ai.EmbeddingConfig{
		APIKey:     instanceProfile.OpenAIAPIKey,
		BaseURL:    instanceProfile.OpenAIBaseURL,
		Model:      instanceProfile.EmbeddingModel,
		Dimensions: instanceProfile.EmbeddingDimensions,
	})
	if err != nil {
		return fmt.Errorf("create embedding service: %w", err)
	}

	retriever, err := retrieval.NewRetriever(storeInstance, embeddingService)
	if err != nil {
		return fmt.Errorf("create retriever: %w", err)
	}

	buildRegistry := func(collectionName string) (*tools.Registry, error) {
		registry := tools.NewRegistry()
		queryTool, err := tools.NewRetrievalTool(retriever, collectionName)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(queryTool); err != nil {
			return nil, err
		}
		if instanceProfile.OpenWeatherAPIKey != "" {
			if err := registry.Register(tools.NewWeatherTool(instanceProfile.OpenWeatherAPIKey)); err != nil {
				return nil, err
			}
		}
		if instanceProfile.TavilyAPIKey != "" {
			if err := registry.Register(tools.NewWebSearchTool(instanceProfile.TavilyAPIKey)); err != nil {
				return nil, err
			}
		}
		return registry, nil
	}

	orchestrator, err := agent.New(
		llmService,
		agent.NewHistoryStore(),
		agent.NewActivityTracker(agent.WithTTL(instanceProfile.ActivityTTL)),
		buildRegistry,
		agent.WithMaxIterations(instanceProfile.MaxToolIterations),
		agent.WithTranscriptWriter(storeInstance),
	)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	apiV1Service := apiv1.NewAPIV1Service(instanceProfile, storeInstance, orchestrator, embeddingService)
	httpServer, err := server.NewServer(ctx, instanceProfile, storeInstance, apiV1Service)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	return httpServer.Start(ctx)
}

func setupLogger(instanceProfile *profile.Profile) {
	var handler slog.Handler
	if instanceProfile.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	flags.String("addr", "", "binding address for the server")
	flags.Int("port", 8000, "binding port for the server")
	flags.String("dsn", "", "PostgreSQL connection string")
	flags.String("upload-dir", "uploads", "staging directory for uploaded documents")
	flags.String("openai-api-key", "", "API key for chat and embedding calls")
	flags.String("openai-base-url", "", "override endpoint for OpenAI-compatible providers")
	flags.String("chat-model", "gpt-4o-mini", "model for the agent reasoning loop")
	flags.String("embedding-model", "text-embedding-3-small", "model for query and chunk embeddings")
	flags.Int("embedding-dimensions", 1536, "width of stored vectors")
	flags.String("openweather-api-key", "", "enables the weather tool when set")
	flags.String("tavily-api-key", "", "enables the web search tool when set")
	flags.Int("activity-ttl-seconds", 900, "sliding expiry for session activity records")
	flags.Int("max-tool-iterations", 5, "cap on the agent tool-use loop per call")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("ragline")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
