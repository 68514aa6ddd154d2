// Package cli provides the cobra command tree for hrdesk.
// It is also the composition root: adapters are constructed lazily from
// configuration the first time a command needs the core services.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/audit"
	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/config/file"
	ollamaembed "github.com/hrdesk-labs/hrdesk/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/hrdesk-labs/hrdesk/internal/adapters/driven/embedding/openai"
	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/guardrail"
	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/hrtools"
	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/hrdesk-labs/hrdesk/internal/adapters/driven/llm/ollama"
	openaillm "github.com/hrdesk-labs/hrdesk/internal/adapters/driven/llm/openai"
	storemem "github.com/hrdesk-labs/hrdesk/internal/adapters/driven/storage/memory"
	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/storage/sqlite"
	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/tokencount"
	vectormem "github.com/hrdesk-labs/hrdesk/internal/adapters/driven/vector/memory"
	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/vector/pgvector"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/core/services"
	"github.com/hrdesk-labs/hrdesk/internal/ingest/chunker"
	"github.com/hrdesk-labs/hrdesk/internal/ingest/pdftext"
	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagVerbose   bool
	flagConfigDir string
)

// app holds the wired services shared by all commands.
type app struct {
	assistant *services.Assistant
	ingest    *services.IngestService
	docs      driven.DocumentStore
	vector    driven.VectorIndex

	closers []func() error
}

var (
	appOnce     sync.Once
	appInstance *app
	appErr      error
)

var rootCmd = &cobra.Command{
	Use:   "hrdesk",
	Short: "HR policy assistant with retrieval and leave filing",
	Long: `hrdesk answers HR policy questions from an ingested policy corpus,
with citations, and files leave applications through a guided dialogue.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default ~/.hrdesk)")
}

// Execute runs the root command.
func Execute() error {
	defer closeApp()
	return rootCmd.Execute()
}

// getApp builds the application once, on first use.
func getApp() (*app, error) {
	appOnce.Do(func() {
		appInstance, appErr = buildApp()
	})
	return appInstance, appErr
}

func closeApp() {
	if appInstance == nil {
		return
	}
	for i := len(appInstance.closers) - 1; i >= 0; i-- {
		if err := appInstance.closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

// buildApp constructs all adapters and core services from config.
func buildApp() (*app, error) {
	cfg, err := file.NewConfigStore(flagConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, embedder.Close)

	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	for _, p := range providers {
		a.closers = append(a.closers, p.Close)
	}

	vectorIndex, err := buildVectorIndex(cfg, embedder)
	if err != nil {
		return nil, err
	}
	a.vector = vectorIndex
	a.closers = append(a.closers, vectorIndex.Close)

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	a.docs = store.DocumentStore()

	counter := tokencount.NewCounter(cfg.GetString("tokens.encoding"))

	ingestOpts := []services.IngestOption{}
	if err := pdftext.CheckAvailable(); err == nil {
		ingestOpts = append(ingestOpts, services.WithPDFExtractor(pdftext.New()))
	} else {
		logger.Debug("PDF ingestion disabled: %v (%s)", err, pdftext.InstallInstructions())
	}
	a.ingest = services.NewIngestService(a.docs, vectorIndex, embedder, chunker.New(counter), ingestOpts...)

	retrieverOpts := []services.RetrieverOption{}
	if floor := cfg.GetFloat("retrieval.confidence_floor"); floor > 0 {
		retrieverOpts = append(retrieverOpts, services.WithConfidenceFloor(floor))
	}
	retriever := services.NewRetriever(vectorIndex, embedder, retrieverOpts...)

	governor := services.NewGovernor(
		providers, counter, storemem.NewCompletionCache(cfg.GetInt("routing.cache_capacity")),
		audit.NewLogSink(),
	)

	classifier := services.NewIntentClassifier(embedder, cfg.GetFloat("intent.threshold"))
	router := services.NewIntentRouter(classifier, cfg.GetFloat("intent.switch_threshold"))

	toolClient, err := buildToolClient(cfg)
	if err != nil {
		return nil, err
	}
	invoker := services.NewToolInvoker(toolClient, 0)

	sessions := store.SessionStore()
	if mins := cfg.GetInt("sessions.ttl_minutes"); mins > 0 {
		sessions = store.SessionStoreWithTTL(time.Duration(mins) * time.Minute)
	}
	gate := buildGuardrail(cfg)

	prompts, err := file.NewPromptStore(cfg.GetString("prompts.dir"))
	if err != nil {
		return nil, fmt.Errorf("creating prompt store: %w", err)
	}
	var assistantOpts []services.AssistantOption
	if p, err := prompts.Load(driven.PromptPolicyAnswer); err == nil {
		assistantOpts = append(assistantOpts, services.WithPolicyPrompt(p))
	}
	if p, err := prompts.Load(driven.PromptLeaveExtraction); err == nil {
		assistantOpts = append(assistantOpts, services.WithExtractionPrompt(p))
	}

	a.assistant = services.NewAssistant(
		retriever, governor, router, invoker, sessions, gate, assistantOpts...)

	return a, nil
}

func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	switch provider := cfg.GetString("embedding.provider"); provider {
	case "", "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.GetString("embedding.base_url"),
			Model:   cfg.GetString("embedding.model"),
		})
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.GetString("embedding.base_url"),
			Model:   cfg.GetString("embedding.model"),
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// buildProviders assembles the ordered provider fallback chain.
// The default chain is every provider with credentials available, in
// openai, anthropic, ollama order.
func buildProviders(cfg driven.ConfigStore) ([]driven.LLMProvider, error) {
	names := cfg.GetStringSlice("llm.providers")
	if len(names) == 0 {
		if os.Getenv("OPENAI_API_KEY") != "" {
			names = append(names, "openai")
		}
		if os.Getenv("ANTHROPIC_API_KEY") != "" {
			names = append(names, "anthropic")
		}
		names = append(names, "ollama")
	}

	var providers []driven.LLMProvider
	for _, name := range names {
		switch name {
		case "openai":
			p, err := openaillm.NewProvider(openaillm.Config{
				APIKey:       os.Getenv("OPENAI_API_KEY"),
				DefaultModel: cfg.GetString("llm.openai.default_model"),
				PremiumModel: cfg.GetString("llm.openai.premium_model"),
			})
			if err != nil {
				return nil, fmt.Errorf("configuring openai: %w", err)
			}
			providers = append(providers, p)
		case "anthropic":
			p, err := anthropic.NewProvider(anthropic.Config{
				APIKey:       os.Getenv("ANTHROPIC_API_KEY"),
				DefaultModel: cfg.GetString("llm.anthropic.default_model"),
				PremiumModel: cfg.GetString("llm.anthropic.premium_model"),
			})
			if err != nil {
				return nil, fmt.Errorf("configuring anthropic: %w", err)
			}
			providers = append(providers, p)
		case "ollama":
			p, err := ollamallm.NewProvider(ollamallm.Config{
				BaseURL:      cfg.GetString("llm.ollama.base_url"),
				DefaultModel: cfg.GetString("llm.ollama.default_model"),
				PremiumModel: cfg.GetString("llm.ollama.premium_model"),
			})
			if err != nil {
				return nil, fmt.Errorf("configuring ollama: %w", err)
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("unknown llm provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, errors.New("no llm providers configured")
	}
	return providers, nil
}

func buildVectorIndex(cfg driven.ConfigStore, embedder driven.EmbeddingService) (driven.VectorIndex, error) {
	switch backend := cfg.GetString("vector.backend"); backend {
	case "", "memory":
		return vectormem.NewIndex(), nil
	case "pgvector":
		dsn := cfg.GetString("vector.dsn")
		if dsn == "" {
			dsn = os.Getenv("HRDESK_VECTOR_DSN")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return pgvector.NewIndex(ctx, pgvector.Config{
			DSN:        dsn,
			Dimensions: embedder.Dimensions(),
			Table:      cfg.GetString("vector.table"),
		})
	default:
		return nil, fmt.Errorf("unknown vector backend %q", backend)
	}
}

func buildToolClient(cfg driven.ConfigStore) (driven.ToolClient, error) {
	baseURL := cfg.GetString("tools.base_url")
	if baseURL == "" {
		baseURL = os.Getenv("HRDESK_TOOLS_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8089"
	}
	return hrtools.NewClient(hrtools.Config{
		BaseURL: baseURL,
		APIKey:  os.Getenv("HRDESK_TOOLS_API_KEY"),
		RPS:     cfg.GetFloat("tools.rps"),
		Burst:   cfg.GetInt("tools.burst"),
	})
}

// buildGuardrail returns the HTTP guardrail when an endpoint is
// configured, otherwise the local denylist passthrough.
func buildGuardrail(cfg driven.ConfigStore) driven.Guardrail {
	endpoint := cfg.GetString("guardrail.endpoint")
	if endpoint == "" {
		endpoint = os.Getenv("HRDESK_GUARDRAIL_URL")
	}
	if endpoint == "" {
		return guardrail.NewPassthroughGuardrail(cfg.GetStringSlice("guardrail.denylist")...)
	}

	g, err := guardrail.NewHTTPGuardrail(guardrail.Config{
		Endpoint: endpoint,
		APIKey:   os.Getenv("HRDESK_GUARDRAIL_API_KEY"),
		FailOpen: cfg.GetBool("guardrail.fail_open"),
	})
	if err != nil {
		logger.Warn("guardrail: %v, falling back to passthrough", err)
		return guardrail.NewPassthroughGuardrail()
	}
	return g
}
