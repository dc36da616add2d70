package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spigell/hr-copilot/internal/ai"
	"github.com/spigell/hr-copilot/internal/ai/gemini"
	"github.com/spigell/hr-copilot/internal/identity"
	"github.com/spigell/hr-copilot/internal/logger"
	"github.com/spigell/hr-copilot/internal/secrets"
	"github.com/spigell/hr-copilot/internal/store"

	"go.uber.org/zap"
)

// newGateway builds the model gateway from config. Only the Gemini provider
// is supported.
func newGateway(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*ai.Gateway, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, fmt.Errorf("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, genLogger)
	if err != nil {
		return nil, err
	}

	opts := []ai.Option{}
	if cfg.Gemini.TimeoutSeconds > 0 {
		opts = append(opts, ai.WithTimeout(time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second))
	}
	if cfg.Gemini.MaxLogLength > 0 {
		opts = append(opts, ai.WithMaxLogLength(cfg.Gemini.MaxLogLength))
	}

	return ai.NewGateway(generator, genLogger, opts...), nil
}

// newStore builds the record store from config. The returned func releases
// the backend.
func newStore(ctx context.Context, cfg *StoreConfig, log *zap.Logger) (store.Store, func(), error) {
	driver := "memory"
	if cfg != nil && strings.TrimSpace(cfg.Driver) != "" {
		driver = strings.TrimSpace(strings.ToLower(cfg.Driver))
	}

	switch driver {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "postgres":
		if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
			return nil, nil, fmt.Errorf("store.url is required for the postgres driver")
		}

		pollInterval := time.Duration(cfg.PollIntervalSeconds) * time.Second
		pg, err := store.ConnectPostgres(ctx, cfg.URL, log, pollInterval)
		if err != nil {
			return nil, nil, err
		}

		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}

		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

// loadPolicy returns the policy document for the Q&A assistant.
func loadPolicy(cfg *PolicyConfig) (string, error) {
	if cfg == nil || strings.TrimSpace(cfg.File) == "" {
		return "", fmt.Errorf("policy.file is required for the policy assistant")
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return "", fmt.Errorf("reading policy document: %w", err)
	}

	return string(data), nil
}

func resolveIdentity(cfg *UserConfig) identity.Identity {
	if cfg == nil {
		return identity.Resolve("", "")
	}
	return identity.Resolve(cfg.ID, cfg.Name)
}
