package runtimeinit

import (
	"fmt"

	"go.uber.org/zap"

	"glass-notify/src/config"
	"glass-notify/src/credential"
	"glass-notify/src/llm"
	"glass-notify/src/logutil"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Verbose mirrors info logs to stderr.
	Verbose bool
}

// Runtime is everything both binaries share once configuration is loaded.
type Runtime struct {
	Config     *config.Config
	Log        *zap.SugaredLogger
	Flush      func()
	Store      *credential.FileStore
	Credential *credential.Holder
	Client     *llm.Client
	Fetcher    llm.Fetcher
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, flush := logutil.Setup(logutil.Options{
		EnableFile: cfg.EnableFileLogging,
		File:       cfg.LogFile,
		Console:    opts.Verbose,
	})

	store := credential.NewFileStore(cfg.CredentialFile)
	key, err := credential.Load(store, cfg.APIKey)
	if err != nil {
		log.Warnw("Stored credential unreadable", "path", store.Path(), "error", err)
	}
	if key == "" {
		log.Warnw("No API key configured; set one from the menu", "key_file", cfg.APIKeyPath)
	} else {
		log.Infow("API key loaded", "key", logutil.RedactKey(key))
	}

	client := llm.New(llm.Config{
		Endpoint:         cfg.Endpoint,
		Model:            cfg.Model,
		MaxTokens:        cfg.MaxTokens,
		Temperature:      cfg.Temperature,
		TransportTimeout: cfg.TransportTimeout,
		Timeout:          cfg.RequestTimeout,
	})
	log.Infow("Configuration loaded", "model", cfg.Model, "endpoint", cfg.Endpoint, "hotkey", cfg.Hotkey,
		"enrichment", cfg.EnrichmentEnabled, "cache_ttl", cfg.CacheTTL)

	return &Runtime{
		Config:     cfg,
		Log:        log,
		Flush:      flush,
		Store:      store,
		Credential: credential.NewHolder(key),
		Client:     client,
		Fetcher:    llm.NewCached(client, cfg.CacheTTL),
	}, nil
}
