// Package app wires configuration, upstream source, plugin registry,
// pipeline, cache and HTTP server into one runnable unit.
package app

import (
	"context"
	"fmt"
	"log"

	"unchained/internal/cache/artifact"
	"unchained/internal/config"
	"unchained/internal/pipeline"
	"unchained/internal/plugin"
	"unchained/internal/plugins"
	"unchained/internal/server"
	"unchained/internal/transform"
	"unchained/internal/upstream"
)

type App struct {
	server *server.Server
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	source, err := initSource(cfg)
	if err != nil {
		return nil, err
	}

	reg := plugin.Default()
	if err := plugins.Register(reg, plugins.Deps{
		Transformer: transform.Passthrough{},
		Source:      source,
	}); err != nil {
		return nil, fmt.Errorf("register plugins: %w", err)
	}

	engine, err := pipeline.New(pipeline.Config{
		Plugins:  pluginSpecs(cfg),
		Registry: reg,
		Marker:   cfg.Marker,
		Version:  cfg.Version,
	})
	if err != nil {
		return nil, err
	}

	store, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	validator, err := artifact.NewValidator(store, source, engine)
	if err != nil {
		return nil, err
	}

	hub := server.NewReloadHub()
	validator.OnReplace = hub.Broadcast

	modules := server.NewModuleHandler(validator, source, engine.Marker())
	mux := server.NewMux(modules, hub, validator)
	return &App{server: server.New(cfg.Port, mux)}, nil
}

func initSource(cfg *config.Config) (upstream.Source, error) {
	up := cfg.Upstream
	switch {
	case up.S3Enabled:
		log.Printf("upstream: s3 bucket=%s endpoint=%s", up.S3Bucket, up.S3Endpoint)
		return upstream.NewS3Source(upstream.S3Config{
			Endpoint:  up.S3Endpoint,
			Region:    up.S3Region,
			AccessKey: up.S3AccessKey,
			SecretKey: up.S3SecretKey,
			Bucket:    up.S3Bucket,
			UseSSL:    up.S3UseSSL,
		})
	case up.URL != "":
		log.Printf("upstream: origin %s", up.URL)
		return upstream.NewHTTPSource(up.URL)
	case up.Dir != "":
		log.Printf("upstream: directory %s", up.Dir)
		return upstream.NewDirSource(up.Dir)
	default:
		return upstream.NewDirSource(".")
	}
}

func initStore(cfg *config.Config) (artifact.Store, error) {
	if cfg.Cache.Dir != "" {
		log.Printf("artifact cache: disk at %s", cfg.Cache.Dir)
		return newDiskStore(cfg)
	}
	return artifact.NewMemoryStore(artifact.MemoryConfig{
		MaxEntries: cfg.Cache.MaxEntries,
		MaxBytes:   cfg.Cache.MaxBytes,
		TTL:        cfg.Cache.TTL,
	}), nil
}

func pluginSpecs(cfg *config.Config) []plugin.Spec {
	entries := cfg.Pipeline.Plugins
	if len(entries) == 0 {
		return plugins.DefaultSpecs()
	}
	specs := make([]plugin.Spec, 0, len(entries))
	for _, e := range entries {
		if len(e.Options) > 0 {
			specs = append(specs, plugin.WithOptions(e.Name, plugin.Options(e.Options)))
		} else {
			specs = append(specs, plugin.ByName(e.Name))
		}
	}
	return specs
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
