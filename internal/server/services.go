package server

import (
	"context"
	"fmt"

	"github.com/jackzampolin/bookboost/internal/chapters"
	"github.com/jackzampolin/bookboost/internal/config"
	"github.com/jackzampolin/bookboost/internal/convert"
	"github.com/jackzampolin/bookboost/internal/defra"
	"github.com/jackzampolin/bookboost/internal/events"
	"github.com/jackzampolin/bookboost/internal/extract"
	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/llmcall"
	"github.com/jackzampolin/bookboost/internal/objstore"
	"github.com/jackzampolin/bookboost/internal/pipeline"
	"github.com/jackzampolin/bookboost/internal/prompts"
	"github.com/jackzampolin/bookboost/internal/prompts/chapter_cleanup"
	"github.com/jackzampolin/bookboost/internal/prompts/chapter_titles"
	"github.com/jackzampolin/bookboost/internal/prompts/evaluate"
	"github.com/jackzampolin/bookboost/internal/providers"
	"github.com/jackzampolin/bookboost/internal/schema"
	"github.com/jackzampolin/bookboost/internal/svcctx"
)

// buildServices wires the configured backends into the pipeline. Callers
// hold mu; on error closeBackends releases anything partially built.
func (s *Server) buildServices(ctx context.Context) (*svcctx.Services, error) {
	cfg := s.configMgr.Get()

	store, err := s.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.store = store

	root := cfg.Objects.Root
	if root == "" {
		root = s.home.ObjectsPath()
	}
	objects, err := objstore.NewOS(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}

	s.bus = events.New(events.Config{
		Workers:       cfg.Defaults.MaxWorkers,
		MaxDeliveries: cfg.Defaults.MaxDeliveries,
		Logger:        s.logger,
	})

	calls := llmcall.NewStore(llmcall.DefaultCapacity)
	recorder := llmcall.Multi{calls, llmcall.LogRecorder{Logger: s.logger}}
	if s.sink != nil {
		recorder = append(recorder, llmcall.DefraRecorder{Sink: s.sink, Logger: s.logger})
	}

	resolver := prompts.NewResolver(s.logger)
	chapter_titles.RegisterPrompts(resolver)
	chapter_cleanup.RegisterPrompts(resolver)
	evaluate.RegisterPrompts(resolver)
	resolver.SetOverrides(cfg.PromptOverrides())

	s.configMgr.OnChange(func(c *config.Config) {
		s.registry.Reload(c.ToProviderRegistryConfig())
		resolver.SetOverrides(c.PromptOverrides())
		s.logger.Info("providers and prompts reloaded from config")
	})

	collaborator := func(task string) chapters.Config {
		return chapters.Config{
			Client: providers.NewRoutedClient(s.registry, func() string {
				return s.configMgr.Get().Defaults.ProviderFor(task)
			}),
			Prompts:  resolver,
			Recorder: recorder,
			Logger:   s.logger.With("task", task),
		}
	}

	converter, err := s.newConverter(cfg, objects)
	if err != nil {
		return nil, err
	}

	machine := pipeline.New(pipeline.Config{
		Store:         store,
		Objects:       objects,
		Publisher:     s.bus,
		Converter:     converter,
		Titles:        chapters.NewTitleExtractor(collaborator("titles")),
		PostProcessor: chapters.NewPostProcessor(collaborator("cleanup")),
		Evaluator:     chapters.NewEvaluator(collaborator("evaluation")),
		Extract: extract.Options{
			ASCIIFold:        cfg.Extraction.ASCIIFold,
			TocFallbackLines: cfg.Extraction.TocFallbackLines,
		},
		Logger: s.logger,
	})
	if s.local != nil {
		s.local.SetCallback(machine.HandleConverted)
	}
	machine.Register(s.bus)

	// The bus outlives the caller's context; Shutdown drains it.
	s.bus.Start(context.WithoutCancel(ctx))

	s.logger.Info("services ready",
		"store", cfg.Store.Backend,
		"conversion", cfg.Conversion.Mode,
		"objects", root,
		"llm_providers", s.registry.ListLLM())

	return &svcctx.Services{
		Store:        store,
		Objects:      objects,
		Bus:          s.bus,
		Machine:      machine,
		Registry:     s.registry,
		Prompts:      resolver,
		Config:       s.configMgr,
		DefraClient:  s.defraClient,
		DefraSink:    s.sink,
		Logger:       s.logger,
		Home:         s.home,
		LLMCallStore: calls,
		PublicURL:    s.publicURL,
	}, nil
}

// openStore opens the configured job store backend.
func (s *Server) openStore(ctx context.Context, cfg *config.Config) (jobs.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return jobs.NewMemoryStore(), nil

	case config.BackendSQLite, "":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = s.home.JobsDBPath()
		}
		store, err := jobs.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite job store: %w", err)
		}
		return store, nil

	case config.BackendDefra:
		if err := s.startDefra(ctx, cfg.Defra); err != nil {
			return nil, err
		}
		return jobs.NewDefraStore(s.defraClient, s.logger), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// startDefra runs the DefraDB container, registers the schemas and starts
// the write sink used for LLM call history.
func (s *Server) startDefra(ctx context.Context, cfg config.DefraConfig) error {
	manager, err := defra.NewDockerManager(defra.DockerConfig{
		ContainerName: cfg.ContainerName,
		Image:         cfg.Image,
		HostPort:      cfg.Port,
		DataPath:      s.home.DefraPath(),
		Labels:        s.defraLabels,
	})
	if err != nil {
		return fmt.Errorf("failed to create defra manager: %w", err)
	}
	s.defraManager = manager

	s.logger.Info("starting DefraDB")
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start DefraDB: %w", err)
	}

	client := defra.NewClient(manager.URL())
	if err := client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("DefraDB health check failed: %w", err)
	}
	s.defraClient = client
	s.logger.Info("DefraDB is ready", "url", manager.URL())

	s.logger.Info("initializing schemas")
	if err := schema.Initialize(ctx, client, s.logger); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	s.sink = defra.NewSink(defra.SinkConfig{Client: client, Logger: s.logger})
	s.sink.Start(context.WithoutCancel(ctx))
	return nil
}

// newConverter builds the configured document converter.
func (s *Server) newConverter(cfg *config.Config, objects *objstore.Store) (convert.Converter, error) {
	switch cfg.Conversion.Mode {
	case config.ConversionLocal, "":
		s.local = convert.NewLocal(convert.LocalConfig{Objects: objects, Logger: s.logger})
		return s.local, nil
	case config.ConversionRemote:
		return convert.NewRemote(convert.RemoteConfig{
			BaseURL:         cfg.Conversion.RemoteURL,
			APIKey:          config.ResolveEnvVars(cfg.Conversion.APIKey),
			CallbackBaseURL: s.publicURL,
			Objects:         objects,
			PollDelay:       cfg.Conversion.PollDelay,
			Logger:          s.logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown conversion mode %q", cfg.Conversion.Mode)
	}
}
