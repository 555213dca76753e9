package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pagebuilder/internal/backup"
	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/publish"
	"pagebuilder/internal/registry"
	"pagebuilder/internal/render"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/watch"
)

// Runtime is everything a front end (desktop, MCP, CLI) needs, built once
// from configuration.
type Runtime struct {
	Config   config.Config
	Log      *zap.Logger
	Registry *registry.Registry
	Editor   *service.EditorService
	Renderer *render.Renderer
	Backup   *backup.Scheduler
	Watcher  *watch.Watcher
	Window   *service.WindowSettingsService
	Secrets  secret.SecretStore

	db    *storage.DB
	mongo *storage.MongoReleaseStore
}

// Build opens storage and wires the services. Close releases them.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger, emitter service.EventEmitter) (*Runtime, error) {
	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	rt := &Runtime{Config: cfg, Log: log, db: db}

	var releases domain.ReleaseStore = storage.NewReleaseStore(db)
	if cfg.Mongo.URI != "" {
		m, err := storage.OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			db.Close()
			return nil, err
		}
		rt.mongo = m
		releases = m
		log.Info("using mongo release store", zap.String("database", cfg.Mongo.Database))
	}

	rt.Secrets = secret.Default(cfg.Data.Dir)
	rt.Registry = registry.Default()
	rt.Renderer = render.New(rt.Registry)
	rt.Editor = service.NewEditorService(service.EditorDeps{
		Registry:     rt.Registry,
		Releases:     releases,
		Revisions:    storage.NewRevisionStore(db, cfg.Revisions.Max),
		Publisher:    newPublisher(cfg, rt.Secrets, log),
		Emitter:      emitter,
		Logger:       log,
		HistoryLimit: cfg.History.Limit,
	})
	rt.Backup = backup.New(rt.Editor, log)
	rt.Window = service.NewWindowSettingsService(storage.NewSettingsStore(db))
	return rt, nil
}

// newPublisher builds the backend client. The bearer token comes from
// config, falling back to the secret store.
func newPublisher(cfg config.Config, secrets secret.SecretStore, log *zap.Logger) *publish.Client {
	opts := []publish.Option{publish.WithLogger(log.Named("publish"))}
	token := cfg.Publish.Token
	if token == "" {
		v, err := secrets.Get(secret.PublishTokenKey)
		if err != nil {
			log.Warn("read publish token", zap.Error(err))
		}
		token = string(v)
	}
	if token != "" {
		opts = append(opts, publish.WithHeader("Authorization", "Bearer "+token))
	}
	return publish.NewClient(cfg.Publish.Endpoint, cfg.Publish.Timeout, opts...)
}

// StartBackground starts the backup schedule and the linked-file watcher.
func (rt *Runtime) StartBackground() error {
	if err := rt.Backup.Start(rt.Config.Backup.Schedule); err != nil {
		return err
	}
	w, err := watch.New(rt.Editor.Reload, rt.Log, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	rt.Watcher = w
	return nil
}

// Close stops background work, waits for saves and closes storage.
func (rt *Runtime) Close(ctx context.Context) {
	rt.Backup.Stop()
	if rt.Watcher != nil {
		if err := rt.Watcher.Close(); err != nil {
			rt.Log.Warn("close watcher", zap.Error(err))
		}
	}
	rt.Editor.Shutdown(ctx)
	if rt.mongo != nil {
		_ = rt.mongo.Close(ctx)
	}
	if err := rt.db.Close(); err != nil {
		rt.Log.Warn("close database", zap.Error(err))
	}
}
