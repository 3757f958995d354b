package main

import (
	"context"
	"fmt"
	"net/url"

	"ambitious/internal/ai"
	"ambitious/internal/api"
	"ambitious/internal/behavior"
	"ambitious/internal/config"
	"ambitious/internal/content"
	"ambitious/internal/images"
	"ambitious/internal/jobs"
	"ambitious/internal/logging"
	"ambitious/internal/notify"
	"ambitious/internal/schedule"
	"ambitious/internal/store"
)

// app holds the wired services for one process.
type app struct {
	cfg       config.Config
	db        *store.DB
	providers *ai.Factory
	images    *images.Pipeline
	sched     *schedule.Calculator
	gen       *content.Generator
	publisher *content.Publisher
	fleet     *behavior.Fleet
	notifier  notify.Notifier
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:       cfg,
		db:        db,
		providers: ai.NewFactory(cfg.Providers),
		sched:     schedule.New(nil),
		publisher: content.NewPublisher(db),
		notifier:  notify.New(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID),
	}
	a.images, err = newImagePipeline(ctx, cfg.Images)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.gen = content.NewGenerator(db, a.providers, a.images, a.sched, content.Options{
		HistoryLimit:  cfg.Generation.HistoryLimit,
		ProviderDelay: cfg.Generation.ProviderDelay,
		NPCDelay:      cfg.Generation.NPCDelay,
	})
	a.fleet = behavior.NewFleet(db, a.providers, a.engagementOptions())
	return a, nil
}

// newImagePipeline returns nil when no image model is configured; posts then go out as text.
func newImagePipeline(ctx context.Context, cfg config.ImagesConfig) (*images.Pipeline, error) {
	if cfg.GeminiAPIKey == "" {
		logging.Info("image generation disabled", map[string]any{"reason": "no gemini api key"})
		return nil, nil
	}
	gm, err := images.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	st, err := images.NewStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("image storage: %w", err)
	}
	return images.NewPipeline(gm, st, images.NewFetcher(cfg.FetchTimeout), nil), nil
}

func (a *app) engagementOptions() behavior.Options {
	return behavior.Options{CommentDelay: a.cfg.Engagement.CommentDelay, NPCDelay: a.cfg.Engagement.NPCDelay}
}

func (a *app) jobDeps() jobs.Deps {
	return jobs.Deps{Sweeper: a.fleet, Refiller: a.gen, Publisher: a.publisher, Notifier: a.notifier}
}

func (a *app) apiDeps() api.Deps {
	d := api.Deps{
		Store:        a.db,
		Generator:    a.gen,
		Publisher:    a.publisher,
		Fleet:        a.fleet,
		Providers:    a.providers,
		Images:       a.images,
		Schedule:     a.sched,
		Engagement:   a.engagementOptions(),
		JWTSecret:    a.cfg.Server.JWTSecret,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		PublishBatch: a.cfg.Jobs.PublishBatch,
	}
	if u, err := url.Parse(a.cfg.Images.LocalBaseURL); err == nil && u.Path != "" && a.cfg.Images.LocalDir != "" {
		d.LocalImagesDir, d.LocalImagesPath = a.cfg.Images.LocalDir, u.Path
	}
	return d
}

func (a *app) Close() error { return a.db.Close() }
