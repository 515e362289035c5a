package main

import (
	"context"
	"time"

	"media-catalog/internal/cache"
	"media-catalog/internal/catalog"
	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/startup"
	"media-catalog/internal/upload"

	"github.com/spf13/afero"
)

// app holds the components shared by scan and serve.
type app struct {
	config     *startup.Config
	fs         afero.Fs
	classifier *mediatypes.Classifier
	store      *catalog.Store
	indexer    *indexer.Indexer
	db         *database.Database
}

// newApp wires the catalog components for config. An unavailable scan
// history database is logged and leaves history disabled.
func newApp(ctx context.Context, config *startup.Config, fsys afero.Fs, interval time.Duration) (*app, error) {
	if err := startup.PrepareIndexDir(config); err != nil {
		return nil, err
	}

	c, err := cache.Load(fsys, config.CachePath)
	if err != nil {
		logging.Warn("Starting with an empty cache: %v", err)
	}

	classifier := mediatypes.NewClassifier(config.AllowedExtensions)
	store := catalog.NewStore(fsys, config.SnapshotPath)

	scanner := indexer.NewScanner(fsys, indexer.ScannerConfig{
		Root:      config.MediaRoot,
		BaseURL:   config.PublicBaseURL,
		IndexDir:  config.IndexDir,
		CachePath: config.CachePath,
		Workers:   config.IndexWorkers,
		Retry:     filesystem.DefaultRetryConfig(),
	}, c, store)
	scanner.SetClassifier(classifier)

	a := &app{
		config:     config,
		fs:         fsys,
		classifier: classifier,
		store:      store,
		indexer:    indexer.New(scanner, interval),
	}

	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Warn("Scan history disabled: %v", err)
		return a, nil
	}
	startup.LogDatabaseInit(config.DatabasePath, time.Since(dbStart))
	a.db = db
	a.indexer.SetHistory(db)

	return a, nil
}

func (a *app) uploadService() *upload.Service {
	return upload.NewService(a.fs, upload.Config{
		Root:       a.config.MediaRoot,
		BaseURL:    a.config.PublicBaseURL,
		IndexDir:   a.config.IndexDir,
		MaxSize:    a.config.MaxFileSize,
		Classifier: a.classifier,
	})
}

func (a *app) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		logging.Warn("Failed to close database: %v", err)
	}
}
