/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/redhat-data-and-ai/classroster/internal/api"
	"github.com/redhat-data-and-ai/classroster/internal/periodicjobs"
	"github.com/redhat-data-and-ai/classroster/pkg/cache"
	"github.com/redhat-data-and-ai/classroster/pkg/config"
	"github.com/redhat-data-and-ai/classroster/pkg/integrity"
	"github.com/redhat-data-and-ai/classroster/pkg/logger"
	"github.com/redhat-data-and-ai/classroster/pkg/repository"
	"github.com/redhat-data-and-ai/classroster/pkg/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var environment string
	flag.StringVar(&environment, "env", envOr("APP_ENV", "default"),
		"Configuration environment, read from $WORKDIR/appconfig/<env>.yaml")
	flag.Parse()

	if err := run(environment); err != nil {
		logger.Logger(context.Background()).WithError(err).Fatal("classroster exited")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(environment string) error {
	cfg, err := config.LoadConfig(environment)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"cacheDriver": cfg.Cache.Driver,
	})

	sharedCache, err := cache.New(&cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	dataStore := store.New(ctx, sharedCache, store.Options{
		Debounce:         cfg.Durable.Debounce,
		WriteTimeout:     cfg.Durable.WriteTimeout,
		CrossContextSync: cfg.Durable.CrossContextSync,
	})
	defer dataStore.Close()

	repo := repository.New(dataStore.Students, dataStore.Assignments, repository.Options{
		CacheTTL:           cfg.Repository.CacheTTL,
		RefreshBeforeWrite: cfg.Repository.RefreshBeforeWrite,
	})

	manager := integrity.New(ctx, dataStore.Classes, dataStore.Students,
		integrity.WithDefaultClassName(cfg.Integrity.DefaultClassName),
		integrity.WithCacheInvalidator(repo.Students),
		integrity.WithAutoCleanup(cfg.Integrity.AutoCleanup),
		integrity.WithOnClassRenamed(func(ctx context.Context, oldName, newName string) {
			logger.Logger(ctx).WithFields(logrus.Fields{"from": oldName, "to": newName}).
				Warn("class renamed; students keep the old name until the next cleanup")
		}),
	)
	defer manager.Close()

	taskManager := periodicjobs.NewPeriodicTaskManager()
	periodicjobs.NewOrphanCleanupJob(cfg.Integrity.SweepInterval, dataStore.Classes, dataStore.Students, manager).
		AddToPeriodicTaskManager(taskManager)

	if cfg.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           api.NewRouter(api.NewHandler(repo, manager, dataStore)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return taskManager.Start(gctx)
	})
	g.Go(func() error {
		log.WithField("addr", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("Shutting down")
		err := server.Shutdown(shutdownCtx)
		dataStore.Flush(shutdownCtx)
		return err
	})

	return g.Wait()
}
