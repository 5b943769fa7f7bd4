package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mealbook/recipes_api/internal/pkg/config"
	"github.com/mealbook/recipes_api/internal/recipes/api/server"
	"github.com/mealbook/recipes_api/internal/recipes/repository/imagestore/s3"
	"github.com/mealbook/recipes_api/internal/recipes/repository/recipecache/redis"
	rr "github.com/mealbook/recipes_api/internal/recipes/repository/reciperepo/postgres"
	ur "github.com/mealbook/recipes_api/internal/recipes/repository/userrepo/postgres"
	"github.com/mealbook/recipes_api/internal/recipes/services/authservice"
	"github.com/mealbook/recipes_api/internal/recipes/services/imageservice"
	"github.com/mealbook/recipes_api/internal/recipes/services/recipeservice"
	"github.com/mealbook/recipes_api/internal/recipes/services/tagservice"
	"github.com/mealbook/recipes_api/pkg/logger"
)

type Server interface {
	Start(context.Context) error
	Shutdown(context.Context) error
}

type RecipesApp struct {
	s   Server
	lg  logger.Logger
	cfg config.Config
}

func New(ctx context.Context, cfg config.Config) (RecipesApp, error) {
	lg, err := logger.New(cfg.Logger)
	if err != nil {
		return RecipesApp{}, fmt.Errorf("can't get logger error: %w", err)
	}

	recipeRepo, err := rr.New(ctx, cfg.PostgresDB)
	if err != nil {
		return RecipesApp{}, fmt.Errorf("postgres recipe repo initializing error: %w", err)
	}

	rc, err := redis.New(ctx, cfg.RedisCache)
	if err != nil {
		return RecipesApp{}, fmt.Errorf("redis recipe cache initializing error: %w", err)
	}

	recipeService := recipeservice.New(recipeRepo, rc, lg)
	tagService := tagservice.New(recipeRepo, lg)

	store, err := s3.New(ctx, cfg.ImageStore)
	if err != nil {
		return RecipesApp{}, fmt.Errorf("image store initializing error: %w", err)
	}

	imageService := imageservice.New(recipeRepo, rc, store, lg)

	userRepo, err := ur.New(ctx, cfg.PostgresDB)
	if err != nil {
		return RecipesApp{}, fmt.Errorf("postgres user repo initializing error: %w", err)
	}

	authService := authservice.New(userRepo, cfg.Auth)

	s := server.New(cfg.Server, recipeService, tagService, imageService, authService, lg)

	return RecipesApp{
		s:   s,
		lg:  lg,
		cfg: cfg,
	}, nil
}

func (ra *RecipesApp) Run(ctx context.Context) {
	ra.lg.Infof("STARTED SERVER ON %s", ra.cfg.Server.Addr)

	go func() {
		if err := ra.s.Start(ctx); err != nil {
			ra.lg.Errorf("server start error: %s", err.Error())
			ctx.Done()

			return
		}
	}()

	<-ctx.Done()

	ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	if err := ra.Stop(ctxS); err != nil { //nolint:contextcheck
		ra.lg.Errorf("server shutdown error: %s", err.Error())
	}
}

func (ra *RecipesApp) Stop(ctx context.Context) error {
	if err := ra.s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	ra.lg.Info("Shutdowned successfully")

	return nil
}
