package main

import (
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"hecstore.ai/internal/config"
	"hecstore.ai/internal/directory"
)

func buildDirectory(cfg config.Config, logger *log.Logger) (directory.Resolver, error) {
	var primary directory.Resolver
	switch cfg.Directory {
	case config.DirectoryMojang:
		primary = directory.NewMojang(cfg.DirectoryURL, cfg.DirectoryTimeout())
	case config.DirectoryOffline:
		primary = directory.Offline{}
	default:
		return nil, fmt.Errorf("unsupported directory: %s", cfg.Directory)
	}
	if cfg.RedisURL == "" {
		return primary, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis_url: %w", err)
	}
	logger.Printf("directory cache: redis %s ttl=%s", opt.Addr, cfg.RedisTTL())
	return directory.NewCached(primary, redis.NewClient(opt), cfg.RedisTTL(), logger), nil
}
