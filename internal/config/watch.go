package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// WatchShops reloads shops.yaml on change and calls onUpdate with the latest config.
// It performs an initial load before entering the watch loop; invalid edits are
// logged and the previous config stays in effect.
func WatchShops(ctx context.Context, path string, interval time.Duration, logger zerolog.Logger, onUpdate func(*ShopsConfig)) error {
	if path == "" {
		path = "configs/shops.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadShopsConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := LoadShopsConfig(path)
				if err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("shops config reload rejected")
					continue
				}
				lastMod = info.ModTime()
				logger.Info().Str("path", path).Int("shops", len(cfg.Shops)).Msg("shops config reloaded")
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
