package config

import (
	"context"
	"os"
	"time"
)

// WatchProviders loads providers.yaml, hands it to onUpdate, then polls the
// file and reloads it whenever its modification time advances. Reload
// failures keep the previous config and are reported to onError.
func WatchProviders(ctx context.Context, path string, interval time.Duration, onUpdate func(*ProvidersConfig), onError func(error)) error {
	if path == "" {
		path = "configs/providers.yaml"
	}

	cfg, err := LoadProvidersConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	return pollFile(ctx, path, interval, func() error {
		cfg, err := LoadProvidersConfig(path)
		if err != nil {
			return err
		}
		if onUpdate != nil {
			onUpdate(cfg)
		}
		return nil
	}, onError)
}

// pollFile calls reload each time path's modification time moves forward.
// A failed reload is retried on the next change only.
func pollFile(ctx context.Context, path string, interval time.Duration, reload func() error, onError func(error)) error {
	if interval <= 0 {
		interval = 30 * time.Second
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
					continue // file may be mid-rewrite
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()
				if err := reload(); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
	return nil
}
