package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch re-resolves path on every write event and invokes onReload with
// the new Config. It logs and skips a reload that fails validation,
// keeping the last-good Config in effect. The returned func stops
// watching and releases the underlying inotify/kqueue handle.
func Watch(path string, logger *slog.Logger, onReload func(*Config)) (func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				cfg, err := Load(path, logger)
				if err != nil {
					logger.Warn("config reload failed, keeping previous config",
						slog.String("path", path), slog.String("error", err.Error()))
					continue
				}

				logger.Info("config reloaded", slog.String("path", path))
				onReload(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				logger.Error("config watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	return watcher.Close, nil
}
