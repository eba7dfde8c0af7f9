package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow collapses the burst of CREATE/WRITE/CHMOD events most
// editors emit for a single save into one re-validation, matching the
// teacher's MangleWatcher debounce pattern.
const debounceWindow = 200 * time.Millisecond

// watchConfig re-validates flagConfigPath every time it changes on disk,
// printing a fresh report each time, until interrupted.
func watchConfig(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	target := filepath.Clean(path)
	fmt.Println(renderWatchResult(path))

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				fmt.Println(renderWatchResult(path))
			})
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if log != nil {
				log.Warn("config watcher error", zap.Error(werr))
			}
		}
	}
}

func renderWatchResult(path string) string {
	prior := flagConfigPath
	flagConfigPath = path
	defer func() { flagConfigPath = prior }()

	spec, err := loadSpec()
	if err != nil {
		return renderConfigError(err)
	}
	return renderConfigOK(spec)
}
