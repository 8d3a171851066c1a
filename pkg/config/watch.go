package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/codesnippets/pkg/log"
)

// DefaultDebounce is how long Watch waits for a burst of events on the config
// file to settle before reloading it.
const DefaultDebounce = 200 * time.Millisecond

var logger = log.ForService("config")

// Watch reloads the config file at path whenever it changes and passes the
// result to onChange. Files that fail to load are logged and skipped; the
// previous configuration stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched instead of the file so editors that save
// by writing a temporary file and renaming it over the original keep
// triggering reloads.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*Config)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnf("failed to close config file watcher: %v", err)
		}
	}()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	logger.Infof("watching config file for changes: %s", abs)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			// React to write, create, rename and remove events (editors often use atomic writes)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				logger.Debugf("config file event: %s", event.Op)
				timer.Reset(debounce)
			}
		case <-timer.C:
			if _, err := os.Stat(abs); os.IsNotExist(err) {
				logger.Warnf("config file was removed and not replaced, skipping reload")
				continue
			}
			cfg, err := LoadConfig(abs)
			if err != nil {
				logger.Errorf("failed to reload configuration: %v", err)
				continue
			}
			logger.Infof("configuration reloaded from %s", abs)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}
