// File: watch.go
// Title: Configuration File Watching
// Description: Reloads the configuration when its file changes on disk and
//              notifies registered change handlers.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2025-06-02
//
// Change History:
// - 2025-01-24 v0.1.0: Polling watcher
// - 2025-06-02 v0.2.0: fsnotify based watcher with debounce

package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

const reloadDebounce = 100 * time.Millisecond

type watcher struct {
	fs     *fsnotify.Watcher
	cancel context.CancelFunc
}

// Watch starts reloading the file on change until ctx ends or
// StopWatching is called. Reload errors keep the previous values.
func (c *Config) Watch(ctx context.Context) error {
	if c.filePath == "" {
		return mdwerror.New("file path required for watching").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("config.Watch")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return mdwerror.Wrap(err, "failed to create watcher").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("config.Watch")
	}
	// Editors replace files, so watch the directory and filter by name.
	if err := fs.Add(filepath.Dir(c.filePath)); err != nil {
		fs.Close()
		return mdwerror.Wrap(err, "failed to watch config directory").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("config.Watch").
			WithDetail("filePath", c.filePath)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.watcher = &watcher{fs: fs, cancel: cancel}
	c.mu.Unlock()

	go c.watchLoop(ctx, fs)
	return nil
}

func (c *Config) watchLoop(ctx context.Context, fs *fsnotify.Watcher) {
	defer fs.Close()

	target := filepath.Clean(c.filePath)
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			c.reload()
		case _, ok := <-fs.Errors:
			if !ok {
				return
			}
		}
	}
}

func (c *Config) reload() error {
	content, err := os.ReadFile(c.filePath)
	if err != nil {
		return mdwerror.Wrap(err, "failed to read config file during reload").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("config.reload")
	}
	data, err := parseContent(content, c.format)
	if err != nil {
		return mdwerror.Wrap(err, "failed to parse config file during reload").
			WithCode(mdwerror.CodeInvalidConfig).
			WithOperation("config.reload")
	}

	c.mu.Lock()
	c.data = data
	handlers := append([]ChangeHandler(nil), c.handlers...)
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(c)
	}
	return nil
}

// StopWatching stops file monitoring
func (c *Config) StopWatching() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		c.watcher.cancel()
		c.watcher = nil
	}
}
