// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     mold
// Description: Mold loader with hot-reload support
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package mold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	mdwlog "github.com/msto63/dal/foundation/core/log"
)

// Suffixes are the file name endings recognized as molds
var Suffixes = []string{".mold.yaml", ".mold.yml", ".mold.json"}

// Options configures a Loader
type Options struct {
	Logger *mdwlog.Logger
	// Dir is the base directory; Dir/mold and Dir/mold/samples are
	// searched as well
	Dir string
}

// Loader manages loading and hot-reloading of molds
type Loader struct {
	mu      sync.RWMutex
	molds   map[string]*Mold // name -> mold
	dir     string
	watcher *fsnotify.Watcher
	logger  *mdwlog.Logger
	stopCh  chan struct{}
	running bool

	onChange func(name string, m *Mold)
}

// NewLoader creates a loader rooted at opts.Dir
func NewLoader(opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return &Loader{
		molds:  make(map[string]*Mold),
		dir:    opts.Dir,
		logger: opts.Logger.WithField("component", "dal-mold"),
		stopCh: make(chan struct{}),
	}
}

// Dir returns the base directory
func (l *Loader) Dir() string {
	return l.dir
}

// SetOnChange sets the callback for a loaded or reloaded mold
func (l *Loader) SetOnChange(fn func(name string, m *Mold)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

func (l *Loader) searchDirs() []string {
	return []string{
		l.dir,
		filepath.Join(l.dir, "mold"),
		filepath.Join(l.dir, "mold", "samples"),
	}
}

// Paths lists the mold files under the search directories, sorted
func (l *Loader) Paths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, dir := range l.searchDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !IsMoldFile(e.Name()) {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

// LoadAll loads every mold file under the search directories. Files that
// fail to parse are logged and skipped.
func (l *Loader) LoadAll() (int, error) {
	loaded := 0
	for _, path := range l.Paths() {
		m, err := LoadFile(path)
		if err != nil {
			l.logger.WarnWithErr("Failed to load mold file", err, mdwlog.Fields{"file": path})
			continue
		}
		l.store(m)
		loaded++
	}
	l.logger.Info("Molds loaded", mdwlog.Fields{"count": loaded, "dir": l.dir})
	return loaded, nil
}

func (l *Loader) store(m *Mold) {
	l.mu.Lock()
	l.molds[m.Name] = m
	handler := l.onChange
	l.mu.Unlock()
	if handler != nil {
		handler(m.Name, m)
	}
}

// LoadFile parses one mold file
func LoadFile(path string) (*Mold, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mold file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.SourceFile = path
	m.LoadedAt = time.Now()
	return m, nil
}

// Parse decodes mold content. JSON is accepted as a subset of YAML.
func Parse(data []byte) (*Mold, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmpty
	}
	var m Mold
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	m.Defaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Get returns a loaded mold by name
func (l *Loader) Get(name string) (*Mold, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.molds[name]
	return m, ok
}

// Names returns the names of loaded molds, sorted
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.molds))
	for name := range l.molds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve finds a mold by source: an existing path (absolute or relative
// to the base directory), a name plus a known suffix, a file stem, or the
// name of a loaded mold.
func (l *Loader) Resolve(source string) (*Mold, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrNotFound
	}
	if m, ok := l.Get(source); ok {
		return m, nil
	}

	candidates := []string{source}
	if !filepath.IsAbs(source) {
		candidates = append(candidates, filepath.Join(l.dir, source))
		for _, suffix := range Suffixes {
			candidates = append(candidates, filepath.Join(l.dir, source+suffix))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			m, err := LoadFile(c)
			if err != nil {
				return nil, err
			}
			l.store(m)
			return m, nil
		}
	}

	for _, path := range l.Paths() {
		if stem(path) == source {
			m, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			l.store(m)
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
}

// StartWatching reloads molds when files in the base directory change
func (l *Loader) StartWatching(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		l.mu.Unlock()
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	l.watcher = watcher
	l.running = true
	l.mu.Unlock()

	l.logger.Info("Started watching for mold changes", mdwlog.Fields{"dir": l.dir})
	go l.watchLoop(ctx, watcher)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		watcher.Close()
	}()

	debounce := make(map[string]time.Time)
	const debounceDelay = 200 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !IsMoldFile(event.Name) {
				continue
			}
			if last, seen := debounce[event.Name]; seen && time.Since(last) < debounceDelay {
				continue
			}
			debounce[event.Name] = time.Now()
			l.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.ErrorWithErr("Watcher error", err)
		}
	}
}

func (l *Loader) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		m, err := LoadFile(event.Name)
		if err != nil {
			l.logger.WarnWithErr("Failed to reload mold", err, mdwlog.Fields{"file": event.Name})
			return
		}
		l.store(m)
		l.logger.Info("Mold reloaded", mdwlog.Fields{"mold": m.Name, "file": filepath.Base(event.Name)})

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		l.mu.Lock()
		for name, m := range l.molds {
			if m.SourceFile == event.Name {
				delete(l.molds, name)
				l.logger.Info("Mold removed", mdwlog.Fields{"mold": name})
				break
			}
		}
		l.mu.Unlock()
	}
}

// Stop stops the file watcher
func (l *Loader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		close(l.stopCh)
		l.stopCh = make(chan struct{})
	}
}

// IsMoldFile reports whether path has a mold suffix
func IsMoldFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func stem(path string) string {
	name := filepath.Base(path)
	for _, suffix := range Suffixes {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}
