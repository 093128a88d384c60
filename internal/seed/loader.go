// Package seed loads operator-defined class definitions from YAML files
// and keeps them in sync with the registry.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/graphops/class-registry/internal/class"
)

// Applier registers or replaces class definitions. Satisfied by the
// registry service.
type Applier interface {
	ApplyClass(ctx context.Context, def *class.Definition) (*class.Definition, error)
}

// File is the on-disk format of a seed file: one or more class
// definitions under a top-level classes key.
type File struct {
	Classes []*class.Definition `yaml:"classes"`
}

// Loader loads class definition files from a directory.
type Loader struct {
	dir     string
	applier Applier
	logger  *slog.Logger
}

// NewLoader creates a new seed loader.
func NewLoader(dir string, applier Applier, logger *slog.Logger) *Loader {
	return &Loader{
		dir:     dir,
		applier: applier,
		logger:  logger,
	}
}

// LoadDir loads every YAML file in the seed directory, in name order.
// A file that fails to parse or apply aborts the load.
func (l *Loader) LoadDir(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to read seed directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(l.dir, entry.Name()))
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := l.LoadFile(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads one seed file and applies its class definitions.
func (l *Loader) LoadFile(ctx context.Context, path string) error {
	// #nosec G304 -- seed paths come from the configured seed directory
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for _, def := range file.Classes {
		applied, err := l.applier.ApplyClass(ctx, def)
		if err != nil {
			return fmt.Errorf("failed to apply class %s from %s: %w", def.Name, path, err)
		}
		l.logger.Info("applied seed class",
			slog.String("class", applied.Name),
			slog.String("kind", string(applied.Kind)),
			slog.String("file", filepath.Base(path)),
		)
	}
	return nil
}

// Watch reloads seed files as they change until the context is cancelled.
// Apply errors during a reload are logged, not fatal: a broken edit must
// not take the watcher down.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch seed directory: %w", err)
	}
	l.logger.Info("watching seed directory", slog.String("dir", l.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isYAML(event.Name) {
				continue
			}
			if err := l.LoadFile(ctx, event.Name); err != nil {
				l.logger.Error("seed reload failed",
					slog.String("file", event.Name),
					slog.String("error", err.Error()),
				)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("seed watcher error", slog.String("error", err.Error()))
		}
	}
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
