// Command magql derives a GraphQL schema from a YAML model manifest and
// writes the supporting artifacts: the SDL schema file, gqlgen.yml
// bindings and generated name constants.
//
// Flags override environment defaults (MAGQL_MANIFEST, MAGQL_SCHEMA,
// MAGQL_GQLGEN_CONFIG, MAGQL_GEN, MAGQL_GEN_PACKAGE, MAGQL_WATCH). With
// -watch the command keeps running and regenerates whenever the manifest
// changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/magql/magql/contrib/gqlgen"
	"github.com/magql/magql/gen"
	"github.com/magql/magql/manager"
	"github.com/magql/magql/manifest"
)

type config struct {
	Manifest   string `env:"MAGQL_MANIFEST" envDefault:"magql.yml"`
	SchemaPath string `env:"MAGQL_SCHEMA" envDefault:"graph/schema.graphqls"`
	GQLGenPath string `env:"MAGQL_GQLGEN_CONFIG"`
	GenPath    string `env:"MAGQL_GEN"`
	GenPackage string `env:"MAGQL_GEN_PACKAGE" envDefault:"names"`
	Watch      bool   `env:"MAGQL_WATCH"`
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal().Err(err).Msg("parse environment")
	}
	flag.StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "path to the model manifest")
	flag.StringVar(&cfg.SchemaPath, "schema", cfg.SchemaPath, "path of the emitted SDL schema file")
	flag.StringVar(&cfg.GQLGenPath, "gqlgen-config", cfg.GQLGenPath, "gqlgen.yml to update with bindings (optional)")
	flag.StringVar(&cfg.GenPath, "gen", cfg.GenPath, "path of the generated name constants file (optional)")
	flag.StringVar(&cfg.GenPackage, "gen-package", cfg.GenPackage, "package name of the generated constants file")
	flag.BoolVar(&cfg.Watch, "watch", cfg.Watch, "regenerate whenever the manifest changes")
	flag.Parse()

	if err := generate(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("generate")
	}
	if !cfg.Watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := watch(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("watch")
	}
}

// generate runs one full derivation pass from the manifest.
func generate(cfg config, logger zerolog.Logger) error {
	set, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return err
	}
	collection, err := manager.NewCollection(set, nil)
	if err != nil {
		return err
	}
	s, err := collection.Schema()
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := gqlgen.WriteSchema(cfg.SchemaPath, s); err != nil {
		return err
	}
	logger.Info().Str("path", cfg.SchemaPath).Int("models", len(set.Models())).Msg("schema written")

	if cfg.GQLGenPath != "" {
		gcfg, err := gqlgen.LoadConfig(cfg.GQLGenPath)
		if err != nil {
			return err
		}
		gcfg.InjectBindings(cfg.SchemaPath, s)
		if err := gqlgen.SaveConfig(cfg.GQLGenPath, gcfg); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.GQLGenPath).Msg("gqlgen config updated")
	}
	if cfg.GenPath != "" {
		if err := gen.Write(cfg.GenPath, cfg.GenPackage, set); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.GenPath).Msg("constants written")
	}
	return nil
}

// watch regenerates on manifest changes until the context is cancelled.
// Editors replace files rather than writing in place, so the watcher
// covers the manifest's directory and filters by name.
func watch(ctx context.Context, cfg config, logger zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(cfg.Manifest)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}
	logger.Info().Str("manifest", cfg.Manifest).Msg("watching for changes")

	target := filepath.Base(cfg.Manifest)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			// Coalesce bursts of events from a single save.
			debounce = time.After(100 * time.Millisecond)
		case <-debounce:
			debounce = nil
			if err := generate(cfg, logger); err != nil {
				logger.Error().Err(err).Msg("regenerate failed; keeping previous output")
				continue
			}
			logger.Info().Msg("regenerated")
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}
