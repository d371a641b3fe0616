package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/recera/conceptmap/internal/config"
	"github.com/recera/conceptmap/internal/content"
	"github.com/recera/conceptmap/internal/logging"
	"github.com/recera/conceptmap/internal/watch"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

// configFile is the --config flag
var configFile string

// env is what every command starts from
type env struct {
	cfg *config.Config
	log *slog.Logger
	src *content.Source
}

// setup loads the configuration with the command's flags bound and builds
// the logger and content source. Logs go to logOut.
func setup(cmd *cobra.Command, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(config.LoadOptions{File: configFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg: cfg,
		log: log,
		src: content.NewSource(cfg.Content.Path, content.WithLogger(log)),
	}, nil
}

func (e *env) engineOptions() conceptmap.Options {
	opts := e.cfg.EngineOptions()
	opts.Logger = e.log
	return opts
}

// watch calls apply with every changed payload until ctx is done. It
// returns at once when watching is off.
func (e *env) watch(ctx context.Context, apply func(graph.Payload), fail func(error)) error {
	if !e.cfg.Content.Watch {
		return nil
	}
	w, err := watch.New(e.src.Root(), watch.WithFilter(e.src.Match), watch.WithLogger(e.log))
	if err != nil {
		return err
	}
	defer w.Close()

	e.log.Info("watching for changes", "path", e.src.Root())
	return w.Run(ctx, func(names []string) {
		p, changed, err := e.src.Reload()
		if err != nil {
			e.log.Error("reload failed", "error", err)
			if fail != nil {
				fail(err)
			}
			return
		}
		if !changed {
			return
		}
		e.log.Info("content changed", "files", names, "concepts", len(p.Concepts))
		apply(p)
	})
}
