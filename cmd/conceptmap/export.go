package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/conceptmap/internal/cache"
	"github.com/recera/conceptmap/internal/export"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

func newExportCommand() *cobra.Command {
	var (
		out, format, query, sel string
		categories, levels      []string
		noCache                 bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the map to a PNG or SVG file",
		Example: `  conceptmap export -o map.png
  conceptmap export -o tactical.svg --category tactical --width 1600 --height 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f, err := exportFormat(format, out)
			if err != nil {
				return err
			}
			filter := conceptmap.Filter{Query: query}
			for _, c := range categories {
				filter.Categories = append(filter.Categories, graph.Category(c))
			}
			for _, l := range levels {
				d, err := graph.ParseDifficulty(l)
				if err != nil {
					return err
				}
				filter.Difficulties = append(filter.Difficulties, d)
			}

			p, _, err := e.src.Load()
			if err != nil {
				return err
			}

			req := export.Request{
				Format:  f,
				Width:   int(e.cfg.Canvas.Width),
				Height:  int(e.cfg.Canvas.Height),
				Payload: p,
				Options: e.engineOptions(),
				Filter:  filter,
				Select:  sel,
			}
			var data []byte
			if noCache {
				var buf bytes.Buffer
				err = export.Snapshot(&buf, req)
				data = buf.Bytes()
			} else {
				data, err = cachedSnapshot(e, req)
			}

			var integrity *graph.DataIntegrityError
			switch {
			case errors.As(err, &integrity):
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", warnIcon(), integrity.Error())
			case err != nil:
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", statusIcon(true), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (.png or .svg)")
	cmd.Flags().StringVar(&format, "format", "", "png or svg (default from the output extension)")
	cmd.Flags().Float64("width", 0, "image width in pixels")
	cmd.Flags().Float64("height", 0, "image height in pixels")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "only show these categories")
	cmd.Flags().StringSliceVar(&levels, "difficulty", nil, "only show these difficulties")
	cmd.Flags().StringVarP(&query, "query", "q", "", "only show concepts matching this text")
	cmd.Flags().StringVar(&sel, "select", "", "highlight this concept id")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "always render instead of reusing a cached image")
	cmd.MarkFlagRequired("output")
	return cmd
}

func exportFormat(format, out string) (export.Format, error) {
	if format != "" {
		return export.ParseFormat(format)
	}
	return export.FormatFromPath(out)
}

// cachedSnapshot renders through the user snapshot cache. An unusable
// cache directory falls back to rendering directly.
func cachedSnapshot(e *env, req export.Request) ([]byte, error) {
	c, err := cache.New(cache.DefaultConfig(), cache.WithLogger(e.log))
	if err != nil {
		e.log.Warn("snapshot cache unavailable", "error", err)
		var buf bytes.Buffer
		err := export.Snapshot(&buf, req)
		return buf.Bytes(), err
	}
	data, hit, err := export.Cached(c, req)
	e.log.Debug("snapshot", "cache_hit", hit, "bytes", len(data))
	return data, err
}
