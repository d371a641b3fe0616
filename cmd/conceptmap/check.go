package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/recera/conceptmap/internal/content"
	"github.com/recera/conceptmap/internal/logging"
	"github.com/recera/conceptmap/pkg/conceptmap"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
	"github.com/recera/conceptmap/pkg/conceptmap/render"
)

// errCheckFailed makes check exit non-zero after printing its report
var errCheckFailed = errors.New("check failed")

func newCheckCommand() *cobra.Command {
	var lenient bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate concept files",
		Long: `Decode every concept file, then load the merged set the way the map
does and report dropped relationships and duplicate ids. Exits non-zero
on any problem; --lenient only fails on files that do not decode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), e, lenient)
		},
	}
	cmd.Flags().BoolVar(&lenient, "lenient", false, "do not fail on integrity problems")
	return cmd
}

func runCheck(w io.Writer, e *env, lenient bool) error {
	banner(w, "checking "+e.src.Root())

	files, err := e.src.Files()
	if err != nil {
		return err
	}
	failed := 0
	for _, f := range files {
		p, err := content.ReadFile(f)
		if err != nil {
			failed++
			fmt.Fprintf(w, "  %s %s\n      %s\n", statusIcon(false), f, Bad.Sprint(err))
			continue
		}
		fmt.Fprintf(w, "  %s %s %s\n", statusIcon(true), f,
			Subtle.Sprintf("(%d concepts, %d relationships)", len(p.Concepts), len(p.Relationships)))
	}
	if failed > 0 {
		fmt.Fprintf(w, "\n%d of %d files failed\n", failed, len(files))
		return errCheckFailed
	}

	p, _, err := e.src.Load()
	if err != nil {
		return err
	}
	opts := e.engineOptions()
	// the report below replaces the engine's own warnings
	opts.Logger = logging.Discard()
	eng, err := conceptmap.New(render.Nop{}, opts)
	if err != nil {
		return err
	}
	loadErr := eng.SetConceptsData(p)

	counts := make(map[graph.Difficulty]int)
	for _, d := range eng.Concepts() {
		counts[d.Difficulty]++
	}
	fmt.Fprintln(w)
	for _, d := range graph.Difficulties {
		fmt.Fprintf(w, "  %-13s %d\n", d.Title(), counts[d])
	}

	var integrity *graph.DataIntegrityError
	if !errors.As(loadErr, &integrity) {
		if loadErr != nil {
			return loadErr
		}
		fmt.Fprintf(w, "\n%s %d concepts, %d relationships\n", statusIcon(true), len(p.Concepts), len(p.Relationships))
		return nil
	}

	fmt.Fprintln(w)
	for _, d := range integrity.Dropped {
		fmt.Fprintf(w, "  %s dropped %s: %s\n", warnIcon(), d.Relationship, d.Reason)
	}
	for _, id := range integrity.Duplicates {
		fmt.Fprintf(w, "  %s duplicate concept id %q\n", warnIcon(), id)
	}
	if integrity.Invalid > 0 {
		fmt.Fprintf(w, "  %s %d concepts without an id\n", warnIcon(), integrity.Invalid)
	}
	if lenient {
		return nil
	}
	return errCheckFailed
}
