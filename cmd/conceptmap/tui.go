package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recera/conceptmap/internal/tui"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

func newTUICommand() *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Explore the map in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			// the terminal belongs to the program, so logs go to a file or nowhere
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := tea.LogToFile(logFile, "conceptmap")
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}
			e, err := setup(cmd, logOut)
			if err != nil {
				return err
			}
			p, _, err := e.src.Load()
			if err != nil {
				return err
			}
			m, err := tui.New(tui.Options{
				Engine:  e.engineOptions(),
				Payload: p,
				FPS:     e.cfg.Server.FPS,
				Logger:  e.log,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			prog := tui.NewProgram(m, tea.WithContext(ctx))

			grp, gctx := errgroup.WithContext(ctx)
			grp.Go(func() error {
				return e.watch(gctx,
					func(p graph.Payload) { prog.Send(tui.PayloadMsg{Payload: p}) },
					func(err error) { prog.Send(tui.ErrMsg{Err: err}) })
			})

			_, runErr := prog.Run()
			cancel()
			if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if errors.Is(runErr, tea.ErrProgramKilled) {
				return nil
			}
			return runErr
		},
	}
	cmd.Flags().Bool("watch", false, "reload when concept files change")
	cmd.Flags().Int("fps", 0, "frames per second")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	return cmd
}
