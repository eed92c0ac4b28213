package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/symbiosis/internal/console"
	"github.com/agenthands/symbiosis/internal/core"
)

func chatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the companion in the terminal",
		Long: `Start an interactive session in the terminal. On first run you are asked
for an API key and an optional memory webhook URL (type SKIP to disable memory).

Lines starting with / are spoken back verbatim without contacting the model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runChat(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runChat(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	renderer := console.NewRenderer(out)

	companion, cleanup, err := a.companion(ctx, renderer)
	if err != nil {
		return err
	}
	defer cleanup()

	// Seed the prompt with the intake stage.
	renderer.StateChanged(companion.State())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(out, renderer.Prompt())

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				// Input ended: let queued speech play out before cleanup cancels it.
				companion.Drain()
				return nil
			}
			line = strings.TrimRight(l, "\r")
		}

		if line == "" {
			continue
		}
		if _, err := companion.Submit(ctx, line); err != nil {
			switch {
			case errors.Is(err, core.ErrTurnFailed):
				a.logger.Debug("turn failed", zap.Error(err))
			default:
				return err
			}
		}
	}
}
