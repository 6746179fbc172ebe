package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"babelbeam/pipeline"
)

func newTranslateCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text from the arguments, a file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.From, "from", "f", flags.From, "source language name or code (auto to detect)")
	cmd.Flags().StringVarP(&flags.To, "to", "t", flags.To, "target language name or code")
	cmd.Flags().BoolVar(&flags.Fallback, "fallback", false, "use the backup translator if the primary engine fails")
	cmd.Flags().StringVar(&flags.AudioOut, "audio-out", "", "write spoken MP3 of the translation to this file")
	cmd.Flags().StringVarP(&flags.InputFile, "input", "i", "", "read text from this file")
	cmd.Flags().BoolVar(&flags.Refresh, "refresh", false, "ignore cached translations and store fresh ones")

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string, flags *Flags) error {
	text, err := readInput(cmd.InOrStdin(), args, flags.InputFile)
	if err != nil {
		return err
	}

	cfg, logger, cleanup, err := setup(flags)
	if err != nil {
		return err
	}
	defer cleanup()

	if flags.Refresh {
		cfg.Translate.CacheRefresh = true
	}

	app, err := Build(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
	defer cancel()

	return translateOnce(ctx, app.Pipeline, text, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// translateOnce runs the pipeline, prints the translation to out and notices to errOut.
func translateOnce(ctx context.Context, p *pipeline.Pipeline, text string, flags *Flags, out, errOut io.Writer) error {
	_, res, err := p.Run(ctx, pipeline.NewState(), pipeline.Request{
		Text:          text,
		Source:        flags.From,
		Target:        flags.To,
		AllowFallback: flags.Fallback,
		EnableAudio:   flags.AudioOut != "",
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, res.Text)
	for _, n := range res.Notices {
		fmt.Fprintf(errOut, "%s: %s\n", n.Level, n.Message)
	}

	if flags.AudioOut != "" && len(res.Audio) > 0 {
		if err := os.WriteFile(flags.AudioOut, res.Audio, 0644); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}
		fmt.Fprintf(errOut, "audio: %s (%d bytes)\n", flags.AudioOut, len(res.Audio))
	}
	return nil
}

func readInput(stdin io.Reader, args []string, inputFile string) (string, error) {
	switch {
	case inputFile != "":
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
}
