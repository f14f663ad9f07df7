// Command pipeline summarizes and paraphrases text from the command line,
// either in process or through the task queue.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"text-pipeline/internal/app"
	"text-pipeline/internal/pipeline"
)

const version = "0.1.0"

// options are the persistent flags shared by every sub-command.
type options struct {
	viaQueue bool
	timeout  time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(app.Build).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(build func() (app.Deps, error)) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Summarize and paraphrase text with hosted models",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.viaQueue, "via-queue", false, "send the task to the worker over QUEUE_URL instead of calling the models directly")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "overall deadline for the command (0 = none)")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newSummarizeCmd(build, opts),
		newParaphraseCmd(build, opts),
		newStatusCmd(build),
	)
	return root
}

// service returns the facade to call, optionally routed through the queue.
func service(deps app.Deps, opts *options) (pipeline.Service, error) {
	if !opts.viaQueue {
		return deps.Pipeline, nil
	}
	q, err := deps.RequireQueue()
	if err != nil {
		return nil, err
	}
	return &queueService{Service: deps.Pipeline, q: q, maxAttempts: deps.Config.TaskMaxAttempts}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// readText takes the text from --file, from stdin when the only argument is
// "-", or from the joined arguments.
func readText(in io.Reader, file string, args []string) (string, error) {
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	case len(args) == 1 && args[0] == "-":
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	default:
		return strings.Join(args, " "), nil
	}
}
