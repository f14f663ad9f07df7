package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"text-pipeline/internal/app"
	"text-pipeline/internal/pipeline"
	"text-pipeline/internal/queue"
)

func newSummarizeCmd(build func() (app.Deps, error), opts *options) *cobra.Command {
	var method, length, file string
	cmd := &cobra.Command{
		Use:   "summarize [text...]",
		Short: "Summarize text",
		Example: `  pipeline summarize -m extractive -l short "Long article text..."
  pipeline summarize -f article.txt
  cat article.txt | pipeline summarize -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			deps, err := build()
			if err != nil {
				return err
			}
			defer deps.Close()
			svc, err := service(deps, opts)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			summary, err := svc.Summarize(ctx, text, method, length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", pipeline.MethodAbstractive, "extractive or abstractive")
	cmd.Flags().StringVarP(&length, "length", "l", "medium", "short, medium or long")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the text from a file")
	return cmd
}

func newParaphraseCmd(build func() (app.Deps, error), opts *options) *cobra.Command {
	var variants int
	var file string
	var deterministic bool
	cmd := &cobra.Command{
		Use:   "paraphrase [text...]",
		Short: "Rewrite text in up to 5 different ways",
		Example: `  pipeline paraphrase -n 3 "The meeting moved to Friday."
  pipeline paraphrase --deterministic -f note.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			deps, err := build()
			if err != nil {
				return err
			}
			defer deps.Close()
			svc, err := service(deps, opts)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			var out string
			if deterministic {
				out, err = svc.ParaphraseDeterministic(ctx, text)
			} else {
				out, err = svc.Paraphrase(ctx, text, variants)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&variants, "variants", "n", 3, "number of variants (1-5)")
	cmd.Flags().BoolVar(&deterministic, "deterministic", false, "return one beam-searched rewrite; ignores --variants")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the text from a file")
	return cmd
}

func newStatusCmd(build func() (app.Deps, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which capabilities are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := build()
			if err != nil {
				return err
			}
			defer deps.Close()

			status := deps.Pipeline.Status()
			names := make([]string, 0, len(status))
			for name := range status {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				state := "unavailable"
				if status[name] {
					state = "available"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", name, state)
			}
			return nil
		},
	}
}

// queueService sends summarize and paraphrase calls to a worker and waits
// for the reply. Status stays local.
type queueService struct {
	pipeline.Service
	q           queue.Queue
	maxAttempts int
}

func (s *queueService) Summarize(ctx context.Context, text, method, length string) (string, error) {
	res, err := s.request(ctx, queue.TaskTypeSummarize, queue.SummarizePayload{Text: text, Method: method, Length: length})
	if err != nil {
		return "", err
	}
	return res.Result, nil
}

func (s *queueService) Paraphrase(ctx context.Context, text string, n int) (string, error) {
	variants, err := s.ParaphraseMany(ctx, text, n)
	if err != nil {
		return "", err
	}
	return strings.Join(variants, pipeline.VariantSeparator), nil
}

func (s *queueService) ParaphraseMany(ctx context.Context, text string, n int) ([]string, error) {
	res, err := s.request(ctx, queue.TaskTypeParaphrase, queue.ParaphrasePayload{Text: text, Variants: n})
	if err != nil {
		return nil, err
	}
	return res.Variants, nil
}

func (s *queueService) ParaphraseDeterministic(ctx context.Context, text string) (string, error) {
	res, err := s.request(ctx, queue.TaskTypeParaphrase, queue.ParaphrasePayload{Text: text, Deterministic: true})
	if err != nil {
		return "", err
	}
	return res.Result, nil
}

func (s *queueService) request(ctx context.Context, typ queue.TaskType, payload any) (queue.Result, error) {
	task, err := queue.NewTask(typ, payload, s.maxAttempts)
	if err != nil {
		return queue.Result{}, err
	}
	res, err := s.q.Request(ctx, task)
	if err != nil {
		return queue.Result{}, err
	}
	if err := res.Err(); err != nil {
		return queue.Result{}, err
	}
	return res, nil
}
