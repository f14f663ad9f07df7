package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"text-pipeline/internal/app"
	"text-pipeline/internal/httputil"
	"text-pipeline/internal/inference"
	"text-pipeline/internal/pipeline"
	"text-pipeline/internal/queue"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	q, err := deps.RequireQueue()
	if err != nil {
		deps.Log.Error("worker cannot start", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("worker starting", "status", deps.Pipeline.Status())
	if !deps.Pipeline.Ready() {
		deps.Log.Warn("no capability is configured; every task will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	handler := handleTask(deps.Pipeline, deps.Log)

	for _, t := range []queue.TaskType{queue.TaskTypeSummarize, queue.TaskTypeParaphrase} {
		g.Go(func() error {
			return q.Worker(ctx, t, handler)
		})
	}

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, deps.Config.Port, "worker")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
	}
}

func handleTask(svc pipeline.Service, log *slog.Logger) queue.Handler {
	return func(ctx context.Context, task queue.Task) (queue.Result, error) {
		log := log.With("id", task.ID, "type", task.Type, "attempt", task.Attempts+1)

		switch task.Type {
		case queue.TaskTypeSummarize:
			var p queue.SummarizePayload
			if err := task.Decode(&p); err != nil {
				return failure(badPayload(err))
			}
			summary, err := svc.Summarize(ctx, p.Text, p.Method, p.Length)
			if err != nil {
				return failure(err)
			}
			log.Info("summary generated", "method", p.Method, "length", p.Length)
			return queue.Result{Result: summary}, nil

		case queue.TaskTypeParaphrase:
			var p queue.ParaphrasePayload
			if err := task.Decode(&p); err != nil {
				return failure(badPayload(err))
			}
			variants, err := paraphrase(ctx, svc, p)
			if err != nil {
				return failure(err)
			}
			log.Info("paraphrase generated", "variants", len(variants), "deterministic", p.Deterministic)
			return queue.Result{
				Result:   strings.Join(variants, pipeline.VariantSeparator),
				Variants: variants,
			}, nil

		default:
			return failure(badPayload(fmt.Errorf("unsupported task type %q", task.Type)))
		}
	}
}

func paraphrase(ctx context.Context, svc pipeline.Service, p queue.ParaphrasePayload) ([]string, error) {
	if !p.Deterministic {
		return svc.ParaphraseMany(ctx, p.Text, p.Variants)
	}
	out, err := svc.ParaphraseDeterministic(ctx, p.Text)
	if err != nil {
		return nil, err
	}
	return []string{out}, nil
}

func badPayload(err error) error {
	return &inference.Error{Kind: inference.KindInvalid, Task: "worker", Message: err.Error(), Err: err}
}

func failure(err error) (queue.Result, error) {
	return queue.Result{Error: err.Error(), Kind: inference.KindOf(err).String()}, err
}
