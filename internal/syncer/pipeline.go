package syncer

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
)

// Failure is one item's failed unit of work within a phase.
type Failure struct {
	Label string
	Err   error
}

// runPhase executes one unit of work per item on a bounded worker pool.
// Results are consumed as they complete; one failing unit never aborts
// the phase. The calling goroutine blocks until every submitted unit
// has finished or the context is cancelled, then the aggregate tally is
// logged and the collected failures returned.
func runPhase[T any](
	ctx context.Context,
	name, description string,
	items []T,
	limit int,
	label func(T) string,
	fn func(context.Context, T) error,
) []Failure {
	if len(items) == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}

	bar := newBar(len(items), description)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		failures  []Failure
		semaphore = make(chan struct{}, limit)
	)

	for _, item := range items {
		wg.Add(1)
		go func(item T) {
			defer func() {
				bar.Add(1)
				wg.Done()
			}()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				failures = append(failures, Failure{Label: label(item), Err: ctx.Err()})
				mu.Unlock()
				return
			}
			defer func() { <-semaphore }()

			if err := fn(ctx, item); err != nil {
				mu.Lock()
				failures = append(failures, Failure{Label: label(item), Err: err})
				mu.Unlock()
			}
		}(item)
	}

	wg.Wait()
	bar.Finish()

	slog.Info(name+" phase complete",
		"total", len(items),
		"ok", len(items)-len(failures),
		"failed", len(failures),
	)
	for _, f := range failures {
		slog.Error(name+" failed", "item", f.Label, "error", diagnostic(f.Err))
	}

	return failures
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(description),
	)
}

// diagnostic truncates an error to its last line, which is where the
// external tools put the useful part.
func diagnostic(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		msg = strings.TrimSpace(msg[i+1:])
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
