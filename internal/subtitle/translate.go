package subtitle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperjump/jimaku/internal/models"
)

const defaultTranslateConcurrency = 4

// Translator is the machine translation collaborator.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type translateOptions struct {
	concurrency int
}

// TranslateOption configures Translate.
type TranslateOption func(*translateOptions)

// WithConcurrency bounds the number of in-flight translation calls. Values below 1 mean 1.
func WithConcurrency(n int) TranslateOption {
	return func(o *translateOptions) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// Translate replaces every cue's text with its translation. Timing is never
// touched. Either every cue is translated or the subtitle is left unchanged
// and the first failure is returned.
func (s *Subtitle) Translate(ctx context.Context, tr Translator, sourceLang, targetLang string, opts ...TranslateOption) error {
	if tr == nil {
		return fmt.Errorf("%w: no translator configured", models.ErrService)
	}
	o := translateOptions{concurrency: defaultTranslateConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	n := len(s.Cues)
	if n == 0 {
		return nil
	}
	workers := o.concurrency
	if workers > n {
		workers = n
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		texts    = make([]string, n)
		jobs     = make(chan int)
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				out, err := tr.Translate(runCtx, s.Cues[i].Text, sourceLang, targetLang)
				if err != nil {
					fail(fmt.Errorf("%w: translate cue %d (%s -> %s): %w", models.ErrService, i, sourceLang, targetLang, err))
					continue
				}
				out = strings.TrimSpace(out)
				if out == "" {
					fail(fmt.Errorf("%w: translate cue %d (%s -> %s): empty translation", models.ErrService, i, sourceLang, targetLang))
					continue
				}
				texts[i] = out
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("translate %s -> %s: %w", sourceLang, targetLang, err)
	}
	for i := range s.Cues {
		s.Cues[i].Text = texts[i]
	}
	return nil
}
