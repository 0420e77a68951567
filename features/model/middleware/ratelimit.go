// Package middleware provides model.Agent middlewares such as adaptive rate
// limiting.
package middleware

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"goa.design/pulse/rmap"
	"goa.design/uistream/runtime/agent/model"
)

type (
	// AdaptiveRateLimiter throttles agent streams with an AIMD-style token
	// bucket. Each Stream call waits for the estimated prompt token cost; the
	// effective tokens-per-minute budget halves when the provider reports rate
	// limiting and grows back linearly on success.
	//
	// When built with a Pulse replicated map the budget is shared by every
	// process using the same key.
	AdaptiveRateLimiter struct {
		mu      sync.Mutex
		limiter *rate.Limiter

		currentTPM float64
		minTPM     float64
		maxTPM     float64
		step       float64

		// onChange publishes local adjustments to the shared budget.
		onChange func(shrink bool)
	}

	limitedAgent struct {
		next    model.Agent
		limiter *AdaptiveRateLimiter
	}

	// observedStreamer reports the outcome of a stream to the limiter once.
	observedStreamer struct {
		model.Streamer
		limiter *AdaptiveRateLimiter
		once    sync.Once
	}

	// clusterMap is the subset of rmap.Map used to share the budget.
	clusterMap interface {
		Get(key string) (string, bool)
		SetIfNotExists(ctx context.Context, key, value string) (bool, error)
		TestAndSet(ctx context.Context, key, test, value string) (string, error)
		Subscribe() <-chan rmap.EventKind
	}
)

// defaultTPM is used when no initial budget is configured.
const defaultTPM = 60000

// NewAdaptiveRateLimiter returns a limiter starting at initialTPM tokens per
// minute and never exceeding maxTPM. When m is not nil and key is not empty
// the budget is coordinated through the replicated map; otherwise the limiter
// is process-local.
func NewAdaptiveRateLimiter(ctx context.Context, m *rmap.Map, key string, initialTPM, maxTPM float64) *AdaptiveRateLimiter {
	if m == nil {
		return newLimiter(initialTPM, maxTPM)
	}
	return newSharedLimiter(ctx, m, key, initialTPM, maxTPM)
}

func newLimiter(initialTPM, maxTPM float64) *AdaptiveRateLimiter {
	if initialTPM <= 0 {
		initialTPM = defaultTPM
	}
	if maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	return &AdaptiveRateLimiter{
		limiter:    rate.NewLimiter(rate.Limit(initialTPM/60), int(initialTPM)),
		currentTPM: initialTPM,
		minTPM:     max(initialTPM*0.1, 1),
		maxTPM:     maxTPM,
		step:       max(initialTPM*0.05, 1),
	}
}

// Wrap returns an agent that waits for capacity before each stream and
// feeds the stream outcome back into the limiter.
func (l *AdaptiveRateLimiter) Wrap(next model.Agent) model.Agent {
	if next == nil {
		return nil
	}
	return &limitedAgent{next: next, limiter: l}
}

// TPM returns the current tokens-per-minute budget.
func (l *AdaptiveRateLimiter) TPM() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentTPM
}

func (a *limitedAgent) Stream(ctx context.Context, prompt model.Message, history []model.Message) (model.Streamer, error) {
	if err := a.limiter.wait(ctx, prompt, history); err != nil {
		return nil, err
	}
	s, err := a.next.Stream(ctx, prompt, history)
	if err != nil {
		a.limiter.observe(err)
		return nil, err
	}
	return &observedStreamer{Streamer: s, limiter: a.limiter}, nil
}

func (s *observedStreamer) Recv() (model.Item, error) {
	it, err := s.Streamer.Recv()
	if err != nil {
		s.once.Do(func() {
			outcome := err
			if errors.Is(outcome, io.EOF) {
				outcome = nil
			}
			s.limiter.observe(outcome)
		})
	}
	return it, err
}

func (l *AdaptiveRateLimiter) wait(ctx context.Context, prompt model.Message, history []model.Message) error {
	l.mu.Lock()
	tokens := min(estimateTokens(prompt, history), l.limiter.Burst())
	l.mu.Unlock()
	return l.limiter.WaitN(ctx, tokens)
}

func (l *AdaptiveRateLimiter) observe(err error) {
	switch {
	case err == nil:
		l.adjust(false)
	case isRateLimited(err):
		l.adjust(true)
	}
}

func (l *AdaptiveRateLimiter) adjust(shrink bool) {
	l.mu.Lock()
	next := min(l.currentTPM+l.step, l.maxTPM)
	if shrink {
		next = max(l.currentTPM*0.5, l.minTPM)
	}
	changed := l.setLocked(next)
	cb := l.onChange
	l.mu.Unlock()

	if changed && cb != nil {
		cb(shrink)
	}
}

// replace sets the budget to tpm clamped to the configured range.
func (l *AdaptiveRateLimiter) replace(tpm float64) {
	l.mu.Lock()
	l.setLocked(min(max(tpm, l.minTPM), l.maxTPM))
	l.mu.Unlock()
}

func (l *AdaptiveRateLimiter) setLocked(tpm float64) bool {
	if tpm == l.currentTPM {
		return false
	}
	l.currentTPM = tpm
	l.limiter.SetLimit(rate.Limit(tpm / 60))
	l.limiter.SetBurst(int(tpm))
	return true
}

func isRateLimited(err error) bool {
	pe, ok := model.AsProviderError(err)
	return ok && pe.Kind() == model.ProviderErrorKindRateLimited
}

// estimateTokens approximates the prompt size at one token per three
// characters of text or tool output plus a fixed overhead.
func estimateTokens(prompt model.Message, history []model.Message) int {
	chars := 0
	for _, m := range append([]model.Message{prompt}, history...) {
		for _, c := range m.Content {
			switch v := c.(type) {
			case model.TextContent:
				chars += len(v.Text)
			case model.ToolResultContent:
				chars += len(v.Output) + len(v.Error)
			case model.ToolCallContent:
				chars += len(v.Input)
			}
		}
	}
	return chars/3 + 500
}

func newSharedLimiter(ctx context.Context, m clusterMap, key string, initialTPM, maxTPM float64) *AdaptiveRateLimiter {
	if key == "" {
		return newLimiter(initialTPM, maxTPM)
	}
	if _, ok := m.Get(key); !ok {
		if _, err := m.SetIfNotExists(ctx, key, formatTPM(initialTPM)); err != nil {
			return newLimiter(initialTPM, maxTPM)
		}
	}
	if v, ok := sharedTPM(m, key); ok {
		initialTPM = v
	}
	l := newLimiter(initialTPM, maxTPM)
	floor, ceiling, step := l.minTPM, l.maxTPM, l.step
	l.onChange = func(shrink bool) {
		update := func(cur float64) float64 { return min(cur+step, ceiling) }
		if shrink {
			update = func(cur float64) float64 { return max(cur*0.5, floor) }
		}
		go updateShared(context.Background(), m, key, update)
	}

	ch := m.Subscribe()
	go func() {
		for range ch {
			if v, ok := sharedTPM(m, key); ok {
				l.replace(v)
			}
		}
	}()
	return l
}

// updateShared applies update to the shared budget with optimistic
// concurrency, giving up after a few conflicting writes.
func updateShared(ctx context.Context, m clusterMap, key string, update func(float64) float64) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for range 3 {
		raw, ok := m.Get(key)
		if !ok {
			return
		}
		cur, err := strconv.ParseFloat(raw, 64)
		if err != nil || cur <= 0 {
			return
		}
		next := formatTPM(update(cur))
		if next == raw {
			return
		}
		prev, err := m.TestAndSet(ctx, key, raw, next)
		if err != nil || prev == raw {
			return
		}
	}
}

func sharedTPM(m clusterMap, key string) (float64, bool) {
	raw, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func formatTPM(v float64) string { return strconv.Itoa(int(v)) }
