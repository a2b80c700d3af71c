package rag

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrMockInit    = errors.New("rag init error")
	ErrMockChat    = errors.New("rag chat error")
	ErrMockSummary = errors.New("rag summary error")
)

// Mock is a configurable in-memory Client for tests. Call counters are
// atomic so tests may read them while a call is in flight.
type Mock struct {
	Delay time.Duration

	FailInit    bool
	FailChat    bool
	FailSummary bool

	InitResult  InitResult
	ChatResult  ChatResult
	SummaryText string

	InitCalls    atomic.Int32
	ChatCalls    atomic.Int32
	SummaryCalls atomic.Int32
}

func (m *Mock) Init(ctx context.Context, matchResultID string) (*InitResult, error) {
	m.InitCalls.Add(1)
	if err := sleepCtx(ctx, m.Delay); err != nil {
		return nil, err
	}
	if m.FailInit {
		return nil, ErrMockInit
	}
	out := m.InitResult
	return &out, nil
}

func (m *Mock) Chat(ctx context.Context, matchResultID, message string) (*ChatResult, error) {
	m.ChatCalls.Add(1)
	if err := sleepCtx(ctx, m.Delay); err != nil {
		return nil, err
	}
	if m.FailChat {
		return nil, ErrMockChat
	}
	out := m.ChatResult
	return &out, nil
}

func (m *Mock) Summary(ctx context.Context, matchResultID string) (string, error) {
	m.SummaryCalls.Add(1)
	if err := sleepCtx(ctx, m.Delay); err != nil {
		return "", err
	}
	if m.FailSummary {
		return "", ErrMockSummary
	}
	return m.SummaryText, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
