package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/X-culture24/my-farm/internal/domain"
	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeAccess allows every farm except the denied ones.
type fakeAccess struct {
	denied map[string]bool
}

func (a *fakeAccess) CheckFarm(_ context.Context, farmID string) error {
	if a != nil && a.denied[farmID] {
		return apperrors.Forbidden("no access to farm " + farmID)
	}
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	err      error
	acquired []string
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

// fakeCache memoizes by farm and parts in memory.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	loads       int
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Fetch(ctx context.Context, farmID string, parts []string, dest any, load func(context.Context) (any, error)) error {
	key := farmID
	for _, p := range parts {
		key += ":" + p
	}
	c.mu.Lock()
	raw, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		v, err := load(ctx)
		if err != nil {
			return err
		}
		if raw, err = json.Marshal(v); err != nil {
			return err
		}
		c.mu.Lock()
		c.entries[key] = raw
		c.loads++
		c.mu.Unlock()
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Invalidate(_ context.Context, farmID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, farmID)
	for k := range c.entries {
		if len(k) > len(farmID) && k[:len(farmID)+1] == farmID+":" {
			delete(c.entries, k)
		}
	}
	return nil
}

// fakeEvents records published events by name.
type fakeEvents struct {
	mu     sync.Mutex
	err    error
	events []string
	alerts []string
}

func (e *fakeEvents) record(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, name)
	return nil
}

func (e *fakeEvents) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func (e *fakeEvents) PublishSaleCreated(_ context.Context, s *domain.Sale) error {
	return e.record("created:" + s.ID)
}

func (e *fakeEvents) PublishStatusUpdated(_ context.Context, s *domain.Sale, old domain.SaleStatus) error {
	return e.record("status:" + string(old) + "->" + string(s.Status))
}

func (e *fakeEvents) PublishPaymentAdded(_ context.Context, s *domain.Sale, amount decimal.Decimal) error {
	return e.record("payment:" + amount.String())
}

func (e *fakeEvents) PublishSaleCancelled(_ context.Context, s *domain.Sale, reason string) error {
	return e.record("cancelled:" + reason)
}

func (e *fakeEvents) PublishStockAlert(_ context.Context, p *domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.alerts = append(e.alerts, p.ID)
	return nil
}
