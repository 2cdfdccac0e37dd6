package ledger

import (
	"context"
	"fmt"

	"painel/internal/cache"
	"painel/internal/core"
	"painel/internal/sources"
)

// Cached memoizes ledger reads per (days, today). Series are immutable once
// produced, so callers get copies.
type Cached struct {
	next    sources.LedgerSource
	revenue *cache.LRUCache[[]core.RevenuePoint]
	flow    *cache.LRUCache[[]core.ClientFlowPoint]
}

func NewCached(next sources.LedgerSource, revenue *cache.LRUCache[[]core.RevenuePoint], flow *cache.LRUCache[[]core.ClientFlowPoint]) *Cached {
	return &Cached{next: next, revenue: revenue, flow: flow}
}

func key(days int, today core.Date) string {
	return fmt.Sprintf("%d:%s", days, today.ISO())
}

func (c *Cached) RevenueSeries(ctx context.Context, days int, today core.Date) ([]core.RevenuePoint, error) {
	k := key(days, today)
	if v, ok := c.revenue.Get(k); ok {
		return append([]core.RevenuePoint(nil), v...), nil
	}
	v, err := c.next.RevenueSeries(ctx, days, today)
	if err != nil {
		return nil, err
	}
	c.revenue.Set(k, append([]core.RevenuePoint(nil), v...))
	return v, nil
}

func (c *Cached) ClientFlow(ctx context.Context, days int, today core.Date) ([]core.ClientFlowPoint, error) {
	k := key(days, today)
	if v, ok := c.flow.Get(k); ok {
		return append([]core.ClientFlowPoint(nil), v...), nil
	}
	v, err := c.next.ClientFlow(ctx, days, today)
	if err != nil {
		return nil, err
	}
	c.flow.Set(k, append([]core.ClientFlowPoint(nil), v...))
	return v, nil
}

// Stats reports the revenue and client flow cache usage.
func (c *Cached) Stats() (revenue, flow cache.Stats) {
	return c.revenue.Stats(), c.flow.Stats()
}
