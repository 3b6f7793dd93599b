// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"

	"github.com/ManuGH/lessonstream/internal/resilience"
)

// Pinger is satisfied by the catalog store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports the reference store as unhealthy when it cannot be pinged.
type StoreChecker struct {
	store Pinger
}

func NewStoreChecker(store Pinger) *StoreChecker {
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Name() string { return "store" }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// BreakerChecker degrades readiness while a circuit breaker is not closed.
// Streaming of direct URLs keeps working, so it never reports unhealthy.
type BreakerChecker struct {
	name  string
	state func() resilience.State
}

func NewBreakerChecker(name string, state func() resilience.State) *BreakerChecker {
	return &BreakerChecker{name: name, state: state}
}

func (c *BreakerChecker) Name() string { return c.name }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	switch s := c.state(); s {
	case resilience.StateClosed:
		return CheckResult{Status: StatusHealthy}
	default:
		return CheckResult{Status: StatusDegraded, Message: "circuit breaker " + string(s)}
	}
}
