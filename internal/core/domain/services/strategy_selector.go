package services

import (
	"errors"
	"fmt"
	"hash/fnv"

	"ordering/internal/core/domain/model/kernel"
)

// StrategyID identifies one of the three execution strategies hosting the
// order state machine.
type StrategyID string

const (
	// StrategyEntity is the turn-serialized stateful-entity strategy.
	StrategyEntity StrategyID = "entity"

	// StrategyKeyedStore is the direct keyed-store strategy.
	StrategyKeyedStore StrategyID = "keyedstore"

	// StrategyDurable is the durable-workflow replay strategy.
	StrategyDurable StrategyID = "durable"
)

// Validate checks that the strategy id names a known strategy.
func (s StrategyID) Validate() error {
	switch s {
	case StrategyEntity, StrategyKeyedStore, StrategyDurable:
		return nil
	default:
		return fmt.Errorf("%q is not a known strategy", string(s))
	}
}

// ErrRolloutDoesNotSumTo100 is returned when the configured percentages do not
// cover exactly the whole rollout space.
var ErrRolloutDoesNotSumTo100 = errors.New("rollout percentages must sum to 100")

// RolloutConfig describes the percentage-based split of new orders across the
// three strategies.
type RolloutConfig struct {
	EntityPercent     int
	KeyedStorePercent int
	DurablePercent    int
}

// Validate checks that the percentages are non-negative and sum to 100.
func (c RolloutConfig) Validate() error {
	if c.EntityPercent < 0 || c.KeyedStorePercent < 0 || c.DurablePercent < 0 {
		return ErrRolloutDoesNotSumTo100
	}
	if c.EntityPercent+c.KeyedStorePercent+c.DurablePercent != 100 {
		return ErrRolloutDoesNotSumTo100
	}
	return nil
}

// StrategySelector is a domain service that picks the execution strategy for
// a new order. The decision is a pure function of the order id and the
// rollout configuration: it hashes the id into a bucket of 100, so the same
// order always lands on the same strategy across retries regardless of
// wall-clock or process. It is evaluated once, at creation; the router
// persists the result and never re-evaluates it.
type StrategySelector struct{}

// NewStrategySelector creates a new StrategySelector instance.
func NewStrategySelector() StrategySelector {
	return StrategySelector{}
}

// Select returns the strategy for the given order id under the given rollout.
func (StrategySelector) Select(orderID kernel.UUID, rollout RolloutConfig) (StrategyID, error) {
	if err := orderID.Validate(); err != nil {
		return "", err
	}
	if err := rollout.Validate(); err != nil {
		return "", err
	}

	h := fnv.New64a()
	raw := orderID.Bytes()
	_, _ = h.Write(raw[:])
	bucket := int(h.Sum64() % 100)

	switch {
	case bucket < rollout.EntityPercent:
		return StrategyEntity, nil
	case bucket < rollout.EntityPercent+rollout.KeyedStorePercent:
		return StrategyKeyedStore, nil
	default:
		return StrategyDurable, nil
	}
}
