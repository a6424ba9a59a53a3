// Package store provides key-value persistence for engine state.
package store

import (
	"context"
	"encoding/json"

	apperrors "adaptive-trader/internal/errors"
)

// Persisted keys.
const (
	KeyPortfolio     = "portfolio"
	KeyTrades        = "trades"
	KeySignals       = "signals"
	KeyLastRun       = "last_run"
	KeyEquityHistory = "equity_history"
	KeyBenchmark     = "benchmark"
	KeyLearningState = "learning_state"
	KeyCooldowns     = "cooldowns"
)

// Retention caps for bounded append-only history.
const (
	TradeHistoryCap  = 200
	EquityHistoryCap = 500
)

// KVStore defines the key-value persistence interface: plain get/set
// plus bounded append-only lists.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	ListAppend(ctx context.Context, key string, value []byte) error
	ListTrim(ctx context.Context, key string, keepLast int) error
	ListRange(ctx context.Context, key string, start, end int) ([][]byte, error)
	ListClear(ctx context.Context, key string) error

	Close() error
}

// GetJSON loads and unmarshals a stored value into dest. Returns false
// when the key is absent.
func GetJSON(ctx context.Context, kv KVStore, key string, dest interface{}) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, apperrors.NewStoreError("decode", key, err)
	}
	return true, nil
}

// SetJSON marshals and stores a value.
func SetJSON(ctx context.Context, kv KVStore, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewStoreError("encode", key, err)
	}
	return kv.Set(ctx, key, raw)
}

// AppendJSON marshals a value and appends it to a list key, trimming the
// list to keepLast entries.
func AppendJSON(ctx context.Context, kv KVStore, key string, value interface{}, keepLast int) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewStoreError("encode", key, err)
	}
	if err := kv.ListAppend(ctx, key, raw); err != nil {
		return err
	}
	return kv.ListTrim(ctx, key, keepLast)
}
