// Package kvstore implements the namespaced key-value substrate that every
// other labcraft component persists through.
//
// Values are JSON documents. A namespace either holds a sequence of records
// (collections, entries, images) or a single record (draft, theme, session).
// Mutations always rewrite the entire namespace.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Namespace names a persisted key.
type Namespace string

const (
	// NamespaceCollections holds the sequence of collections.
	NamespaceCollections Namespace = "collections"
	// NamespaceEntries holds the sequence of entries.
	NamespaceEntries Namespace = "entries"
	// NamespaceImages holds the sequence of stored assets.
	NamespaceImages Namespace = "images"
	// NamespaceDraft holds the singleton draft record.
	NamespaceDraft Namespace = "draft"
	// NamespaceTheme holds the singleton theme preference.
	NamespaceTheme Namespace = "theme"
	// NamespaceSession holds the singleton authenticated identity.
	NamespaceSession Namespace = "session"
)

// String returns the raw key.
func (ns Namespace) String() string {
	return string(ns)
}

var errMissingStore = errors.New("kvstore: backing store is required")

// Store is the persistent string-keyed storage the substrate builds upon.
type Store interface {
	// Load returns the stored value and whether the key exists.
	Load(ctx context.Context, key string) (string, bool, error)
	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Substrate layers JSON (de)serialization and corruption tolerance over a Store.
type Substrate struct {
	store  Store
	logger *zap.Logger
}

// NewSubstrate wraps store. A nil logger disables logging.
func NewSubstrate(store Store, logger *zap.Logger) (*Substrate, error) {
	if store == nil {
		return nil, errMissingStore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Substrate{store: store, logger: logger}, nil
}

// Get reads the sequence stored in ns. A missing or malformed namespace
// yields an empty sequence; only backend failures return an error.
func Get[T any](ctx context.Context, substrate *Substrate, ns Namespace) ([]T, error) {
	raw, found, err := substrate.store.Load(ctx, ns.String())
	if err != nil {
		return nil, fmt.Errorf("kvstore: load %s: %w", ns, err)
	}
	if !found || raw == "" {
		return []T{}, nil
	}
	var values []T
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		substrate.logger.Warn("malformed namespace treated as empty",
			zap.String("namespace", ns.String()),
			zap.Error(err))
		return []T{}, nil
	}
	if values == nil {
		values = []T{}
	}
	return values, nil
}

// Set replaces the whole sequence stored in ns.
func Set[T any](ctx context.Context, substrate *Substrate, ns Namespace, values []T) error {
	if values == nil {
		values = []T{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("kvstore: encode %s: %w", ns, err)
	}
	if err := substrate.store.Save(ctx, ns.String(), string(encoded)); err != nil {
		return fmt.Errorf("kvstore: save %s: %w", ns, err)
	}
	return nil
}

// GetRecord reads the singleton record stored in ns. The boolean is false
// when the record is absent or cannot be decoded.
func GetRecord[T any](ctx context.Context, substrate *Substrate, ns Namespace) (T, bool, error) {
	var zero T
	raw, found, err := substrate.store.Load(ctx, ns.String())
	if err != nil {
		return zero, false, fmt.Errorf("kvstore: load %s: %w", ns, err)
	}
	if !found || raw == "" {
		return zero, false, nil
	}
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		substrate.logger.Warn("malformed record treated as absent",
			zap.String("namespace", ns.String()),
			zap.Error(err))
		return zero, false, nil
	}
	return value, true, nil
}

// IsCorrupt reports whether ns holds a value that does not decode as T.
func IsCorrupt[T any](ctx context.Context, substrate *Substrate, ns Namespace) (bool, error) {
	raw, found, err := substrate.store.Load(ctx, ns.String())
	if err != nil {
		return false, fmt.Errorf("kvstore: load %s: %w", ns, err)
	}
	if !found || raw == "" {
		return false, nil
	}
	var value T
	return json.Unmarshal([]byte(raw), &value) != nil, nil
}

// SetRecord replaces the singleton record stored in ns.
func SetRecord[T any](ctx context.Context, substrate *Substrate, ns Namespace, value T) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: encode %s: %w", ns, err)
	}
	if err := substrate.store.Save(ctx, ns.String(), string(encoded)); err != nil {
		return fmt.Errorf("kvstore: save %s: %w", ns, err)
	}
	return nil
}

// Remove deletes ns unconditionally.
func Remove(ctx context.Context, substrate *Substrate, ns Namespace) error {
	if err := substrate.store.Delete(ctx, ns.String()); err != nil {
		return fmt.Errorf("kvstore: delete %s: %w", ns, err)
	}
	return nil
}
