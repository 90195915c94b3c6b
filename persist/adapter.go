package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ferreye/storecore/coreerrors"
)

// SchemaVersion tags every written envelope. Bump it when a blob's shape
// changes; old versions are discarded on load rather than shape-guessed.
const SchemaVersion = 1

type envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	Data          json.RawMessage `json:"data"`
}

// Adapter writes and reads versioned snapshots through a Backend.
type Adapter struct {
	backend Backend
	log     *zap.Logger
}

// NewAdapter wraps backend. A nil logger is replaced with a no-op one.
func NewAdapter(backend Backend, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{backend: backend, log: log}
}

// Clear removes the blob under key. Clearing an absent key is a no-op.
func (a *Adapter) Clear(ctx context.Context, key string) error {
	if err := a.backend.Delete(ctx, key); err != nil {
		a.log.Warn("persist: clear failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %v", coreerrors.ErrPersistWrite, err)
	}
	return nil
}

// Save serializes value under key. A failed write is reported as
// ErrPersistWrite and logged; it is never escalated past the caller, and
// the caller's in-memory state stays authoritative.
func Save[T any](ctx context.Context, a *Adapter, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		a.log.Warn("persist: marshal failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %v", coreerrors.ErrPersistWrite, err)
	}
	env, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Data: data})
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrPersistWrite, err)
	}
	if err := a.backend.Put(ctx, key, env); err != nil {
		a.log.Warn("persist: write failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %v", coreerrors.ErrPersistWrite, err)
	}
	return nil
}

// Load reads the blob under key. It fails closed: absent key, backend
// failure, malformed envelope, wrong schema version, or a payload that does
// not decode into T all return ok=false with the zero value. Corrupt blobs
// are deleted so the next startup does not re-parse them.
func Load[T any](ctx context.Context, a *Adapter, key string) (value T, ok bool) {
	var zero T

	raw, err := a.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return zero, false
	}
	if err != nil {
		a.log.Warn("persist: read failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		a.discardCorrupt(ctx, key, err)
		return zero, false
	}
	if env.SchemaVersion != SchemaVersion {
		a.log.Warn("persist: schema version mismatch, discarding blob",
			zap.String("key", key),
			zap.Int("have", env.SchemaVersion),
			zap.Int("want", SchemaVersion))
		_ = a.backend.Delete(ctx, key)
		return zero, false
	}
	if err := json.Unmarshal(env.Data, &value); err != nil {
		a.discardCorrupt(ctx, key, err)
		return zero, false
	}
	return value, true
}

func (a *Adapter) discardCorrupt(ctx context.Context, key string, cause error) {
	a.log.Warn("persist: corrupt blob discarded",
		zap.String("key", key),
		zap.Error(fmt.Errorf("%w: %v", coreerrors.ErrPersistCorrupt, cause)))
	_ = a.backend.Delete(ctx, key)
}
