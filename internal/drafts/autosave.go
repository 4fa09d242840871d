// Package drafts persists a single debounced snapshot of an unsaved entry.
package drafts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"go.uber.org/zap"
)

// DefaultDelay is the quiet period before a draft is written.
const DefaultDelay = time.Second

var errMissingSubstrate = errors.New("drafts: substrate is required")

// Config describes the dependencies of an Autosaver.
type Config struct {
	Substrate *kvstore.Substrate
	Scheduler Scheduler
	Clock     func() time.Time
	Delay     time.Duration
	Logger    *zap.Logger
	// OnSaved is invoked after every successful debounced write.
	OnSaved func(Draft)
}

// Autosaver coalesces rapid edits into at most one write per quiet period.
// Only the most recently armed timer may write.
type Autosaver struct {
	substrate *kvstore.Substrate
	scheduler Scheduler
	clock     func() time.Time
	delay     time.Duration
	logger    *zap.Logger
	onSaved   func(Draft)

	mu         sync.Mutex
	state      State
	pending    Timer
	content    *Content
	generation uint64
	lastSaved  time.Time
}

// NewAutosaver validates cfg and constructs an Autosaver in StateIdle.
func NewAutosaver(cfg Config) (*Autosaver, error) {
	if cfg.Substrate == nil {
		return nil, errMissingSubstrate
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autosaver{
		substrate: cfg.Substrate,
		scheduler: scheduler,
		clock:     clock,
		delay:     delay,
		logger:    logger,
		onSaved:   cfg.OnSaved,
		state:     StateIdle,
	}, nil
}

// SaveDraft replaces any pending snapshot with content and re-arms the
// debounce timer.
func (a *Autosaver) SaveDraft(content Content) {
	snapshot := content
	snapshot.Attachments = append([]string(nil), content.Attachments...)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	generation := a.generation
	a.content = &snapshot
	a.state = StatePending
	a.pending = a.scheduler.AfterFunc(a.delay, func() {
		a.fire(generation)
	})
}

func (a *Autosaver) fire(generation uint64) {
	a.mu.Lock()
	if generation != a.generation || a.content == nil {
		a.mu.Unlock()
		return
	}
	content := *a.content
	a.content = nil
	a.pending = nil
	draft, err := a.writeLocked(context.Background(), content)
	a.mu.Unlock()

	if err != nil {
		return
	}
	if a.onSaved != nil {
		a.onSaved(draft)
	}
}

// Flush writes the pending snapshot immediately, if there is one.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.content == nil {
		a.mu.Unlock()
		return nil
	}
	content := *a.content
	a.cancelLocked()
	draft, err := a.writeLocked(ctx, content)
	a.mu.Unlock()

	if err != nil {
		return err
	}
	if a.onSaved != nil {
		a.onSaved(draft)
	}
	return nil
}

func (a *Autosaver) writeLocked(ctx context.Context, content Content) (Draft, error) {
	draft := Draft{Content: content, SavedAt: a.clock().UTC()}
	if err := kvstore.SetRecord(ctx, a.substrate, kvstore.NamespaceDraft, draft); err != nil {
		a.state = StateIdle
		a.logger.Error("draft autosave failed",
			zap.String("collection_id", content.CollectionID),
			zap.Error(err))
		return Draft{}, err
	}
	a.state = StateSaved
	a.lastSaved = draft.SavedAt
	a.logger.Debug("draft saved",
		zap.String("collection_id", content.CollectionID),
		zap.Time("saved_at", draft.SavedAt))
	return draft, nil
}

// ClearDraft drops any pending snapshot and removes the persisted draft.
func (a *Autosaver) ClearDraft(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	a.state = StateIdle
	a.lastSaved = time.Time{}
	return kvstore.Remove(ctx, a.substrate, kvstore.NamespaceDraft)
}

// LoadDraft returns the persisted draft verbatim. A corrupt record reads as
// absent and is left in storage.
func (a *Autosaver) LoadDraft(ctx context.Context) (Draft, bool, error) {
	return kvstore.GetRecord[Draft](ctx, a.substrate, kvstore.NamespaceDraft)
}

// Restore returns the persisted draft when it is valid for a session on
// collectionID. A record that does not decode as a Draft is deleted.
func (a *Autosaver) Restore(ctx context.Context, collectionID string) (Draft, bool, error) {
	corrupt, err := kvstore.IsCorrupt[Draft](ctx, a.substrate, kvstore.NamespaceDraft)
	if err != nil {
		return Draft{}, false, err
	}
	if corrupt {
		a.logger.Warn("corrupt draft removed")
		if err := kvstore.Remove(ctx, a.substrate, kvstore.NamespaceDraft); err != nil {
			return Draft{}, false, err
		}
		return Draft{}, false, nil
	}

	draft, found, err := a.LoadDraft(ctx)
	if err != nil || !found {
		return Draft{}, false, err
	}
	if !draft.MatchesCollection(collectionID) {
		return Draft{}, false, nil
	}

	a.mu.Lock()
	if a.state == StateIdle {
		a.lastSaved = draft.SavedAt
	}
	a.mu.Unlock()
	return draft, true, nil
}

// Close cancels a pending write without persisting it.
func (a *Autosaver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
	if a.state == StatePending {
		a.state = StateIdle
	}
}

// State reports the current autosave state.
func (a *Autosaver) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// LastSaved reports when a draft was last persisted or restored; zero when none.
func (a *Autosaver) LastSaved() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSaved
}

func (a *Autosaver) cancelLocked() {
	if a.pending != nil {
		a.pending.Stop()
		a.pending = nil
	}
	a.content = nil
	a.generation++
}
