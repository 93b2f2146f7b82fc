package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Yassen717/Chatly/internal/auth"
	"github.com/Yassen717/Chatly/internal/chat"
)

const saveDebounce = 250 * time.Millisecond

// Persister keeps the chat store and auth session synchronized with
// the blob store. Saves triggered by store changes are debounced so a
// burst of mutations produces a single write.
type Persister struct {
	blobs  BlobStore
	store  *chat.Store
	auth   *auth.Service
	logger *log.Logger

	mu    sync.Mutex
	timer *time.Timer
	unsub func()
}

// NewPersister wires a persister; call Start to begin observing.
func NewPersister(blobs BlobStore, store *chat.Store, authSvc *auth.Service, logger *log.Logger) *Persister {
	if logger == nil {
		logger = log.Default()
	}
	return &Persister{blobs: blobs, store: store, auth: authSvc, logger: logger}
}

// Load hydrates the chat store and auth session from persisted
// snapshots. Missing blobs are not errors; the app starts empty.
func (p *Persister) Load(ctx context.Context) error {
	data, err := p.blobs.Get(ctx, ChatStorageKey)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	default:
		conversations, activeID, err := DecodeChatSnapshot(data)
		if err != nil {
			return err
		}
		p.store.Restore(conversations, activeID)
		p.logger.Info("chat state restored", "conversations", len(conversations))
	}

	if p.auth == nil {
		return nil
	}
	data, err = p.blobs.Get(ctx, AuthStorageKey)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	user, err := DecodeAuthSnapshot(data)
	if err != nil {
		return err
	}
	p.auth.Restore(user)
	return nil
}

// Start subscribes to store and auth changes. Call Stop to detach and
// flush.
func (p *Persister) Start() {
	p.store.SetOnChange(p.scheduleSave)
	if p.auth != nil {
		p.unsub = p.auth.OnAuthStateChanged(func(user *auth.UserRecord) {
			p.saveAuth(user)
		})
	}
}

// Stop detaches the persister and flushes any pending save.
func (p *Persister) Stop() {
	p.store.SetOnChange(nil)
	if p.unsub != nil {
		p.unsub()
		p.unsub = nil
	}

	p.mu.Lock()
	pending := p.timer != nil && p.timer.Stop()
	p.timer = nil
	p.mu.Unlock()

	if pending {
		p.saveChat()
	}
}

// Flush writes the current chat state immediately.
func (p *Persister) Flush() {
	p.saveChat()
}

func (p *Persister) scheduleSave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(saveDebounce, p.saveChat)
}

func (p *Persister) saveChat() {
	conversations, activeID := p.store.Snapshot()
	data, err := EncodeChatSnapshot(conversations, activeID)
	if err != nil {
		p.logger.Error("failed to encode chat snapshot", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.blobs.Put(ctx, ChatStorageKey, data); err != nil {
		p.logger.Error("failed to persist chat state", "error", err)
	}
}

func (p *Persister) saveAuth(user *auth.UserRecord) {
	data, err := EncodeAuthSnapshot(user)
	if err != nil {
		p.logger.Error("failed to encode auth snapshot", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.blobs.Put(ctx, AuthStorageKey, data); err != nil {
		p.logger.Error("failed to persist auth state", "error", err)
	}
}
