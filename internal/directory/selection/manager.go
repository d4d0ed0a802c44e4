package selection

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidKey = errors.New("invalid_selection_key")

// locker is implemented by stores shared between processes.
type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type Params struct {
	fx.In

	Store  Store
	Config *config.DirectoryConfigHolder
	Log    *zap.Logger
}

// Manager owns operator selections. A selection survives paging,
// filtering and re-sorting; only explicit removal or Clear deselects.
type Manager struct {
	store  Store
	config *config.DirectoryConfigHolder
	log    *zap.Logger

	mu sync.Mutex
}

func NewManager(p Params) *Manager {
	return &Manager{
		store:  p.Store,
		config: p.Config,
		log:    p.Log.Named("directory.selection"),
	}
}

// Create starts a selection seeded with ids and returns its key.
func (m *Manager) Create(ctx context.Context, ids []snowflake.ID) (string, []snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return "", nil, domain.ErrInvalidOrganization
	}

	key := uuid.NewString()
	set := NewSet(ids...)
	if err := m.store.Save(ctx, storageKey(orgID, key), set.IDs(), m.config.Get().SelectionTTL); err != nil {
		return "", nil, err
	}
	return key, set.IDs(), nil
}

func (m *Manager) Get(ctx context.Context, key string) ([]snowflake.ID, error) {
	skey, err := resolveKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return m.store.Load(ctx, skey)
}

// Update adds then removes ids and returns the resulting selection.
func (m *Manager) Update(ctx context.Context, key string, add, remove []snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := m.mutate(ctx, key, func(set *Set) {
		set.Add(add...)
		set.Remove(remove...)
		ids = set.IDs()
	})
	return ids, err
}

// Toggle flips one id and reports whether it is selected afterwards.
func (m *Manager) Toggle(ctx context.Context, key string, id snowflake.ID) (bool, []snowflake.ID, error) {
	var (
		selected bool
		ids      []snowflake.ID
	)
	err := m.mutate(ctx, key, func(set *Set) {
		selected = set.Toggle(id)
		ids = set.IDs()
	})
	return selected, ids, err
}

// Clear forgets the selection entirely.
func (m *Manager) Clear(ctx context.Context, key string) error {
	skey, err := resolveKey(ctx, key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(ctx, skey)
}

func (m *Manager) mutate(ctx context.Context, key string, fn func(*Set)) error {
	skey, err := resolveKey(ctx, key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.store.(locker); ok {
		unlock, err := l.Lock(ctx, skey)
		if err != nil {
			return err
		}
		defer unlock()
	}

	ids, err := m.store.Load(ctx, skey)
	if err != nil {
		return err
	}
	set := NewSet(ids...)
	fn(set)
	return m.store.Save(ctx, skey, set.IDs(), m.config.Get().SelectionTTL)
}

func resolveKey(ctx context.Context, key string) (string, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return "", domain.ErrInvalidOrganization
	}
	parsed, err := uuid.Parse(strings.TrimSpace(key))
	if err != nil {
		return "", ErrInvalidKey
	}
	return storageKey(orgID, parsed.String()), nil
}

func storageKey(orgID snowflake.ID, key string) string {
	return orgID.String() + ":" + key
}
