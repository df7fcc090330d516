package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-management/internal/config"
	"github.com/iliyamo/salon-management/internal/kvstore"
	"github.com/iliyamo/salon-management/internal/model"
	"github.com/iliyamo/salon-management/internal/queue"
	"github.com/iliyamo/salon-management/internal/repository"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newRedisStore(t *testing.T) (*kvstore.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return kvstore.NewRedisStore(rdb), mr
}

// memPrincipals is an in-memory PrincipalStore.
type memPrincipals struct {
	mu     sync.Mutex
	byID   map[string]*model.Principal
	getErr error
}

func newMemPrincipals() *memPrincipals {
	return &memPrincipals{byID: map[string]*model.Principal{}}
}

func (m *memPrincipals) Create(_ context.Context, p *model.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	for _, existing := range m.byID {
		if existing.Email == p.Email {
			return repository.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPrincipals) GetByEmail(_ context.Context, email string) (*model.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, p := range m.byID {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPrincipals) GetByID(_ context.Context, id string) (*model.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPrincipals) SetPassword(_ context.Context, id, hash string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.PasswordHash = hash
	p.Role = role
	return nil
}

func (m *memPrincipals) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		p.IsActive = active
	}
	return nil
}

func (m *memPrincipals) BumpSessionVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.SessionVersion++
	return nil
}

func (m *memPrincipals) get(id string) model.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

// memOwners is an in-memory OwnerProfileStore.
type memOwners struct {
	mu       sync.Mutex
	profiles map[string]*model.OwnerProfile
}

func newMemOwners() *memOwners { return &memOwners{profiles: map[string]*model.OwnerProfile{}} }

func (m *memOwners) add(op model.OwnerProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[op.ID] = &op
}

func (m *memOwners) GetByID(_ context.Context, id string) (*model.OwnerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

func (m *memOwners) MarkInvitationConsumed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op, ok := m.profiles[id]; ok && op.InvitationConsumedAt == nil {
		now := time.Now().UTC()
		op.InvitationConsumedAt = &now
	}
	return nil
}

// memSalons is an in-memory SalonStore that counts relational searches.
type memSalons struct {
	mu         sync.Mutex
	salons     []*model.Salon
	principals *memPrincipals
	owners     *memOwners
	searches   int
	searchErr  error
}

func newMemSalons(principals *memPrincipals, owners *memOwners) *memSalons {
	return &memSalons{principals: principals, owners: owners}
}

func (m *memSalons) Create(ctx context.Context, s *model.Salon, owners []model.NewOwner) ([]model.OwnerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.salons {
		if existing.VTANumber == s.VTANumber || existing.Email == s.Email {
			return nil, repository.ErrDuplicate
		}
	}
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC().Add(time.Duration(len(m.salons)) * time.Millisecond)
	var profiles []model.OwnerProfile
	for _, o := range owners {
		p, err := m.principals.GetByEmail(ctx, o.Email)
		if errors.Is(err, repository.ErrNotFound) {
			p = &model.Principal{Email: o.Email, FirstName: o.FirstName, LastName: o.LastName, Role: model.RoleSalonOwner}
			if err := m.principals.Create(ctx, p); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		} else if p.Role != model.RoleSalonOwner {
			return nil, repository.ErrEmailNotOwner
		}
		op := model.OwnerProfile{ID: uuid.NewString(), SalonID: s.ID, PrincipalID: p.ID, Email: p.Email,
			FirstName: o.FirstName, LastName: o.LastName, InvitationSent: o.InvitationSent}
		m.owners.add(op)
		profiles = append(profiles, op)
	}
	s.Owners = profiles
	cp := *s
	m.salons = append(m.salons, &cp)
	return profiles, nil
}

func (m *memSalons) find(id string) *model.Salon {
	for _, s := range m.salons {
		if s.ID == id && s.DeletedAt == nil {
			return s
		}
	}
	return nil
}

func (m *memSalons) GetByID(_ context.Context, id string) (*model.Salon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.find(id)
	if s == nil {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSalons) Update(_ context.Context, id string, u model.SalonUpdate, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.find(id)
	if s == nil {
		return repository.ErrNotFound
	}
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.City != nil {
		s.City = *u.City
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Plan != nil {
		s.Plan = *u.Plan
	}
	s.UpdatedBy = &actorID
	return nil
}

func (m *memSalons) SoftDelete(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.find(id)
	if s == nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	s.DeletedAt = &now
	return nil
}

func (m *memSalons) HardDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.salons {
		if s.ID == id {
			m.salons = append(m.salons[:i], m.salons[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memSalons) Search(_ context.Context, f model.SalonFilter) ([]model.Salon, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if m.searchErr != nil {
		return nil, 0, m.searchErr
	}
	var matched []model.Salon
	for i := len(m.salons) - 1; i >= 0; i-- {
		s := m.salons[i]
		if s.DeletedAt != nil {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(s.Name), f.Search) {
			continue
		}
		if f.Status != "" && string(s.Status) != f.Status {
			continue
		}
		if f.Plan != "" && string(s.Plan) != f.Plan {
			continue
		}
		if f.City != "" && strings.ToLower(s.City) != f.City {
			continue
		}
		matched = append(matched, *s)
	}
	total := int64(len(matched))
	start := min(f.Offset(), len(matched))
	end := min(start+f.Limit, len(matched))
	return matched[start:end], total, nil
}

func (m *memSalons) searchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searches
}

// recordingPublisher captures published invitations.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.OwnerInvitedEvent
	err    error
}

func (p *recordingPublisher) PublishOwnerInvited(_ context.Context, ev queue.OwnerInvitedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

// failingStore is a kvstore.Store whose every call fails.
type failingStore struct{ err error }

func (f failingStore) Set(context.Context, string, string, time.Duration) error { return f.err }
func (f failingStore) Get(context.Context, string) (string, bool, error)        { return "", false, f.err }
func (f failingStore) Delete(context.Context, string) error                      { return f.err }
func (f failingStore) DeleteByPrefix(context.Context, string) (int, error)       { return 0, f.err }

func cacheConfig() config.DirectoryCacheConfig {
	return config.DirectoryCacheConfig{Enabled: true, TTL: 60 * time.Second, Prefix: "salons:list:", DefaultLimit: 10, MaxLimit: 100}
}

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
}
