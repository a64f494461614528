package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-crm/internal/models"
)

type idSet map[uint]struct{}

// MemoryStore keeps the entity tree in maps plus parent → children indexes,
// so a cascade touches only the affected subtree. A single RWMutex makes each
// operation atomic with respect to concurrent readers.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	nextClient, nextQuote, nextFollowUp, nextUser uint

	clients   map[uint]models.Client
	quotes    map[uint]models.Quote
	followUps map[uint]models.FollowUp
	users     map[uint]models.User

	quotesByClient   map[uint]idSet
	followUpsByQuote map[uint]idSet
	userByEmail      map[string]uint
}

var _ Backend = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		now:              o.now,
		clients:          map[uint]models.Client{},
		quotes:           map[uint]models.Quote{},
		followUps:        map[uint]models.FollowUp{},
		users:            map[uint]models.User{},
		quotesByClient:   map[uint]idSet{},
		followUpsByQuote: map[uint]idSet{},
		userByEmail:      map[string]uint{},
	}
}

func sortedIDs[V any](m map[uint]V) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ─────────────────────────────────────────────────────────────────────────────
// Clients
// ─────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateClient(ctx context.Context, in ClientInput) (_ *models.Client, err error) {
	_, span := startSpan(ctx, "store.CreateClient", 0)
	defer func() { endSpan(span, err) }()

	c, err := newClient(in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextClient++
	now := s.now()
	c.ID, c.CreatedAt, c.UpdatedAt = s.nextClient, now, now
	s.clients[c.ID] = c
	s.quotesByClient[c.ID] = idSet{}
	return &c, nil
}

func (s *MemoryStore) GetClient(_ context.Context, id uint) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) GetClients(_ context.Context) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Client, 0, len(s.clients))
	for _, id := range sortedIDs(s.clients) {
		out = append(out, s.clients[id])
	}
	return out, nil
}

func (s *MemoryStore) UpdateClient(ctx context.Context, id uint, p ClientPatch) (_ *models.Client, err error) {
	_, span := startSpan(ctx, "store.UpdateClient", id)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyClientPatch(&c, p)
	if err := validateClient(&c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()
	s.clients[id] = c
	return &c, nil
}

func (s *MemoryStore) DeleteClient(ctx context.Context, id uint) (_ bool, err error) {
	_, span := startSpan(ctx, "store.DeleteClient", id)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return false, nil
	}
	for quoteID := range s.quotesByClient[id] {
		s.removeQuoteLocked(quoteID)
	}
	delete(s.quotesByClient, id)
	delete(s.clients, id)
	return true, nil
}

func (s *MemoryStore) DeleteClientWithData(ctx context.Context, id uint) (bool, error) {
	return s.DeleteClient(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Quotes
// ─────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateQuote(ctx context.Context, in QuoteInput) (_ *models.Quote, err error) {
	_, span := startSpan(ctx, "store.CreateQuote", in.ClientID)
	defer func() { endSpan(span, err) }()

	q, err := newQuote(in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[q.ClientID]; !ok {
		return nil, missingClient(q.ClientID)
	}
	s.nextQuote++
	now := s.now()
	q.ID, q.CreatedAt, q.UpdatedAt = s.nextQuote, now, now
	q.PlannedFollowUpDate = copyDate(q.PlannedFollowUpDate)
	s.quotes[q.ID] = q
	s.quotesByClient[q.ClientID][q.ID] = struct{}{}
	s.followUpsByQuote[q.ID] = idSet{}
	return cloneQuote(q), nil
}

func (s *MemoryStore) GetQuote(_ context.Context, id uint) (*models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneQuote(q), nil
}

func (s *MemoryStore) GetQuotes(_ context.Context) ([]models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Quote, 0, len(s.quotes))
	for _, id := range sortedIDs(s.quotes) {
		out = append(out, *cloneQuote(s.quotes[id]))
	}
	return out, nil
}

func (s *MemoryStore) GetQuotesByClient(_ context.Context, clientID uint) ([]models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	children := s.quotesByClient[clientID]
	out := make([]models.Quote, 0, len(children))
	for _, id := range sortedIDs(children) {
		out = append(out, *cloneQuote(s.quotes[id]))
	}
	return out, nil
}

func (s *MemoryStore) UpdateQuote(ctx context.Context, id uint, p QuotePatch) (_ *models.Quote, err error) {
	_, span := startSpan(ctx, "store.UpdateQuote", id)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	previousClient := q.ClientID
	applyQuotePatch(&q, p)
	if err := validateQuote(&q); err != nil {
		return nil, err
	}
	if q.ClientID != previousClient {
		if _, ok := s.clients[q.ClientID]; !ok {
			return nil, missingClient(q.ClientID)
		}
		delete(s.quotesByClient[previousClient], id)
		s.quotesByClient[q.ClientID][id] = struct{}{}
	}
	q.UpdatedAt = s.now()
	s.quotes[id] = q
	return cloneQuote(q), nil
}

func (s *MemoryStore) DeleteQuote(ctx context.Context, id uint) (_ bool, err error) {
	_, span := startSpan(ctx, "store.DeleteQuote", id)
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return false, nil
	}
	s.removeQuoteLocked(id)
	delete(s.quotesByClient[q.ClientID], id)
	return true, nil
}

// cloneQuote detaches the optional dates so callers never share them with the map.
func cloneQuote(q models.Quote) *models.Quote {
	q.PlannedFollowUpDate = copyDate(q.PlannedFollowUpDate)
	q.LastFollowUpDate = copyDate(q.LastFollowUpDate)
	return &q
}

// removeQuoteLocked drops a quote and its follow-ups. The caller holds mu and
// maintains the client index.
func (s *MemoryStore) removeQuoteLocked(id uint) {
	for followUpID := range s.followUpsByQuote[id] {
		delete(s.followUps, followUpID)
	}
	delete(s.followUpsByQuote, id)
	delete(s.quotes, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Follow-ups
// ─────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateFollowUp(ctx context.Context, in FollowUpInput) (_ *models.FollowUp, err error) {
	_, span := startSpan(ctx, "store.CreateFollowUp", in.QuoteID)
	defer func() { endSpan(span, err) }()

	f, err := newFollowUp(in, models.Today(s.now))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[f.QuoteID]
	if !ok {
		return nil, missingQuote(f.QuoteID)
	}
	s.nextFollowUp++
	f.ID, f.CreatedAt = s.nextFollowUp, s.now()
	s.followUps[f.ID] = f
	s.followUpsByQuote[f.QuoteID][f.ID] = struct{}{}

	recordFollowUp(&q, f)
	q.UpdatedAt = f.CreatedAt
	s.quotes[q.ID] = q
	return &f, nil
}

func (s *MemoryStore) GetFollowUps(_ context.Context, quoteID uint) ([]models.FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	children := s.followUpsByQuote[quoteID]
	out := make([]models.FollowUp, 0, len(children))
	for id := range children {
		out = append(out, s.followUps[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetAllFollowUps(_ context.Context) ([]models.FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FollowUp, 0, len(s.followUps))
	for _, id := range sortedIDs(s.followUps) {
		out = append(out, s.followUps[id])
	}
	return out, nil
}

func (s *MemoryStore) Snapshot(_ context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Clients:   make([]models.Client, 0, len(s.clients)),
		Quotes:    make([]models.Quote, 0, len(s.quotes)),
		FollowUps: make([]models.FollowUp, 0, len(s.followUps)),
	}
	for _, id := range sortedIDs(s.clients) {
		snap.Clients = append(snap.Clients, s.clients[id])
	}
	for _, id := range sortedIDs(s.quotes) {
		snap.Quotes = append(snap.Quotes, *cloneQuote(s.quotes[id]))
	}
	for _, id := range sortedIDs(s.followUps) {
		snap.FollowUps = append(snap.FollowUps, s.followUps[id])
	}
	return snap, nil
}

func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Clients:   int64(len(s.clients)),
		Quotes:    int64(len(s.quotes)),
		FollowUps: int64(len(s.followUps)),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateUser(_ context.Context, email, name, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = normalizeEmail(email)
	if _, taken := s.userByEmail[email]; taken {
		return nil, ErrConflict
	}
	s.nextUser++
	now := s.now()
	u := models.User{ID: s.nextUser, CreatedAt: now, UpdatedAt: now, Email: email, Name: strings.TrimSpace(name), Password: passwordHash}
	s.users[u.ID] = u
	s.userByEmail[email] = u.ID
	return &u, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userByEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) UserExists(_ context.Context, id uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
