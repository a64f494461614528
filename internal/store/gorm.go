package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists the entity tree through GORM (SQLite or PostgreSQL).
// Every cascade and every create that checks a parent runs in one transaction.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Backend = (*GormStore)(nil)

// Option configures a store backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to default follow-up dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// NewGormStore wraps an open, migrated connection.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	o := buildOptions(opts)
	return &GormStore{db: db, now: o.now}
}

// DB exposes the underlying connection for migrations and health checks.
func (s *GormStore) DB() *gorm.DB { return s.db }

func exists(tx *gorm.DB, model any, id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Clients
// ─────────────────────────────────────────────────────────────────────────────

func (s *GormStore) CreateClient(ctx context.Context, in ClientInput) (_ *models.Client, err error) {
	ctx, span := startSpan(ctx, "store.CreateClient", 0)
	defer func() { endSpan(span, err) }()

	c, err := newClient(in)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &c, nil
}

func (s *GormStore) GetClient(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	res := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&c)
	if res.Error != nil {
		return nil, fmt.Errorf("get client %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *GormStore) GetClients(ctx context.Context) ([]models.Client, error) {
	clients := []models.Client{}
	if err := s.db.WithContext(ctx).Order("id").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (s *GormStore) UpdateClient(ctx context.Context, id uint, p ClientPatch) (_ *models.Client, err error) {
	ctx, span := startSpan(ctx, "store.UpdateClient", id)
	defer func() { endSpan(span, err) }()

	var c models.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Limit(1).Find(&c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		applyClientPatch(&c, p)
		if err := validateClient(&c); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&c).Error
	})
	if err != nil {
		return nil, wrapTx("update client", id, err)
	}
	return &c, nil
}

func (s *GormStore) DeleteClient(ctx context.Context, id uint) (deleted bool, err error) {
	ctx, span := startSpan(ctx, "store.DeleteClient", id)
	defer func() { endSpan(span, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.Client{}, id)
		if err != nil || !found {
			return err
		}
		var quoteIDs []uint
		if err := tx.Model(&models.Quote{}).Where("client_id = ?", id).Pluck("id", &quoteIDs).Error; err != nil {
			return err
		}
		if len(quoteIDs) > 0 {
			if err := tx.Where("quote_id IN ?", quoteIDs).Delete(&models.FollowUp{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", quoteIDs).Delete(&models.Quote{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", id).Delete(&models.Client{}).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete client %d: %w", id, err)
	}
	return deleted, nil
}

func (s *GormStore) DeleteClientWithData(ctx context.Context, id uint) (bool, error) {
	return s.DeleteClient(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Quotes
// ─────────────────────────────────────────────────────────────────────────────

func (s *GormStore) CreateQuote(ctx context.Context, in QuoteInput) (_ *models.Quote, err error) {
	ctx, span := startSpan(ctx, "store.CreateQuote", in.ClientID)
	defer func() { endSpan(span, err) }()

	q, err := newQuote(in)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.Client{}, q.ClientID)
		if err != nil {
			return err
		}
		if !found {
			return missingClient(q.ClientID)
		}
		return tx.Create(&q).Error
	})
	if err != nil {
		return nil, wrapTx("create quote for client", in.ClientID, err)
	}
	return &q, nil
}

func (s *GormStore) GetQuote(ctx context.Context, id uint) (*models.Quote, error) {
	var q models.Quote
	res := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&q)
	if res.Error != nil {
		return nil, fmt.Errorf("get quote %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &q, nil
}

func (s *GormStore) GetQuotes(ctx context.Context) ([]models.Quote, error) {
	quotes := []models.Quote{}
	if err := s.db.WithContext(ctx).Order("id").Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, nil
}

func (s *GormStore) GetQuotesByClient(ctx context.Context, clientID uint) ([]models.Quote, error) {
	quotes := []models.Quote{}
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).Order("id").Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("list quotes of client %d: %w", clientID, err)
	}
	return quotes, nil
}

func (s *GormStore) UpdateQuote(ctx context.Context, id uint, p QuotePatch) (_ *models.Quote, err error) {
	ctx, span := startSpan(ctx, "store.UpdateQuote", id)
	defer func() { endSpan(span, err) }()

	var q models.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Limit(1).Find(&q)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		previousClient := q.ClientID
		applyQuotePatch(&q, p)
		if err := validateQuote(&q); err != nil {
			return err
		}
		if q.ClientID != previousClient {
			found, err := exists(tx, &models.Client{}, q.ClientID)
			if err != nil {
				return err
			}
			if !found {
				return missingClient(q.ClientID)
			}
		}
		return tx.Omit(clause.Associations).Save(&q).Error
	})
	if err != nil {
		return nil, wrapTx("update quote", id, err)
	}
	return &q, nil
}

func (s *GormStore) DeleteQuote(ctx context.Context, id uint) (deleted bool, err error) {
	ctx, span := startSpan(ctx, "store.DeleteQuote", id)
	defer func() { endSpan(span, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.Quote{}, id)
		if err != nil || !found {
			return err
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.FollowUp{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Quote{}).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete quote %d: %w", id, err)
	}
	return deleted, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Follow-ups
// ─────────────────────────────────────────────────────────────────────────────

func (s *GormStore) CreateFollowUp(ctx context.Context, in FollowUpInput) (_ *models.FollowUp, err error) {
	ctx, span := startSpan(ctx, "store.CreateFollowUp", in.QuoteID)
	defer func() { endSpan(span, err) }()

	f, err := newFollowUp(in, models.Today(s.now))
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		res := tx.Where("id = ?", f.QuoteID).Limit(1).Find(&q)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingQuote(f.QuoteID)
		}
		if err := tx.Create(&f).Error; err != nil {
			return err
		}
		recordFollowUp(&q, f)
		return tx.Model(&models.Quote{}).Where("id = ?", q.ID).Updates(map[string]any{
			"last_follow_up_date": q.LastFollowUpDate,
			"status":              q.Status,
		}).Error
	})
	if err != nil {
		return nil, wrapTx("create follow-up for quote", in.QuoteID, err)
	}
	return &f, nil
}

func (s *GormStore) GetFollowUps(ctx context.Context, quoteID uint) ([]models.FollowUp, error) {
	followUps := []models.FollowUp{}
	if err := s.db.WithContext(ctx).Where("quote_id = ?", quoteID).Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}}).Order("id").Find(&followUps).Error; err != nil {
		return nil, fmt.Errorf("list follow-ups of quote %d: %w", quoteID, err)
	}
	return followUps, nil
}

func (s *GormStore) GetAllFollowUps(ctx context.Context) ([]models.FollowUp, error) {
	followUps := []models.FollowUp{}
	if err := s.db.WithContext(ctx).Order("id").Find(&followUps).Error; err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	return followUps, nil
}

// Snapshot reads the three tables in one read-only transaction. Postgres runs it
// at REPEATABLE READ so every statement sees the same state; SQLite transactions
// already do.
func (s *GormStore) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Clients: []models.Client{}, Quotes: []models.Quote{}, FollowUps: []models.FollowUp{}}
	var opts []*sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id").Find(&snap.Clients).Error; err != nil {
			return err
		}
		if err := tx.Order("id").Find(&snap.Quotes).Error; err != nil {
			return err
		}
		return tx.Order("id").Find(&snap.FollowUps).Error
	}, opts...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

func (s *GormStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Client{}).Count(&c.Clients).Error; err != nil {
		return c, fmt.Errorf("count clients: %w", err)
	}
	if err := db.Model(&models.Quote{}).Count(&c.Quotes).Error; err != nil {
		return c, fmt.Errorf("count quotes: %w", err)
	}
	if err := db.Model(&models.FollowUp{}).Count(&c.FollowUps).Error; err != nil {
		return c, fmt.Errorf("count follow-ups: %w", err)
	}
	return c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

func (s *GormStore) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	u := models.User{Email: normalizeEmail(email), Name: strings.TrimSpace(name), Password: passwordHash}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return &u, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	res := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Limit(1).Find(&u)
	if res.Error != nil {
		return nil, fmt.Errorf("find user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	res := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&u)
	if res.Error != nil {
		return nil, fmt.Errorf("get user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *GormStore) UserExists(ctx context.Context, id uint) (bool, error) {
	return exists(s.db.WithContext(ctx), &models.User{}, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// wrapTx keeps domain errors recognizable while adding context to infrastructure ones.
func wrapTx(op string, id uint, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrReference) || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%s %d: %w", op, id, err)
}
