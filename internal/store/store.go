// Package store is the authoritative owner of clients, quotes and follow-ups.
//
// The three entity kinds form a strict ownership tree (Client → Quote → FollowUp).
// Creates reject dangling parent ids with a ReferenceError, and deleting a parent
// removes every descendant in one atomic step, so no reader ever observes a quote
// without its client or a follow-up without its quote.
package store

import (
	"context"

	"github.com/diewo77/go-crm/internal/models"
)

// ClientInput carries the fields of a new client.
type ClientInput struct {
	Name     string
	Company  string
	Email    string
	Phone    string
	Position string
}

// ClientPatch holds the fields to change; nil means unchanged.
type ClientPatch struct {
	Name     *string
	Company  *string
	Email    *string
	Phone    *string
	Position *string
}

// QuoteInput carries the fields of a new quote. A zero Status defaults to Envoyé.
type QuoteInput struct {
	ClientID            uint
	Reference           string
	Description         string
	Amount              string
	SentDate            models.Date
	Status              models.QuoteStatus
	PlannedFollowUpDate *models.Date
}

// OptionalDate distinguishes "leave as is" (Set false) from "set to Value",
// where a nil Value clears the date.
type OptionalDate struct {
	Set   bool
	Value *models.Date
}

// SetDate returns an OptionalDate that assigns d.
func SetDate(d models.Date) OptionalDate { return OptionalDate{Set: true, Value: &d} }

// ClearDate returns an OptionalDate that clears the field.
func ClearDate() OptionalDate { return OptionalDate{Set: true} }

// QuotePatch holds the quote fields to change; nil or unset means unchanged.
type QuotePatch struct {
	ClientID            *uint
	Reference           *string
	Description         *string
	Amount              *string
	SentDate            *models.Date
	Status              *models.QuoteStatus
	PlannedFollowUpDate OptionalDate
	LastFollowUpDate    OptionalDate
}

// FollowUpInput carries a new follow-up. A zero Date means today.
type FollowUpInput struct {
	QuoteID uint
	Date    models.Date
	Comment string
}

// Counts is the size of each collection.
type Counts struct {
	Clients   int64 `json:"clients"`
	Quotes    int64 `json:"quotes"`
	FollowUps int64 `json:"followUps"`
}

// Snapshot is the whole entity tree as of one instant, each slice ordered by id.
type Snapshot struct {
	Clients   []models.Client
	Quotes    []models.Quote
	FollowUps []models.FollowUp
}

// Store is the CRUD and cascade-delete surface over the entity tree.
type Store interface {
	CreateClient(ctx context.Context, in ClientInput) (*models.Client, error)
	GetClient(ctx context.Context, id uint) (*models.Client, error)
	GetClients(ctx context.Context) ([]models.Client, error)
	UpdateClient(ctx context.Context, id uint, p ClientPatch) (*models.Client, error)
	// DeleteClient removes the client, its quotes and their follow-ups.
	// It reports false, touching nothing, when the client does not exist.
	DeleteClient(ctx context.Context, id uint) (bool, error)
	DeleteClientWithData(ctx context.Context, id uint) (bool, error)

	CreateQuote(ctx context.Context, in QuoteInput) (*models.Quote, error)
	GetQuote(ctx context.Context, id uint) (*models.Quote, error)
	GetQuotes(ctx context.Context) ([]models.Quote, error)
	GetQuotesByClient(ctx context.Context, clientID uint) ([]models.Quote, error)
	UpdateQuote(ctx context.Context, id uint, p QuotePatch) (*models.Quote, error)
	// DeleteQuote removes the quote and its follow-ups only.
	DeleteQuote(ctx context.Context, id uint) (bool, error)

	// CreateFollowUp logs a contact attempt and moves the quote's
	// lastFollowUpDate forward in the same atomic step.
	CreateFollowUp(ctx context.Context, in FollowUpInput) (*models.FollowUp, error)
	// GetFollowUps returns the follow-ups of one quote ordered by date, then id.
	GetFollowUps(ctx context.Context, quoteID uint) ([]models.FollowUp, error)
	GetAllFollowUps(ctx context.Context) ([]models.FollowUp, error)

	Counts(ctx context.Context) (Counts, error)
	// Snapshot reads every collection without an interleaved write.
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Users is the login account storage.
type Users interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	UserExists(ctx context.Context, id uint) (bool, error)
}

// Backend is a Store with users and a lifecycle, as built at process start.
type Backend interface {
	Store
	Users
	Ping(ctx context.Context) error
	Close() error
}
