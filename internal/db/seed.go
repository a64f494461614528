package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// SeedOptions controls what Seed creates.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	// SampleData adds demo clients, quotes and follow-ups to an empty store.
	SampleData bool
}

// Seed creates the demo admin account and, on an empty store, a small sample
// portfolio. Running it twice changes nothing.
func Seed(ctx context.Context, b store.Backend, opts SeedOptions, log *logger.Logger) error {
	if opts.AdminEmail != "" && opts.AdminPassword != "" {
		if err := seedAdmin(ctx, b, opts.AdminEmail, opts.AdminPassword, log); err != nil {
			return err
		}
	}
	if !opts.SampleData {
		return nil
	}
	counts, err := b.Counts(ctx)
	if err != nil {
		return err
	}
	if counts.Clients > 0 {
		log.Debug("store not empty, skipping sample data", "clients", counts.Clients)
		return nil
	}
	if err := seedSamples(ctx, b); err != nil {
		return fmt.Errorf("seed samples: %w", err)
	}
	log.Info("sample data created")
	return nil
}

func seedAdmin(ctx context.Context, b store.Backend, email, password string, log *logger.Logger) error {
	_, err := b.FindUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := b.CreateUser(ctx, email, "Administrateur", string(hash)); err != nil && !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info("demo admin created", "email", email)
	return nil
}

type sampleQuote struct {
	ref, desc, amount string
	sent              models.Date
	status            models.QuoteStatus
	planned           *models.Date
	followUps         []models.Date
}

type sampleClient struct {
	in     store.ClientInput
	quotes []sampleQuote
}

func dateP(d models.Date) *models.Date { return &d }

var samples = []sampleClient{
	{
		in: store.ClientInput{Name: "Marie Dupont", Company: "Innovatech", Email: "marie.dupont@innovatech.fr", Phone: "01 23 45 67 89", Position: "Directrice achats"},
		quotes: []sampleQuote{
			{ref: "INNO-2024-001", desc: "Refonte du site vitrine", amount: "4500.00", sent: models.NewDate(2024, 1, 15), status: models.QuoteStatusAccepted, followUps: []models.Date{models.NewDate(2024, 1, 29)}},
			{ref: "INNO-2024-002", desc: "Maintenance annuelle", amount: "1200,00", sent: models.NewDate(2024, 2, 5), status: models.QuoteStatusSent, planned: dateP(models.NewDate(2024, 2, 19))},
		},
	},
	{
		in: store.ClientInput{Name: "Jean Martin", Company: "BatiPro", Email: "j.martin@batipro.fr", Position: "Gérant"},
		quotes: []sampleQuote{
			{ref: "BATI-2024-001", desc: "Application de suivi de chantier", amount: "12 800", sent: models.NewDate(2024, 1, 22), status: models.QuoteStatusPending, followUps: []models.Date{models.NewDate(2024, 2, 5), models.NewDate(2024, 2, 19)}},
			{ref: "BATI-2024-002", desc: "Formation équipe", amount: "900", sent: models.NewDate(2024, 3, 1), status: models.QuoteStatusRefused},
		},
	},
	{
		in: store.ClientInput{Name: "Sophie Bernard", Company: "Cabinet Bernard", Email: "contact@cabinet-bernard.fr"},
		quotes: []sampleQuote{
			{ref: "CABI-2024-001", desc: "Audit sécurité", amount: "3 250,50", sent: models.NewDate(2024, 2, 12), status: models.QuoteStatusSent},
		},
	},
}

func seedSamples(ctx context.Context, b store.Store) error {
	for _, sc := range samples {
		c, err := b.CreateClient(ctx, sc.in)
		if err != nil {
			return err
		}
		for _, sq := range sc.quotes {
			q, err := b.CreateQuote(ctx, store.QuoteInput{
				ClientID:            c.ID,
				Reference:           sq.ref,
				Description:         sq.desc,
				Amount:              sq.amount,
				SentDate:            sq.sent,
				Status:              sq.status,
				PlannedFollowUpDate: sq.planned,
			})
			if err != nil {
				return err
			}
			for _, d := range sq.followUps {
				if _, err := b.CreateFollowUp(ctx, store.FollowUpInput{QuoteID: q.ID, Date: d, Comment: "Relance téléphonique"}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
