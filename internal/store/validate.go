package store

import (
	"strings"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
)

var statusChoices = func() []string {
	out := make([]string, 0, len(models.QuoteStatuses))
	for _, s := range models.QuoteStatuses {
		out = append(out, string(s))
	}
	return out
}()

// maxAmount bounds quote amounts so averages stay exact to the cent.
const maxAmount = 1e12

func newClient(in ClientInput) (models.Client, error) {
	c := models.Client{
		Name:     strings.TrimSpace(in.Name),
		Company:  strings.TrimSpace(in.Company),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		Position: strings.TrimSpace(in.Position),
	}
	return c, validateClient(&c)
}

func validateClient(c *models.Client) error {
	v := make(validation.Violations)
	validation.Required("name", c.Name, v)
	validation.MaxLen("name", c.Name, 255, v)
	validation.Required("company", c.Company, v)
	validation.MaxLen("company", c.Company, 255, v)
	validation.Required("email", c.Email, v)
	validation.Email("email", c.Email, v)
	validation.MaxLen("phone", c.Phone, 50, v)
	validation.MaxLen("position", c.Position, 100, v)
	return invalid(v)
}

func applyClientPatch(c *models.Client, p ClientPatch) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Company != nil {
		c.Company = strings.TrimSpace(*p.Company)
	}
	if p.Email != nil {
		c.Email = strings.TrimSpace(*p.Email)
	}
	if p.Phone != nil {
		c.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Position != nil {
		c.Position = strings.TrimSpace(*p.Position)
	}
}

func newQuote(in QuoteInput) (models.Quote, error) {
	q := models.Quote{
		ClientID:            in.ClientID,
		Reference:           strings.TrimSpace(in.Reference),
		Description:         strings.TrimSpace(in.Description),
		Amount:              strings.TrimSpace(in.Amount),
		SentDate:            in.SentDate,
		Status:              in.Status,
		PlannedFollowUpDate: in.PlannedFollowUpDate,
	}
	if q.Status == "" {
		q.Status = models.QuoteStatusSent
	}
	return q, validateQuote(&q)
}

func validateQuote(q *models.Quote) error {
	v := make(validation.Violations)
	if q.ClientID == 0 {
		v["clientId"] = "required"
	}
	validation.Required("reference", q.Reference, v)
	validation.MaxLen("reference", q.Reference, 100, v)
	validation.Required("amount", q.Amount, v)
	if _, ok := v["amount"]; !ok {
		if amount, err := models.ParseAmount(q.Amount); err != nil {
			v["amount"] = "invalid_amount"
		} else {
			validation.NonNegativeFloat("amount", amount, v)
			validation.RangeFloat("amount", amount, 0, maxAmount, v)
		}
	}
	if q.SentDate.IsZero() {
		v["sentDate"] = "required"
	}
	validation.OneOf("status", string(q.Status), statusChoices, v)
	return invalid(v)
}

func applyQuotePatch(q *models.Quote, p QuotePatch) {
	if p.ClientID != nil {
		q.ClientID = *p.ClientID
	}
	if p.Reference != nil {
		q.Reference = strings.TrimSpace(*p.Reference)
	}
	if p.Description != nil {
		q.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		q.Amount = strings.TrimSpace(*p.Amount)
	}
	if p.SentDate != nil {
		q.SentDate = *p.SentDate
	}
	if p.Status != nil {
		q.Status = *p.Status
	}
	if p.PlannedFollowUpDate.Set {
		q.PlannedFollowUpDate = copyDate(p.PlannedFollowUpDate.Value)
	}
	if p.LastFollowUpDate.Set {
		q.LastFollowUpDate = copyDate(p.LastFollowUpDate.Value)
	}
}

func newFollowUp(in FollowUpInput, today models.Date) (models.FollowUp, error) {
	f := models.FollowUp{
		QuoteID: in.QuoteID,
		Date:    in.Date,
		Comment: strings.TrimSpace(in.Comment),
	}
	if f.Date.IsZero() {
		f.Date = today
	}
	v := make(validation.Violations)
	if f.QuoteID == 0 {
		v["quoteId"] = "required"
	}
	validation.MaxLen("comment", f.Comment, 5000, v)
	return f, invalid(v)
}

// recordFollowUp moves the quote bookkeeping forward for a new follow-up:
// lastFollowUpDate never goes backwards, and an unanswered quote becomes Relancé.
func recordFollowUp(q *models.Quote, f models.FollowUp) {
	if q.LastFollowUpDate == nil || q.LastFollowUpDate.Before(f.Date.Time) {
		q.LastFollowUpDate = copyDate(&f.Date)
	}
	if q.Status == models.QuoteStatusSent || q.Status == models.QuoteStatusPending {
		q.Status = models.QuoteStatusChased
	}
}

func copyDate(d *models.Date) *models.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
