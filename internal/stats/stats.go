// Package stats derives dashboard figures from the entity store. Nothing is
// cached: every call reads the current clients, quotes and follow-ups.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/store"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/diewo77/go-crm/internal/stats")

// Source is the read side of the store the aggregator needs.
type Source interface {
	Snapshot(ctx context.Context) (store.Snapshot, error)
}

// Aggregator computes statistics over a Source.
type Aggregator struct {
	src Source
	now func() time.Time
}

type Option func(*Aggregator)

// WithClock sets the clock that decides what "today" is for pending follow-ups.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{src: src, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary is the payload of GET /api/statistics.
type Summary struct {
	Total          int                        `json:"total"`
	ByStatus       map[models.QuoteStatus]int `json:"byStatus"`
	ConversionRate float64                    `json:"conversionRate"`
	AverageAmount  float64                    `json:"averageAmount"`
}

// AttemptBucket groups quotes by how many follow-ups they received.
type AttemptBucket struct {
	Label    string  `json:"label"`
	Quotes   int     `json:"quotes"`
	Accepted int     `json:"accepted"`
	Rate     float64 `json:"rate"`
}

// AttemptConversion holds the 1, 2, 3 and 4+ buckets in that order.
type AttemptConversion []AttemptBucket

// Rates maps each bucket label to its acceptance percentage.
func (c AttemptConversion) Rates() map[string]float64 {
	out := make(map[string]float64, len(c))
	for _, b := range c {
		out[b.Label] = b.Rate
	}
	return out
}

var attemptLabels = [...]string{"1ère relance", "2ème relance", "3ème relance", "4+ relances"}

// Dashboard bundles everything the dashboard page shows.
type Dashboard struct {
	Summary
	Clients            int               `json:"clients"`
	PendingFollowUps   int               `json:"pendingFollowUps"`
	FollowUpConversion AttemptConversion `json:"followUpConversion"`
}

// snapshot is one consistent read of the store, follow-ups grouped by quote.
type snapshot struct {
	clients   []models.Client
	quotes    []models.Quote
	followUps map[uint][]models.FollowUp
}

func (a *Aggregator) load(ctx context.Context) (*snapshot, error) {
	snap, err := a.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store snapshot: %w", err)
	}
	s := &snapshot{
		clients:   snap.Clients,
		quotes:    snap.Quotes,
		followUps: make(map[uint][]models.FollowUp, len(snap.Quotes)),
	}
	for _, f := range snap.FollowUps {
		s.followUps[f.QuoteID] = append(s.followUps[f.QuoteID], f)
	}
	return s, nil
}

// TotalCount is the number of quotes.
func (a *Aggregator) TotalCount(ctx context.Context) (int, error) {
	s, err := a.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(s.quotes), nil
}

// CountByStatus counts quotes per status. Every status is present.
func (a *Aggregator) CountByStatus(ctx context.Context) (map[models.QuoteStatus]int, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return countByStatus(s.quotes), nil
}

// ConversionRate is the percentage of accepted quotes, 0 without quotes.
func (a *Aggregator) ConversionRate(ctx context.Context) (float64, error) {
	s, err := a.load(ctx)
	if err != nil {
		return 0, err
	}
	return conversionRate(s.quotes), nil
}

// AverageAmount is the mean quote amount, 0 without quotes.
func (a *Aggregator) AverageAmount(ctx context.Context) (float64, error) {
	s, err := a.load(ctx)
	if err != nil {
		return 0, err
	}
	return averageAmount(s.quotes), nil
}

// PendingFollowUps lists the open quotes whose reference date is today or
// earlier, oldest first.
func (a *Aggregator) PendingFollowUps(ctx context.Context) ([]models.Quote, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return pending(s, models.Today(a.now)), nil
}

// FollowUpConversionByAttempt reports the acceptance rate of quotes bucketed
// by their number of follow-ups. Quotes never followed up are left out.
func (a *Aggregator) FollowUpConversionByAttempt(ctx context.Context) (AttemptConversion, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return byAttempt(s), nil
}

// Statistics computes the summary from one snapshot.
func (a *Aggregator) Statistics(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "stats.Statistics")
	defer span.End()

	s, err := a.load(ctx)
	if err != nil {
		span.RecordError(err)
		return Summary{}, err
	}
	return summarize(s.quotes), nil
}

// Dashboard computes every dashboard figure from one snapshot.
func (a *Aggregator) Dashboard(ctx context.Context) (Dashboard, error) {
	ctx, span := tracer.Start(ctx, "stats.Dashboard")
	defer span.End()

	s, err := a.load(ctx)
	if err != nil {
		span.RecordError(err)
		return Dashboard{}, err
	}
	return Dashboard{
		Summary:            summarize(s.quotes),
		Clients:            len(s.clients),
		PendingFollowUps:   len(pending(s, models.Today(a.now))),
		FollowUpConversion: byAttempt(s),
	}, nil
}

func summarize(quotes []models.Quote) Summary {
	return Summary{
		Total:          len(quotes),
		ByStatus:       countByStatus(quotes),
		ConversionRate: conversionRate(quotes),
		AverageAmount:  averageAmount(quotes),
	}
}

func countByStatus(quotes []models.Quote) map[models.QuoteStatus]int {
	out := make(map[models.QuoteStatus]int, len(models.QuoteStatuses))
	for _, st := range models.QuoteStatuses {
		out[st] = 0
	}
	for _, q := range quotes {
		out[q.Status]++
	}
	return out
}

func conversionRate(quotes []models.Quote) float64 {
	accepted := 0
	for _, q := range quotes {
		if q.Status == models.QuoteStatusAccepted {
			accepted++
		}
	}
	return percent(accepted, len(quotes))
}

func averageAmount(quotes []models.Quote) float64 {
	if len(quotes) == 0 {
		return 0
	}
	var sum float64
	for i := range quotes {
		sum += quotes[i].AmountValue()
	}
	return round2(sum / float64(len(quotes)))
}

// ReferenceDate is the date a quote is due for its next contact: the planned
// date when set, else the latest follow-up, else the date it was sent.
func ReferenceDate(q models.Quote, followUps []models.FollowUp) models.Date {
	if q.PlannedFollowUpDate != nil && !q.PlannedFollowUpDate.IsZero() {
		return *q.PlannedFollowUpDate
	}
	var latest models.Date
	for _, f := range followUps {
		if f.Date.After(latest.Time) {
			latest = f.Date
		}
	}
	if !latest.IsZero() {
		return latest
	}
	if q.LastFollowUpDate != nil && !q.LastFollowUpDate.IsZero() {
		return *q.LastFollowUpDate
	}
	return q.SentDate
}

func pending(s *snapshot, today models.Date) []models.Quote {
	type due struct {
		quote models.Quote
		ref   models.Date
	}
	var list []due
	for _, q := range s.quotes {
		if q.Status.Closed() {
			continue
		}
		ref := ReferenceDate(q, s.followUps[q.ID])
		if ref.IsZero() || !ref.OnOrBefore(today) {
			continue
		}
		list = append(list, due{quote: q, ref: ref})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].ref.Equal(list[j].ref.Time) {
			return list[i].ref.Before(list[j].ref.Time)
		}
		return list[i].quote.ID < list[j].quote.ID
	})
	out := make([]models.Quote, len(list))
	for i, d := range list {
		out[i] = d.quote
	}
	return out
}

func byAttempt(s *snapshot) AttemptConversion {
	out := make(AttemptConversion, len(attemptLabels))
	for i, label := range attemptLabels {
		out[i].Label = label
	}
	for _, q := range s.quotes {
		n := len(s.followUps[q.ID])
		if n == 0 {
			continue
		}
		idx := min(n, len(attemptLabels)) - 1
		out[idx].Quotes++
		if q.Status == models.QuoteStatusAccepted {
			out[idx].Accepted++
		}
	}
	for i := range out {
		out[i].Rate = percent(out[i].Accepted, out[i].Quotes)
	}
	return out
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
