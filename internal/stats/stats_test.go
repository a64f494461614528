package stats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

type fixture struct {
	t   *testing.T
	s   *store.MemoryStore
	agg *Aggregator
	cid uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemoryStore(store.WithClock(clock))
	c, err := s.CreateClient(context.Background(), store.ClientInput{Name: "Alice", Company: "Innov", Email: "alice@innov.fr"})
	require.NoError(t, err)
	return &fixture{t: t, s: s, agg: New(s, WithClock(clock)), cid: c.ID}
}

func (f *fixture) quote(ref, amount string, status models.QuoteStatus, sent models.Date) *models.Quote {
	f.t.Helper()
	q, err := f.s.CreateQuote(context.Background(), store.QuoteInput{
		ClientID: f.cid, Reference: ref, Amount: amount, SentDate: sent, Status: status,
	})
	require.NoError(f.t, err)
	return q
}

func (f *fixture) followUps(q *models.Quote, n int) {
	f.t.Helper()
	for i := range n {
		_, err := f.s.CreateFollowUp(context.Background(), store.FollowUpInput{QuoteID: q.ID, Date: models.NewDate(2024, 1, 20+i)})
		require.NoError(f.t, err)
	}
}

// setStatus forces a status after follow-ups, which move Envoyé to Relancé.
func (f *fixture) setStatus(q *models.Quote, st models.QuoteStatus) {
	f.t.Helper()
	_, err := f.s.UpdateQuote(context.Background(), q.ID, store.QuotePatch{Status: &st})
	require.NoError(f.t, err)
}

func TestEmptyStore(t *testing.T) {
	agg := New(store.NewMemoryStore(), WithClock(clock))
	ctx := context.Background()

	sum, err := agg.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Total)
	assert.Equal(t, 0.0, sum.ConversionRate)
	assert.Equal(t, 0.0, sum.AverageAmount)
	assert.Len(t, sum.ByStatus, len(models.QuoteStatuses))

	rate, err := agg.ConversionRate(ctx)
	require.NoError(t, err)
	assert.Zero(t, rate)

	pending, err := agg.PendingFollowUps(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	buckets, err := agg.FollowUpConversionByAttempt(ctx)
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	for _, b := range buckets {
		assert.Zero(t, b.Rate)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	sent := models.NewDate(2024, 1, 10)
	f.quote("Q-1", "1000", models.QuoteStatusAccepted, sent)
	f.quote("Q-2", "2 000,50", models.QuoteStatusRefused, sent)
	f.quote("Q-3", "0", models.QuoteStatusSent, sent)
	f.quote("Q-4", "500.5", models.QuoteStatusAccepted, sent)
	ctx := context.Background()

	total, err := f.agg.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	byStatus, err := f.agg.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.QuoteStatus]int{
		models.QuoteStatusSent:     1,
		models.QuoteStatusPending:  0,
		models.QuoteStatusAccepted: 2,
		models.QuoteStatusChased:   0,
		models.QuoteStatusRefused:  1,
	}, byStatus)

	rate, err := f.agg.ConversionRate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rate, 1e-9)

	avg, err := f.agg.AverageAmount(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 875.25, avg, 1e-9) // (1000 + 2000.5 + 0 + 500.5) / 4

	sum, err := f.agg.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 4, ByStatus: byStatus, ConversionRate: rate, AverageAmount: avg}, sum)
}

func TestPendingFollowUps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yesterday := models.NewDate(2024, 3, 9)
	tomorrow := models.NewDate(2024, 3, 11)
	sent := models.NewDate(2024, 1, 10)

	dueYesterday := f.quote("DUE-Y", "10", models.QuoteStatusSent, sent)
	_, err := f.s.UpdateQuote(ctx, dueYesterday.ID, store.QuotePatch{PlannedFollowUpDate: store.SetDate(yesterday)})
	require.NoError(t, err)

	notYet := f.quote("LATER", "10", models.QuoteStatusSent, sent)
	_, err = f.s.UpdateQuote(ctx, notYet.ID, store.QuotePatch{PlannedFollowUpDate: store.SetDate(tomorrow)})
	require.NoError(t, err)

	dueToday := f.quote("DUE-T", "10", models.QuoteStatusPending, models.NewDate(2024, 3, 10))
	future := f.quote("FUTURE", "10", models.QuoteStatusSent, models.NewDate(2024, 4, 1))
	closed := f.quote("CLOSED", "10", models.QuoteStatusAccepted, sent)

	chased := f.quote("CHASED", "10", models.QuoteStatusSent, models.NewDate(2024, 3, 20))
	f.followUps(chased, 1) // latest follow-up 2024-01-20 overrides the sent date

	got, err := f.agg.PendingFollowUps(ctx)
	require.NoError(t, err)
	refs := make([]string, 0, len(got))
	for _, q := range got {
		refs = append(refs, q.Reference)
	}
	assert.Equal(t, []string{"CHASED", "DUE-Y", "DUE-T"}, refs)
	assert.NotContains(t, refs, future.Reference)
	assert.NotContains(t, refs, closed.Reference)
	assert.NotContains(t, refs, notYet.Reference)
	assert.Contains(t, refs, dueToday.Reference)
}

func TestReferenceDate(t *testing.T) {
	planned := models.NewDate(2024, 5, 1)
	last := models.NewDate(2024, 4, 1)
	q := models.Quote{SentDate: models.NewDate(2024, 1, 1)}
	assert.Equal(t, q.SentDate, ReferenceDate(q, nil))

	q.LastFollowUpDate = &last
	assert.Equal(t, last, ReferenceDate(q, nil))

	fus := []models.FollowUp{{Date: models.NewDate(2024, 2, 1)}, {Date: models.NewDate(2024, 2, 15)}}
	assert.Equal(t, models.NewDate(2024, 2, 15), ReferenceDate(q, fus))

	q.PlannedFollowUpDate = &planned
	assert.Equal(t, planned, ReferenceDate(q, fus))
}

func TestFollowUpConversionByAttempt(t *testing.T) {
	f := newFixture(t)
	sent := models.NewDate(2024, 1, 10)

	// one attempt: 1 of 2 accepted
	a := f.quote("A", "1", models.QuoteStatusSent, sent)
	f.followUps(a, 1)
	f.setStatus(a, models.QuoteStatusAccepted)
	b := f.quote("B", "1", models.QuoteStatusSent, sent)
	f.followUps(b, 1)

	// three attempts: 1 of 1 accepted
	c := f.quote("C", "1", models.QuoteStatusSent, sent)
	f.followUps(c, 3)
	f.setStatus(c, models.QuoteStatusAccepted)

	// five and four attempts share the last bucket: 0 of 2 accepted
	d := f.quote("D", "1", models.QuoteStatusSent, sent)
	f.followUps(d, 5)
	e := f.quote("E", "1", models.QuoteStatusSent, sent)
	f.followUps(e, 4)
	f.setStatus(e, models.QuoteStatusRefused)

	// never followed up: not bucketed
	f.quote("F", "1", models.QuoteStatusAccepted, sent)

	got, err := f.agg.FollowUpConversionByAttempt(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, AttemptBucket{Label: "1ère relance", Quotes: 2, Accepted: 1, Rate: 50}, got[0])
	assert.Equal(t, AttemptBucket{Label: "2ème relance"}, got[1])
	assert.Equal(t, AttemptBucket{Label: "3ème relance", Quotes: 1, Accepted: 1, Rate: 100}, got[2])
	assert.Equal(t, AttemptBucket{Label: "4+ relances", Quotes: 2}, got[3])
	assert.Equal(t, 50.0, got.Rates()["1ère relance"])
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	q := f.quote("D-1", "300", models.QuoteStatusSent, models.NewDate(2024, 1, 10))
	f.followUps(q, 2)
	f.quote("D-2", "100", models.QuoteStatusAccepted, models.NewDate(2024, 1, 10))

	d, err := f.agg.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Total)
	assert.Equal(t, 1, d.Clients)
	assert.Equal(t, 1, d.PendingFollowUps)
	assert.InDelta(t, 200.0, d.AverageAmount, 1e-9)
	assert.InDelta(t, 50.0, d.ConversionRate, 1e-9)
	assert.Equal(t, 1, d.ByStatus[models.QuoteStatusChased])
	assert.Equal(t, 1, d.FollowUpConversion[1].Quotes)
}

func TestRoundsPercentages(t *testing.T) {
	f := newFixture(t)
	sent := models.NewDate(2024, 1, 10)
	f.quote("R-1", "1", models.QuoteStatusAccepted, sent)
	f.quote("R-2", "1", models.QuoteStatusSent, sent)
	f.quote("R-3", "1", models.QuoteStatusSent, sent)
	rate, err := f.agg.ConversionRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33.33, rate)
}

type failingSource struct{ err error }

func (f failingSource) Snapshot(context.Context) (store.Snapshot, error) { return store.Snapshot{}, f.err }

// countingSource records how many times the store was read.
type countingSource struct {
	*store.MemoryStore
	reads int
}

func (c *countingSource) Snapshot(ctx context.Context) (store.Snapshot, error) {
	c.reads++
	return c.MemoryStore.Snapshot(ctx)
}

func TestSourceErrorsPropagate(t *testing.T) {
	boom := errors.New("db down")
	agg := New(failingSource{err: boom})
	_, err := agg.Statistics(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = agg.Dashboard(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = agg.PendingFollowUps(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDashboardReadsStoreOnce(t *testing.T) {
	f := newFixture(t)
	q := f.quote("ONE-1", "100", models.QuoteStatusSent, models.NewDate(2024, 1, 10))
	f.followUps(q, 1)

	src := &countingSource{MemoryStore: f.s}
	d, err := New(src, WithClock(clock)).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.reads)
	assert.Equal(t, 1, d.Clients)
	assert.Equal(t, 1, d.PendingFollowUps)
	assert.Equal(t, 1, d.FollowUpConversion[0].Quotes)
}

func TestNonFiniteAmountsNeverReachTheAverage(t *testing.T) {
	f := newFixture(t)
	f.quote("OK-1", "100", models.QuoteStatusSent, models.NewDate(2024, 1, 10))
	for _, amount := range []string{"NaN", "Inf"} {
		_, err := f.s.CreateQuote(context.Background(), store.QuoteInput{
			ClientID: f.cid, Reference: "BAD", Amount: amount, SentDate: models.NewDate(2024, 1, 10),
		})
		require.ErrorIs(t, err, store.ErrValidation)
	}

	sum, err := f.agg.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 100.0, sum.AverageAmount)
	_, err = json.Marshal(sum)
	assert.NoError(t, err)
}
