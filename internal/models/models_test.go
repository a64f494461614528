package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"plain", "1500", 1500, false},
		{"dot decimals", "1234.50", 1234.5, false},
		{"comma decimals", "1234,50", 1234.5, false},
		{"french grouping", "1 234,50", 1234.5, false},
		{"nbsp grouping", "12 000", 12000, false},
		{"english grouping", "1,234.50", 1234.5, false},
		{"euro sign", "99,90 €", 99.9, false},
		{"empty", "  ", 0, true},
		{"garbage", "abc", 0, true},
		{"nan", "NaN", 0, true},
		{"inf", "Inf", 0, true},
		{"negative infinity", "-Infinity", 0, true},
		{"overflow", "1e400", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestQuoteAmountValue(t *testing.T) {
	q := &Quote{Amount: "2 500,00"}
	assert.Equal(t, 2500.0, q.AmountValue())
	q.Amount = "n/a"
	assert.Equal(t, 0.0, q.AmountValue())
}

func TestQuoteStatus(t *testing.T) {
	tests := []struct {
		status QuoteStatus
		valid  bool
		closed bool
	}{
		{QuoteStatusSent, true, false},
		{QuoteStatusPending, true, false},
		{QuoteStatusChased, true, false},
		{QuoteStatusAccepted, true, true},
		{QuoteStatusRefused, true, true},
		{"accepted", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.closed, tt.status.Closed())
		})
	}
}

func TestDateOfTruncatesTime(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	late := time.Date(2024, 3, 10, 23, 30, 0, 0, paris)
	assert.Equal(t, NewDate(2024, 3, 10), DateOf(late))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	d, err = ParseDate("2024-02-29T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, 2, 29), d)

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Sent    Date  `json:"sent"`
		Planned *Date `json:"planned"`
	}
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"sent":"2024-05-01","planned":null}`), &p))
	assert.Equal(t, NewDate(2024, 5, 1), p.Sent)
	assert.Nil(t, p.Planned)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sent":"2024-05-01","planned":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"sent":20240501}`), &p))
}

func TestDateOrdering(t *testing.T) {
	today := NewDate(2024, 6, 15)
	assert.True(t, today.AddDays(-1).OnOrBefore(today))
	assert.True(t, today.OnOrBefore(today))
	assert.False(t, today.AddDays(1).OnOrBefore(today))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2024-01-05 00:00:00+00:00"))
	assert.Equal(t, NewDate(2024, 1, 5), d)

	require.NoError(t, d.Scan(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewDate(2024, 1, 6), d)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := NewDate(2024, 1, 7).Value()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), v)
}
