package models

import "time"

// QuoteStatus is the commercial state of a quote. Values are the labels shown in the UI.
type QuoteStatus string

const (
	QuoteStatusSent     QuoteStatus = "Envoyé"
	QuoteStatusPending  QuoteStatus = "En attente"
	QuoteStatusAccepted QuoteStatus = "Accepté"
	QuoteStatusChased   QuoteStatus = "Relancé"
	QuoteStatusRefused  QuoteStatus = "Refusé"
)

// QuoteStatuses lists every status in display order.
var QuoteStatuses = []QuoteStatus{
	QuoteStatusSent,
	QuoteStatusPending,
	QuoteStatusAccepted,
	QuoteStatusChased,
	QuoteStatusRefused,
}

// Valid reports whether s is a known status.
func (s QuoteStatus) Valid() bool {
	for _, known := range QuoteStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Closed is true once the client answered, either way.
func (s QuoteStatus) Closed() bool {
	return s == QuoteStatusAccepted || s == QuoteStatusRefused
}

// Quote is a priced proposal sent to a client. It owns its follow-ups.
type Quote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ClientID uint `gorm:"index;not null" json:"clientId"`

	Reference   string      `gorm:"size:100;not null" json:"reference"`
	Description string      `gorm:"type:text" json:"description"`
	Amount      string      `gorm:"size:32;not null" json:"amount"` // decimal string, see ParseAmount
	SentDate    Date        `gorm:"not null" json:"sentDate"`
	Status      QuoteStatus `gorm:"size:20;not null;index" json:"status"`

	PlannedFollowUpDate *Date `json:"plannedFollowUpDate"`
	LastFollowUpDate    *Date `json:"lastFollowUpDate"`

	// Relations
	FollowUps []FollowUp `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"followUps,omitempty"`
}

// AmountValue returns the numeric amount, 0 when it does not parse.
func (q *Quote) AmountValue() float64 {
	v, err := ParseAmount(q.Amount)
	if err != nil {
		return 0
	}
	return v
}

// FollowUp is one logged contact attempt on a quote.
type FollowUp struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	QuoteID uint   `gorm:"index;not null" json:"quoteId"`
	Date    Date   `gorm:"not null" json:"date"`
	Comment string `gorm:"type:text" json:"comment"`
}
