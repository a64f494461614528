package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/store"
)

type QuoteHandler struct {
	store store.Store
	log   *logger.Logger
}

func NewQuoteHandler(s store.Store, log *logger.Logger) *QuoteHandler {
	return &QuoteHandler{store: s, log: log}
}

type quoteRequest struct {
	ClientID            flexID             `json:"clientId"`
	Reference           string             `json:"reference"`
	Description         string             `json:"description"`
	Amount              flexAmount         `json:"amount"`
	SentDate            models.Date        `json:"sentDate"`
	Status              models.QuoteStatus `json:"status"`
	PlannedFollowUpDate *models.Date       `json:"plannedFollowUpDate"`
}

type followUpRequest struct {
	Date    models.Date `json:"date"`
	Comment string      `json:"comment"`
}

// List returns every quote, or those of one client with ?clientId=.
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	var quotes []models.Quote
	var err error
	if v := r.URL.Query().Get("clientId"); v != "" {
		id, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_id", map[string]string{"clientId": v})
			return
		}
		quotes, err = h.store.GetQuotesByClient(r.Context(), uint(id))
	} else {
		quotes, err = h.store.GetQuotes(r.Context())
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotes)
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	planned := req.PlannedFollowUpDate
	if planned != nil && planned.IsZero() {
		planned = nil
	}
	q, err := h.store.CreateQuote(r.Context(), store.QuoteInput{
		ClientID:            uint(req.ClientID),
		Reference:           req.Reference,
		Description:         req.Description,
		Amount:              string(req.Amount),
		SentDate:            req.SentDate,
		Status:              req.Status,
		PlannedFollowUpDate: planned,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.log.Info("quote created", "quote_id", q.ID, "client_id", q.ClientID)
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *QuoteHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q, err := h.store.GetQuote(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Update merges the fields present in the body. An explicit null on
// plannedFollowUpDate or lastFollowUpDate clears the date.
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if err := httpx.DecodeJSON(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	patch, err := quotePatchFrom(body)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q, err := h.store.UpdateQuote(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func quotePatchFrom(body map[string]json.RawMessage) (store.QuotePatch, error) {
	var p store.QuotePatch
	if raw, ok := body["clientId"]; ok {
		var id flexID
		if err := decodeField(raw, "clientId", &id); err != nil {
			return p, err
		}
		v := uint(id)
		p.ClientID = &v
	}
	for field, dst := range map[string]**string{
		"reference":   &p.Reference,
		"description": &p.Description,
	} {
		if raw, ok := body[field]; ok {
			var s string
			if err := decodeField(raw, field, &s); err != nil {
				return p, err
			}
			*dst = &s
		}
	}
	if raw, ok := body["amount"]; ok {
		var a flexAmount
		if err := decodeField(raw, "amount", &a); err != nil {
			return p, err
		}
		s := string(a)
		p.Amount = &s
	}
	if raw, ok := body["sentDate"]; ok {
		var d models.Date
		if err := decodeField(raw, "sentDate", &d); err != nil {
			return p, err
		}
		p.SentDate = &d
	}
	if raw, ok := body["status"]; ok {
		var st models.QuoteStatus
		if err := decodeField(raw, "status", &st); err != nil {
			return p, err
		}
		p.Status = &st
	}
	if raw, ok := body["plannedFollowUpDate"]; ok {
		d, err := decodeOptionalDate(raw, "plannedFollowUpDate")
		if err != nil {
			return p, err
		}
		p.PlannedFollowUpDate = store.OptionalDate{Set: true, Value: d}
	}
	if raw, ok := body["lastFollowUpDate"]; ok {
		d, err := decodeOptionalDate(raw, "lastFollowUpDate")
		if err != nil {
			return p, err
		}
		p.LastFollowUpDate = store.OptionalDate{Set: true, Value: d}
	}
	return p, nil
}

// Delete removes the quote and its follow-ups; the client stays.
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	deleted, err := h.store.DeleteQuote(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if !deleted {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.NoContent(w)
}

func (h *QuoteHandler) FollowUps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.store.GetQuote(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	fus, err := h.store.GetFollowUps(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fus)
}

// AddFollowUp logs a contact attempt on the quote. The date defaults to today.
func (h *QuoteHandler) AddFollowUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req followUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	f, err := h.store.CreateFollowUp(r.Context(), store.FollowUpInput{QuoteID: id, Date: req.Date, Comment: req.Comment})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, f)
}
