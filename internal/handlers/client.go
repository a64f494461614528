package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/store"
)

type ClientHandler struct {
	store store.Store
	log   *logger.Logger
}

func NewClientHandler(s store.Store, log *logger.Logger) *ClientHandler {
	return &ClientHandler{store: s, log: log}
}

type clientRequest struct {
	Name     *string `json:"name"`
	Company  *string `json:"company"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Position *string `json:"position"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store.GetClients(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := h.store.CreateClient(r.Context(), store.ClientInput{
		Name:     deref(req.Name),
		Company:  deref(req.Company),
		Email:    deref(req.Email),
		Phone:    deref(req.Phone),
		Position: deref(req.Position),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.log.Info("client created", "client_id", c.ID)
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.store.GetClient(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Update merges the fields present in the body; absent fields keep their value.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := h.store.UpdateClient(r.Context(), id, store.ClientPatch(req))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete removes the client with all its quotes and follow-ups.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	deleted, err := h.store.DeleteClientWithData(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if !deleted {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	h.log.Info("client deleted with its quotes", "client_id", id)
	httpx.NoContent(w)
}

// Quotes lists the quotes of one client.
func (h *ClientHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.store.GetClient(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	quotes, err := h.store.GetQuotesByClient(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotes)
}
