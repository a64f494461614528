package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
)

// flexAmount accepts a JSON string ("1 250,00") or number (1250) and keeps the text.
type flexAmount string

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = flexAmount(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = flexAmount(n.String())
	return nil
}

// flexID accepts 3 or "3"; forms in the UI send select values as strings.
type flexID uint

func (id *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*id = flexID(n)
	return nil
}

// decodeField unmarshals raw into dst, reporting failures as invalid JSON for field.
func decodeField(raw json.RawMessage, field string, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", httpx.ErrInvalidJSON, field, err)
	}
	return nil
}

// decodeOptionalDate returns nil for null or "", else the parsed date.
func decodeOptionalDate(raw json.RawMessage, field string) (*models.Date, error) {
	var d models.Date
	if err := decodeField(raw, field, &d); err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}
