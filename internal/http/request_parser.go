package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// DecodeJSON reads a single JSON object into v. Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// PathID parses the positive integer path variable name.
func PathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// AmountField accepts an amount as a JSON string ("12,50") or number (12.5)
// and keeps its literal text for core.ParseAmount.
type AmountField string

func (a *AmountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or string")
	}
	*a = AmountField(n.String())
	return nil
}

// DateRange bounds a transaction listing, both ends inclusive.
type DateRange struct {
	From, To civil.Date
}

// ParseDateRange reads month=YYYY-MM, or from and to as YYYY-MM-DD. It
// returns nil when the query asks for no range.
func ParseDateRange(q url.Values) (*DateRange, error) {
	month := strings.TrimSpace(q.Get("month"))
	from := strings.TrimSpace(q.Get("from"))
	to := strings.TrimSpace(q.Get("to"))

	switch {
	case month != "" && (from != "" || to != ""):
		return nil, errors.New("use either month or from/to")
	case month != "":
		t, err := time.Parse("2006-01", month)
		if err != nil {
			return nil, fmt.Errorf("invalid month %q: expected YYYY-MM", month)
		}
		m := analytics.Month{Year: t.Year(), Month: t.Month()}
		return &DateRange{From: m.First(), To: m.Last()}, nil
	case from == "" && to == "":
		return nil, nil
	case from == "" || to == "":
		return nil, errors.New("from and to must be given together")
	}

	f, err := core.ParseDate(from)
	if err != nil {
		return nil, err
	}
	t, err := core.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if t.Before(f) {
		return nil, fmt.Errorf("from %s is after to %s", f, t)
	}
	return &DateRange{From: f, To: t}, nil
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
