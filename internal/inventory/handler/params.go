package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
)

const dateLayout = "2006-01-02"

// pathID reads a UUID path parameter. Malformed ids can never match a row,
// so they are reported as not found instead of reaching the database.
func pathID(r *http.Request, resource string) (string, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.NotFound(resource)
	}
	return id.String(), nil
}

func queryUUID(q url.Values, field string) (string, error) {
	raw := strings.TrimSpace(q.Get(field))
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.ValidationField(field, "must be a valid UUID")
	}
	return id.String(), nil
}

// parseTime accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseTime(field, raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, errors.ValidationField(field, "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
