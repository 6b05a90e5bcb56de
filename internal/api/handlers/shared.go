package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Failed to encode JSON: %v", err)
		}
	}
}

// respondError sends a structured error response
func respondError(w http.ResponseWriter, status int, message string, detail string) {
	respondJSON(w, status, map[string]string{
		"error":  message,
		"detail": detail,
	})
}

// parseDateRange reads the from/to query parameters. When absent, the range
// defaults to the trailing year ending today.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := dates.Day(time.Now())
	from := now.AddDate(-1, 0, 0)
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		parsed, err := dates.Parse(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if s := r.URL.Query().Get("to"); s != "" {
		parsed, err := dates.Parse(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}

	return from, to, nil
}
