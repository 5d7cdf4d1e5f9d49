package models

import (
	"fmt"
	"strings"
	"time"
)

// Lead is one record in the collection batch runs traverse. CreatedAt is
// the traversal sort key and is deliberately not unique; the lead ID is the
// tiebreak key.
type Lead struct {
	ID      string `json:"id"`
	Company string `json:"company"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty"`
	URL     string `json:"url,omitempty"`

	// Title is the last known page title of URL, updated by verification runs
	Title string `json:"title,omitempty"`

	// Source records where the lead came from ("import", "discovery", ...)
	Source string `json:"source,omitempty"`

	// Score is the discovery enricher's qualification score (0-100)
	Score int `json:"score"`

	// Qualified is set by accepted review dispositions
	Qualified bool `json:"qualified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate validates the lead before storage
func (l *Lead) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("lead ID is required")
	}
	if strings.TrimSpace(l.Company) == "" {
		return fmt.Errorf("lead company is required")
	}
	return nil
}
