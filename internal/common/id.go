package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique run ID with the "run_" prefix
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewLeadID generates a unique lead ID with the "lead_" prefix.
// Lead IDs are the tiebreak key of the batch traversal order, so they
// must be unique; uuid collisions are treated as impossible.
func NewLeadID() string {
	return "lead_" + uuid.New().String()
}

// NewResultID generates a unique verification result ID with the "res_" prefix
func NewResultID() string {
	return "res_" + uuid.New().String()
}

// NewReviewID generates a unique pending review ID with the "rev_" prefix
func NewReviewID() string {
	return "rev_" + uuid.New().String()
}
