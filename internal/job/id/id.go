// Package id provides unique identifier generation for jobs and batch runs.
package id

import (
	"github.com/google/uuid"
)

// Generate creates a new unique job ID.
// Format: job-<uuid>
// Example: job-0b6f1c1e-8a0e-4f5c-9a52-5d1b2f0c7e11
func Generate() string {
	return "job-" + uuid.NewString()
}

// GenerateRun creates a new unique batch run ID.
// Version 7 UUIDs sort by creation time, which keeps stored reports ordered.
func GenerateRun() string {
	u, err := uuid.NewV7()
	if err != nil {
		// Fall back to a random UUID if the clock source fails
		return "run-" + uuid.NewString()
	}
	return "run-" + u.String()
}
