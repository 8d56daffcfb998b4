package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	// Check format
	if !strings.HasPrefix(id, "job-") {
		t.Errorf("expected ID to start with 'job-', got %s", id)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, "job-")); err != nil {
		t.Errorf("expected UUID suffix, got %s: %v", id, err)
	}

	// Check uniqueness
	id2 := Generate()
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestGenerateRun(t *testing.T) {
	id := GenerateRun()

	if !strings.HasPrefix(id, "run-") {
		t.Fatalf("expected ID to start with 'run-', got %s", id)
	}
	u, err := uuid.Parse(strings.TrimPrefix(id, "run-"))
	if err != nil {
		t.Fatalf("expected UUID suffix, got %s: %v", id, err)
	}
	if u.Version() != 7 {
		t.Errorf("expected version 7 UUID, got version %d", u.Version())
	}
}
