package rating

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/storedex/internal/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		entryID string
		value   float64
		wantErr bool
	}{
		{"valid", "e-1", 4, false},
		{"bounds", "e-1", 5, false},
		{"missing entry", "", 3, true},
		{"too low", "e-1", 0, true},
		{"too high", "e-1", 5.5, true},
		{"nan", "e-1", math.NaN(), true},
		{"positive infinity", "e-1", math.Inf(1), true},
		{"negative infinity", "e-1", math.Inf(-1), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := New(tc.entryID, tc.value)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.EntryID != tc.entryID || r.Value != tc.value {
				t.Errorf("got %+v", r)
			}
		})
	}
}
