package handle

import (
	"errors"
	"testing"
)

func TestNormalizeDTMFTones(t *testing.T) {
	tests := []struct {
		name    string
		tones   string
		want    string
		wantErr error
	}{
		{"plain digits", "123", "123", nil},
		{"mixed case letters", "1a2b", "1A2B", nil},
		{"strips whitespace and dashes", "1 2-3", "123", nil},
		{"star and pound", "*1#", "*1#", nil},
		{"empty input", "", "", ErrInvalidDtmf},
		{"all invalid chars", "xyz!!", "", ErrInvalidDtmf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeDTMFTones(tt.tones)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got = %q, want %q", got, tt.want)
			}
		})
	}
}
