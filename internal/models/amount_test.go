package models

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"100", "100", false},
		{"50.25", "50.25", false},
		{"0.01", "0.01", false},
		{"9999999999999.99", "9999999999999.99", false},

		{"0", "", true},
		{"-5", "", true},
		{"1.005", "", true},      // three decimal places
		{"10000000000000", "", true}, // 10^13, out of NUMERIC(15,2)
		{"abc", "", true},
		{"", "", true},
		{"1,50", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %s, want error", tt.input, got)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ParseAmount(%q) error = %v, want ErrValidation", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
