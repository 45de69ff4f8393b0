package discover

import "testing"

func TestNormaliseMAC(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"8c-85-90-12-34-56", "8C:85:90:12:34:56"},
		{"8c:85:90:12:34:56", "8C:85:90:12:34:56"},
		{"8C.85.90.12.34.56", "8C:85:90:12:34:56"},
		{"invalid", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normaliseMAC(tt.input); got != tt.want {
			t.Fatalf("normaliseMAC(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLookupManufacturerEmpty(t *testing.T) {
	if got := lookupManufacturer(""); got != "" {
		t.Fatalf("expected empty vendor for empty MAC, got %q", got)
	}
}
