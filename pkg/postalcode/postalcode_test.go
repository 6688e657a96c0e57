package postalcode

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{
			name: "digits_only",
			raw:  "1500001",
			want: "1500001",
		},
		{
			name: "display_form",
			raw:  "150-0001",
			want: "1500001",
		},
		{
			name: "surrounding_whitespace",
			raw:  "  150-0001\n",
			want: "1500001",
		},
		{
			name: "inner_spaces",
			raw:  "150 0001",
			want: "1500001",
		},
		{
			name: "many_hyphens",
			raw:  "1-5-0-0-0-0-1",
			want: "1500001",
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: ErrEmpty,
		},
		{
			name:    "only_whitespace",
			raw:     " \t ",
			wantErr: ErrEmpty,
		},
		{
			name:    "only_hyphens",
			raw:     "---",
			wantErr: ErrEmpty,
		},
		{
			name:    "too_short",
			raw:     "150-001",
			wantErr: &ValidationError{},
		},
		{
			name:    "too_long",
			raw:     "15000011",
			wantErr: &ValidationError{},
		},
		{
			name:    "letters",
			raw:     "abc-1234",
			wantErr: &ValidationError{},
		},
		{
			name:    "sign",
			raw:     "+150001",
			wantErr: &ValidationError{},
		},
		{
			name:    "decimal",
			raw:     "15000.1",
			wantErr: &ValidationError{},
		},
		{
			name:    "full_width_digits",
			raw:     "１５０００６１",
			wantErr: &ValidationError{},
		},
		{
			name:    "asterisk",
			raw:     "150000*",
			wantErr: &ValidationError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			checkErr(t, err, tt.wantErr)
			if got.Digits() != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got.Digits(), tt.want)
			}
		})
	}
}

func TestForLookup(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{
			name: "asterisks_stripped",
			raw:  "*150-0001*",
			want: "1500001",
		},
		{
			name:    "only_asterisks",
			raw:     "**",
			wantErr: ErrEmpty,
		},
		{
			name:    "asterisk_does_not_count_as_digit",
			raw:     "150000*",
			wantErr: &ValidationError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ForLookup(tt.raw)
			checkErr(t, err, tt.wantErr)
			if got.Digits() != tt.want {
				t.Errorf("ForLookup(%q) = %q, want %q", tt.raw, got.Digits(), tt.want)
			}
		})
	}
}

func checkErr(t *testing.T, err, want error) {
	t.Helper()

	switch want := want.(type) {
	case nil:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case *ValidationError:
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("error = %v, want *ValidationError", err)
		}
		if ve.Message != HintMessage {
			t.Errorf("error message = %q, want %q", ve.Message, HintMessage)
		}
	default:
		if !errors.Is(err, want) {
			t.Fatalf("error = %v, want %v", err, want)
		}
	}
}

func TestCodeRoundTrip(t *testing.T) {
	for _, raw := range []string{"1234567", "0000000", "9071801"} {
		code, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q) error = %v", raw, err)
		}

		display := code.String()
		if len(display) != Length+1 || display[3] != '-' {
			t.Errorf("Code.String() = %q, want hyphen after 3 digits", display)
		}

		again, err := Normalize(display)
		if err != nil {
			t.Fatalf("Normalize(%q) error = %v", display, err)
		}
		if again != code {
			t.Errorf("round trip = %q, want %q", again.Digits(), raw)
		}
	}
}

func TestCodeZeroValue(t *testing.T) {
	var c Code
	if c.String() != "" || c.Digits() != "" {
		t.Errorf("zero Code = %q / %q, want empty", c.String(), c.Digits())
	}
}
