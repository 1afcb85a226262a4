package amount

import (
	"errors"
	"math"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want error
	}{
		{"positive", 1.5, nil},
		{"zero", 0, ErrNotPositive},
		{"negative", -3, ErrNotPositive},
		{"nan", math.NaN(), ErrNotFinite},
		{"inf", math.Inf(1), ErrNotFinite},
		{"neg inf", math.Inf(-1), ErrNotFinite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("Validate(%v) = %v, want %v", tc.in, err, tc.want)
			}
		})
	}
}

func TestToBaseUnits(t *testing.T) {
	got, err := ToBaseUnits(2.5, NativeDecimals)
	if err != nil {
		t.Fatalf("to base units: %v", err)
	}
	if got != 2_500_000 {
		t.Fatalf("expected 2500000, got %d", got)
	}

	got, err = ToBaseUnits(0.1234567, NativeDecimals)
	if err != nil {
		t.Fatalf("to base units: %v", err)
	}
	if got != 123_456 {
		t.Fatalf("expected floor to 123456, got %d", got)
	}

	got, err = ToBaseUnits(12, 0)
	if err != nil || got != 12 {
		t.Fatalf("expected 12 with zero decimals, got %d (%v)", got, err)
	}
}

func TestToBaseUnitsRejects(t *testing.T) {
	if _, err := ToBaseUnits(0.0000001, NativeDecimals); !errors.Is(err, ErrTooSmall) {
		t.Fatalf("expected ErrTooSmall, got %v", err)
	}
	if _, err := ToBaseUnits(1e30, NativeDecimals); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := ToBaseUnits(-1, NativeDecimals); !errors.Is(err, ErrNotPositive) {
		t.Fatalf("expected ErrNotPositive, got %v", err)
	}
	if _, err := ToBaseUnits(1, 25); !errors.Is(err, ErrDecimals) {
		t.Fatalf("expected ErrDecimals, got %v", err)
	}
}

func TestFromBaseUnits(t *testing.T) {
	if got := FromBaseUnits(2_500_000, NativeDecimals); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
	if got := FromBaseUnits(1234, 2); got != 12.34 {
		t.Fatalf("expected 12.34, got %v", got)
	}
	if got := FromBaseUnits(0, 6); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
