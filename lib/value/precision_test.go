package value

import (
	"errors"
	"testing"
)

func TestPrecisionGuard(t *testing.T) {
	maxSafe := float64(MaxSafeInteger)
	minSafe := float64(MinSafeInteger)

	tests := []struct {
		name string
		in   any
		kind string
		want any
	}{
		{"max safe stays numeric", MaxSafeInteger, "", int64(9007199254740991)},
		{"min safe stays numeric", MinSafeInteger, "", int64(-9007199254740991)},
		{"zero", 0, "", int64(0)},
		{"literal beyond range", "1" + "9007199254740991", "INTEGER", "19007199254740991"},
		{"max plus one", maxSafe + 1, "", "9007199254740992"},
		{"max plus three", maxSafe + 3, "", "9007199254740994"},
		{"min minus one", minSafe - 1, "", "-9007199254740992"},
		{"min minus two", minSafe - 2, "", "-9007199254740992"},
		{"min minus three", minSafe - 3, "", "-9007199254740994"},
		{"negative literal", "-9007199254740991" + "123", "INTEGER", "-9007199254740991123"},
		{"native int64 beyond range", int64(1) << 60, "", "1152921504606846976"},
	}

	dec := Decoder{Precision: PrecisionSafe}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := EncodeDeclared(tt.in, tt.kind)
			if err != nil {
				t.Fatal(err)
			}
			if v.Kind != KindInteger {
				t.Fatalf("expected INTEGER, got %s", v.Kind)
			}
			got, err := dec.Decode(v)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("decode(encode(%v)) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsSafeInteger(t *testing.T) {
	cases := map[int64]bool{
		0:                  true,
		MaxSafeInteger:     true,
		MinSafeInteger:     true,
		MaxSafeInteger + 1: false,
		MinSafeInteger - 1: false,
	}
	for n, want := range cases {
		if got := IsSafeInteger(n); got != want {
			t.Errorf("IsSafeInteger(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestLiteralPrecisionMode(t *testing.T) {
	dec := Decoder{Precision: PrecisionLiteral}
	for n, want := range map[int64]string{28: "28", 0: "0", -5: "-5", MaxSafeInteger + 1: "9007199254740992"} {
		got, err := dec.Decode(Integer(n))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("literal decode of %d = %#v, want %q", n, got, want)
		}
	}
}

func TestDecodeIntegerLiteral(t *testing.T) {
	got, err := DecodeIntegerLiteral("18", PrecisionSafe)
	if err != nil || got != int64(18) {
		t.Errorf("got %#v, %v", got, err)
	}
	got, err = DecodeIntegerLiteral("18", PrecisionLiteral)
	if err != nil || got != "18" {
		t.Errorf("got %#v, %v", got, err)
	}
	if _, err := DecodeIntegerLiteral("1.5", PrecisionSafe); !errors.Is(err, ErrMalformedValue) {
		t.Errorf("expected ErrMalformedValue, got %v", err)
	}
}

func TestIntegerFromFloat(t *testing.T) {
	if _, err := IntegerFromFloat(9.3e18); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	n, err := IntegerFromFloat(-9.2e18)
	if err != nil || n != -9200000000000000000 {
		t.Errorf("got %d, %v", n, err)
	}
}
