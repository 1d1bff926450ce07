package visualcode

import (
	"errors"
	"strings"
	"testing"
)

func TestChecksum(t *testing.T) {
	if got := Checksum("KX", "3447"); got != "E" {
		t.Fatalf("Checksum(KX, 3447) = %q, want E", got)
	}
	if got := Checksum("KX", "4347"); got != "D" {
		t.Fatalf("Checksum(KX, 4347) = %q, want D", got)
	}
	if Checksum("KX", "3447") == Checksum("KX", "4347") {
		t.Fatal("transposed digits produced the same checksum")
	}
	// '0' is outside the alphabet and still consumes a position
	if Checksum("KX", "0447") != Checksum("KX", "3447") {
		t.Fatal("out-of-alphabet character should weigh like index 0")
	}
}

func TestParse(t *testing.T) {
	c, err := Parse(" kx-3447-e ")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if c.Prefix != "KX" || c.Digits != "3447" || c.Checksum != "E" {
		t.Fatalf("Parse = %+v", c)
	}

	for _, bad := range []string{"KX-AB1-D", "KX3447E", "KX-3447-EE", "K1-3447-E", "xKX-3447-E", "KX_3447_E"} {
		if _, err := Parse(bad); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", bad, err)
		}
	}
	if _, err := Parse("   "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Parse(blank) error = %v, want ErrEmpty", err)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]bool{
		"KX-3447-E":   true,
		"kx - 3447-e": true,
		"KX-3447-D":   false,
		"KX-4347-D":   true,
		"KX-344-E":    false,
		"":            false,
	}
	for code, want := range tests {
		if got := Validate(code); got != want {
			t.Errorf("Validate(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestGenerate(t *testing.T) {
	code, err := Generate("KX", "3447")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if code != "KX-3447-E" {
		t.Fatalf("Generate = %q, want KX-3447-E", code)
	}

	for i := 0; i < 200; i++ {
		code, err := Generate("", "")
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if !strings.HasPrefix(code, DefaultPrefix+"-") {
			t.Fatalf("Generate default prefix = %q", code)
		}
		if !Validate(code) {
			t.Fatalf("generated code %q does not validate", code)
		}
		for _, ch := range strings.ReplaceAll(code[3:], "-", "") {
			if !strings.ContainsRune(Alphabet, ch) {
				t.Fatalf("generated code %q uses %q outside the alphabet", code, ch)
			}
		}
	}

	for _, prefix := range []string{"AC", "MN", "YY"} {
		for _, digits := range []string{"3333", "YXWV", "A7C4"} {
			code, err := Generate(prefix, digits)
			if err != nil {
				t.Fatalf("Generate(%q, %q) returned error: %v", prefix, digits, err)
			}
			if !Validate(code) {
				t.Fatalf("Generate(%q, %q) = %q does not validate", prefix, digits, code)
			}
		}
	}

	if _, err := Generate("K", "3447"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Generate short prefix error = %v, want ErrMalformed", err)
	}
	if _, err := Generate("KX", "34"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Generate short digits error = %v, want ErrMalformed", err)
	}
}

func TestCorrect(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"KX-3447-D", "KX-3447-E", true},
		{"kx_3447_e", "KX-3447-E", true},
		{"KX3447", "KX-3447-E", true},
		{"KX-O447-A", "KX-0447-E", true},
		{"KX-3I4S-Z", "KX-3145-" + Checksum("KX", "3145"), true},
		{"KX-34", "", false},
		{"KX-3447-DD", "", false},
		{"SX-3447-E", "", false},
		{"ZX3447", "", false},
		{"OK-3447", "", false},
		{"12-3447-E", "", false},
	}
	for _, tt := range tests {
		got, ok := Correct(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Correct(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ok {
			if _, err := Parse(got); err != nil {
				t.Errorf("Parse(Correct(%q)) = %v", tt.in, err)
			}
		}
	}
}

func TestFindInText(t *testing.T) {
	matches := FindInText("order code KX-3447-D shipped")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
	}
	m := matches[0]
	if m.Code != "KX-3447-D" {
		t.Fatalf("code = %q, want KX-3447-D", m.Code)
	}
	if m.IsValid != Validate("KX-3447-D") {
		t.Fatalf("isValid = %v, want %v", m.IsValid, Validate("KX-3447-D"))
	}
	if m.CorrectedCode != "KX-3447-E" {
		t.Fatalf("correctedCode = %q, want KX-3447-E", m.CorrectedCode)
	}
	if m.Resolve() != "KX-3447-E" {
		t.Fatalf("Resolve = %q", m.Resolve())
	}
}

func TestFindInTextMultipleAndValid(t *testing.T) {
	matches := FindInText("bin kx 3447 e and KX4347D, also AB-3447-E")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(matches), matches)
	}
	if matches[0].Code != "KX3447E" || matches[0].IsValid {
		t.Fatalf("first match = %+v", matches[0])
	}
	if matches[0].CorrectedCode != "KX-3447-E" {
		t.Fatalf("first corrected = %q", matches[0].CorrectedCode)
	}
	if matches[1].Code != "KX4347D" {
		t.Fatalf("second match = %+v", matches[1])
	}

	valid := FindInText("label KX-4347-D")
	if len(valid) != 1 || !valid[0].IsValid || valid[0].CorrectedCode != "" {
		t.Fatalf("valid match = %+v", valid)
	}
}
