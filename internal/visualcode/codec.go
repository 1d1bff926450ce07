// Package visualcode implements the short printable PP-DDDD-C container codes.
//
// A code is a two character prefix, four characters of payload and one
// checksum character, all drawn from an alphabet that avoids glyphs OCR
// commonly confuses. The checksum weights each character by its position so
// transpositions change the result.
package visualcode

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode"
)

// Alphabet is the ordered set of characters codes are built from
const Alphabet = "347ACDEFHKMNPRTUVWXY"

// DefaultPrefix is used by Generate when no prefix is given, and is the only
// prefix FindInText recognizes
const DefaultPrefix = "KX"

var (
	// ErrEmpty is returned for empty input
	ErrEmpty = errors.New("empty visual code")

	// ErrMalformed is returned when input does not match the PP-DDDD-C shape
	ErrMalformed = errors.New("malformed visual code")
)

var (
	strictPattern = regexp.MustCompile(`^([A-Z]{2})-([A-Z0-9]{4})-([A-Z0-9])$`)
	loosePattern  = regexp.MustCompile(`^([A-Z]{2})[-_]?([A-Z0-9]{4})(?:[-_]?([A-Z0-9]))?$`)
	scanPattern   = regexp.MustCompile(`KX[-_]?[A-Z0-9]{4}[-_]?[A-Z0-9]`)

	ocrConfusions = strings.NewReplacer("O", "0", "I", "1", "Z", "2", "S", "5")
)

// Code is a parsed visual code
type Code struct {
	Prefix   string `json:"prefix"`
	Digits   string `json:"digits"`
	Checksum string `json:"checksum"`
}

// String renders the code in PP-DDDD-C form
func (c Code) String() string {
	return c.Prefix + "-" + c.Digits + "-" + c.Checksum
}

// Match is a code-shaped substring found in free text
type Match struct {
	Code          string `json:"code"`
	IsValid       bool   `json:"isValid"`
	CorrectedCode string `json:"correctedCode,omitempty"`
}

// Normalize uppercases s and strips all whitespace
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// Checksum computes the checksum character for prefix+digits.
// Characters outside the alphabet contribute 0 but still consume a position.
func Checksum(prefix, digits string) string {
	sum := 0
	for i, c := range []byte(prefix + digits) {
		if idx := strings.IndexByte(Alphabet, c); idx >= 0 {
			sum += idx * (i + 1)
		}
	}
	return string(Alphabet[sum%len(Alphabet)])
}

// Parse matches code against the strict PP-DDDD-C shape
func Parse(code string) (Code, error) {
	n := Normalize(code)
	if n == "" {
		return Code{}, ErrEmpty
	}
	m := strictPattern.FindStringSubmatch(n)
	if m == nil {
		return Code{}, fmt.Errorf("%w: %q", ErrMalformed, code)
	}
	return Code{Prefix: m[1], Digits: m[2], Checksum: m[3]}, nil
}

// Validate reports whether code is well-formed and carries the right checksum
func Validate(code string) bool {
	c, err := Parse(code)
	if err != nil {
		return false
	}
	return c.Checksum == Checksum(c.Prefix, c.Digits)
}

// Generate builds a full code for prefix and digits. An empty prefix uses
// DefaultPrefix; empty digits are drawn uniformly from the alphabet.
func Generate(prefix, digits string) (string, error) {
	prefix = Normalize(prefix)
	digits = Normalize(digits)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if digits == "" {
		digits = randomDigits(4)
	}

	c := Code{Prefix: prefix, Digits: digits, Checksum: Checksum(prefix, digits)}
	if !strictPattern.MatchString(c.String()) {
		return "", fmt.Errorf("%w: prefix=%q digits=%q", ErrMalformed, prefix, digits)
	}
	return c.String(), nil
}

// MustGenerate is Generate with a random payload under prefix, panicking on a bad prefix
func MustGenerate(prefix string) string {
	code, err := Generate(prefix, "")
	if err != nil {
		panic(err)
	}
	return code
}

func randomDigits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = Alphabet[rand.IntN(len(Alphabet))]
	}
	return string(b)
}

// Correct repairs OCR noise: confusable glyphs are substituted, separators
// are optional, and the checksum is always recomputed from prefix+digits.
// Any checksum present in the input is discarded. The prefix must still be
// two letters after substitution, so "SX" or "OK" prefixes are uncorrectable.
func Correct(code string) (string, bool) {
	n := ocrConfusions.Replace(Normalize(code))
	m := loosePattern.FindStringSubmatch(n)
	if m == nil {
		return "", false
	}
	return Code{Prefix: m[1], Digits: m[2], Checksum: Checksum(m[1], m[2])}.String(), true
}

// FindInText returns every non-overlapping KX-prefixed code in text
func FindInText(text string) []Match {
	found := scanPattern.FindAllString(Normalize(text), -1)
	matches := make([]Match, 0, len(found))
	for _, s := range found {
		m := Match{Code: s, IsValid: Validate(s)}
		if !m.IsValid {
			if corrected, ok := Correct(s); ok {
				m.CorrectedCode = corrected
			}
		}
		matches = append(matches, m)
	}
	return matches
}

// Resolve returns the code to look up for a match: the code itself when
// valid, otherwise the corrected code, or "" when neither is usable
func (m Match) Resolve() string {
	if m.IsValid {
		c, _ := Parse(m.Code)
		return c.String()
	}
	return m.CorrectedCode
}
