// Package coupon generates and validates the 12-character redemption codes
// handed out after a survey submission.
//
// A code is a YYMMDD date prefix followed by six symbols from Alphabet, for
// example "240115ABK7QZ". Codes are meant to be read aloud or typed by staff,
// not to be unguessable. Uniqueness is enforced by the storage layer.
package coupon

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"
)

// Alphabet is uppercase letters and digits without 0, O, 1, I and L.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	// DatePrefixLength is the length of the YYMMDD prefix.
	DatePrefixLength = 6
	// SuffixLength is the number of random symbols after the prefix.
	SuffixLength = 6
	// Length is the total code length.
	Length = DatePrefixLength + SuffixLength

	datePrefixLayout = "060102"
)

// rejectAbove is the largest multiple of len(Alphabet) that fits in a byte.
// Bytes at or above it are discarded so every symbol is equally likely.
var rejectAbove = byte(256 / len(Alphabet) * len(Alphabet))

// Generator produces coupon codes. The zero value uses time.Now, the local
// time zone and crypto/rand.
type Generator struct {
	Now      func() time.Time
	Location *time.Location
	Rand     io.Reader
}

// NewGenerator returns a generator stamping dates in loc.
func NewGenerator(loc *time.Location) *Generator {
	return &Generator{Now: time.Now, Location: loc, Rand: rand.Reader}
}

// Generate returns a fresh code dated at the generator's current time.
func (g *Generator) Generate() (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	t := now()
	if g.Location != nil {
		t = t.In(g.Location)
	}

	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	suffix, err := randomSuffix(src)
	if err != nil {
		return "", err
	}
	return t.Format(datePrefixLayout) + suffix, nil
}

func randomSuffix(src io.Reader) (string, error) {
	out := make([]byte, 0, SuffixLength)
	buf := make([]byte, SuffixLength*2)

	for len(out) < SuffixLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= rejectAbove {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == SuffixLength {
				break
			}
		}
	}
	return string(out), nil
}

// Valid reports whether code is exactly six digits followed by six symbols
// from Alphabet. The date digits are not checked against the calendar.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < DatePrefixLength; i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	for i := DatePrefixLength; i < Length; i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// Normalize trims and upper-cases a code typed by a person.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IssuedOn parses the date prefix of a valid code in loc.
func IssuedOn(code string, loc *time.Location) (time.Time, error) {
	if !Valid(code) {
		return time.Time{}, fmt.Errorf("invalid coupon code %q", code)
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(datePrefixLayout, code[:DatePrefixLength], loc)
}
