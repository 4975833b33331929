package coupon

import (
	"bytes"
	"strings"
	"testing"
	"testing/iotest"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAlphabet(t *testing.T) {
	assert.Len(t, Alphabet, 31)
	for _, excluded := range "0O1IL" {
		assert.NotContains(t, Alphabet, string(excluded))
	}

	seen := map[rune]bool{}
	for _, r := range Alphabet {
		assert.False(t, seen[r], "duplicate symbol %q", r)
		seen[r] = true
	}
}

func TestGenerator_Generate(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	g := &Generator{
		Now:      fixedClock(time.Date(2024, 1, 15, 9, 30, 0, 0, tokyo)),
		Location: tokyo,
	}

	for i := 0; i < 500; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, code, Length)
		assert.True(t, strings.HasPrefix(code, "240115"), code)
		assert.True(t, Valid(code), code)
		assert.False(t, strings.ContainsAny(code[DatePrefixLength:], "0O1IL"), code)
	}
}

func TestGenerator_DatePrefixUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2024-01-15 20:00 UTC is already 2024-01-16 in Tokyo.
	now := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)

	code, err := (&Generator{Now: fixedClock(now), Location: tokyo}).Generate()
	require.NoError(t, err)
	assert.Equal(t, "240116", code[:DatePrefixLength])

	code, err = (&Generator{Now: fixedClock(now), Location: time.UTC}).Generate()
	require.NoError(t, err)
	assert.Equal(t, "240115", code[:DatePrefixLength])
}

func TestGenerator_DeterministicSource(t *testing.T) {
	// Bytes 0..5 map to the first six symbols.
	src := bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})
	g := &Generator{Now: fixedClock(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)), Location: time.UTC, Rand: src}

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "251231ABCDEF", code)
}

func TestGenerator_RejectsBiasedBytes(t *testing.T) {
	// 248..255 are rejected, 31 wraps to the first symbol again.
	src := bytes.NewReader([]byte{
		248, 249, 250, 251, 252, 253, 254, 255, 31, 62, 30, 61,
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11,
	})
	g := &Generator{Now: fixedClock(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)), Location: time.UTC, Rand: src}

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "250102AA99AB", code)
}

func TestGenerator_RandomSourceError(t *testing.T) {
	g := &Generator{Rand: iotest.ErrReader(assert.AnError)}

	_, err := g.Generate()
	assert.ErrorIs(t, err, assert.AnError)
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "valid code", code: "240115ABK7QZ", want: true},
		{name: "all digits in suffix", code: "240115234567", want: true},
		{name: "too short", code: "240115ABK7Q", want: false},
		{name: "too long", code: "240115ABK7QZZ", want: false},
		{name: "empty", code: "", want: false},
		{name: "letter in date prefix", code: "24O115ABK7QZ", want: false},
		{name: "zero in suffix", code: "240115ABK70Z", want: false},
		{name: "one in suffix", code: "240115AB12CD", want: false},
		{name: "O in suffix", code: "240115ABKOQZ", want: false},
		{name: "I in suffix", code: "240115ABKIQZ", want: false},
		{name: "L in suffix", code: "240115ABKLQZ", want: false},
		{name: "lowercase suffix", code: "240115abk7qz", want: false},
		{name: "multibyte characters", code: "240115ＡＢ", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.code))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "240115ABK7QZ", Normalize("  240115abk7qz \n"))
	assert.True(t, Valid(Normalize("240115abk7qz")))
}

func TestIssuedOn(t *testing.T) {
	issued, err := IssuedOn("240115ABK7QZ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), issued)

	_, err = IssuedOn("nope", time.UTC)
	assert.Error(t, err)
}
