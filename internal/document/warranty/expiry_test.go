package warranty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiry(t *testing.T) {
	purchase := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	exp, ok := Expiry(purchase, 12)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), exp)
	assert.Equal(t, "15.01.2025", ExpiryLabel(purchase, 12))

	assert.Equal(t, "15.07.2024", ExpiryLabel(purchase, 6))
	assert.Equal(t, "15.01.2027", ExpiryLabel(purchase, 36))

	_, ok = Expiry(purchase, 0)
	assert.False(t, ok)
	assert.Equal(t, Placeholder, ExpiryLabel(purchase, 0))
	assert.Equal(t, Placeholder, ExpiryLabel(purchase, -3))
}

func TestExpiryFollowsCalendarNormalization(t *testing.T) {
	purchase := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "02.03.2024", ExpiryLabel(purchase, 1))
}

func TestNormalizeNotes(t *testing.T) {
	in := "\r\n  First line\r\nSecond line\r\n\r\n\r\n\r\nThird\n\n\n\nFourth  \n"
	assert.Equal(t, "First line\nSecond line\n\nThird\n\nFourth", NormalizeNotes(in))
	assert.Equal(t, "", NormalizeNotes(" \r\n  "))
	assert.Equal(t, "a\n\nb", NormalizeNotes("a\n\nb"))
}

func TestFormatOrderID(t *testing.T) {
	assert.Equal(t, "000007", FormatOrderID(7))
	assert.Equal(t, "1234567", FormatOrderID(1234567))
}

func TestSplitLines(t *testing.T) {
	para := "alpha beta gamma delta"
	lines := []string{"alpha beta", "gamma", "delta"}

	head, tail := SplitLines(para, lines, 1)
	assert.Equal(t, "alpha beta", head)
	assert.Equal(t, "gamma delta", tail)

	head, tail = SplitLines(para, lines, 2)
	assert.Equal(t, "alpha beta gamma", head)
	assert.Equal(t, "delta", tail)

	// Mid-word breaks consume nothing.
	head, tail = SplitLines("abcdefgh", []string{"abcd", "efgh"}, 1)
	assert.Equal(t, "abcd", head)
	assert.Equal(t, "efgh", tail)
}
