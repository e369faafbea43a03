package validation

import (
	"errors"
	"strings"
)

// ErrQueryTooLong is returned when a free-text place query exceeds the maximum.
var ErrQueryTooLong = errors.New("query too long")

// ValidateQuery trims the free-text place query and enforces the maximum
// length (in runes). Place names may contain any characters the geocoding
// API accepts, so no character class is enforced. maxLen <= 0 disables the
// bound. Returns the trimmed string.
func ValidateQuery(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return "", ErrQueryTooLong
	}
	return s, nil
}
