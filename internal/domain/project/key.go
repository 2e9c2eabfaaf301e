package project

import (
	"regexp"
	"strings"
)

const keyLength = 4

var (
	nonKeyChars = regexp.MustCompile(`[^A-Z0-9\s]`)
	explicitKey = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
)

// GenerateKey derives a project key from its name: the first two characters of
// each word, uppercased, truncated and padded with X to four characters.
func GenerateKey(name string) string {
	cleaned := nonKeyChars.ReplaceAllString(strings.ToUpper(name), "")

	var b strings.Builder
	for _, word := range strings.Fields(cleaned) {
		r := []rune(word)
		if len(r) > 2 {
			r = r[:2]
		}
		b.WriteString(string(r))
	}

	key := []rune(b.String())
	if len(key) > keyLength {
		key = key[:keyLength]
	}
	for len(key) < keyLength {
		key = append(key, 'X')
	}
	return string(key)
}

// ValidKey reports whether an explicitly supplied key is acceptable.
func ValidKey(key string) bool {
	return explicitKey.MatchString(key)
}
