// Package idlist validates and parses free-text lists of numeric identifiers
// such as "12, 34;56".
package idlist

import (
	"regexp"
	"strconv"
)

var (
	digits     = regexp.MustCompile(`[0-9]+`)
	validChars = regexp.MustCompile(`^[\s,;0-9]+$`)
	blank      = regexp.MustCompile(`^\s+$`)
)

// Validate reports whether text is a usable identifier list: non-empty, not
// only whitespace, and made of digits, whitespace, commas and semicolons.
func Validate(text string) bool {
	if text == "" || blank.MatchString(text) {
		return false
	}
	return validChars.MatchString(text)
}

// Parse returns every maximal digit run in text as a base-10 integer, in
// order. Runs that overflow int64 are skipped. It does not validate.
func Parse(text string) []int64 {
	runs := digits.FindAllString(text, -1)
	ids := make([]int64, 0, len(runs))
	for _, r := range runs {
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
