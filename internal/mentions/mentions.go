// Package mentions extracts @-style reference tokens from free-form user
// text under strict cost bounds. User text is attacker-controlled, so every
// limit here is enforced before the work it bounds, not after.
package mentions

import (
	"regexp"
	"unicode/utf8"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
)

const (
	// MaxInputChars is the hard ceiling on input length, counted in runes so
	// multibyte text gets the same allowance as ASCII. Longer input is
	// rejected outright, never silently truncated.
	MaxInputChars = 10000

	// MaxMentions caps the number of distinct tokens returned. The cap is
	// applied inside the scan loop so the full match set is never
	// materialized first.
	MaxMentions = 50
)

// The token length bound lives in the pattern itself. Go's regexp is RE2,
// so matching cost stays linear in the input even on pathological repeated
// input; an unbounded token pattern against user text is the classic
// catastrophic-backtracking trap this package exists to avoid.
var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]{1,30})`)

// Extract returns the distinct mention tokens in text, without the leading
// "@". It is pure and deterministic; callers should treat the result as a
// set, the order carries no meaning beyond first occurrence.
func Extract(text string) ([]string, error) {
	if utf8.RuneCountInString(text) > MaxInputChars {
		return nil, domain.ErrInputTooLarge
	}

	seen := make(map[string]struct{})
	tokens := make([]string, 0)

	rest := text
	for len(rest) > 0 && len(tokens) < MaxMentions {
		loc := mentionPattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		token := rest[loc[2]:loc[3]]
		if _, dup := seen[token]; !dup {
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
		rest = rest[loc[1]:]
	}

	return tokens, nil
}
