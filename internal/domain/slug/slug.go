// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/storedex/internal/domain"
)

// Counter returns how many existing entries use base or a numbered variant of it
// (base, base-1, base-2, ...).
type Counter func(ctx context.Context, base string) (int, error)

// apostrophes are dropped without leaving a separator: "Joe's" -> "joes".
var apostrophes = strings.NewReplacer("'", "", "’", "", "‘", "", "`", "")

// Normalize folds name into a lowercase, hyphen-separated, ASCII alphanumeric base slug.
// Returns "" when nothing usable remains.
func Normalize(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}
	folded = apostrophes.Replace(strings.ToLower(folded))

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Matches reports whether candidate is base or a numbered variant of base,
// i.e. matches ^base(-[0-9]+)?$ case-insensitively.
func Matches(base, candidate string) bool {
	if len(candidate) < len(base) || !strings.EqualFold(candidate[:len(base)], base) {
		return false
	}
	rest := candidate[len(base):]
	if rest == "" {
		return true
	}
	if len(rest) < 2 || rest[0] != '-' {
		return false
	}
	for _, r := range rest[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// WithSuffix returns base-n, or base when n <= 1.
func WithSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Assign derives the slug for name: base when no entry uses it yet, base-(k+1) when k entries do.
func Assign(ctx context.Context, name string, count Counter) (string, error) {
	base := Normalize(name)
	if base == "" {
		return "", fmt.Errorf("name %q has no slug characters: %w", name, domain.ErrInvalidName)
	}

	k, err := count(ctx, base)
	if err != nil {
		return "", fmt.Errorf("count slugs for %q: %w", base, err)
	}
	if k == 0 {
		return base, nil
	}
	return WithSuffix(base, k+1), nil
}
