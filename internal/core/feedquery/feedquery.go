// Package feedquery compiles raw feed queries into canonical descriptors.
//
// Compilation validates bounds, canonicalizes free text and tags through the
// normalize pipeline, and produces a Descriptor whose Key is a pure function
// of its canonical fields: two raw queries that mean the same thing always
// map to the same cache key regardless of tag order, casing, or width forms.
package feedquery

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"lightbox/internal/core/normalize"
)

// Sort is one of the fixed sort modes; anything else fails compilation
type Sort string

const (
	SortRecent        Sort = "recent"
	SortPopular       Sort = "popular"
	SortMostViewed    Sort = "most-viewed"
	SortMostCommented Sort = "most-commented"
)

// Compilation bounds
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	MaxTags         = 10
	MaxTagLen       = 40
	MaxTextLen      = 120
)

// RawQuery is the transport-shaped input; times are RFC3339 strings
type RawQuery struct {
	Text     string
	Tags     []string
	Color    string
	Author   string
	Since    string
	Until    string
	Sort     string
	Page     int
	PageSize int
}

// Descriptor is the canonical, order-independent form of a query
type Descriptor struct {
	Text     string
	Tags     []string // folded, deduped, sorted
	Color    string   // "#rrggbb" lowercase, or empty
	Author   string
	Since    time.Time // zero when absent
	Until    time.Time
	Sort     Sort
	Page     int // 1-based
	PageSize int
}

var norm = normalize.New()

// Compile validates and canonicalizes raw into a Descriptor
func Compile(raw RawQuery) (Descriptor, error) {
	var d Descriptor

	d.Text = flatten(norm.Normalize(raw.Text))
	if utf8.RuneCountInString(d.Text) > MaxTextLen {
		return Descriptor{}, fmt.Errorf("text longer than %d characters", MaxTextLen)
	}

	tags, err := CanonicalTags(raw.Tags)
	if err != nil {
		return Descriptor{}, err
	}
	d.Tags = tags

	color, err := CanonicalColor(raw.Color)
	if err != nil {
		return Descriptor{}, err
	}
	d.Color = color

	d.Author = normalize.Sanitize(strings.TrimSpace(raw.Author))

	d.Since, d.Until, err = parseRange(raw.Since, raw.Until)
	if err != nil {
		return Descriptor{}, err
	}

	switch Sort(raw.Sort) {
	case "":
		d.Sort = SortRecent
	case SortRecent, SortPopular, SortMostViewed, SortMostCommented:
		d.Sort = Sort(raw.Sort)
	default:
		return Descriptor{}, fmt.Errorf("unknown sort %q", raw.Sort)
	}

	switch {
	case raw.Page == 0:
		d.Page = 1
	case raw.Page < 0:
		return Descriptor{}, fmt.Errorf("page must be >= 1")
	default:
		d.Page = raw.Page
	}

	switch {
	case raw.PageSize == 0:
		d.PageSize = DefaultPageSize
	case raw.PageSize < 1 || raw.PageSize > MaxPageSize:
		return Descriptor{}, fmt.Errorf("page_size must be between 1 and %d", MaxPageSize)
	default:
		d.PageSize = raw.PageSize
	}

	return d, nil
}

// Key returns the deterministic cache key for the descriptor.
// Canonical fields are joined with unit separators, which the normalize
// pipeline guarantees cannot occur inside any field, then hashed
func (d Descriptor) Key() string {
	var b strings.Builder
	b.WriteString("t=" + d.Text)
	b.WriteString("\x1fg=" + strings.Join(d.Tags, "\x1f"))
	b.WriteString("\x1fc=" + d.Color)
	b.WriteString("\x1fa=" + d.Author)
	b.WriteString("\x1fs=" + stampOrEmpty(d.Since))
	b.WriteString("\x1fu=" + stampOrEmpty(d.Until))
	b.WriteString("\x1fo=" + string(d.Sort))
	b.WriteString("\x1fp=" + strconv.Itoa(d.Page))
	b.WriteString("\x1fn=" + strconv.Itoa(d.PageSize))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Offset returns the row offset for the descriptor's page
func (d Descriptor) Offset() int { return (d.Page - 1) * d.PageSize }

// CanonicalTags folds, flattens, dedups and sorts; empties drop out.
// The write path runs shot tags through the same pipeline, so stored tags
// and query tags always meet in the same canonical form
func CanonicalTags(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		ct := flatten(norm.Normalize(t))
		if ct == "" {
			continue
		}
		if utf8.RuneCountInString(ct) > MaxTagLen {
			return nil, fmt.Errorf("tag longer than %d characters", MaxTagLen)
		}
		if _, dup := seen[ct]; dup {
			continue
		}
		seen[ct] = struct{}{}
		out = append(out, ct)
	}
	if len(out) > MaxTags {
		return nil, fmt.Errorf("more than %d tags", MaxTags)
	}
	if len(out) == 0 {
		return nil, nil
	}
	sort.Strings(out)
	return out, nil
}

// CanonicalColor accepts "#rrggbb" in any case and returns it lowercased
func CanonicalColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if len(s) != 7 || s[0] != '#' {
		return "", fmt.Errorf("color must be #rrggbb")
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return "", fmt.Errorf("color must be #rrggbb")
		}
	}
	return strings.ToLower(s), nil
}

func parseRange(since, until string) (time.Time, time.Time, error) {
	var s, u time.Time
	var err error
	if since != "" {
		s, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("since is not RFC3339: %v", err)
		}
		s = s.UTC()
	}
	if until != "" {
		u, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("until is not RFC3339: %v", err)
		}
		u = u.UTC()
	}
	if !s.IsZero() && !u.IsZero() && s.After(u) {
		return time.Time{}, time.Time{}, fmt.Errorf("since is after until")
	}
	return s, u, nil
}

// flatten reduces any whitespace, including preserved line breaks, to single spaces
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stampOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
