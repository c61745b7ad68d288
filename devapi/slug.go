package devapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const maxSlugLen = 200

var (
	reNoSlug    = regexp.MustCompile(`[^\w\s-]+`)
	reSeparator = regexp.MustCompile(`[\s_]+`)
	reDashes    = regexp.MustCompile(`-+`)
)

// GenerateSlug makes a URL-safe slug from a survey title.
func GenerateSlug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = reNoSlug.ReplaceAllLiteralString(slug, "")
	slug = reSeparator.ReplaceAllLiteralString(slug, "-")
	slug = reDashes.ReplaceAllLiteralString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		return "survey"
	}
	return slug
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// uniqueSlug appends -1, -2... to base until no survey, deleted ones
// included, uses it.
func uniqueSlug(ctx context.Context, db queryer, base string) (string, error) {
	slug := base
	for n := 1; ; n++ {
		var found int
		err := db.QueryRowContext(ctx, "SELECT 1 FROM survey WHERE slug = ?", slug).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
