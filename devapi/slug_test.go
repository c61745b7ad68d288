package devapi

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlug(t *testing.T) {
	for _, tt := range []struct {
		title, want string
	}{
		{"Team Pulse", "team-pulse"},
		{"  Q3 -- Retro!!  ", "q3-retro"},
		{"snake_case title", "snake-case-title"},
		{"¿?", "survey"},
		{"", "survey"},
	} {
		assert.Equal(t, tt.want, GenerateSlug(tt.title), tt.title)
	}

	long := GenerateSlug(strings.Repeat("ab ", 100))
	assert.LessOrEqual(t, len(long), maxSlugLen)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestUniqueSlug(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()

	slug, err := uniqueSlug(ctx, a.db, "pulse")
	require.NoError(t, err)
	assert.Equal(t, "pulse", slug)

	var adminID string
	require.NoError(t, a.db.QueryRow("SELECT id FROM user WHERE username = 'admin'").Scan(&adminID))
	for _, s := range []string{"pulse", "pulse-1"} {
		_, err := a.db.Exec(`
			INSERT INTO survey (id, slug, title, config, created_by, created_at, updated_at)
			VALUES (?, ?, 'Pulse', '{}', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			s, s, adminID,
		)
		require.NoError(t, err)
	}

	slug, err = uniqueSlug(ctx, a.db, "pulse")
	require.NoError(t, err)
	assert.Equal(t, "pulse-2", slug)
}
