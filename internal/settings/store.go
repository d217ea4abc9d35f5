package settings

import (
	"context"
	"errors"
	"strings"

	"recraftgen/internal/infra"
	"recraftgen/internal/sqlinline"
)

var ErrUserRequired = errors.New("settings: user id is required")

// Store persists per-user settings in the user_settings table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Lookup loads the stored settings of userID. The boolean is false when the
// user has no row.
func (s *Store) Lookup(ctx context.Context, userID string) (Settings, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Settings{}, false, ErrUserRequired
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectUserSettings, userID)
	var out Settings
	if err := row.Scan(&out.APIKey, &out.ImageSize, &out.Style, &out.Colors); err != nil {
		if infra.IsNoRows(err) {
			return Settings{}, false, nil
		}
		return Settings{}, false, err
	}
	out.APIKey = strings.TrimSpace(out.APIKey)
	return out, true, nil
}

// Save upserts the non-blank fields of st for userID. Blank fields keep their
// stored value.
func (s *Store) Save(ctx context.Context, userID string, st Settings) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserRequired
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertUserSettings,
		userID,
		strings.TrimSpace(st.APIKey),
		strings.TrimSpace(st.ImageSize),
		strings.TrimSpace(st.Style),
		strings.TrimSpace(st.Colors),
	)
	return err
}
