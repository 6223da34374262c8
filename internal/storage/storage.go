// Package storage persists user and group records behind a single
// contract with two interchangeable backends: a flat JSON document
// file and Postgres. The backend is chosen once at startup.
package storage

import (
	"context"

	"github.com/tazhate/surprisebot/config"
	"github.com/tazhate/surprisebot/internal/domain"
)

// Store is the persistence contract shared by the command handlers and
// the scheduler. Reads never fail: on corrupt data or a lost connection
// they degrade to an empty snapshot, indistinguishable from "no data
// yet". Callers must tolerate empty results.
type Store interface {
	// ReadAll returns a full snapshot of users and groups
	ReadAll(ctx context.Context) *domain.Snapshot

	// UpsertUser creates the user if absent and merges display metadata,
	// last write wins per field
	UpsertUser(ctx context.Context, user *domain.UserRecord) error

	// SetBirthday stores a validated DD.MM string for the user
	SetBirthday(ctx context.Context, id, ddmm string) error

	// SetOptin stores the private-message permission flag, refreshing
	// display metadata when meta is non-nil
	SetOptin(ctx context.Context, id string, optin bool, meta *domain.UserRecord) error

	// EnableGifts turns on day-of congratulations for the group
	EnableGifts(ctx context.Context, groupID string) error

	// SetGiftLink stores the pooled-gift URL and enables gift mode
	SetGiftLink(ctx context.Context, groupID, url string) error

	// UsersWithBirthday returns every user with a recorded birthday, any order
	UsersWithBirthday(ctx context.Context) []*domain.UserRecord

	// GiftEnabledGroups returns every group with gift mode on, any order
	GiftEnabledGroups(ctx context.Context) []*domain.GroupRecord

	Close() error
}

// New selects the backend from config: Postgres when USE_POSTGRES is
// set, the JSON document file otherwise.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UsePostgres {
		return NewPostgres(ctx, cfg.DatabaseURL)
	}
	return NewFileStore(cfg.DataFile)
}
