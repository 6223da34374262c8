package storage

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazhate/surprisebot/internal/domain"
)

// PostgresStore keeps users and chats in two tables reached through a
// pgx connection pool. Mutations are single upserts; the read side
// degrades to an empty snapshot on any query failure.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			birthday TEXT,
			optin BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS chats (
			chat_id BIGINT PRIMARY KEY,
			gifts_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			gift_link TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_birthday ON users(birthday) WHERE birthday IS NOT NULL`,
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ReadAll(ctx context.Context) *domain.Snapshot {
	snap := domain.NewSnapshot()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, username, first_name, last_name, birthday, optin FROM users`)
	if err != nil {
		log.Printf("Read users failed, using empty snapshot: %v", err)
		return domain.NewSnapshot()
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			log.Printf("Scan user failed, using empty snapshot: %v", err)
			return domain.NewSnapshot()
		}
		snap.Users[u.ID] = u
	}

	grows, err := s.pool.Query(ctx,
		`SELECT chat_id, gifts_enabled, gift_link FROM chats`)
	if err != nil {
		log.Printf("Read chats failed, using empty snapshot: %v", err)
		return domain.NewSnapshot()
	}
	defer grows.Close()

	for grows.Next() {
		var (
			id      int64
			enabled bool
			link    *string
		)
		if err := grows.Scan(&id, &enabled, &link); err != nil {
			log.Printf("Scan chat failed, using empty snapshot: %v", err)
			return domain.NewSnapshot()
		}
		g := &domain.GroupRecord{
			ID:           strconv.FormatInt(id, 10),
			GiftsEnabled: enabled,
		}
		if link != nil {
			g.GiftLink = *link
		}
		snap.Groups[g.ID] = g
	}

	return snap
}

func (s *PostgresStore) UpsertUser(ctx context.Context, user *domain.UserRecord) error {
	id, err := parseID(user.ID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name
	`, id, nullable(user.Username), nullable(user.FirstName), nullable(user.LastName))
	return err
}

func (s *PostgresStore) SetBirthday(ctx context.Context, idStr, ddmm string) error {
	id, err := parseID(idStr)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (user_id, birthday)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET birthday = EXCLUDED.birthday
	`, id, ddmm)
	return err
}

func (s *PostgresStore) SetOptin(ctx context.Context, idStr string, optin bool, meta *domain.UserRecord) error {
	id, err := parseID(idStr)
	if err != nil {
		return err
	}
	var username, firstName, lastName *string
	if meta != nil {
		username = nullable(meta.Username)
		firstName = nullable(meta.FirstName)
		lastName = nullable(meta.LastName)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (user_id, optin, username, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET optin = EXCLUDED.optin,
			username = COALESCE(EXCLUDED.username, users.username),
			first_name = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name = COALESCE(EXCLUDED.last_name, users.last_name)
	`, id, optin, username, firstName, lastName)
	return err
}

func (s *PostgresStore) EnableGifts(ctx context.Context, groupID string) error {
	id, err := parseID(groupID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chats (chat_id, gifts_enabled)
		VALUES ($1, TRUE)
		ON CONFLICT (chat_id) DO UPDATE SET gifts_enabled = TRUE
	`, id)
	return err
}

func (s *PostgresStore) SetGiftLink(ctx context.Context, groupID, url string) error {
	id, err := parseID(groupID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chats (chat_id, gifts_enabled, gift_link)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (chat_id) DO UPDATE SET gifts_enabled = TRUE, gift_link = EXCLUDED.gift_link
	`, id, url)
	return err
}

func (s *PostgresStore) UsersWithBirthday(ctx context.Context) []*domain.UserRecord {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, username, first_name, last_name, birthday, optin
		FROM users WHERE birthday IS NOT NULL
	`)
	if err != nil {
		log.Printf("Read birthday users failed, using empty result: %v", err)
		return nil
	}
	defer rows.Close()

	var users []*domain.UserRecord
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			log.Printf("Scan birthday user failed, using empty result: %v", err)
			return nil
		}
		users = append(users, u)
	}
	return users
}

func (s *PostgresStore) GiftEnabledGroups(ctx context.Context) []*domain.GroupRecord {
	rows, err := s.pool.Query(ctx, `
		SELECT chat_id, gifts_enabled, gift_link FROM chats WHERE gifts_enabled = TRUE
	`)
	if err != nil {
		log.Printf("Read gift chats failed, using empty result: %v", err)
		return nil
	}
	defer rows.Close()

	var groups []*domain.GroupRecord
	for rows.Next() {
		var (
			id      int64
			enabled bool
			link    *string
		)
		if err := rows.Scan(&id, &enabled, &link); err != nil {
			log.Printf("Scan gift chat failed, using empty result: %v", err)
			return nil
		}
		g := &domain.GroupRecord{
			ID:           strconv.FormatInt(id, 10),
			GiftsEnabled: enabled,
		}
		if link != nil {
			g.GiftLink = *link
		}
		groups = append(groups, g)
	}
	return groups
}

func scanUser(scan func(dest ...any) error) (*domain.UserRecord, error) {
	var (
		id                            int64
		username, firstName, lastName *string
		birthday                      *string
		optin                         bool
	)
	if err := scan(&id, &username, &firstName, &lastName, &birthday, &optin); err != nil {
		return nil, err
	}

	u := &domain.UserRecord{
		ID:    strconv.FormatInt(id, 10),
		OptIn: optin,
	}
	if username != nil {
		u.Username = *username
	}
	if firstName != nil {
		u.FirstName = *firstName
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	if birthday != nil {
		u.Birthday = *birthday
	}
	return u, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad record id %q: %w", s, err)
	}
	return id, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
