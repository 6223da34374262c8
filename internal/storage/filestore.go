package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/tazhate/surprisebot/internal/domain"
)

// FileStore keeps the whole database in one pretty-printed JSON file:
// { "users": { "<id>": {...} }, "groups": { "<id>": {...} } }.
// Every mutation is a read-modify-write of the entire document. The
// mutex only guards against in-process races; concurrent processes
// still risk lost updates, which is acceptable at this traffic.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &FileStore{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write(domain.NewSnapshot()); err != nil {
			return nil, fmt.Errorf("seed data file: %w", err)
		}
	}

	return s, nil
}

func (s *FileStore) Close() error { return nil }

// read parses the document, degrading to an empty snapshot on any error
func (s *FileStore) read() *domain.Snapshot {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return domain.NewSnapshot()
	}

	snap := domain.NewSnapshot()
	if err := json.Unmarshal(raw, snap); err != nil {
		log.Printf("Corrupt data file %s, starting empty: %v", s.path, err)
		return domain.NewSnapshot()
	}
	if snap.Users == nil {
		snap.Users = make(map[string]*domain.UserRecord)
	}
	if snap.Groups == nil {
		snap.Groups = make(map[string]*domain.GroupRecord)
	}
	return snap
}

func (s *FileStore) write(snap *domain.Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

func (s *FileStore) ReadAll(ctx context.Context) *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) UpsertUser(ctx context.Context, user *domain.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.read()
	rec, ok := snap.Users[user.ID]
	if !ok {
		rec = &domain.UserRecord{ID: user.ID}
		snap.Users[user.ID] = rec
	}
	mergeMeta(rec, user)
	return s.write(snap)
}

func (s *FileStore) SetBirthday(ctx context.Context, id, ddmm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.read()
	rec, ok := snap.Users[id]
	if !ok {
		rec = &domain.UserRecord{ID: id}
		snap.Users[id] = rec
	}
	rec.Birthday = ddmm
	return s.write(snap)
}

func (s *FileStore) SetOptin(ctx context.Context, id string, optin bool, meta *domain.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.read()
	rec, ok := snap.Users[id]
	if !ok {
		rec = &domain.UserRecord{ID: id}
		snap.Users[id] = rec
	}
	rec.OptIn = optin
	if meta != nil {
		mergeMeta(rec, meta)
	}
	return s.write(snap)
}

func (s *FileStore) EnableGifts(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.read()
	grp, ok := snap.Groups[groupID]
	if !ok {
		grp = &domain.GroupRecord{ID: groupID}
		snap.Groups[groupID] = grp
	}
	grp.GiftsEnabled = true
	return s.write(snap)
}

func (s *FileStore) SetGiftLink(ctx context.Context, groupID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.read()
	grp, ok := snap.Groups[groupID]
	if !ok {
		grp = &domain.GroupRecord{ID: groupID}
		snap.Groups[groupID] = grp
	}
	grp.GiftLink = url
	grp.GiftsEnabled = true
	return s.write(snap)
}

func (s *FileStore) UsersWithBirthday(ctx context.Context) []*domain.UserRecord {
	snap := s.ReadAll(ctx)

	var users []*domain.UserRecord
	for _, u := range snap.Users {
		if u.HasBirthday() {
			users = append(users, u)
		}
	}
	return users
}

func (s *FileStore) GiftEnabledGroups(ctx context.Context) []*domain.GroupRecord {
	snap := s.ReadAll(ctx)

	var groups []*domain.GroupRecord
	for _, g := range snap.Groups {
		if g.GiftsEnabled {
			groups = append(groups, g)
		}
	}
	return groups
}

// mergeMeta applies non-empty display fields, last write wins per field
func mergeMeta(dst, src *domain.UserRecord) {
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.FirstName != "" {
		dst.FirstName = src.FirstName
	}
	if src.LastName != "" {
		dst.LastName = src.LastName
	}
}
