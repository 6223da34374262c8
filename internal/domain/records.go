package domain

// UserRecord is a chat member known to the bot. IDs are the string form
// of the Telegram numeric ID, matching the persisted JSON layout.
type UserRecord struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Birthday  string `json:"birthday,omitempty"` // DD.MM, no year
	OptIn     bool   `json:"optin,omitempty"`
}

// DisplayName returns the best available human-readable name
func (u *UserRecord) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.ID
}

// HasBirthday returns true if a birthday is recorded
func (u *UserRecord) HasBirthday() bool {
	return u.Birthday != ""
}

// GroupRecord is a group chat where gift mode may be enabled.
// Telegram group IDs are negative, the string form keeps the sign.
type GroupRecord struct {
	ID           string `json:"id"`
	GiftsEnabled bool   `json:"giftsEnabled"`
	GiftLink     string `json:"gift_link,omitempty"`
}

// Snapshot is a full read of the store. It is transient: built per
// request or per scheduler tick, never cached across invocations.
type Snapshot struct {
	Users  map[string]*UserRecord  `json:"users"`
	Groups map[string]*GroupRecord `json:"groups"`
}

// NewSnapshot returns an empty snapshot with initialized maps
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Users:  make(map[string]*UserRecord),
		Groups: make(map[string]*GroupRecord),
	}
}

// GiftLink returns the link of the first group that has one set
func (s *Snapshot) GiftLink() string {
	for _, g := range s.Groups {
		if g.GiftLink != "" {
			return g.GiftLink
		}
	}
	return ""
}
