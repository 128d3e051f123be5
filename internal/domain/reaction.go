package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ReactionSet maps an emoji to the set of user ids who reacted with it.
// An emoji key with no users is removed from the map entirely. Reads
// work on the nil zero value; Add and Toggle need a non-nil map, so
// writers start from ReactionSet{}.
//
// Storage: serialized as canonical JSON at the gorm boundary. A legacy
// serialized form (semicolon-delimited "emoji:userId" pairs) is still
// readable; it is converted on Scan and every save writes canonical JSON,
// so the legacy writer path is never re-entered.
type ReactionSet map[string][]string

// Add records a reaction. Repeated identical calls are idempotent.
// Returns true if the set changed.
func (r ReactionSet) Add(emoji, userID string) bool {
	for _, id := range r[emoji] {
		if id == userID {
			return false
		}
	}
	r[emoji] = append(r[emoji], userID)
	return true
}

// Remove withdraws a reaction. Removing an absent reaction is a no-op.
// Returns true if the set changed.
func (r ReactionSet) Remove(emoji, userID string) bool {
	users, ok := r[emoji]
	if !ok {
		return false
	}
	for i, id := range users {
		if id == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(r, emoji)
			} else {
				r[emoji] = users
			}
			return true
		}
	}
	return false
}

// Toggle adds the reaction if absent, removes it if present. Applying it
// twice restores the original state.
func (r ReactionSet) Toggle(emoji, userID string) (added bool) {
	if r.Has(emoji, userID) {
		r.Remove(emoji, userID)
		return false
	}
	r.Add(emoji, userID)
	return true
}

// Has reports whether userID reacted with emoji
func (r ReactionSet) Has(emoji, userID string) bool {
	for _, id := range r[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// Count returns the total number of reactions across all emoji
func (r ReactionSet) Count() int {
	n := 0
	for _, users := range r {
		n += len(users)
	}
	return n
}

// Emojis returns the emoji keys in stable order
func (r ReactionSet) Emojis() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value serializes the canonical JSON form for storage
func (r ReactionSet) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(map[string][]string(r))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan reads either the canonical JSON form or the legacy semicolon form
func (r *ReactionSet) Scan(value interface{}) error {
	if value == nil {
		*r = ReactionSet{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into ReactionSet", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		*r = ReactionSet{}
		return nil
	}

	if strings.HasPrefix(raw, "{") {
		var m map[string][]string
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return err
		}
		*r = normalizeReactions(m)
		return nil
	}

	*r = parseLegacyReactions(raw)
	return nil
}

// parseLegacyReactions converts the old "emoji:userId;emoji:userId" text
// format. Malformed pairs are dropped.
func parseLegacyReactions(raw string) ReactionSet {
	set := ReactionSet{}
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.LastIndex(pair, ":")
		if idx <= 0 || idx == len(pair)-1 {
			continue
		}
		emoji := strings.TrimSpace(pair[:idx])
		userID := strings.TrimSpace(pair[idx+1:])
		if emoji == "" || userID == "" {
			continue
		}
		set.Add(emoji, userID)
	}
	return set
}

// normalizeReactions drops empty user lists so the invariant holds even
// for rows written by older code
func normalizeReactions(m map[string][]string) ReactionSet {
	set := ReactionSet{}
	for emoji, users := range m {
		for _, u := range users {
			set.Add(emoji, u)
		}
	}
	return set
}
