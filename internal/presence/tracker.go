package presence

import (
	"sync"
	"time"
)

// Status is a user's presence state
type Status string

const (
	Online  Status = "ONLINE"
	Away    Status = "AWAY"
	Busy    Status = "BUSY"
	Offline Status = "OFFLINE"
)

const (
	// typingFreshWindow is how recent a typing timestamp must be for the
	// user to count as typing
	typingFreshWindow = 5 * time.Second
	// typingPurgeAfter is when the cleanup pass drops stale entries
	typingPurgeAfter = 10 * time.Second
)

// UserPresence is a snapshot of one user's presence
type UserPresence struct {
	UserID        string    `json:"user_id"`
	Status        Status    `json:"status"`
	StatusMessage string    `json:"status_message,omitempty"`
	LastSeen      time.Time `json:"last_seen"`
}

type userState struct {
	mu            sync.Mutex
	status        Status
	statusMessage string
	lastSeen      time.Time
}

type typingKey struct {
	channelID int64
	userID    string
}

// Tracker holds process-local presence, heartbeat, and typing state.
// Everything here is ephemeral: nothing survives a restart. The maps are
// sync.Maps because heartbeats and keystrokes are high-frequency writes
// across many users with little key contention.
type Tracker struct {
	states     sync.Map // userID -> *userState
	heartbeats sync.Map // userID -> time.Time
	typing     sync.Map // typingKey -> time.Time

	now func() time.Time
}

// NewTracker creates a presence tracker
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

func (t *Tracker) state(userID string) *userState {
	if s, ok := t.states.Load(userID); ok {
		return s.(*userState)
	}
	s, _ := t.states.LoadOrStore(userID, &userState{status: Offline})
	return s.(*userState)
}

// SetStatus applies an explicit status change
func (t *Tracker) SetStatus(userID string, status Status, statusMessage string) UserPresence {
	s := t.state(userID)
	s.mu.Lock()
	s.status = status
	s.statusMessage = statusMessage
	s.lastSeen = t.now()
	snapshot := t.snapshotLocked(userID, s)
	s.mu.Unlock()
	return snapshot
}

// Heartbeat refreshes the user's last-seen timestamp. A heartbeat from an
// OFFLINE user brings them ONLINE.
func (t *Tracker) Heartbeat(userID string) {
	now := t.now()
	t.heartbeats.Store(userID, now)

	s := t.state(userID)
	s.mu.Lock()
	s.lastSeen = now
	if s.status == Offline {
		s.status = Online
	}
	s.mu.Unlock()
}

// Connected marks a user ONLINE on their first live connection
func (t *Tracker) Connected(userID string) {
	now := t.now()
	t.heartbeats.Store(userID, now)

	s := t.state(userID)
	s.mu.Lock()
	s.status = Online
	s.lastSeen = now
	s.mu.Unlock()
}

// Disconnected records a connection teardown. Status only drops to
// OFFLINE when the user has no remaining live sessions.
func (t *Tracker) Disconnected(userID string, hasOtherSessions bool) {
	if hasOtherSessions {
		return
	}
	s := t.state(userID)
	s.mu.Lock()
	s.status = Offline
	s.lastSeen = t.now()
	s.mu.Unlock()
}

// Status returns a snapshot of one user's presence
func (t *Tracker) Status(userID string) UserPresence {
	s := t.state(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.snapshotLocked(userID, s)
}

func (t *Tracker) snapshotLocked(userID string, s *userState) UserPresence {
	return UserPresence{
		UserID:        userID,
		Status:        s.status,
		StatusMessage: s.statusMessage,
		LastSeen:      s.lastSeen,
	}
}

// CheckInactive demotes users whose last heartbeat is older than the
// timeout, ONLINE to AWAY only. AWAY, BUSY, and OFFLINE users are left
// untouched; the demotion is not transitive. Returns the demoted ids.
func (t *Tracker) CheckInactive(timeout time.Duration) []string {
	cutoff := t.now().Add(-timeout)
	var demoted []string

	t.heartbeats.Range(func(key, value interface{}) bool {
		userID := key.(string)
		last := value.(time.Time)
		if last.After(cutoff) {
			return true
		}

		s := t.state(userID)
		s.mu.Lock()
		if s.status == Online {
			s.status = Away
			demoted = append(demoted, userID)
		}
		s.mu.Unlock()
		return true
	})

	return demoted
}

// SetTyping stores or clears a typing timestamp for (channel, user)
func (t *Tracker) SetTyping(channelID int64, userID string, typing bool) {
	key := typingKey{channelID: channelID, userID: userID}
	if typing {
		t.typing.Store(key, t.now())
	} else {
		t.typing.Delete(key)
	}
}

// TypingUsers returns the users whose typing timestamp in the channel is
// within the freshness window
func (t *Tracker) TypingUsers(channelID int64) []string {
	cutoff := t.now().Add(-typingFreshWindow)
	var users []string

	t.typing.Range(func(key, value interface{}) bool {
		k := key.(typingKey)
		if k.channelID != channelID {
			return true
		}
		if value.(time.Time).After(cutoff) {
			users = append(users, k.userID)
		}
		return true
	})

	return users
}

// CleanupTyping purges typing entries past the purge window so the map
// stays bounded. Returns the number purged.
func (t *Tracker) CleanupTyping() int {
	cutoff := t.now().Add(-typingPurgeAfter)
	purged := 0

	t.typing.Range(func(key, value interface{}) bool {
		if value.(time.Time).Before(cutoff) {
			t.typing.Delete(key)
			purged++
		}
		return true
	})

	return purged
}

// OnlineUsers returns snapshots of every user currently ONLINE
func (t *Tracker) OnlineUsers() []UserPresence {
	var online []UserPresence
	t.states.Range(func(key, value interface{}) bool {
		s := value.(*userState)
		s.mu.Lock()
		if s.status == Online {
			online = append(online, t.snapshotLocked(key.(string), s))
		}
		s.mu.Unlock()
		return true
	})
	return online
}

// OnlineCount counts users currently ONLINE
func (t *Tracker) OnlineCount() int {
	count := 0
	t.states.Range(func(_, value interface{}) bool {
		s := value.(*userState)
		s.mu.Lock()
		if s.status == Online {
			count++
		}
		s.mu.Unlock()
		return true
	})
	return count
}
