// Package directory implements the in-memory room directory consulted by the
// front-end: listing, creating, renaming, and deleting room metadata. The
// coordination core never validates room identifiers against it; any string
// remains a joinable room.
package directory

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Validation limits for room metadata.
const (
	MaxNameLength        = 50
	MaxDescriptionLength = 200
	maxSlugLength        = 30
)

var (
	// ErrNotFound is returned when no room has the given identifier.
	ErrNotFound = errors.New("room not found")
	// ErrExists is returned when creating a room whose slug is taken.
	ErrExists = errors.New("a room with this name already exists")
	// ErrProtected is returned when deleting one of the seeded default rooms.
	ErrProtected = errors.New("cannot delete default rooms")
	// ErrInvalid is returned for metadata violating the limits above.
	ErrInvalid = errors.New("invalid room metadata")
)

// Room is directory metadata about a chat room, not its live state.
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int64     `json:"messageCount"`
}

// Stats is the live view attached to a room on request.
type Stats struct {
	TotalMessages int64     `json:"totalMessages"`
	ActiveUsers   int       `json:"activeUsers"`
	LastActivity  time.Time `json:"lastActivity"`
}

// Presence reports live occupancy for a room; the hub implements it.
type Presence interface {
	Occupancy(room string) int
}

// Store holds the directory. Message counts and last-activity timestamps are
// fed by the hub's relay hook, so stats reflect real coordination state.
type Store struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	protected    map[string]struct{}
	lastActivity map[string]time.Time
	presence     Presence
}

// NewStore creates a directory seeded with the default rooms.
func NewStore(presence Presence) *Store {
	s := &Store{
		rooms:        make(map[string]*Room),
		protected:    make(map[string]struct{}),
		lastActivity: make(map[string]time.Time),
		presence:     presence,
	}
	for _, r := range defaultRooms() {
		room := r
		s.rooms[room.ID] = &room
		s.protected[room.ID] = struct{}{}
	}
	return s
}

func defaultRooms() []Room {
	return []Room{
		{ID: "general", Name: "General Discussion", Description: "A place for general conversation and getting to know each other", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "tech", Name: "Tech Talk", Description: "Discuss the latest in technology, programming, and innovation", CreatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{ID: "gaming", Name: "Gaming Zone", Description: "Share your gaming experiences, tips, and find gaming partners", CreatedAt: time.Date(2024, 2, 1, 14, 20, 0, 0, time.UTC)},
		{ID: "music", Name: "Music Lounge", Description: "Discover new music, share your favorites, and discuss artists", CreatedAt: time.Date(2024, 2, 14, 9, 15, 0, 0, time.UTC)},
		{ID: "books", Name: "Book Club", Description: "Discuss books, share recommendations, and join reading challenges", CreatedAt: time.Date(2024, 3, 1, 16, 45, 0, 0, time.UTC)},
		{ID: "fitness", Name: "Fitness & Health", Description: "Share workout tips, healthy recipes, and motivate each other", CreatedAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)},
	}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9\s]`)
var slugSpaces = regexp.MustCompile(`\s+`)

// Slugify derives a room identifier from its display name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return slug
}

// List returns rooms ordered by the given sort key ("name", "messages", or
// "created"); limit <= 0 means no limit.
func (s *Store) List(sortKey string, limit int) []Room {
	s.mu.RLock()
	rooms := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, *r)
	}
	s.mu.RUnlock()

	switch sortKey {
	case "messages":
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].MessageCount > rooms[j].MessageCount })
	case "created":
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	default:
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	}

	if limit > 0 && limit < len(rooms) {
		rooms = rooms[:limit]
	}
	return rooms
}

// Create validates metadata and adds a room with a slug derived from its name.
func (s *Store) Create(name, description string) (Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return Room{}, ErrInvalid
	}
	description = strings.TrimSpace(description)
	if len(description) > MaxDescriptionLength {
		return Room{}, ErrInvalid
	}

	id := Slugify(name)
	if id == "" {
		return Room{}, ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[id]; exists {
		return Room{}, ErrExists
	}
	room := &Room{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	s.rooms[id] = room
	return *room, nil
}

// Get returns a room by identifier.
func (s *Store) Get(id string) (Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return *r, nil
}

// GetStats returns a room together with its live stats.
func (s *Store) GetStats(id string) (Room, Stats, error) {
	s.mu.RLock()
	r, ok := s.rooms[id]
	if !ok {
		s.mu.RUnlock()
		return Room{}, Stats{}, ErrNotFound
	}
	room := *r
	last := s.lastActivity[id]
	s.mu.RUnlock()

	stats := Stats{
		TotalMessages: room.MessageCount,
		LastActivity:  last,
	}
	if s.presence != nil {
		stats.ActiveUsers = s.presence.Occupancy(id)
	}
	return room, stats, nil
}

// Update renames a room and/or replaces its description. Nil pointers leave
// the corresponding field untouched.
func (s *Store) Update(id string, name, description *string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || len(trimmed) > MaxNameLength {
			return Room{}, ErrInvalid
		}
		r.Name = trimmed
	}
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if len(trimmed) > MaxDescriptionLength {
			return Room{}, ErrInvalid
		}
		r.Description = trimmed
	}
	return *r, nil
}

// Delete removes a room; seeded default rooms are protected.
func (s *Store) Delete(id string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	if _, protected := s.protected[id]; protected {
		return Room{}, ErrProtected
	}
	delete(s.rooms, id)
	delete(s.lastActivity, id)
	return *r, nil
}

// RecordMessage bumps the room's relay counter and activity timestamp.
// Traffic in rooms the directory never heard of is ignored; the core accepts
// any room string, so the directory follows rather than gates.
func (s *Store) RecordMessage(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return
	}
	r.MessageCount++
	s.lastActivity[id] = at
}
