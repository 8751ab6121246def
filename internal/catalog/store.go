package catalog

import "sync"

type episodeRef struct {
	entryID int64
	index   int
}

// Store is a bounded, concurrency-safe catalog.
type Store struct {
	mu       sync.RWMutex
	max      int
	order    []int64
	entries  map[int64]*Entry
	episodes map[int64]episodeRef
}

// NewStore returns a catalog holding at most max entries. max <= 0 means
// unbounded.
func NewStore(max int) *Store {
	return &Store{
		max:      max,
		entries:  make(map[int64]*Entry),
		episodes: make(map[int64]episodeRef),
	}
}

// AssignEpisodeIDs fills missing EpisodeIDs from the episode locators.
func AssignEpisodeIDs(entry *Entry) {
	for i := range entry.Episodes {
		if entry.Episodes[i].EpisodeID == 0 {
			entry.Episodes[i].EpisodeID = EpisodeID(entry.Episodes[i].Locator)
		}
	}
}

// Put stores copies of entries, replacing any with the same id, and evicts
// the oldest entries beyond the bound. It returns the stored copies with
// episode ids assigned.
func (s *Store) Put(entries ...*Entry) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		clone := entry.Clone()
		AssignEpisodeIDs(clone)
		if _, exists := s.entries[clone.ID]; exists {
			s.removeLocked(clone.ID)
		}
		s.entries[clone.ID] = clone
		s.order = append(s.order, clone.ID)
		for i, link := range clone.Episodes {
			s.episodes[link.EpisodeID] = episodeRef{entryID: clone.ID, index: i}
		}
		stored = append(stored, clone.Clone())
	}
	for s.max > 0 && len(s.order) > s.max {
		s.removeLocked(s.order[0])
	}
	return stored
}

func (s *Store) removeLocked(id int64) {
	entry, ok := s.entries[id]
	if !ok {
		return
	}
	for _, link := range entry.Episodes {
		if ref, ok := s.episodes[link.EpisodeID]; ok && ref.entryID == id {
			delete(s.episodes, link.EpisodeID)
		}
	}
	delete(s.entries, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Lookup returns a copy of the entry with id.
func (s *Store) Lookup(id int64) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Episode resolves an episode handle to its link and owning entry.
func (s *Store) Episode(episodeID int64) (EpisodeLink, *Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.episodes[episodeID]
	if !ok {
		return EpisodeLink{}, nil, false
	}
	entry, ok := s.entries[ref.entryID]
	if !ok || ref.index >= len(entry.Episodes) {
		return EpisodeLink{}, nil, false
	}
	return entry.Episodes[ref.index], entry.Clone(), true
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.entries = make(map[int64]*Entry)
	s.episodes = make(map[int64]episodeRef)
}
