package server

import (
	"sort"
	"strings"
	"sync"

	"github.com/richinex/apiagent/model"
)

// Store is the in-memory item table behind the demo service.
type Store struct {
	mu    sync.RWMutex
	items map[int]model.Item
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{items: make(map[int]model.Item)}
}

// Create stores a new item under the next id (highest existing id + 1).
func (s *Store) Create(in model.ItemInput) model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 1
	for id := range s.items {
		if id >= next {
			next = id + 1
		}
	}
	item := newItem(next, in)
	s.items[next] = item
	return item
}

// List returns items whose name contains query (case-insensitive), ordered
// by id and windowed by offset/limit.
func (s *Store) List(query string, limit, offset int) []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	items := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		if query == "" || strings.Contains(strings.ToLower(item.Name), query) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	if offset >= len(items) {
		return []model.Item{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Get returns the item with the given id.
func (s *Store) Get(id int) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	return item, ok
}

// Replace overwrites an existing item. It reports false when id is unknown.
func (s *Store) Replace(id int, in model.ItemInput) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return model.Item{}, false
	}
	item := newItem(id, in)
	s.items[id] = item
	return item, true
}

// Delete removes an item. It reports false when id is unknown.
func (s *Store) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

func newItem(id int, in model.ItemInput) model.Item {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return model.Item{ID: id, Name: in.Name, Price: in.Price, Tags: tags}
}
