package usecases

import (
	"sync"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// Selection keeps the labels of the entities selected on the map.
type Selection struct {
	mu        sync.RWMutex
	names     []string
	listeners []func([]string)
}

// NewSelection creates an empty Selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Selected replaces the selection. It implements ports.SelectionHandler.
func (s *Selection) Selected(entities []domain.GeoEntity) {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Label())
	}

	s.mu.Lock()
	s.names = names
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, append([]string(nil), names...))
}

// Names returns the selected labels in selection order.
func (s *Selection) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.names...)
}

// Subscribe registers fn to receive the labels after every change.
func (s *Selection) Subscribe(fn func([]string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
