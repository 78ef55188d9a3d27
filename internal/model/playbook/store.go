package playbook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store exposes playbook retrieval for services and HTTP handlers.
type Store interface {
	List() []Playbook
	FindByID(id string) (Playbook, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Playbook
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied playbooks.
// Later entries replace earlier ones that share an id.
func NewMemoryStore(items []Playbook) *MemoryStore {
	s := &MemoryStore{}
	for _, item := range items {
		s.put(item)
	}
	return s
}

func (s *MemoryStore) put(item Playbook) {
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i] = item
			return
		}
	}
	s.items = append(s.items, item)
}

// List returns the registered playbooks in registration order.
func (s *MemoryStore) List() []Playbook {
	return append([]Playbook(nil), s.items...)
}

// FindByID looks up a playbook by identifier.
func (s *MemoryStore) FindByID(id string) (Playbook, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Playbook{}, false
}

type fileFormat struct {
	Playbooks []Playbook `yaml:"playbooks"`
}

// LoadFile reads playbooks from a YAML document of the form `playbooks: [...]`.
func LoadFile(path string) ([]Playbook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML playbook document.
func Parse(raw []byte) ([]Playbook, error) {
	var doc fileFormat
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode playbook file: %w", err)
	}
	for _, p := range doc.Playbooks {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Playbooks, nil
}
