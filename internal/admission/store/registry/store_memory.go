package registry

import (
	"context"
	"maps"
	"slices"
	"sync"

	"relaygate/internal/admission/models"
	"relaygate/pkg/platform/sentinel"
)

// InMemoryStore is a process-local account registry.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]string
}

// NewMemory constructs an empty registry.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]map[string]string)}
}

func (s *InMemoryStore) Get(_ context.Context, key models.AccountKey) (*models.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.records[key.RegistryKey()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &models.AccountRecord{Type: key.Type, ID: key.ID, Fields: maps.Clone(fields)}, nil
}

func (s *InMemoryStore) Find(ctx context.Context, accountID string) (*models.AccountRecord, error) {
	for _, accountType := range models.AllAccountTypes() {
		if record, err := s.Get(ctx, models.AccountKey{Type: accountType, ID: accountID}); err == nil {
			return record, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Save(_ context.Context, record *models.AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.AccountKey{Type: record.Type, ID: record.ID}
	existing, ok := s.records[key.RegistryKey()]
	if !ok {
		existing = make(map[string]string, len(record.Fields))
		s.records[key.RegistryKey()] = existing
	}
	maps.Copy(existing, record.Fields)
	return nil
}

func (s *InMemoryStore) UpdateFields(_ context.Context, key models.AccountKey, fields map[string]*string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[key.RegistryKey()]
	if !ok {
		return sentinel.ErrNotFound
	}
	applyFields(current, fields)
	return nil
}

func (s *InMemoryStore) CompareAndUpdate(_ context.Context, key models.AccountKey, expected map[string]string, fields map[string]*string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[key.RegistryKey()]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	for field, want := range expected {
		if current[field] != want {
			return false, nil
		}
	}
	applyFields(current, fields)
	return true, nil
}

func (s *InMemoryStore) ListAccountIDs(_ context.Context, accountType models.AccountType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := accountType.Prefix()
	var ids []string
	for k := range s.records {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			ids = append(ids, k[len(prefix):])
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func applyFields(current map[string]string, fields map[string]*string) {
	for name, v := range fields {
		if v == nil {
			delete(current, name)
			continue
		}
		current[name] = *v
	}
}
