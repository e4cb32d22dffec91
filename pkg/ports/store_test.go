package ports_test

import (
	"context"
	"sort"
	"testing"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/ports"
)

// mapStore is a minimal WritableSourceStore used to exercise the contract itself.
type mapStore struct {
	data map[string][]byte
}

func (m *mapStore) Get(_ context.Context, name string) ([]byte, error) {
	src, ok := m.data[name]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	return src, nil
}

func (m *mapStore) List(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(m.data))
	for k := range m.data {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func (m *mapStore) Put(_ context.Context, name string, source []byte) error {
	m.data[name] = append([]byte(nil), source...)
	return nil
}

func (m *mapStore) Delete(_ context.Context, name string) error {
	delete(m.data, name)
	return nil
}

func TestSourceStoreContract(t *testing.T) {
	ports.RunSourceStoreContract(t, &mapStore{data: make(map[string][]byte)})
}
