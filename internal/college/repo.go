package college

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("college not found")

type Store interface {
	List(ctx context.Context) ([]College, error) // ordered by name, branch
	Get(ctx context.Context, id int64) (College, error)
	Search(ctx context.Context, f Filter) ([]College, error)
	Create(ctx context.Context, c College) (int64, error)
	Update(ctx context.Context, c College) error
	Delete(ctx context.Context, id int64) error
	AppendImage(ctx context.Context, id int64, url string) (College, error)
	Count(ctx context.Context) (int, error)
}

type memoryStore struct {
	mu       sync.RWMutex
	seq      int64
	colleges map[int64]College
}

func NewInMemoryStore() Store {
	return &memoryStore{colleges: map[int64]College{}}
}

func (m *memoryStore) List(_ context.Context) ([]College, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.snapshot()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CollegeName != out[j].CollegeName {
			return out[i].CollegeName < out[j].CollegeName
		}
		if out[i].Branch != out[j].Branch {
			return out[i].Branch < out[j].Branch
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) Get(_ context.Context, id int64) (College, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.colleges[id]
	if !ok {
		return College{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryStore) Search(_ context.Context, f Filter) ([]College, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Eligible(m.snapshot(), f), nil
}

func (m *memoryStore) Create(_ context.Context, c College) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c.ID = m.seq
	if c.ImageURLs == "" {
		c.ImageURLs = "[]"
	}
	m.colleges[c.ID] = c
	return c.ID, nil
}

func (m *memoryStore) Update(_ context.Context, c College) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.colleges[c.ID]; !ok {
		return ErrNotFound
	}
	m.colleges[c.ID] = c
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.colleges[id]; !ok {
		return ErrNotFound
	}
	delete(m.colleges, id)
	return nil
}

func (m *memoryStore) AppendImage(_ context.Context, id int64, url string) (College, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.colleges[id]
	if !ok {
		return College{}, ErrNotFound
	}
	c.ImageURLs = appendImage(c.ImageURLs, url)
	m.colleges[id] = c
	return c, nil
}

func (m *memoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.colleges), nil
}

func (m *memoryStore) snapshot() []College {
	out := make([]College, 0, len(m.colleges))
	for _, c := range m.colleges {
		out = append(out, c)
	}
	return out
}

// appendImage adds url to the stored list, dropping the stock placeholder
// that Images substitutes for an empty list.
func appendImage(stored, url string) string {
	cur := College{ImageURLs: stored}.Images()
	if len(cur) == 1 && cur[0] == StockImage {
		cur = nil
	}
	return EncodeImages(append(cur, url))
}
