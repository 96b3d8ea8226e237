package storage

import (
	"sync"
)

// KV is a string-keyed store of string values.
type KV interface {
	// Get returns the value under key and whether it exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// UpdateFunc computes the next value from the current one. Returning an
// error aborts the update and leaves the stored value untouched.
type UpdateFunc func(current string, found bool) (string, error)

// Updater is implemented by stores that can run a read-modify-write on a
// single key without losing concurrent writes.
type Updater interface {
	Update(key string, fn UpdateFunc) error
}

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryKV) Update(key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, found := m.values[key]
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	m.values[key] = next
	return nil
}

// Namespace prefixes every key of kv. The result is an Updater whenever kv
// is one.
func Namespace(kv KV, prefix string) KV {
	ns := namespaced{kv: kv, prefix: prefix}
	if u, ok := kv.(Updater); ok {
		return &namespacedUpdater{namespaced: ns, u: u}
	}
	return &ns
}

type namespaced struct {
	kv     KV
	prefix string
}

func (n *namespaced) Get(key string) (string, bool, error) {
	return n.kv.Get(n.prefix + key)
}

func (n *namespaced) Set(key, value string) error {
	return n.kv.Set(n.prefix+key, value)
}

func (n *namespaced) Delete(key string) error {
	return n.kv.Delete(n.prefix + key)
}

type namespacedUpdater struct {
	namespaced
	u Updater
}

func (n *namespacedUpdater) Update(key string, fn UpdateFunc) error {
	return n.u.Update(n.prefix+key, fn)
}
