package badger

// NewMemoryStore creates an in-memory vector store for testing.
// The caller must close the returned backend.
func NewMemoryStore() (*Store, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}
	return NewStore(backend), backend, nil
}

// NewMemoryCacheBackend creates an in-memory persistent cache backend for
// testing, scoped to the given namespace. The caller must close the
// returned backend.
func NewMemoryCacheBackend(namespace string) (*CacheBackend, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}
	return NewCacheBackend(backend, namespace), backend, nil
}
