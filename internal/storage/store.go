package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentkube/mockcluster/internal/api"
)

// Store holds the authoritative in-memory state for one resource kind.
//
// Resources are kept as marshaled JSON bytes keyed by "namespace/name", so
// every Get/List/event decodes a fresh copy and callers can never mutate
// stored state without going through Update. A single counter, shared by all
// keys in the store, stamps a strictly increasing resourceVersion on every
// successful create and update.
type Store[T api.Object] struct {
	kind    string
	newFunc func() T

	mu       sync.RWMutex
	objects  map[string][]byte
	order    []string // insertion order, for stable listings
	version  uint64
	watchers map[int]EventHandler[T]
	nextID   int
}

// NewStore creates an empty store for one kind. newFunc allocates a zero
// value of the kind for decoding.
func NewStore[T api.Object](kind string, newFunc func() T) *Store[T] {
	return &Store[T]{
		kind:     kind,
		newFunc:  newFunc,
		objects:  make(map[string][]byte),
		watchers: make(map[int]EventHandler[T]),
	}
}

// Kind returns the resource kind this store holds.
func (s *Store[T]) Kind() string { return s.kind }

func objectKey(namespace, name string) string {
	if namespace == "" {
		namespace = api.DefaultNamespace
	}
	return namespace + "/" + name
}

func (s *Store[T]) decode(data []byte) (T, error) {
	obj := s.newFunc()
	if err := json.Unmarshal(data, obj); err != nil {
		return obj, api.NewInternalError(fmt.Sprintf("decode stored %s: %v", s.kind, err))
	}
	return obj, nil
}

// clone deep-copies obj via a JSON round trip so the store never retains a
// reference the caller can reach.
func (s *Store[T]) clone(obj T) (T, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		var zero T
		return zero, api.NewInternalError(fmt.Sprintf("encode %s: %v", s.kind, err))
	}
	return s.decode(data)
}

// List returns all resources, optionally filtered to one namespace, in
// insertion order.
func (s *Store[T]) List(namespace string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []T
	for _, k := range s.order {
		obj, err := s.decode(s.objects[k])
		if err != nil {
			return nil, err
		}
		if namespace != "" && obj.GetObjectMeta().Namespace != namespace {
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}

// Get retrieves one resource by exact key.
func (s *Store[T]) Get(name, namespace string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[objectKey(namespace, name)]
	if !exists {
		var zero T
		return zero, api.NewNotFound(s.kind, name)
	}
	return s.decode(data)
}

// Create stores a new resource. It assigns uid (if absent), a fresh
// resourceVersion and the creation timestamp, then emits ADDED.
func (s *Store[T]) Create(obj T) (T, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	incoming, err := s.clone(obj)
	if err != nil {
		return zero, err
	}
	meta := incoming.GetObjectMeta()
	if meta.Namespace == "" {
		meta.Namespace = api.DefaultNamespace
	}
	key := objectKey(meta.Namespace, meta.Name)
	if _, exists := s.objects[key]; exists {
		return zero, api.NewAlreadyExists(s.kind, meta.Name)
	}

	if meta.UID == "" {
		meta.UID = uuid.NewString()
	}
	meta.CreationTimestamp = time.Now().UTC()
	s.version++
	meta.ResourceVersion = strconv.FormatUint(s.version, 10)

	data, err := json.Marshal(incoming)
	if err != nil {
		return zero, api.NewInternalError(fmt.Sprintf("encode %s: %v", s.kind, err))
	}
	s.objects[key] = data
	s.order = append(s.order, key)

	stored, err := s.decode(data)
	if err != nil {
		return zero, err
	}
	s.notify(Added, stored)
	return stored, nil
}

// Update replaces an existing resource. A non-empty resourceVersion on the
// request that differs from the stored one is rejected with Conflict and the
// stored resource is left untouched. uid and creationTimestamp always keep
// the values assigned at creation, whatever the caller sent.
func (s *Store[T]) Update(obj T) (T, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	incoming, err := s.clone(obj)
	if err != nil {
		return zero, err
	}
	meta := incoming.GetObjectMeta()
	if meta.Namespace == "" {
		meta.Namespace = api.DefaultNamespace
	}
	key := objectKey(meta.Namespace, meta.Name)
	data, exists := s.objects[key]
	if !exists {
		return zero, api.NewNotFound(s.kind, meta.Name)
	}

	current, err := s.decode(data)
	if err != nil {
		return zero, err
	}
	currentMeta := current.GetObjectMeta()
	if meta.ResourceVersion != "" && meta.ResourceVersion != currentMeta.ResourceVersion {
		return zero, api.NewConflict(s.kind, meta.Name, fmt.Sprintf(
			"the object has been modified (have %s, want %s)",
			currentMeta.ResourceVersion, meta.ResourceVersion))
	}

	meta.UID = currentMeta.UID
	meta.CreationTimestamp = currentMeta.CreationTimestamp
	s.version++
	meta.ResourceVersion = strconv.FormatUint(s.version, 10)

	updated, err := json.Marshal(incoming)
	if err != nil {
		return zero, api.NewInternalError(fmt.Sprintf("encode %s: %v", s.kind, err))
	}
	s.objects[key] = updated

	stored, err := s.decode(updated)
	if err != nil {
		return zero, err
	}
	s.notify(Modified, stored)
	return stored, nil
}

// Delete removes the key entirely and emits DELETED carrying the
// pre-deletion object. There is no tombstone: a later Create on the same key
// behaves as if the key were new.
func (s *Store[T]) Delete(name, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := objectKey(namespace, name)
	data, exists := s.objects[key]
	if !exists {
		return api.NewNotFound(s.kind, name)
	}

	old, err := s.decode(data)
	if err != nil {
		return err
	}
	delete(s.objects, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.notify(Deleted, old)
	return nil
}

// Watch registers fn for all future events on this store and returns a
// cancel function. Cancel is idempotent; subscriptions are independent of
// each other.
func (s *Store[T]) Watch(fn EventHandler[T]) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// notify must be called with s.mu held so subscribers observe events in
// exactly the order mutations occurred.
func (s *Store[T]) notify(eventType EventType, obj T) {
	for _, fn := range s.watchers {
		fn(Event[T]{Type: eventType, Object: obj})
	}
}

// ResourceVersion returns the current counter value, for use as a
// list-level resourceVersion.
func (s *Store[T]) ResourceVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strconv.FormatUint(s.version, 10)
}

// Seed bulk-loads initial data, assigning each resource a fresh version but
// emitting no watch events. This is initialization, not a live mutation.
func (s *Store[T]) Seed(objs []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range objs {
		incoming, err := s.clone(obj)
		if err != nil {
			return err
		}
		meta := incoming.GetObjectMeta()
		if meta.Namespace == "" {
			meta.Namespace = api.DefaultNamespace
		}
		key := objectKey(meta.Namespace, meta.Name)
		if _, exists := s.objects[key]; exists {
			return api.NewAlreadyExists(s.kind, meta.Name)
		}
		if meta.UID == "" {
			meta.UID = uuid.NewString()
		}
		if meta.CreationTimestamp.IsZero() {
			meta.CreationTimestamp = time.Now().UTC()
		}
		s.version++
		meta.ResourceVersion = strconv.FormatUint(s.version, 10)

		data, err := json.Marshal(incoming)
		if err != nil {
			return api.NewInternalError(fmt.Sprintf("encode %s: %v", s.kind, err))
		}
		s.objects[key] = data
		s.order = append(s.order, key)
	}
	return nil
}
