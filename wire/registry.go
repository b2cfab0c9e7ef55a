package wire

import "sort"

// Registry stores resident objects by id and routes messages to them. It
// satisfies EventLoop so generated constructors can insert new objects.
//
// Registry does not lock; the hosting runtime serializes access per client.
type Registry[T any] struct {
	items map[Id]*Resident[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[Id]*Resident[T])}
}

// Insert adds object under its id. The null id and nil objects are rejected.
func (r *Registry[T]) Insert(_ Client[T], object *Resident[T]) error {
	if object == nil || object.ID() == 0 {
		return ErrInternal
	}
	if _, ok := r.items[object.ID()]; ok {
		return ErrObjectExists
	}
	r.items[object.ID()] = object
	return nil
}

// Resolve returns the object registered under id.
func (r *Registry[T]) Resolve(id Id) (*Resident[T], bool) {
	obj, ok := r.items[id]
	return obj, ok
}

// Remove drops id and reports whether it was present.
func (r *Registry[T]) Remove(id Id) bool {
	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	return true
}

// IDs returns registered ids in ascending order.
func (r *Registry[T]) IDs() []Id {
	ids := make([]Id, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Dispatch routes msg to the object it addresses.
//
// Descriptors are not framed with their message, so a failed dispatch may
// leave descriptors of msg queued ahead of the next message. Any error from
// Dispatch is fatal to the connection: the runtime must stop reading and
// close its buffer, which closes every queued descriptor.
func (r *Registry[T]) Dispatch(client Client[T], msg Message) error {
	obj, ok := r.items[msg.Object]
	if !ok {
		return ErrUnknownObject
	}
	return obj.Dispatch(r, client, msg)
}
