package wire

// Lease is an opaque handle to a registered object.
type Lease interface {
	ID() Id
	Value() any
}

// Downcast recovers the concrete object behind a lease.
func Downcast[O any](l Lease) (O, bool) {
	var zero O
	if l == nil {
		return zero, false
	}
	o, ok := l.Value().(O)
	return o, ok
}

// Client is the per-connection context handed to generated code. T is the
// opaque state the hosting runtime attaches to each connection.
type Client[T any] interface {
	Stream() Stream
	State() *T
}

// EventLoop is the runtime side generated code may register new objects with.
type EventLoop[T any] interface {
	Insert(client Client[T], object *Resident[T]) error
}

// DispatchFunc routes one message to the object behind this.
type DispatchFunc[T any] func(this Lease, loop EventLoop[T], client Client[T], msg Message) error

// Resident associates an object with its dispatch function, interface name and
// version.
type Resident[T any] struct {
	id       Id
	iface    string
	version  uint32
	dispatch DispatchFunc[T]
	value    any
}

// NewResident wraps value so a registry can route messages to it.
func NewResident[T any](id Id, dispatch DispatchFunc[T], iface string, version uint32, value any) *Resident[T] {
	return &Resident[T]{
		id:       id,
		iface:    iface,
		version:  version,
		dispatch: dispatch,
		value:    value,
	}
}

func (r *Resident[T]) ID() Id            { return r.id }
func (r *Resident[T]) Value() any        { return r.value }
func (r *Resident[T]) Interface() string { return r.iface }
func (r *Resident[T]) Version() uint32   { return r.version }

// Dispatch runs the object's dispatch function with r as the lease.
func (r *Resident[T]) Dispatch(loop EventLoop[T], client Client[T], msg Message) error {
	if r.dispatch == nil {
		return ErrInternal
	}
	return r.dispatch(r, loop, client, msg)
}
