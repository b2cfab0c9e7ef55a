package wire

import (
	"errors"
	"testing"
)

type counter struct{ hits int }

type testClient struct {
	stream Buffer
	state  counter
}

func (c *testClient) Stream() Stream  { return &c.stream }
func (c *testClient) State() *counter { return &c.state }

func countingDispatch(this Lease, _ EventLoop[counter], client Client[counter], msg Message) error {
	if _, ok := Downcast[*string](this); !ok {
		return ErrInternal
	}
	if msg.Opcode != 0 {
		return ErrInvalidOpcode
	}
	client.State().hits++
	return nil
}

func TestRegistryInsertResolveRemove(t *testing.T) {
	reg := NewRegistry[counter]()
	client := &testClient{}
	name := "obj"

	obj := NewResident[counter](5, countingDispatch, "thing", 2, &name)
	if err := reg.Insert(client, obj); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := reg.Insert(client, obj); !errors.Is(err, ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
	if err := reg.Insert(client, NewResident[counter](0, countingDispatch, "thing", 1, &name)); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected null id rejection, got %v", err)
	}
	if err := reg.Insert(client, NewResident[counter](2, countingDispatch, "thing", 1, &name)); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 5 {
		t.Fatalf("unexpected ids: %v", ids)
	}
	got, ok := reg.Resolve(5)
	if !ok || got.Interface() != "thing" || got.Version() != 2 {
		t.Fatalf("resolve mismatch: %+v ok=%v", got, ok)
	}
	if !reg.Remove(5) || reg.Remove(5) {
		t.Fatalf("remove should succeed exactly once")
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry[counter]()
	client := &testClient{}
	name := "obj"
	if err := reg.Insert(client, NewResident[counter](3, countingDispatch, "thing", 1, &name)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := reg.Insert(client, NewResident[counter](4, countingDispatch, "thing", 1, 17)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := reg.Dispatch(client, Message{Object: 3, Opcode: 0}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if client.state.hits != 1 {
		t.Fatalf("expected one hit, got %d", client.state.hits)
	}
	if err := reg.Dispatch(client, Message{Object: 3, Opcode: 1}); !errors.Is(err, ErrInvalidOpcode) {
		t.Fatalf("expected ErrInvalidOpcode, got %v", err)
	}
	if err := reg.Dispatch(client, Message{Object: 4, Opcode: 0}); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal for wrong type, got %v", err)
	}
	if err := reg.Dispatch(client, Message{Object: 99}); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected ErrUnknownObject, got %v", err)
	}
}

func TestDowncastNilLease(t *testing.T) {
	if _, ok := Downcast[*string](nil); ok {
		t.Fatalf("nil lease must not downcast")
	}
}
