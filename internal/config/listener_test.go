package config

import (
	"errors"
	"testing"
)

func TestListenerRegistry_NotifyInOrder(t *testing.T) {
	reg := NewListenerRegistry()
	var order []string
	reg.Add(func(*Snapshot) error { order = append(order, "a"); return nil })
	reg.Add(func(*Snapshot) error { order = append(order, "b"); return nil })
	reg.Add(func(*Snapshot) error { order = append(order, "c"); return nil })

	reg.Notify(newSnapshot(map[string]string{}))
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v", order)
	}
}

func TestListenerRegistry_ErrorDoesNotStopChain(t *testing.T) {
	reg := NewListenerRegistry()
	var order []string
	reg.Add(func(*Snapshot) error { order = append(order, "a"); return nil })
	reg.Add(func(*Snapshot) error {
		order = append(order, "boom")
		return errors.New("listener failure")
	})
	reg.Add(func(*Snapshot) error { order = append(order, "c"); return nil })

	reg.Notify(newSnapshot(map[string]string{}))
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("order = %v, want chain to continue after failure", order)
	}
}

func TestListenerRegistry_DuplicatesAllowed(t *testing.T) {
	reg := NewListenerRegistry()
	count := 0
	l := func(*Snapshot) error { count++; return nil }
	reg.Add(l)
	reg.Add(l)
	if reg.Len() != 2 {
		t.Fatalf("Len = %d", reg.Len())
	}
	reg.Notify(newSnapshot(map[string]string{}))
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
