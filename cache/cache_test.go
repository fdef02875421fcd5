package cache

import (
	"context"
	"testing"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
)

func TestKey(t *testing.T) {
	a := route.PlanningRequest{Start: route.Coord2D{0, 0.5}, Goal: route.Coord2D{1, 1}, MaxTimeSegments: 20, ThrustMagnitude: 0.05}
	b := a
	if Key(a) != Key(b) {
		t.Fatal("identical requests must share a key")
	}
	b.MaxTimeSegments = 21
	if Key(a) == Key(b) {
		t.Fatal("different segment counts must not share a key")
	}
	c := a
	c.Obstacles = []route.Obstacle{{Position: route.Coord2D{0.5, 0.5}, Radius: 0.1}}
	if Key(a) == Key(c) {
		t.Fatal("different obstacles must not share a key")
	}
	if len(Key(a)) != 64 {
		t.Fatalf("unexpected key %s", Key(a))
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Fatal("empty cache returned a plan")
	}
	r1, r2, r3 := &route.Result{Objective: 1}, &route.Result{Objective: 2}, &route.Result{Objective: 3}
	m.Put(ctx, "a", r1)
	m.Put(ctx, "b", r2)
	m.Put(ctx, "a", r1) // refresh does not grow the cache
	if m.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Len())
	}
	m.Put(ctx, "c", r3)
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	for key, exp := range map[string]*route.Result{"b": r2, "c": r3} {
		got, ok, err := m.Get(ctx, key)
		if err != nil || !ok || got != exp {
			t.Fatalf("%s: got %v %v %v", key, got, ok, err)
		}
	}
}

func TestRedisBadURL(t *testing.T) {
	if _, err := NewRedis("not a url", 0); err == nil {
		t.Fatal("expected an error for a malformed url")
	}
}
