package profile

import (
	"testing"
	"time"
)

func TestCache_Miss(t *testing.T) {
	c := NewCache(time.Minute)
	_, fresh, ok := c.Get("u1")
	if ok || fresh {
		t.Errorf("expected miss, got fresh=%v ok=%v", fresh, ok)
	}
}

func TestCache_FreshHit(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("u1", Profile{UID: "u1", DisplayName: "Ada"})

	p, fresh, ok := c.Get("u1")
	if !ok || !fresh {
		t.Fatalf("expected fresh hit, got fresh=%v ok=%v", fresh, ok)
	}
	if p.DisplayName != "Ada" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestCache_ExpiredEntryStillReadable(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	c.Put("u1", Profile{UID: "u1"})
	time.Sleep(30 * time.Millisecond)

	_, fresh, ok := c.Get("u1")
	if !ok {
		t.Fatal("expired entry must remain readable for stale fallback")
	}
	if fresh {
		t.Error("entry past its TTL must not report fresh")
	}
}

func TestCache_PutRefreshesExpiry(t *testing.T) {
	c := NewCache(50 * time.Millisecond)
	c.Put("u1", Profile{UID: "u1"})
	time.Sleep(30 * time.Millisecond)
	c.Put("u1", Profile{UID: "u1", DisplayName: "updated"})
	time.Sleep(30 * time.Millisecond)

	p, fresh, ok := c.Get("u1")
	if !ok || !fresh {
		t.Fatalf("expected refreshed entry to be fresh, got fresh=%v ok=%v", fresh, ok)
	}
	if p.DisplayName != "updated" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("u1", Profile{UID: "u1"})
	c.Invalidate("u1")

	if _, _, ok := c.Get("u1"); ok {
		t.Error("expected entry gone after invalidate")
	}
}
