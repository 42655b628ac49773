package queue

import (
	"fmt"
	"testing"

	"github.com/Sriram-PR/sitemap-scraper/pkg/models"
)

func TestNewURLQueue_Empty(t *testing.T) {
	q := NewURLQueue()
	if q.Len() != 0 {
		t.Errorf("New queue Len() = %d, want 0", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned ok=true")
	}
}

func TestURLQueue_FIFOOrder(t *testing.T) {
	q := NewURLQueue(models.WorkItem{URL: "seed", Depth: 0})
	q.Push(models.WorkItem{URL: "a", Depth: 1})
	q.Push(models.WorkItem{URL: "b", Depth: 1})

	want := []string{"seed", "a", "b"}
	for i, w := range want {
		item, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() #%d returned ok=false", i)
		}
		if item.URL != w {
			t.Errorf("Pop() #%d URL = %q, want %q", i, item.URL, w)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() after draining = %d, want 0", q.Len())
	}
}

func TestURLQueue_DepthIsNotPriority(t *testing.T) {
	q := NewURLQueue()
	q.Push(models.WorkItem{URL: "deep", Depth: 5})
	q.Push(models.WorkItem{URL: "shallow", Depth: 0})

	item, _ := q.Pop()
	if item.URL != "deep" || item.Depth != 5 {
		t.Errorf("Pop() = %+v, want deep@5", item)
	}
}

func TestURLQueue_InterleavedPushPop(t *testing.T) {
	q := NewURLQueue()
	q.Push(models.WorkItem{URL: "1"})
	q.Push(models.WorkItem{URL: "2"})
	first, _ := q.Pop()
	q.Push(models.WorkItem{URL: "3"})

	if first.URL != "1" {
		t.Errorf("first Pop() = %q, want 1", first.URL)
	}
	pending := q.Pending()
	if len(pending) != 2 || pending[0] != "2" || pending[1] != "3" {
		t.Errorf("Pending() = %v, want [2 3]", pending)
	}
}

func TestURLQueue_CompactionPreservesOrder(t *testing.T) {
	q := NewURLQueue()
	const total = 3 * compactThreshold
	for i := 0; i < total; i++ {
		q.Push(models.WorkItem{URL: fmt.Sprintf("u%d", i), Depth: i})
	}

	for i := 0; i < total; i++ {
		item, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() #%d returned ok=false", i)
		}
		if want := fmt.Sprintf("u%d", i); item.URL != want || item.Depth != i {
			t.Fatalf("Pop() #%d = %+v, want %s@%d", i, item, want, i)
		}
		if q.Len() != total-i-1 {
			t.Fatalf("Len() after %d pops = %d, want %d", i+1, q.Len(), total-i-1)
		}
	}
}
