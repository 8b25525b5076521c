package scheduler

import (
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

func TestJobQueuePriorityOrdering(t *testing.T) {
	q := newJobQueue(16)
	pushes := []struct {
		id       string
		priority int
	}{
		{"low-1", 0},
		{"high-1", 5},
		{"low-2", 0},
		{"high-2", 5},
	}
	for _, p := range pushes {
		if err := q.Push(p.id, p.priority); err != nil {
			t.Fatalf("push %s: %v", p.id, err)
		}
	}
	// Higher priority first, FIFO within one level.
	want := []string{"high-1", "high-2", "low-1", "low-2"}
	for _, w := range want {
		id, ok := q.Pop()
		if !ok {
			t.Fatalf("queue drained early, want %s", w)
		}
		if id != w {
			t.Fatalf("pop = %s, want %s", id, w)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("queue should be empty")
	}
}

func TestJobQueueCapacity(t *testing.T) {
	q := newJobQueue(2)
	if err := q.Push("a", 0); err != nil {
		t.Fatal(err)
	}
	if err := q.Push("b", 0); err != nil {
		t.Fatal(err)
	}
	err := q.Push("c", 0)
	if err == nil {
		t.Fatal("expected full-queue error")
	}
	if domain.KindOf(err) != domain.ErrKindInfrastructure {
		t.Fatalf("kind = %s, want infrastructure", domain.KindOf(err))
	}
	if q.Len() != 2 {
		t.Fatalf("len = %d", q.Len())
	}
	// Draining frees capacity again.
	q.Pop()
	if err := q.Push("c", 0); err != nil {
		t.Fatalf("push after drain: %v", err)
	}
}
