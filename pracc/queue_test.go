package pracc

import "testing"

func TestQueuePushTracksCounts(t *testing.T) {
	q := NewQueue(4)
	q.Push(0, NOP)
	q.Push(PraccParamOut, SW(8, 0, 15))
	q.Push(0, NOP)

	if q.CodeCount != 3 {
		t.Fatalf("CodeCount = %d, want 3", q.CodeCount)
	}
	if q.StoreCount != 1 {
		t.Fatalf("StoreCount = %d, want 1", q.StoreCount)
	}
	if len(q.Instr) != 3 || len(q.StoreAddr) != 3 {
		t.Fatalf("Instr/StoreAddr length mismatch: %d/%d", len(q.Instr), len(q.StoreAddr))
	}
}

func TestQueuePushPanicsOverCapacity(t *testing.T) {
	q := NewQueue(1)
	q.Push(0, NOP)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic pushing past capacity")
		}
	}()
	q.Push(0, NOP)
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(4)
	q.Push(0, NOP)
	q.Push(0, NOP)
	if q.full(2) {
		t.Fatal("full(2) with 2 of 4 used and margin 2 should not report full")
	}
	if !q.full(3) {
		t.Fatal("full(3) with 2 of 4 used and margin 3 should report full")
	}
}
