// queue.go - the PrAcc queue: an append-only (instruction, store-address) list
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c pracc_queue_init /
// pracc_add / pracc_queue_free. The C source keeps instructions and store
// addresses in one calloc'd buffer at offsets 0..max_code and
// max_code..2*max_code; we keep two parallel slices instead, which is the
// idiomatic Go shape for the same "two parallel fixed-capacity arrays" idea
// (see spec section 9, "Queue memory").

package pracc

// Queue accumulates the instruction stream and expected store addresses for
// one PrAcc operation. It is created per call, filled by a generator,
// executed once, and discarded.
type Queue struct {
	MaxCode    int
	Instr      []uint32
	StoreAddr  []uint32
	CodeCount  int
	StoreCount int
}

// NewQueue allocates a queue with the given capacity, matching the call
// site's worst-case instruction count (see each generator's comment for its
// max_code derivation).
func NewQueue(maxCode int) *Queue {
	return &Queue{
		MaxCode:   maxCode,
		Instr:     make([]uint32, 0, maxCode),
		StoreAddr: make([]uint32, 0, maxCode),
	}
}

// Push appends one instruction. storeAddr is zero for ordinary instructions
// and the expected target address for an instruction the CPU will use to
// store a word into the output parameter window. No reordering is
// permitted: instructions execute on the target in push order.
func (q *Queue) Push(storeAddr, instr uint32) {
	if q.CodeCount >= q.MaxCode {
		panic("pracc: queue capacity exceeded (internal sizing error)")
	}
	q.Instr = append(q.Instr, instr)
	q.StoreAddr = append(q.StoreAddr, storeAddr)
	q.CodeCount++
	if storeAddr != 0 {
		q.StoreCount++
	}
}

// full reports whether pushing margin more instructions would exceed
// capacity.
func (q *Queue) full(margin int) bool {
	return q.CodeCount+margin > q.MaxCode
}
