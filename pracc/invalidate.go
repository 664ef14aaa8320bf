// invalidate.go - explicit whole-cache invalidation (spec section 4.H)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c
// mips32_pracc_invalidate_cache: unlike CacheSync's implicit per-range
// maintenance, this walks every set/way of the I$ or D$ using Index_Store_Tag
// and runs as resident code in a work area, the same jump-stub hand-off
// fastdata.go uses.

package pracc

// CacheKind selects which cache InvalidateCache clears, and for the data
// cache, whether dirty lines are written back first.
type CacheKind int

const (
	CacheInst CacheKind = iota
	CacheDataWriteback
	CacheDataNoWriteback
)

// invInstCache is the resident handler that invalidates every line of the
// instruction cache by computing its geometry from Config1 and looping
// Index_Store_Tag_I over every set, then jumping back to PRACC_TEXT.
var invInstCache = []uint32{
	MFC0(regT2, 16, 1),
	EXT(regT3, regT2, Config1ILShift, 3),
	BEQ(regT3, regZero, 0x11),
	NOP,

	ADDIU(regT6, regZero, 2),
	SLLV(regT3, regT6, regT3),

	EXT(regT4, regT2, Config1ISShift, 3),
	ADDIU(regT6, regZero, 64),
	SLLV(regT4, regT6, regT4),

	EXT(regT5, regT2, Config1IAShift, 3),
	ADDI(regT5, regT5, 1),

	MUL(regT4, regT4, regT5),
	LUI(regT6, 0x8000),

	MTC0(regZero, c0TagLo, 0),
	MTC0(regZero, c0TagHi, 0),
	OR(regT7, regT4, regZero),

	// next_icache_tag:
	CACHE(CACHE_INDEX_STORE_TAG_I, 0, regT6),
	ADDI(regT7, regT7, NEG16(1)),
	BNE(regT7, regZero, NEG16(3)),
	ADD(regT6, regT6, regT3),

	// done_icache:
	LUI(regT7, UPPER16(PraccText)),
	ORI(regT7, regT7, LOWER16(PraccText)),
	JR(regT7),
	NOP,
}

// invDataCacheTemplate is invDataCacheNoWB, with index 18 (the cache op
// itself) patched by InvalidateCache to either Hit_Writeback_Inv_D
// (CacheDataWriteback) or Index_Store_Tag_D (CacheDataNoWriteback).
var invDataCacheTemplate = []uint32{
	MFC0(regV0, 16, 1),
	EXT(regV1, regV0, Config1DLShift, 3),
	BEQ(regV1, regZero, 19),
	NOP,

	ADDIU(regA2, regZero, 2),
	SLLV(regV1, regA2, regV1),

	EXT(regA0, regV0, Config1DSShift, 3),
	ADDIU(regA2, regZero, 64),
	SLLV(regA0, regA2, regA0),

	EXT(regA1, regV0, Config1DAShift, 3),
	ADDI(regA1, regA1, 1),

	MUL(regA0, regA0, regA1),
	LUI(regA2, 0x8000),

	MTC0(regZero, c0TagLo, 0),
	MTC0(regZero, c0TagHi, 0),
	MTC0(regZero, c0TagLo, 2),
	MTC0(regZero, c0TagHi, 2),
	OR(regA3, regA0, regZero),

	// next_dcache_tag: (index 18, patched below)
	0,
	ADDI(regA3, regA3, NEG16(1)),
	BNE(regA3, regZero, NEG16(3)),
	ADD(regA2, regA2, regV1),

	// done_dcache:
	LUI(regT7, UPPER16(PraccText)),
	ORI(regT7, regT7, LOWER16(PraccText)),
	JR(regT7),
	NOP,
}

// InvalidateCache invalidates cache kind in one shot: it writes the resident
// handler into a work area it allocates from the transport's allocator
// (uncached alias), jumps to it via
// a 5-instruction stub, and lets it run to completion and jump back.
func (s *Session) InvalidateCache(kind CacheKind) error {
	const op = "invalidate_cache"

	alloc := s.t.Allocator()
	handlerLen := len(invInstCache)
	if kind != CacheInst {
		handlerLen = len(invDataCacheTemplate)
	}
	wa, err := alloc.Alloc(handlerLen * 4)
	if err != nil {
		return newErr(op, ErrResourceUnavailable, err)
	}
	defer alloc.Free(wa)

	uncached := (wa.Address & 0x0FFFFFFF) | KSEG1

	var handler []uint32
	switch kind {
	case CacheInst:
		handler = invInstCache
	case CacheDataWriteback:
		cp := append([]uint32(nil), invDataCacheTemplate...)
		cp[18] = CACHE(CACHE_HIT_WRITEBACK_INV_D, 0, regA2)
		handler = cp
	case CacheDataNoWriteback:
		cp := append([]uint32(nil), invDataCacheTemplate...)
		cp[18] = CACHE(CACHE_INDEX_STORE_TAG_D, 0, regA2)
		handler = cp
	default:
		return newErr(op, ErrSyntax, nil)
	}

	if err := s.WriteMem(uncached, 4, handler); err != nil {
		return err
	}

	if err := s.enter(op); err != nil {
		return err
	}
	defer s.leave()

	q := NewQueue(5)
	q.Push(0, MTC0(15, C0DeSave, 0))
	q.Push(0, LUI(15, UPPER16(uncached)))
	q.Push(0, ORI(15, 15, LOWER16(uncached)))
	q.Push(0, JR(15))
	q.Push(0, NOP)

	_, err = s.run(op, q)
	return err
}
