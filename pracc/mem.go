// mem.go - memory read/write primitives (spec section 4.E)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c
// mips32_pracc_read_u32 / mips32_pracc_read_mem / mips32_pracc_write_mem_generic
// / mips32_pracc_write_mem.

package pracc

// KSEG address-space segments, used to decide write_mem's implicit
// cache-sync policy.
const (
	KUSEG = 0x00000000
	KSEG0 = 0x80000000
	KSEG1 = 0xA0000000
	KSEG2 = 0xC0000000
	KSEG3 = 0xE0000000
)

// KSEGX masks addr down to its top-level segment.
func KSEGX(addr uint32) uint32 { return addr & 0xE0000000 }

// ReadU32 reads one 32-bit word from target address addr. Grounded on
// mips32_pracc_read_u32 (max_code = 9).
func (s *Session) ReadU32(addr uint32) (uint32, error) {
	const op = "read_u32"
	if err := s.enter(op); err != nil {
		return 0, err
	}
	defer s.leave()

	q := s.readU32Queue(addr)
	out, err := s.run(op, q)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func (s *Session) readU32Queue(addr uint32) *Queue {
	q := NewQueue(9)
	q.Push(0, MTC0(15, C0DeSave, 0))
	q.Push(0, LUI(15, PraccUpperBase))
	q.Push(0, LUI(8, UPPER16(addr+0x8000)))
	q.Push(0, LW(8, LOWER16(addr), 8))
	q.Push(PraccParamOut, SW(8, LOWER16(PraccOutOffset), 15))
	q.Push(0, LUI(8, UPPER16(s.reg8)))
	q.Push(0, ORI(8, 8, LOWER16(s.reg8)))
	q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
	q.Push(0, MFC0(15, C0DeSave, 0))
	return q
}

// loadOp and storeOp return the load/store opcode builders for a 1/2/4-byte access.
func loadOp(size int) func(rt, off, base uint32) uint32 {
	switch size {
	case 1:
		return LBU
	case 2:
		return LHU
	default:
		return LW
	}
}

func storeOp(size int) func(rt, off, base uint32) uint32 {
	switch size {
	case 1:
		return SB
	case 2:
		return SH
	default:
		return SW
	}
}

const readMemChunk = 256
const writeMemChunk = 128

// ReadMem reads count elements of size bytes (1, 2, or 4) starting at addr
// and returns them in a newly allocated []uint32 (each element zero-extended, per spec
// section 4.E: "the caller truncates on copy-out"). Grounded on
// mips32_pracc_read_mem (max_code = 256*3+9+1 per chunk).
func (s *Session) ReadMem(addr uint32, size, count int) ([]uint32, error) {
	const op = "read_mem"
	if size != 1 && size != 2 && size != 4 {
		return nil, newErr(op, ErrSyntax, nil)
	}
	if count == 1 && size == 4 {
		v, err := s.ReadU32(addr)
		if err != nil {
			return nil, err
		}
		return []uint32{v}, nil
	}

	if err := s.enter(op); err != nil {
		return nil, err
	}
	defer s.leave()

	out := make([]uint32, 0, count)
	ld := loadOp(size)
	remaining := count
	for remaining > 0 {
		round := remaining
		if round > readMemChunk {
			round = readMemChunk
		}
		q := NewQueue(readMemChunk*3 + 9 + 1)
		lastUpper := UPPER16(addr + 0x8000)
		q.Push(0, MTC0(15, C0DeSave, 0))
		q.Push(0, LUI(15, PraccUpperBase))
		q.Push(0, LUI(9, lastUpper))
		for i := 0; i < round; i++ {
			upper := UPPER16(addr + 0x8000)
			if upper != lastUpper {
				q.Push(0, LUI(9, upper))
				lastUpper = upper
			}
			q.Push(0, ld(8, LOWER16(addr), 9))
			q.Push(PraccParamOut+uint32(i)*4, SW(8, LOWER16(PraccOutOffset)+uint32(i)*4, 15))
			addr += uint32(size)
		}
		q.Push(0, LUI(8, UPPER16(s.reg8)))
		q.Push(0, ORI(8, 8, LOWER16(s.reg8)))
		q.Push(0, LUI(9, UPPER16(s.reg9)))
		q.Push(0, ORI(9, 9, LOWER16(s.reg9)))
		q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
		q.Push(0, MFC0(15, C0DeSave, 0))

		res, err := s.run(op, q)
		if err != nil {
			return nil, err
		}
		out = append(out, res[:round]...)
		remaining -= round
	}
	return out, nil
}

// WriteMem writes count elements of size bytes from buf to target address
// addr, then runs the implicit cache-sync policy of spec section 4.E.
// Grounded on mips32_pracc_write_mem_generic / mips32_pracc_write_mem
// (max_code = 128*3+5+1 per chunk, plus one more slot here than the
// original's constant: a chunk can still straddle one UPPER16(addr+0x8000)
// boundary, emitting one extra mid-loop LUI the original's fixed buffer
// didn't separately budget for).
func (s *Session) WriteMem(addr uint32, size int, buf []uint32) error {
	const op = "write_mem"
	if size != 1 && size != 2 && size != 4 {
		return newErr(op, ErrSyntax, nil)
	}
	if err := s.enter(op); err != nil {
		return err
	}

	st := storeOp(size)
	remaining := len(buf)
	idx := 0
	base := addr
	for remaining > 0 {
		round := remaining
		if round > writeMemChunk {
			round = writeMemChunk
		}
		q := NewQueue(writeMemChunk*3 + 5 + 1 + 1)
		lastUpper := UPPER16(addr + 0x8000)
		q.Push(0, MTC0(15, C0DeSave, 0))
		q.Push(0, LUI(15, lastUpper))
		for i := 0; i < round; i++ {
			upper := UPPER16(addr + 0x8000)
			if upper != lastUpper {
				q.Push(0, LUI(15, upper))
				lastUpper = upper
			}
			v := buf[idx]
			switch size {
			case 4:
				loadImm32(q, 8, v)
			default:
				q.Push(0, ORI(8, 0, v&0xFFFF))
			}
			q.Push(0, st(8, LOWER16(addr), 15))
			addr += uint32(size)
			idx++
		}
		q.Push(0, LUI(8, UPPER16(s.reg8)))
		q.Push(0, ORI(8, 8, LOWER16(s.reg8)))
		q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
		q.Push(0, MFC0(15, C0DeSave, 0))

		if _, err := s.run(op, q); err != nil {
			s.leave()
			return err
		}
		remaining -= round
	}
	s.leave()

	return s.writeMemCacheSync(base, size, len(buf))
}

// writeMemCacheSync mirrors mips32_pracc_write_mem's post-write cache
// policy check: skip entirely for KSEG1 (uncached) and for the EJTAG debug
// memory segment itself, otherwise consult Config0's per-segment
// cacheability field and synchronize the written range if it is write-back
// or write-through cached.
func (s *Session) writeMemCacheSync(addr uint32, size, count int) error {
	if KSEGX(addr) == KSEG1 || (addr >= 0xFF200000 && addr <= 0xFF3FFFFF) {
		return nil
	}

	conf, err := s.CP0Read(16, 0)
	if err != nil {
		return err
	}

	var cached uint32
	switch KSEGX(addr) {
	case KUSEG:
		cached = (conf >> Config0KUShift) & Config0KUMask
	case KSEG0:
		cached = (conf >> Config0K0Shift) & Config0K0Mask
	case KSEG2, KSEG3:
		cached = (conf >> Config0K23Shift) & Config0K23Mask
	}

	if cached != uint32(CCAWriteback) && cached != uint32(CCAWritethrough) {
		return nil
	}

	rel := (conf >> Config0ARShift) & Config0ARMask
	if rel > 1 {
		return newErr("write_mem", ErrProtocolViolation, nil)
	}
	release := ReleaseOne
	if rel == 1 {
		release = ReleaseTwo
	}
	start := addr
	end := addr + uint32(count*size)
	return s.CacheSync(start, end, CCA(cached), release)
}
