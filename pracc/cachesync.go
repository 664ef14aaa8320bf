// cachesync.go - implicit write-back cache synchronization (spec section 4.F)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c
// mips32_pracc_synchronize_cache. Release-2 cores use RDHWR SYNCI_Step to
// discover the line size and emit SYNCI per line; release-1 cores read
// Config1's DL field and emit CACHE Hit_Writeback_Inv_D / Hit_Invalidate_I.
// Both paths flush the queue every 256 lines to bound a single queue's size.

package pracc

const cacheSyncFlush = 256

// CacheSync brings the instruction stream in the cache lines covering start
// through end (both inclusive) up to date with
// any data written underneath it, the way WriteMem calls it automatically
// after every cached write. release selects the discovery strategy; cached
// distinguishes write-back (3) from write-through (other non-zero) policy
// on release-1 cores.
func (s *Session) CacheSync(start, end uint32, cached CCA, release CacheRelease) error {
	const op = "cache_sync"
	if err := s.enter(op); err != nil {
		return err
	}
	defer s.leave()

	var clsiz uint32
	if release == ReleaseTwo {
		q := NewQueue(7)
		q.Push(0, LUI(15, PraccUpperBase))
		q.Push(0, RDHWR(8, HWR_SYNCI_STEP))
		q.Push(PraccParamOut, SW(8, LOWER16(PraccOutOffset), 15))
		q.Push(0, LUI(8, UPPER16(s.reg8)))
		q.Push(0, ORI(8, 8, LOWER16(s.reg8)))
		q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
		q.Push(0, MFC0(15, C0DeSave, 0))

		out, err := s.run(op, q)
		if err != nil {
			return err
		}
		clsiz = out[0]
	} else {
		out, err := s.run(op, s.cp0ReadQueue(16, 1))
		if err != nil {
			return err
		}
		conf := out[0]
		dl := (conf >> Config1DLShift) & Config1DLMask
		if dl == 0 {
			return nil
		}
		clsiz = 2 << dl
	}

	if clsiz == 0 {
		return nil
	}
	if clsiz&(clsiz-1) != 0 {
		return newErr(op, ErrProtocolViolation, nil)
	}

	start |= clsiz - 1
	end |= clsiz - 1

	lastUpper := UPPER16(start + 0x8000)
	q := NewQueue(256*2 + 5)
	q.Push(0, LUI(15, lastUpper))

	count := 0
	for start <= end {
		upper := UPPER16(start + 0x8000)
		if upper != lastUpper {
			q.Push(0, LUI(15, upper))
			lastUpper = upper
		}

		if release == ReleaseTwo {
			q.Push(0, SYNCI(LOWER16(start), 15))
		} else {
			if cached == CCAWriteback {
				q.Push(0, CACHE(CACHE_HIT_WRITEBACK_INV_D, LOWER16(start), 15))
			}
			q.Push(0, CACHE(CACHE_HIT_INVALIDATE_I, LOWER16(start), 15))
		}

		start += clsiz
		count++
		if count == cacheSyncFlush && start <= end {
			q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
			q.Push(0, NOP)
			if _, err := s.run(op, q); err != nil {
				return err
			}
			q = NewQueue(256*2 + 5)
			count = 0
		}
	}

	q.Push(0, SYNC(0))
	q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
	q.Push(0, MFC0(15, C0DeSave, 0))
	_, err := s.run(op, q)
	return err
}
