// blankcheck.go - memory blank (erased) check (spec.md Open Question)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32.c mips32_blank_check_memory:
// the original installs a tiny resident loop that ANDs an accumulator
// (seeded to 0xFF) against every byte in range and runs it to a trailing
// SDBBP. This package's engine only ever drives single PrAcc accesses or
// fully self-contained queues, not "run to breakpoint" resume control, so
// BlankCheckMemory reproduces the algorithm's exact arithmetic over bytes
// read back through ReadMem instead of installing it as resident code. The
// $a2 = 0xFF seed is kept verbatim: a zero-length range reports blank.

package pracc

// BlankCheckMemory reports whether every byte in [addr, addr+count) reads
// as 0xFF, the convention flash erase-verification uses.
func (s *Session) BlankCheckMemory(addr uint32, count int) (blank bool, err error) {
	const op = "blank_check_memory"
	if count == 0 {
		return true, nil
	}

	bytes, err := s.ReadMem(addr, 1, count)
	if err != nil {
		return false, err
	}

	acc := uint32(0xFF)
	for _, b := range bytes {
		acc &= b
	}
	return acc == 0xFF, nil
}
