// regs.go - general-purpose and exception-state register save/restore
// (spec section 4.E)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c
// mips32_pracc_write_regs / mips32_pracc_read_regs.

package pracc

// cp0WriteCode mirrors write_regs' static cp0_write_code table: the CP0
// half of the register set, written from $1 in a fixed order.
var cp0WriteCode = [6]uint32{
	MTC0(1, 12, 0), // status
	MTLO(1),
	MTHI(1),
	MTC0(1, 8, 0),  // badvaddr
	MTC0(1, 13, 0), // cause
	MTC0(1, 24, 0), // depc
}

// cp0ReadCode mirrors read_regs' cp0_read_code table, reading the same six
// fields through $8.
var cp0ReadCode = [6]uint32{
	MFC0(8, 12, 0),
	MFLO(8),
	MFHI(8),
	MFC0(8, 8, 0),
	MFC0(8, 13, 0),
	MFC0(8, 24, 0),
}

// Regs is a 38-element target register snapshot: regs[2..31] are GPRs 2-31
// (GPR 0 is always zero and GPR 1 is carried at index 1), and
// regs[32..37] are status/lo/hi/badvaddr/cause/depc in that order.
type Regs [38]uint32

// WriteRegs restores the whole register file from regs in one queue, then
// refreshes the session's GPR 8/9/10 shadow to match (every later generator
// restores them to these values before branching back).
func (s *Session) WriteRegs(regs Regs) error {
	const op = "write_regs"
	if err := s.enter(op); err != nil {
		return err
	}
	defer s.leave()

	q := NewQueue(37*2 + 6 + 1)
	for i := 2; i < 32; i++ {
		loadImm32(q, uint32(i), regs[i])
	}
	for i := 0; i != 6; i++ {
		q.Push(0, LUI(1, UPPER16(regs[i+32])))
		q.Push(0, ORI(1, 1, LOWER16(regs[i+32])))
		q.Push(0, cp0WriteCode[i])
	}
	q.Push(0, LUI(1, UPPER16(regs[1])))
	q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
	q.Push(0, ORI(1, 1, LOWER16(regs[1])))

	if _, err := s.run(op, q); err != nil {
		return err
	}

	s.reg8 = regs[8]
	s.reg9 = regs[9]
	s.reg10 = regs[10]
	return nil
}

// ReadRegs captures the whole register file in one queue. Grounded on
// read_regs' store_count++ trick: every register is stored at its own
// PARAM_OUT index (GPR 1 last, at index 1, via DeSave) and slot 0 is never
// written, so the output buffer is sized one larger than the number of
// distinct stores.
func (s *Session) ReadRegs() (Regs, error) {
	const op = "read_regs"
	var regs Regs

	if err := s.enter(op); err != nil {
		return regs, err
	}
	defer s.leave()

	q := NewQueue(48)
	q.Push(0, MTC0(1, C0DeSave, 0))
	q.Push(0, LUI(1, PraccUpperBase))

	for i := 2; i != 32; i++ {
		q.Push(PraccParamOut+uint32(i)*4, SW(uint32(i), LOWER16(PraccOutOffset)+uint32(i)*4, 1))
	}
	for i := 0; i != 6; i++ {
		q.Push(0, cp0ReadCode[i])
		q.Push(PraccParamOut+uint32(i+32)*4, SW(8, LOWER16(PraccOutOffset)+uint32(i+32)*4, 1))
	}

	q.Push(0, MFC0(8, C0DeSave, 0))
	q.Push(PraccParamOut+4, SW(8, LOWER16(PraccOutOffset)+4, 1))

	q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
	q.Push(0, MFC0(1, C0DeSave, 0))
	q.StoreCount++ // regs[0] is never stored but still occupies a slot

	out, err := s.run(op, q)
	if err != nil {
		return regs, err
	}
	copy(regs[:], out)

	s.reg8 = regs[8]
	s.reg9 = regs[9]
	s.reg10 = regs[10]
	return regs, nil
}
