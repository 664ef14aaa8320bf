// dsp.go - DSP ASE accumulator/control register access (spec section 4.E)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c
// mips32_pracc_read_dsp_regs / mips32_pracc_write_dsp_regs. Both generators
// temporarily set the Status register's MX bit to reach the DSP register
// file, then restore Status and the GPR 8/9/10 shadow before returning.

package pracc

// DSPReg names one of the seven DSP-accessible registers these generators
// can reach: three HI/LO accumulator pairs plus the DSP control register.
type DSPReg int

const (
	DSPAC1Hi DSPReg = iota
	DSPAC2Hi
	DSPAC3Hi
	DSPAC1Lo
	DSPAC2Lo
	DSPAC3Lo
	DSPControl
)

// dspReadCode mirrors dsp_read_code: MFHI/MFLO against accumulators 1-3,
// and the MIPS32 DSP ASE RDDSP encoding (SPECIAL3, opcode 0x1F) for the
// control register.
var dspReadCode = [7]uint32{
	0x00204010,
	0x00404010,
	0x00604010,
	0x00204012,
	0x00404012,
	0x00604012,
	0x7fff44b8,
}

// dspWriteCode mirrors dsp_write_code: MTHI/MTLO against accumulators 1-3,
// and the MIPS32 DSP ASE WRDSP encoding (SPECIAL3) for the control register.
var dspWriteCode = [7]uint32{
	0x01000811,
	0x01001011,
	0x01001811,
	0x01000813,
	0x01001013,
	0x01001813,
	0x7d1ffcf8,
}

// ReadDSPRegs reads DSP register reg, temporarily enabling DSP access via
// the Status.MX bit and restoring Status and the GPR shadow afterward.
func (s *Session) ReadDSPRegs(reg DSPReg) (uint32, error) {
	const op = "read_dsp_regs"
	if reg < DSPAC1Hi || reg > DSPControl {
		return 0, newErr(op, ErrSyntax, nil)
	}
	if err := s.enter(op); err != nil {
		return 0, err
	}
	defer s.leave()

	q := NewQueue(48)
	q.Push(0, MTC0(15, C0DeSave, 0))
	q.Push(0, LUI(15, PraccUpperBase))
	q.Push(0, MFC0(9, 12, 0))
	q.Push(0, MFC0(8, 12, 0))
	q.Push(0, LUI(10, UPPER16(DSPEnable)))
	q.Push(0, ORI(10, 10, LOWER16(DSPEnable)))
	q.Push(0, OR(8, 8, 10))
	q.Push(0, MTC0(8, 12, 0))
	q.Push(0, NOP)
	q.Push(0, NOP)
	q.Push(0, dspReadCode[reg])
	q.Push(0, NOP)
	q.Push(0, MTC0(9, 12, 0))
	q.Push(PraccParamOut, SW(8, LOWER16(PraccOutOffset), 15))
	q.Push(0, MFC0(15, C0DeSave, 0))
	restoreReg(q, 8, s.reg8)
	restoreReg(q, 9, s.reg9)
	restoreReg(q, 10, s.reg10)
	q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
	q.Push(0, NOP)

	out, err := s.run(op, q)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// WriteDSPRegs writes val into DSP register reg, under the same MX-bit
// toggle and register-shadow discipline as ReadDSPRegs.
func (s *Session) WriteDSPRegs(reg DSPReg, val uint32) error {
	const op = "write_dsp_regs"
	if reg < DSPAC1Hi || reg > DSPControl {
		return newErr(op, ErrSyntax, nil)
	}
	if err := s.enter(op); err != nil {
		return err
	}
	defer s.leave()

	q := NewQueue(48)
	q.Push(0, MTC0(15, C0DeSave, 0))
	q.Push(0, LUI(15, PraccUpperBase))
	q.Push(0, MFC0(9, 12, 0))
	q.Push(0, MFC0(8, 12, 0))
	q.Push(0, LUI(10, UPPER16(DSPEnable)))
	q.Push(0, ORI(10, 10, LOWER16(DSPEnable)))
	q.Push(0, OR(8, 8, 10))
	q.Push(0, MTC0(8, 12, 0))
	q.Push(0, NOP)
	q.Push(0, NOP)
	loadImm32(q, 8, val)
	q.Push(0, dspWriteCode[reg])
	q.Push(0, NOP)
	q.Push(0, MTC0(9, 12, 0))
	q.Push(0, NOP)
	q.Push(0, MFC0(15, C0DeSave, 0))
	restoreReg(q, 8, s.reg8)
	restoreReg(q, 9, s.reg9)
	restoreReg(q, 10, s.reg10)
	q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
	q.Push(0, NOP)

	_, err := s.run(op, q)
	return err
}
