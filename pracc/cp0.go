// cp0.go - CP0 register name table and read/write primitives
//
// License: GPLv3 or later
//
// Register numbering and names follow the MIPS32 CP0 map, grounded on the
// (reg, sel) constant style of other_examples' COP0 model.

package pracc

// CP0Reg names a (register, select) pair the way the CLI's "cp0 <name>"
// lookup needs.
type CP0Reg struct {
	Name string
	Reg  uint32
	Sel  uint32
}

// CP0Regs is the table of commonly addressed CP0 registers. Unlisted
// (reg, sel) pairs remain reachable via the numeric "cp0 <reg> <sel>" form.
var CP0Regs = []CP0Reg{
	{"index", 0, 0},
	{"random", 1, 0},
	{"entrylo0", 2, 0},
	{"entrylo1", 3, 0},
	{"context", 4, 0},
	{"pagemask", 5, 0},
	{"wired", 6, 0},
	{"badvaddr", 8, 0},
	{"count", 9, 0},
	{"entryhi", 10, 0},
	{"compare", 11, 0},
	{"status", 12, 0},
	{"intctl", 12, 1},
	{"cause", 13, 0},
	{"epc", 14, 0},
	{"prid", 15, 0},
	{"ebase", 15, 1},
	{"config0", 16, 0},
	{"config1", 16, 1},
	{"config2", 16, 2},
	{"config3", 16, 3},
	{"lladdr", 17, 0},
	{"watchlo", 18, 0},
	{"watchhi", 19, 0},
	{"xcontext", 20, 0},
	{"debug", 23, 0},
	{"depc", 24, 0},
	{"errctl", 26, 0},
	{"errorepc", 30, 0},
	{"desave", 31, 0},
}

// LookupCP0 resolves a CP0 register name to its (reg, sel) pair.
func LookupCP0(name string) (reg, sel uint32, ok bool) {
	for _, r := range CP0Regs {
		if r.Name == name {
			return r.Reg, r.Sel, true
		}
	}
	return 0, 0, false
}

// Config0 field layout (KSEGx cacheability policy bits).
const (
	Config0KUShift = 25
	Config0KUMask  = 0x7
	Config0K0Shift = 0
	Config0K0Mask  = 0x7
	Config0K23Shift = 28
	Config0K23Mask = 0x7
	Config0ARShift = 10
	Config0ARMask  = 0x7
)

// Config1 field layout (cache geometry bits used by sections F and H).
const (
	Config1DLShift = 10
	Config1DLMask  = 0x7
	Config1DAShift = 7
	Config1DAMask  = 0x7
	Config1DSShift = 13
	Config1DSMask  = 0x7
	Config1ILShift = 19
	Config1ILMask  = 0x7
	Config1IAShift = 16
	Config1IAMask  = 0x7
	Config1ISShift = 22
	Config1ISMask  = 0x7
)

// cp0ReadQueue builds the generic-shape queue for cp0_read: embed (reg,sel)
// directly into the MFC0 opcode's rd/sel fields, run it through GPR 8,
// store to PARAM_OUT, then restore GPR 8 with its LUI half before the
// branch and its ORI half in the branch's delay slot. Grounded on
// mips32_cp0_read (max_code = 8).
func (s *Session) cp0ReadQueue(reg, sel uint32) *Queue {
	q := NewQueue(8)
	q.Push(0, MTC0(15, C0DeSave, 0))
	q.Push(0, LUI(15, PraccUpperBase))
	q.Push(0, MFC0(8, reg, sel))
	q.Push(PraccParamOut, SW(8, LOWER16(PraccOutOffset), 15))
	q.Push(0, MFC0(15, C0DeSave, 0))
	q.Push(0, LUI(8, UPPER16(s.reg8)))
	q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
	q.Push(0, ORI(8, 8, LOWER16(s.reg8)))
	return q
}

// CP0Read reads CP0 register (reg, sel) from the halted target.
func (s *Session) CP0Read(reg, sel uint32) (uint32, error) {
	const op = "cp0_read"
	if err := s.enter(op); err != nil {
		return 0, err
	}
	defer s.leave()

	q := s.cp0ReadQueue(reg, sel)
	out, err := s.run(op, q)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// cp0WriteQueue builds the queue for cp0_write. Unlike every other
// generator this one borrows GPR 15 itself (already spilled to DeSave) to
// carry val, rather than GPR 8, so no scratch-register restore is needed.
// Grounded on mips32_cp0_write (max_code = 6).
func (s *Session) cp0WriteQueue(reg, sel, val uint32) *Queue {
	q := NewQueue(6)
	q.Push(0, MTC0(15, C0DeSave, 0))
	q.Push(0, LUI(15, UPPER16(val)))
	q.Push(0, ORI(15, 15, LOWER16(val)))
	q.Push(0, MTC0(15, reg, sel))
	q.Push(0, B(NEG16(uint32(q.CodeCount)+1)))
	q.Push(0, MFC0(15, C0DeSave, 0))
	return q
}

// CP0Write writes val into CP0 register (reg, sel).
func (s *Session) CP0Write(reg, sel, val uint32) error {
	const op = "cp0_write"
	if err := s.enter(op); err != nil {
		return err
	}
	defer s.leave()

	q := s.cp0WriteQueue(reg, sel, val)
	_, err := s.run(op, q)
	return err
}
