// instr.go - MIPS32 instruction encoder for the EJTAG PrAcc engine
//
// License: GPLv3 or later
//
// Pure constructors over the R-/I-/J-form field layout. Only the subset of
// the ISA the engine needs to synthesize on the fly is represented here;
// nothing here decodes or disassembles.

package pracc

// Base opcode field values (bits 31:26), taken from the MIPS32 encoding
// this engine targets.
const (
	OP_SPECIAL  = 0x00
	OP_REGIMM   = 0x01
	OP_J        = 0x02
	OP_BEQ      = 0x04
	OP_BNE      = 0x05
	OP_BGTZ     = 0x07
	OP_ADDI     = 0x08
	OP_ADDIU    = 0x09
	OP_ANDI     = 0x0C
	OP_LUI      = 0x0F
	OP_COP0     = 0x10
	OP_SPECIAL2 = 0x1C
	OP_SPECIAL3 = 0x1F
	OP_ORI      = 0x0D
	OP_XORI     = 0x0E
	OP_LB       = 0x20
	OP_LH       = 0x21
	OP_LW       = 0x23
	OP_LBU      = 0x24
	OP_LHU      = 0x25
	OP_SB       = 0x28
	OP_SH       = 0x29
	OP_SW       = 0x2B
	OP_CACHE    = 0x2F
)

// SPECIAL funct field values (bits 5:0) when opcode == OP_SPECIAL.
const (
	FN_SLL  = 0x00
	FN_SRL  = 0x02
	FN_JR   = 0x08
	FN_MFHI = 0x10
	FN_MTHI = 0x11
	FN_MFLO = 0x12
	FN_MTLO = 0x13
	FN_SLLV = 0x04
	FN_AND  = 0x24
	FN_OR   = 0x25
	FN_XOR  = 0x26
	FN_SLTU = 0x2B
	FN_ADD  = 0x20
)

// SPECIAL2 funct values.
const (
	FN_MUL = 0x02
)

// SPECIAL3 funct values.
const (
	FN_RDHWR = 0x3B
	FN_EXT   = 0x00
)

// Fixed EJTAG debug-mode opcodes, given verbatim (no field synthesis).
const (
	MIPS32_DRET       = 0x4200001F
	MIPS32_SDBBP      = 0x7000003F
	MIPS16_SDBBP      = 0xE801
	MICROMIPS_SDBBP   = 0x000046C0
)

const (
	MIPS32_SYNC       = 0xF
	MIPS32_SYNCI_STEP = 0x1
)

// R builds an R-form instruction word.
func R(opcode, rs, rt, rd, shamt, funct uint32) uint32 {
	return opcode<<26 | rs<<21 | rt<<16 | rd<<11 | shamt<<6 | funct
}

// I builds an I-form instruction word. The immediate is masked to 16 bits;
// callers are expected to have already folded sign handling into imm via
// LOWER16/UPPER16/NEG16 where relevant.
func I(opcode, rs, rt, imm uint32) uint32 {
	return opcode<<26 | rs<<21 | rt<<16 | (imm & 0xFFFF)
}

// J builds a J-form instruction word.
func J(opcode, target uint32) uint32 {
	return opcode<<26 | (target & 0x03FFFFFF)
}

// UPPER16 returns the upper 16 bits of x as a LUI immediate, so that a
// following ORI with LOWER16(x) reconstructs x exactly (ORI zero-extends).
// Callers that pair the LUI with a sign-extended LW/SW 16-bit offset pass
// x+0x8000 instead.
func UPPER16(x uint32) uint32 { return x >> 16 }

// LOWER16 returns the low 16 bits of x.
func LOWER16(x uint32) uint32 { return x & 0xFFFF }

// NEG16 returns -n as a 16-bit two's complement value, for branch offsets
// expressed as "n instructions back".
func NEG16(n uint32) uint32 { return (-n) & 0xFFFF }

func LUI(rt, imm16 uint32) uint32            { return I(OP_LUI, 0, rt, imm16) }
func ORI(rt, rs, imm16 uint32) uint32         { return I(OP_ORI, rs, rt, imm16) }
func ANDI(rt, rs, imm16 uint32) uint32        { return I(OP_ANDI, rs, rt, imm16) }
func XORI(rt, rs, imm16 uint32) uint32        { return I(OP_XORI, rs, rt, imm16) }
func ADDI(rt, rs, imm16 uint32) uint32        { return I(OP_ADDI, rs, rt, imm16) }
func ADDIU(rt, rs, imm16 uint32) uint32       { return I(OP_ADDIU, rs, rt, imm16) }

func LW(rt, off, base uint32) uint32  { return I(OP_LW, base, rt, off) }
func LH(rt, off, base uint32) uint32  { return I(OP_LH, base, rt, off) }
func LHU(rt, off, base uint32) uint32 { return I(OP_LHU, base, rt, off) }
func LB(rt, off, base uint32) uint32  { return I(OP_LB, base, rt, off) }
func LBU(rt, off, base uint32) uint32 { return I(OP_LBU, base, rt, off) }
func SW(rt, off, base uint32) uint32  { return I(OP_SW, base, rt, off) }
func SH(rt, off, base uint32) uint32  { return I(OP_SH, base, rt, off) }
func SB(rt, off, base uint32) uint32  { return I(OP_SB, base, rt, off) }

// MFC0 reads CP0 register (creg, sel) into rt.
func MFC0(rt, creg, sel uint32) uint32 { return R(OP_COP0, 0, rt, creg, 0, sel) }

// MTC0 writes rt into CP0 register (creg, sel).
func MTC0(rt, creg, sel uint32) uint32 { return R(OP_COP0, 4, rt, creg, 0, sel) }

func MFHI(rd uint32) uint32 { return R(OP_SPECIAL, 0, 0, rd, 0, FN_MFHI) }
func MFLO(rd uint32) uint32 { return R(OP_SPECIAL, 0, 0, rd, 0, FN_MFLO) }
func MTHI(rs uint32) uint32 { return R(OP_SPECIAL, rs, 0, 0, 0, FN_MTHI) }
func MTLO(rs uint32) uint32 { return R(OP_SPECIAL, rs, 0, 0, 0, FN_MTLO) }

// BEQ/BNE/BGTZ take a 16-bit branch offset already expressed in
// instruction-count units the way NEG16 produces.
func BEQ(rs, rt, off uint32) uint32  { return I(OP_BEQ, rs, rt, off) }
func BNE(rs, rt, off uint32) uint32  { return I(OP_BNE, rs, rt, off) }
func BGTZ(rs, off uint32) uint32     { return I(OP_BGTZ, rs, 0, off) }

// B is an unconditional branch: BEQ $0, $0, off.
func B(off uint32) uint32 { return BEQ(0, 0, off) }

func Jump(target uint32) uint32 { return J(OP_J, target>>2) }
func JR(rs uint32) uint32       { return R(OP_SPECIAL, rs, 0, 0, 0, FN_JR) }

func OR(rd, rs, rt uint32) uint32  { return R(OP_SPECIAL, rs, rt, rd, 0, FN_OR) }
func SLLV(rd, rt, rs uint32) uint32 { return R(OP_SPECIAL, rs, rt, rd, 0, FN_SLLV) }
func ADD(rd, rs, rt uint32) uint32 { return R(OP_SPECIAL, rs, rt, rd, 0, FN_ADD) }
func MUL(rd, rs, rt uint32) uint32 { return R(OP_SPECIAL2, rs, rt, rd, 0, FN_MUL) }

// EXT extracts a size-bit field starting at bit pos of rs into rt.
func EXT(rt, rs, pos, size uint32) uint32 { return R(OP_SPECIAL3, rs, rt, size-1, pos, FN_EXT) }

// CACHE ops (release 1 cache-maintenance opcodes), composed with a
// target-register-relative offset the same way a load/store is.
const (
	CACHE_INDEX_INVALIDATE_I        = 0x00
	CACHE_INDEX_WRITEBACK_INV_D     = 0x01
	CACHE_INDEX_STORE_TAG_I         = 0x08
	CACHE_INDEX_STORE_TAG_D         = 0x09
	CACHE_HIT_INVALIDATE_I          = 0x10
	CACHE_HIT_INVALIDATE_D          = 0x11
	CACHE_HIT_WRITEBACK_INV_D       = 0x15
)

// CACHE builds a CACHE instruction: opcode field carries the 5-bit cache
// operation split between the "op" sub-fields exactly like a load's rt.
func CACHE(op, off, base uint32) uint32 { return I(OP_CACHE, base, op, off) }

// SYNCI emits the release-2 sync-on-instruction-stream-write opcode.
func SYNCI(off, base uint32) uint32 { return I(OP_REGIMM, base, 0x1F, off) }

// RDHWR reads hardware register hwr into rt (release 2).
func RDHWR(rt, hwr uint32) uint32 { return R(OP_SPECIAL3, 0, rt, hwr, 0, FN_RDHWR) }

// SYNC emits a memory-barrier instruction with the given stype field.
func SYNC(stype uint32) uint32 { return R(OP_SPECIAL, 0, 0, 0, stype, MIPS32_SYNC) }

const NOP = 0

func SDBBP() uint32 { return MIPS32_SDBBP }
func DRET() uint32  { return MIPS32_DRET }

// GPR / hardware-register indices used by name in the engine.
const (
	HWR_SYNCI_STEP = 1
)
