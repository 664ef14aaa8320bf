package pracc

import "testing"

func TestUpperLowerRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0x1234, 0xFFFF8000, 0x7FFFFFFF, 0xDEADBEEF}
	for _, v := range cases {
		lui := UPPER16(v)
		ori := LOWER16(v)
		// LUI shifts its 16-bit immediate into the top half and ORI
		// zero-extends LOWER16 into the bottom half, so reconstruct the
		// way LUI+ORI does it: (lui<<16)+ori, wrapping to uint32, must
		// equal v.
		got := lui<<16 + ori
		if got != v {
			t.Errorf("UPPER16/LOWER16(%#x): reconstructed %#x, want %#x", v, got, v)
		}
	}
}

func TestNEG16(t *testing.T) {
	if got := NEG16(1); got != 0xFFFF {
		t.Errorf("NEG16(1) = %#x, want 0xffff", got)
	}
	if got := NEG16(3); got != 0xFFFD {
		t.Errorf("NEG16(3) = %#x, want 0xfffd", got)
	}
}

func TestRFormFieldPacking(t *testing.T) {
	word := R(OP_SPECIAL, 1, 2, 3, 4, FN_ADD)
	if opcode := word >> 26; opcode != OP_SPECIAL {
		t.Errorf("opcode = %#x, want %#x", opcode, OP_SPECIAL)
	}
	if rs := (word >> 21) & 0x1F; rs != 1 {
		t.Errorf("rs = %d, want 1", rs)
	}
	if rt := (word >> 16) & 0x1F; rt != 2 {
		t.Errorf("rt = %d, want 2", rt)
	}
	if rd := (word >> 11) & 0x1F; rd != 3 {
		t.Errorf("rd = %d, want 3", rd)
	}
	if shamt := (word >> 6) & 0x1F; shamt != 4 {
		t.Errorf("shamt = %d, want 4", shamt)
	}
	if funct := word & 0x3F; funct != FN_ADD {
		t.Errorf("funct = %#x, want %#x", funct, FN_ADD)
	}
}

func TestIFormSignBitsMasked(t *testing.T) {
	word := SW(8, NEG16(1), 15)
	if imm := word & 0xFFFF; imm != 0xFFFF {
		t.Errorf("imm = %#x, want 0xffff", imm)
	}
	if base := (word >> 21) & 0x1F; base != 15 {
		t.Errorf("base = %d, want 15", base)
	}
	if rt := (word >> 16) & 0x1F; rt != 8 {
		t.Errorf("rt = %d, want 8", rt)
	}
}

func TestJumpTargetField(t *testing.T) {
	word := Jump(PraccText)
	if opcode := word >> 26; opcode != OP_J {
		t.Errorf("opcode = %#x, want %#x", opcode, OP_J)
	}
	target := (word & 0x03FFFFFF) << 2
	if target != PraccText&0x0FFFFFFF {
		t.Errorf("target = %#x, want %#x", target, PraccText&0x0FFFFFFF)
	}
}

func TestBEncodesAlwaysTakenBranch(t *testing.T) {
	word := B(NEG16(5))
	if opcode := word >> 26; opcode != OP_BEQ {
		t.Errorf("B() opcode = %#x, want BEQ", opcode)
	}
	if rs := (word >> 21) & 0x1F; rs != 0 {
		t.Errorf("B() rs = %d, want 0", rs)
	}
	if rt := (word >> 16) & 0x1F; rt != 0 {
		t.Errorf("B() rt = %d, want 0", rt)
	}
}
