// Package faketransport is an in-process MIPS32 target simulator
// implementing pracc.Transport and pracc.Allocator, grounded on the
// donor's SystemBus/MemoryBus pattern (IntuitionEngine's memory_bus.go):
// a flat byte-addressed RAM plus a small set of memory-mapped registers,
// guarded by one mutex.
//
// License: GPLv3 or later
//
// Unlike memory_bus.go, which only ever answers Read32/Write32 against
// backing bytes, this target also has to BE the halted CPU on the other
// end of the wire: every fetch from the PRACC_TEXT window and every store
// into the PARAM_OUT window stalls exactly where real EJTAG hardware
// would, waiting for the next Scan call to supply or collect the word.
// Real target RAM (anything outside the 0xFF000000 dmseg segment) is
// read and executed directly with no stall at all, which is what lets
// the resident fastdata and cache-invalidation handlers run to
// completion once the engine JRs into them.
package faketransport

import (
	"context"
	"fmt"
	"sync"

	"github.com/mipsprobe/mipsprobe/pracc"
)

// accessKind tracks what the simulated CPU is currently stalled on.
type accessKind int

const (
	accessNone accessKind = iota
	accessFetch
	accessStore
	accessFastdataWait
)

// Microcode encodings dsp.go feeds the engine verbatim; they don't decode
// as ordinary MIPS32 R-type words, so they're recognized by literal value.
const (
	rddspControl = 0x7fff44b8
	wrdspControl = 0x7d1ffcf8
)

// Target is a simulated halted MIPS32 core plus its RAM, standing in for
// a real JTAG probe and target. Safe for concurrent use by one Session
// (the engine never calls it concurrently from two goroutines, but the
// mutex costs nothing and keeps accidental misuse from racing).
type Target struct {
	mu sync.Mutex

	ram       map[uint32]byte
	dmsegRegs map[uint32]uint32

	regs           [32]uint32
	hi, lo         [4]uint32
	dspControl     uint32
	cp0            map[uint32]uint32
	pc             uint32
	pendingBranch  *uint32

	pending      accessKind
	latchedCtrl  uint32
	latchedAddr  uint32
	latchedData  uint32
	storeRead    bool
	fetchIsBogus bool

	// deferredStore holds a PARAM_OUT store until the next fetch has been
	// supplied, the order a pipelined core presents them in.
	deferredStore *[2]uint32

	probeToTarget     []uint32
	targetToProbe     []uint32
	fastdataWriteSeen int
	dropFastdataAt    int

	bogusFetchRemaining int

	halted    bool
	syncIStep uint32
	speedKHz  int
	impcode   uint32
	idcode    uint32
	curInstr  string

	allocNext uint32
}

// New returns a Target with its simulated CPU parked at PRACC_TEXT,
// halted, ready to receive the engine's first queue.
func New() *Target {
	return &Target{
		ram:            make(map[uint32]byte),
		dmsegRegs:      make(map[uint32]uint32),
		cp0:            make(map[uint32]uint32),
		pc:             pracc.PraccText,
		halted:         true,
		syncIStep:      32,
		speedKHz:       4000,
		allocNext:      0x80020000,
		dropFastdataAt: -1,
	}
}

// --- test/setup helpers, not part of pracc.Transport ---

// SetHalted overrides the reported halt state (default true).
func (t *Target) SetHalted(h bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halted = h
}

// SetCP0 seeds CP0 register (reg, sel) with val, as if the real target had
// powered on with it already set (e.g. Config1's cache-geometry fields).
func (t *Target) SetCP0(reg, sel, val uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cp0[cp0Key(reg, sel)] = val
}

// SetSyncIStep overrides the value RDHWR SYNCI_Step reports (default 32).
func (t *Target) SetSyncIStep(v uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncIStep = v
}

// SetImpcode/SetIdcode seed the values InstrImpcode/InstrIdcode scans read.
func (t *Target) SetImpcode(v uint32) { t.mu.Lock(); t.impcode = v; t.mu.Unlock() }
func (t *Target) SetIdcode(v uint32)  { t.mu.Lock(); t.idcode = v; t.mu.Unlock() }

// InjectBogusFetchAddr arranges for the next n times the simulated CPU's
// program counter lands exactly back on PraccText -- the position the
// sequential engine's restart protocol (seq_engine.go) resynchronizes to
// -- to misreport its address one word off instead of the true value,
// exercising the restart/protocol-violation paths named by spec section 8's
// "Restart" testable property. The misreport only ever affects what Scan32/
// AddScan96 report for InstrAddress; the simulated CPU's own program
// counter and memory state are never touched, matching a JTAG scan-chain
// glitch rather than a real target fault.
func (t *Target) InjectBogusFetchAddr(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bogusFetchRemaining = n
}

// DropFastdataWrite arranges for the idx'th (0-based, counting every
// fastdata write scan including the initial start/end handshake words) word
// written by FastdataScan to be silently swallowed rather than delivered to
// the simulated CPU, as if a scan-timing glitch had dropped it. This leaves
// the resident fastdata handler one word short, still waiting on
// FASTDATA_AREA when the probe stops sending, driving the dangling-access
// recovery path named
// by spec section 8's scenario 6.
func (t *Target) DropFastdataWrite(idx int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropFastdataAt = idx
}

// WriteRAMWord/ReadRAMWord let a test seed or inspect target memory
// directly, bypassing the PrAcc protocol.
func (t *Target) WriteRAMWord(addr, val uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeRAM(addr, 4, val)
}

func (t *Target) ReadRAMWord(addr uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readRAM(addr, 4)
}

// --- pracc.Transport ---

func (t *Target) SetInstruction(ctx context.Context, code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.curInstr = code
	if code == pracc.InstrControl {
		t.ensureAccessReady()
	}
	return nil
}

func (t *Target) Scan32(ctx context.Context, in uint32) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.curInstr {
	case pracc.InstrControl:
		t.ensureAccessReady()
		return t.latchedCtrl, nil
	case pracc.InstrAddress:
		if t.pending == accessFetch && t.fetchIsBogus {
			return t.latchedAddr + 4, nil
		}
		return t.latchedAddr, nil
	case pracc.InstrData:
		if t.pending == accessStore {
			t.storeRead = true
		}
		return t.latchedData, nil
	case pracc.InstrImpcode:
		return t.impcode, nil
	case pracc.InstrIdcode:
		return t.idcode, nil
	default:
		return 0, nil
	}
}

func (t *Target) Scan32Out(ctx context.Context, in uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.curInstr {
	case pracc.InstrControl:
		if t.pending == accessStore && t.storeRead {
			t.storeRead = false
			t.pending = accessNone
			t.ensureAccessReady()
		}
	case pracc.InstrData:
		if t.pending == accessFetch {
			t.supplyFetch(in)
		}
	}
	return nil
}

func (t *Target) Scan8Out(ctx context.Context, in uint8) error { return nil }

func (t *Target) AddScan96(ctrl, data uint32) *pracc.ScanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureAccessReady()
	addr := t.latchedAddr
	if t.pending == accessFetch && t.fetchIsBogus {
		addr += 4
	}
	rec := &pracc.ScanRecord{Ctrl: t.latchedCtrl, Addr: addr}
	switch t.pending {
	case accessStore:
		rec.Data = t.latchedData
		t.pending = accessNone
		t.ensureAccessReady()
	case accessFetch:
		t.supplyFetch(data)
	}
	return rec
}

func (t *Target) FastdataScan(ctx context.Context, dir pracc.FastdataDirection, v *uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dir == pracc.FastdataWrite {
		drop := t.fastdataWriteSeen == t.dropFastdataAt
		t.fastdataWriteSeen++
		if !drop {
			t.probeToTarget = append(t.probeToTarget, *v)
		}
	} else {
		if len(t.targetToProbe) == 0 {
			return fmt.Errorf("faketransport: target produced no fastdata word yet")
		}
		*v = t.targetToProbe[0]
		t.targetToProbe = t.targetToProbe[1:]
	}
	if t.pending == accessFastdataWait {
		t.pending = accessNone
	}
	t.ensureAccessReady()
	return nil
}

func (t *Target) AddClocks(n int) {}

func (t *Target) ExecuteQueue(ctx context.Context) error { return nil }

func (t *Target) SpeedKHz() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speedKHz
}

func (t *Target) TargetHalted(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.halted, nil
}

func (t *Target) Allocator() pracc.Allocator { return t }

// --- pracc.Allocator ---

func (t *Target) Alloc(size int) (pracc.WorkArea, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	addr := t.allocNext
	rounded := (size + 0xFF) &^ 0xFF
	t.allocNext += uint32(rounded)
	return pracc.WorkArea{Address: addr, Size: size}, nil
}

func (t *Target) Free(wa pracc.WorkArea) error { return nil }

// --- the CPU stepper ---

func isFetchWindow(addr uint32) bool {
	return addr >= pracc.PraccText && addr < pracc.PraccParamOut
}

func isStoreWindow(addr uint32) bool {
	return addr >= pracc.PraccParamOut && addr < pracc.PraccStack
}

func isDmsegAddr(addr uint32) bool { return addr>>24 == 0xFF }

func cp0Key(reg, sel uint32) uint32 { return reg*8 + sel }

// ensureAccessReady runs the simulated CPU forward, silently executing
// any instruction outside the dmseg fetch window (real target RAM, no
// debugger involvement) until it reaches a fetch stall (PC re-enters the
// PRACC_TEXT window), a store stall (a write lands in PARAM_OUT), or a
// fastdata stall (a FASTDATA_AREA access with nothing queued yet). A
// pending access already latched is left untouched: this is the
// idempotent "poll" half of the state machine.
func (t *Target) ensureAccessReady() {
	if t.pending != accessNone {
		return
	}
	for {
		addr := t.pc
		if isFetchWindow(addr) {
			t.pending = accessFetch
			t.latchedCtrl = pracc.EJTAGCtrlPracc
			t.latchedAddr = addr
			t.fetchIsBogus = false
			if addr == pracc.PraccText && t.bogusFetchRemaining > 0 {
				t.bogusFetchRemaining--
				t.fetchIsBogus = true
			}
			return
		}
		word := t.readRAM(addr, 4)
		storeAddr, storeVal, stalled := t.step(addr, word)
		t.latchOutcome(storeAddr, storeVal, stalled)
		if t.pending != accessNone {
			return
		}
	}
}

// supplyFetch executes the word the debugger just shifted in for the
// fetch access latched at t.latchedAddr, then re-arms the poll loop.
func (t *Target) supplyFetch(word uint32) {
	addr := t.latchedAddr
	t.pending = accessNone
	storeAddr, storeVal, stalled := t.step(addr, word)
	prev := t.deferredStore
	t.deferredStore = nil
	if storeAddr != 0 {
		t.deferredStore = &[2]uint32{storeAddr, storeVal}
		storeAddr, storeVal = 0, 0
	}
	if prev != nil {
		storeAddr, storeVal = prev[0], prev[1]
	}
	t.latchOutcome(storeAddr, storeVal, stalled)
	if t.pending == accessNone {
		t.ensureAccessReady()
	}
}

func (t *Target) latchOutcome(storeAddr, storeVal uint32, stalled bool) {
	if stalled {
		t.pending = accessFastdataWait
		t.latchedCtrl = pracc.EJTAGCtrlPracc
		t.latchedAddr = pracc.PraccFastdata
		return
	}
	if storeAddr != 0 {
		t.pending = accessStore
		t.latchedCtrl = pracc.EJTAGCtrlPracc | pracc.EJTAGCtrlPrnw
		t.latchedAddr = storeAddr
		t.latchedData = storeVal
	}
}

// step decodes and executes one instruction word fetched from addr,
// advancing pc (honoring exactly one branch delay slot) and reporting a
// PARAM_OUT store or a fastdata stall if either occurred.
func (t *Target) step(addr, word uint32) (storeAddr, storeVal uint32, stalled bool) {
	branchTarget, isBranch, sAddr, sVal, stall := t.execute(addr, word)
	if stall {
		return 0, 0, true
	}
	if t.pendingBranch != nil {
		t.pc = *t.pendingBranch
		t.pendingBranch = nil
	} else {
		t.pc = addr + 4
	}
	if isBranch {
		bt := branchTarget
		t.pendingBranch = &bt
	}
	t.regs[0] = 0
	return sAddr, sVal, false
}

// execute carries out the side effects of one instruction word. Only the
// subset of MIPS32 this package's generators emit is decoded; anything
// else is a silent no-op (harmless, since nothing in this module emits it).
func (t *Target) execute(addr, word uint32) (branchTarget uint32, isBranch bool, storeAddr, storeVal uint32, stall bool) {
	const (
		dret  = 0x4200001F
		sdbbp = 0x7000003F
	)
	if word == dret || word == sdbbp {
		return
	}
	if word == rddspControl {
		t.regs[8] = t.dspControl
		return
	}
	if word == wrdspControl {
		t.dspControl = t.regs[8]
		return
	}

	opcode := word >> 26
	rs := (word >> 21) & 0x1F
	rt := (word >> 16) & 0x1F
	rd := (word >> 11) & 0x1F
	shamt := (word >> 6) & 0x1F
	funct := word & 0x3F
	imm := word & 0xFFFF
	simm := int32(int16(imm))

	switch opcode {
	case 0x00: // SPECIAL
		switch funct {
		case 0x00: // SLL (NOP when all fields zero)
			t.regs[rd] = t.regs[rt] << shamt
		case 0x02: // SRL
			t.regs[rd] = t.regs[rt] >> shamt
		case 0x04: // SLLV
			t.regs[rd] = t.regs[rt] << (t.regs[rs] & 0x1F)
		case 0x08: // JR
			branchTarget = t.regs[rs]
			isBranch = true
		case 0x0F: // SYNC
			// memory barrier: no cache/ordering state to simulate.
		case 0x10: // MFHI
			t.regs[rd] = t.hi[rs&0x3]
		case 0x11: // MTHI
			t.hi[rd&0x3] = t.regs[rs]
		case 0x12: // MFLO
			t.regs[rd] = t.lo[rs&0x3]
		case 0x13: // MTLO
			t.lo[rd&0x3] = t.regs[rs]
		case 0x20: // ADD
			t.regs[rd] = t.regs[rs] + t.regs[rt]
		case 0x24: // AND
			t.regs[rd] = t.regs[rs] & t.regs[rt]
		case 0x25: // OR
			t.regs[rd] = t.regs[rs] | t.regs[rt]
		case 0x26: // XOR
			t.regs[rd] = t.regs[rs] ^ t.regs[rt]
		case 0x2B: // SLTU
			if t.regs[rs] < t.regs[rt] {
				t.regs[rd] = 1
			} else {
				t.regs[rd] = 0
			}
		}
	case 0x01: // REGIMM (SYNCI)
		// instruction-stream sync hint: no cache state to simulate.
	case 0x02: // J
		branchTarget = (addr+4)&0xF0000000 | (word&0x03FFFFFF)<<2
		isBranch = true
	case 0x04: // BEQ (and B, which encodes as BEQ $0,$0,off)
		isBranch = true
		if t.regs[rs] == t.regs[rt] {
			branchTarget = uint32(int32(addr) + 4 + simm*4)
		} else {
			branchTarget = addr + 8
		}
	case 0x05: // BNE
		isBranch = true
		if t.regs[rs] != t.regs[rt] {
			branchTarget = uint32(int32(addr) + 4 + simm*4)
		} else {
			branchTarget = addr + 8
		}
	case 0x07: // BGTZ
		isBranch = true
		if int32(t.regs[rs]) > 0 {
			branchTarget = uint32(int32(addr) + 4 + simm*4)
		} else {
			branchTarget = addr + 8
		}
	case 0x08: // ADDI
		t.regs[rt] = uint32(int32(t.regs[rs]) + simm)
	case 0x09: // ADDIU
		t.regs[rt] = t.regs[rs] + uint32(simm)
	case 0x0C: // ANDI
		t.regs[rt] = t.regs[rs] & imm
	case 0x0D: // ORI
		t.regs[rt] = t.regs[rs] | imm
	case 0x0E: // XORI
		t.regs[rt] = t.regs[rs] ^ imm
	case 0x0F: // LUI
		t.regs[rt] = imm << 16
	case 0x10: // COP0
		switch rs {
		case 0: // MFC0
			t.regs[rt] = t.cp0[cp0Key(rd, funct)]
		case 4: // MTC0
			t.cp0[cp0Key(rd, funct)] = t.regs[rt]
		}
	case 0x1C: // SPECIAL2
		if funct == 0x02 { // MUL
			t.regs[rd] = t.regs[rs] * t.regs[rt]
		}
	case 0x1F: // SPECIAL3
		switch funct {
		case 0x00: // EXT
			pos := shamt
			size := rd + 1
			t.regs[rt] = (t.regs[rs] >> pos) & ((1 << size) - 1)
		case 0x3B: // RDHWR
			if rd == 1 { // HWR_SYNCI_STEP
				t.regs[rt] = t.syncIStep
			}
		}
	case 0x20: // LB
		ea := uint32(int32(t.regs[rs]) + simm)
		v, st := t.doLoad(ea, 1)
		if st {
			stall = true
			return
		}
		t.regs[rt] = uint32(int32(int8(v)))
	case 0x21: // LH
		ea := uint32(int32(t.regs[rs]) + simm)
		v, st := t.doLoad(ea, 2)
		if st {
			stall = true
			return
		}
		t.regs[rt] = uint32(int32(int16(v)))
	case 0x23: // LW
		ea := uint32(int32(t.regs[rs]) + simm)
		v, st := t.doLoad(ea, 4)
		if st {
			stall = true
			return
		}
		t.regs[rt] = v
	case 0x24: // LBU
		ea := uint32(int32(t.regs[rs]) + simm)
		v, st := t.doLoad(ea, 1)
		if st {
			stall = true
			return
		}
		t.regs[rt] = v
	case 0x25: // LHU
		ea := uint32(int32(t.regs[rs]) + simm)
		v, st := t.doLoad(ea, 2)
		if st {
			stall = true
			return
		}
		t.regs[rt] = v
	case 0x28: // SB
		ea := uint32(int32(t.regs[rs]) + simm)
		storeAddr, storeVal = t.doStore(ea, 1, t.regs[rt]&0xFF)
	case 0x29: // SH
		ea := uint32(int32(t.regs[rs]) + simm)
		storeAddr, storeVal = t.doStore(ea, 2, t.regs[rt]&0xFFFF)
	case 0x2B: // SW
		ea := uint32(int32(t.regs[rs]) + simm)
		storeAddr, storeVal = t.doStore(ea, 4, t.regs[rt])
	case 0x2F: // CACHE
		// cache-maintenance op: no cache state modeled, so every
		// Index/Hit/Store-Tag variant is a no-op.
	}

	t.regs[0] = 0
	return
}

// doLoad resolves a memory read against the fastdata channel, a plain
// dmseg register, or real target RAM, in that priority order.
func (t *Target) doLoad(ea uint32, size int) (val uint32, stall bool) {
	if ea == pracc.PraccFastdata {
		if len(t.probeToTarget) == 0 {
			return 0, true
		}
		v := t.probeToTarget[0]
		t.probeToTarget = t.probeToTarget[1:]
		return v, false
	}
	if isDmsegAddr(ea) {
		return t.dmsegRegs[ea], false
	}
	return t.readRAM(ea, size), false
}

// doStore resolves a memory write the same way doLoad resolves a read,
// except a PARAM_OUT write is never actually stored here: it is returned
// to the caller as the PrAcc store access the engine must observe.
func (t *Target) doStore(ea uint32, size int, val uint32) (storeAddr, storeVal uint32) {
	if isStoreWindow(ea) {
		return ea, val
	}
	if ea == pracc.PraccFastdata {
		t.targetToProbe = append(t.targetToProbe, val)
		return 0, 0
	}
	if isDmsegAddr(ea) {
		t.dmsegRegs[ea] = val
		return 0, 0
	}
	t.writeRAM(ea, size, val)
	return 0, 0
}

func (t *Target) readRAM(addr uint32, size int) uint32 {
	switch size {
	case 1:
		return uint32(t.ram[addr])
	case 2:
		return uint32(t.ram[addr]) | uint32(t.ram[addr+1])<<8
	default:
		return uint32(t.ram[addr]) | uint32(t.ram[addr+1])<<8 |
			uint32(t.ram[addr+2])<<16 | uint32(t.ram[addr+3])<<24
	}
}

func (t *Target) writeRAM(addr uint32, size int, val uint32) {
	t.ram[addr] = byte(val)
	if size >= 2 {
		t.ram[addr+1] = byte(val >> 8)
	}
	if size >= 4 {
		t.ram[addr+2] = byte(val >> 16)
		t.ram[addr+3] = byte(val >> 24)
	}
}
