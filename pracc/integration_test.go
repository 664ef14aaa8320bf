// integration_test.go exercises every spec section A-H component end to
// end against pracc/faketransport, the way a real probe session would
// drive a halted target. Kept as an external test package so it can
// import faketransport (which itself imports pracc) without a cycle.
package pracc_test

import (
	"context"
	"testing"
	"time"

	"github.com/mipsprobe/mipsprobe/pracc"
	"github.com/mipsprobe/mipsprobe/pracc/faketransport"
)

func newSession(t *testing.T, opts ...pracc.Option) (*pracc.Session, *faketransport.Target) {
	t.Helper()
	ft := faketransport.New()
	return pracc.NewSession(ft, opts...), ft
}

func TestReadU32(t *testing.T) {
	s, ft := newSession(t)
	ft.WriteRAMWord(0x80100000, 0xCAFEF00D)

	got, err := s.ReadU32(0x80100000)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if got != 0xCAFEF00D {
		t.Errorf("ReadU32 = %#x, want 0xcafef00d", got)
	}
}

func TestWriteMemThenReadMem(t *testing.T) {
	s, _ := newSession(t)

	words := []uint32{1, 2, 3, 0x11223344}
	if err := s.WriteMem(0x80100100, 4, words); err != nil {
		t.Fatalf("WriteMem: %v", err)
	}

	out, err := s.ReadMem(0x80100100, 4, len(words))
	if err != nil {
		t.Fatalf("ReadMem: %v", err)
	}
	for i, w := range words {
		if out[i] != w {
			t.Errorf("word %d = %#x, want %#x", i, out[i], w)
		}
	}
}

func TestWriteMemByteAndHalfSizes(t *testing.T) {
	s, _ := newSession(t)

	if err := s.WriteMem(0x80100200, 1, []uint32{0x11, 0x22, 0x33}); err != nil {
		t.Fatalf("WriteMem(size=1): %v", err)
	}
	out, err := s.ReadMem(0x80100200, 1, 3)
	if err != nil {
		t.Fatalf("ReadMem(size=1): %v", err)
	}
	want := []uint32{0x11, 0x22, 0x33}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, out[i], want[i])
		}
	}

	if err := s.WriteMem(0x80100300, 2, []uint32{0xABCD, 0x1234}); err != nil {
		t.Fatalf("WriteMem(size=2): %v", err)
	}
	out, err = s.ReadMem(0x80100300, 2, 2)
	if err != nil {
		t.Fatalf("ReadMem(size=2): %v", err)
	}
	if out[0] != 0xABCD || out[1] != 0x1234 {
		t.Errorf("halfwords = %#x, %#x, want 0xabcd, 0x1234", out[0], out[1])
	}
}

func TestReadMemChunking(t *testing.T) {
	s, _ := newSession(t)

	const count = 300 // exceeds readMemChunk(256), forces two chunks
	buf := make([]uint32, count)
	for i := range buf {
		buf[i] = uint32(i)
	}
	if err := s.WriteMem(0x80200000, 4, buf); err != nil {
		t.Fatalf("WriteMem: %v", err)
	}
	out, err := s.ReadMem(0x80200000, 4, count)
	if err != nil {
		t.Fatalf("ReadMem: %v", err)
	}
	for i := range buf {
		if out[i] != buf[i] {
			t.Fatalf("word %d = %#x, want %#x", i, out[i], buf[i])
		}
	}
}

func TestCP0ReadWriteRoundTrip(t *testing.T) {
	s, _ := newSession(t)

	if err := s.CP0Write(12, 0, 0x12345678); err != nil { // status
		t.Fatalf("CP0Write: %v", err)
	}
	got, err := s.CP0Read(12, 0)
	if err != nil {
		t.Fatalf("CP0Read: %v", err)
	}
	if got != 0x12345678 {
		t.Errorf("CP0Read(status) = %#x, want 0x12345678", got)
	}
}

func TestCP0LookupTable(t *testing.T) {
	reg, sel, ok := pracc.LookupCP0("config1")
	if !ok || reg != 16 || sel != 1 {
		t.Fatalf("LookupCP0(config1) = (%d,%d,%v), want (16,1,true)", reg, sel, ok)
	}
	if _, _, ok := pracc.LookupCP0("not-a-register"); ok {
		t.Fatal("LookupCP0 found an entry for a name that should not exist")
	}
}

func TestRegsWriteThenRead(t *testing.T) {
	s, _ := newSession(t)

	var regs pracc.Regs
	for i := 2; i < 32; i++ {
		regs[i] = uint32(i) * 0x01010101
	}
	regs[32] = 0x1 // status
	regs[33] = 0x2 // lo
	regs[34] = 0x3 // hi
	regs[35] = 0x4 // badvaddr
	regs[36] = 0x5 // cause
	regs[37] = 0x6 // depc
	regs[1] = 0xA5A5A5A5

	if err := s.WriteRegs(regs); err != nil {
		t.Fatalf("WriteRegs: %v", err)
	}

	got, err := s.ReadRegs()
	if err != nil {
		t.Fatalf("ReadRegs: %v", err)
	}
	for i := 1; i < 32; i++ {
		if got[i] != regs[i] {
			t.Errorf("gpr[%d] = %#x, want %#x", i, got[i], regs[i])
		}
	}
	for i := 32; i < 38; i++ {
		if got[i] != regs[i] {
			t.Errorf("cp0 slot %d = %#x, want %#x", i, got[i], regs[i])
		}
	}
}

func TestDSPReadWriteRoundTrip(t *testing.T) {
	s, _ := newSession(t)

	if err := s.WriteDSPRegs(pracc.DSPAC1Hi, 0x1111); err != nil {
		t.Fatalf("WriteDSPRegs(AC1Hi): %v", err)
	}
	if err := s.WriteDSPRegs(pracc.DSPAC1Lo, 0x2222); err != nil {
		t.Fatalf("WriteDSPRegs(AC1Lo): %v", err)
	}

	hi, err := s.ReadDSPRegs(pracc.DSPAC1Hi)
	if err != nil {
		t.Fatalf("ReadDSPRegs(AC1Hi): %v", err)
	}
	if hi != 0x1111 {
		t.Errorf("AC1Hi = %#x, want 0x1111", hi)
	}

	lo, err := s.ReadDSPRegs(pracc.DSPAC1Lo)
	if err != nil {
		t.Fatalf("ReadDSPRegs(AC1Lo): %v", err)
	}
	if lo != 0x2222 {
		t.Errorf("AC1Lo = %#x, want 0x2222", lo)
	}
}

func TestDSPControlRoundTrip(t *testing.T) {
	s, _ := newSession(t)
	if err := s.WriteDSPRegs(pracc.DSPControl, 0x42); err != nil {
		t.Fatalf("WriteDSPRegs(control): %v", err)
	}
	got, err := s.ReadDSPRegs(pracc.DSPControl)
	if err != nil {
		t.Fatalf("ReadDSPRegs(control): %v", err)
	}
	if got != 0x42 {
		t.Errorf("DSP control = %#x, want 0x42", got)
	}
}

func TestDSPRejectsOutOfRangeRegister(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.ReadDSPRegs(pracc.DSPReg(99)); err == nil {
		t.Fatal("expected an error for an out-of-range DSP register")
	} else if kind, ok := pracc.KindOf(err); !ok || kind != pracc.ErrSyntax {
		t.Errorf("KindOf = %v,%v, want ErrSyntax", kind, ok)
	}
}

func TestCacheSyncReleaseTwo(t *testing.T) {
	s, ft := newSession(t)
	ft.SetSyncIStep(32)
	if err := s.CacheSync(0x80100000, 0x801001FF, pracc.CCAWriteback, pracc.ReleaseTwo); err != nil {
		t.Fatalf("CacheSync (release 2): %v", err)
	}
}

func TestCacheSyncReleaseOneNoLines(t *testing.T) {
	s, _ := newSession(t)
	// Config1 defaults to zero: DL field is zero, so release-1 sync is a no-op.
	if err := s.CacheSync(0x80100000, 0x801001FF, pracc.CCAWriteback, pracc.ReleaseOne); err != nil {
		t.Fatalf("CacheSync (release 1, no lines): %v", err)
	}
}

func TestCacheSyncReleaseOneWithLines(t *testing.T) {
	s, ft := newSession(t)
	ft.SetCP0(16, 1, 2<<pracc.Config1DLShift) // DL=2 -> clsiz = 2<<2 = 8
	if err := s.CacheSync(0x80100000, 0x801000FF, pracc.CCAWriteback, pracc.ReleaseOne); err != nil {
		t.Fatalf("CacheSync (release 1, with lines): %v", err)
	}
}

func TestInvalidateCacheBothKinds(t *testing.T) {
	s, ft := newSession(t)
	ft.SetCP0(16, 1, 0) // Config1 all zero: IL/DL fields are zero, both handlers take their short branch

	if err := s.InvalidateCache(pracc.CacheInst); err != nil {
		t.Fatalf("InvalidateCache(instruction): %v", err)
	}
	if err := s.InvalidateCache(pracc.CacheDataWriteback); err != nil {
		t.Fatalf("InvalidateCache(data writeback): %v", err)
	}
	if err := s.InvalidateCache(pracc.CacheDataNoWriteback); err != nil {
		t.Fatalf("InvalidateCache(data no-writeback): %v", err)
	}
}

func TestInvalidateCacheWalksGeometry(t *testing.T) {
	s, ft := newSession(t)
	// IL=1 (4-byte lines), IS=0 (64 sets), IA=0 (1 way): a tiny but non-zero
	// geometry, so the resident handler actually loops instead of
	// short-circuiting on the BEQ at the top.
	ft.SetCP0(16, 1, 1<<pracc.Config1ILShift)
	if err := s.InvalidateCache(pracc.CacheInst); err != nil {
		t.Fatalf("InvalidateCache with non-zero geometry: %v", err)
	}
}

func TestFastdataTransferWriteThenRead(t *testing.T) {
	s, ft := newSession(t)

	const target = 0x80300000
	wa, err := ft.Alloc(pracc.FastdataHandlerSize)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	buf := []uint32{0x1, 0x2, 0x3, 0x4}
	if err := s.FastdataTransfer(context.Background(), wa, pracc.FastdataWrite, target, buf); err != nil {
		t.Fatalf("FastdataTransfer(write): %v", err)
	}
	for i, v := range buf {
		if got := ft.ReadRAMWord(target + uint32(i)*4); got != v {
			t.Errorf("target[%d] = %#x, want %#x", i, got, v)
		}
	}

	readBack := make([]uint32, len(buf))
	if err := s.FastdataTransfer(context.Background(), wa, pracc.FastdataRead, target, readBack); err != nil {
		t.Fatalf("FastdataTransfer(read): %v", err)
	}
	for i, v := range buf {
		if readBack[i] != v {
			t.Errorf("readback[%d] = %#x, want %#x", i, readBack[i], v)
		}
	}
}

func TestFastdataTransferQueuedMode(t *testing.T) {
	s, ft := newSession(t, pracc.WithMode(pracc.ModeQueued), pracc.WithScanDelay(1*time.Microsecond))

	wa, err := ft.Alloc(pracc.FastdataHandlerSize)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf := []uint32{0xAA, 0xBB, 0xCC}
	if err := s.FastdataTransfer(context.Background(), wa, pracc.FastdataWrite, 0x80400000, buf); err != nil {
		t.Fatalf("FastdataTransfer (queued mode): %v", err)
	}
	for i, v := range buf {
		if got := ft.ReadRAMWord(0x80400000 + uint32(i)*4); got != v {
			t.Errorf("target[%d] = %#x, want %#x", i, got, v)
		}
	}
}

func TestBlankCheckMemory(t *testing.T) {
	s, ft := newSession(t)

	ft.WriteRAMWord(0x80500000, 0xFFFFFFFF)
	blank, err := s.BlankCheckMemory(0x80500000, 4)
	if err != nil {
		t.Fatalf("BlankCheckMemory: %v", err)
	}
	if !blank {
		t.Error("expected 0xff-filled range to report blank")
	}

	if err := s.WriteMem(0x80500010, 1, []uint32{0xFF, 0x00, 0xFF}); err != nil {
		t.Fatalf("WriteMem: %v", err)
	}
	blank, err = s.BlankCheckMemory(0x80500010, 3)
	if err != nil {
		t.Fatalf("BlankCheckMemory: %v", err)
	}
	if blank {
		t.Error("expected range containing a non-0xff byte to report not blank")
	}

	blank, err = s.BlankCheckMemory(0x80500000, 0)
	if err != nil || !blank {
		t.Errorf("zero-length range: blank=%v err=%v, want true/nil", blank, err)
	}
}

func TestReadDebugCapsModernEJTAG(t *testing.T) {
	s, _ := newSession(t, pracc.WithEJTAGVersion(pracc.EJTAGVersion50))

	// DCR defaults to zero; this just exercises the non-2.0 (direct DCR
	// read) path without error.
	if _, err := s.ReadDebugCaps(context.Background()); err != nil {
		t.Fatalf("ReadDebugCaps: %v", err)
	}
}

func TestReadDebugCapsEJTAG20Fallback(t *testing.T) {
	s, ft := newSession(t, pracc.WithEJTAGVersion(pracc.EJTAGVersion20))
	ft.SetImpcode(0) // neither impNoIB nor impNoDB set -> both capabilities present

	caps, err := s.ReadDebugCaps(context.Background())
	if err != nil {
		t.Fatalf("ReadDebugCaps: %v", err)
	}
	if !caps.HasInstBreaks || !caps.HasDataBreaks {
		t.Errorf("caps = %+v, want both true with impcode=0", caps)
	}
}

func TestReadMemBoundaryCounts(t *testing.T) {
	s, _ := newSession(t)
	const base = 0x80210000

	for _, count := range []int{0, 1, 256, 257} {
		buf := make([]uint32, count)
		for i := range buf {
			buf[i] = uint32(i) + 1
		}
		if count > 0 {
			if err := s.WriteMem(base, 4, buf); err != nil {
				t.Fatalf("count=%d: WriteMem: %v", count, err)
			}
		}
		out, err := s.ReadMem(base, 4, count)
		if err != nil {
			t.Fatalf("count=%d: ReadMem: %v", count, err)
		}
		if len(out) != count {
			t.Fatalf("count=%d: len(out) = %d, want %d", count, len(out), count)
		}
		for i := range buf {
			if out[i] != buf[i] {
				t.Fatalf("count=%d: word %d = %#x, want %#x", count, i, out[i], buf[i])
			}
		}
	}
}

// TestSequentialEngineRestartRecoversFromOneBogusFetch exercises spec
// section 8's "Restart" testable property: a single corrupted fetch-address
// readback should drive exactly one cleanTextJump resync and still
// complete successfully.
func TestSequentialEngineRestartRecoversFromOneBogusFetch(t *testing.T) {
	s, ft := newSession(t)
	ft.WriteRAMWord(0x80100000, 0xCAFEF00D)
	ft.InjectBogusFetchAddr(1)

	got, err := s.ReadU32(0x80100000)
	if err != nil {
		t.Fatalf("ReadU32 after one injected bogus fetch-address response: %v", err)
	}
	if got != 0xCAFEF00D {
		t.Errorf("ReadU32 = %#x, want 0xcafef00d", got)
	}
}

// TestSequentialEngineProtocolViolationAfterFourBogusFetches exercises the
// other half of the same testable property: enough corrupted readbacks to
// exhaust the restartCount>=3 budget must surface as ErrProtocolViolation,
// not a hang or a silently wrong result.
func TestSequentialEngineProtocolViolationAfterFourBogusFetches(t *testing.T) {
	s, ft := newSession(t)
	ft.InjectBogusFetchAddr(4)

	_, err := s.ReadU32(0x80100000)
	if err == nil {
		t.Fatal("expected a protocol violation after four bogus fetch-address responses")
	}
	if kind, ok := pracc.KindOf(err); !ok || kind != pracc.ErrProtocolViolation {
		t.Errorf("KindOf = %v,%v, want ErrProtocolViolation", kind, ok)
	}
}

// TestFastdataTransferDanglingAccessReportsFailureWithoutHanging exercises
// spec section 8 scenario 6: a dropped fastdata word leaves the resident
// handler one word short, still waiting on FASTDATA_AREA when the probe
// stops sending. cleanupDanglingFastdata's fill loop is bounded by len(buf),
// so this test completing at all is part of what it verifies.
func TestFastdataTransferDanglingAccessReportsFailureWithoutHanging(t *testing.T) {
	s, ft := newSession(t)

	wa, err := ft.Alloc(pracc.FastdataHandlerSize)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	buf := []uint32{0x1, 0x2, 0x3, 0x4}
	ft.DropFastdataWrite(2) // drop the first real data word (0 and 1 are the start/end handshake)

	err = s.FastdataTransfer(context.Background(), wa, pracc.FastdataWrite, 0x80600000, buf)
	if err == nil {
		t.Fatal("expected a fast-download failure when a fastdata word is dropped mid-transfer")
	}
	if kind, ok := pracc.KindOf(err); !ok || kind != pracc.ErrFastDownloadFailed {
		t.Errorf("KindOf = %v,%v, want ErrFastDownloadFailed", kind, ok)
	}
}

func TestSessionRejectsNotHalted(t *testing.T) {
	ft := faketransport.New()
	ft.SetHalted(false)
	s := pracc.NewSession(ft)

	_, err := s.ReadU32(0x80100000)
	if err == nil {
		t.Fatal("expected an error when the target is not halted")
	}
	if kind, ok := pracc.KindOf(err); !ok || kind != pracc.ErrNotHalted {
		t.Errorf("KindOf = %v,%v, want ErrNotHalted", kind, ok)
	}
}
