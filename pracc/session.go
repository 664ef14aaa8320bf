// session.go - EJTAG debug session state and queue-execution dispatch
//
// License: GPLv3 or later
//
// Session state shape grounded on donor debug_monitor.go's MachineMonitor
// (a state machine owning long-lived fields across many operations), but
// guarded by a semaphore rather than the donor's mutex: single-in-flight-
// operation enforcement grounded on donor's declared golang.org/x/sync
// dependency, applied here as the concrete spec section 5 "one PrAcc
// engine invocation owns the JTAG interface exclusively for its duration"
// rule, which also happens to serialize every access to session state.

package pracc

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/semaphore"
)

// Session is the long-lived EJTAG debug session. One Session drives one
// halted MIPS32 target over one Transport. The semaphore below is the only
// guard session state needs: enter/leave bracket every operation so at most
// one goroutine ever touches the fields below it at a time.
type Session struct {
	t Transport

	sem *semaphore.Weighted
	ctx context.Context // background context for semaphore acquisition

	mode      Mode
	scanDelay time.Duration
	ejtagVer  EJTAGVersion
	release   CacheRelease

	// reg8/reg9/reg10 are the session's shadow of what the caller
	// believes those GPRs currently hold; every generator restores them
	// before branching back (see spec section 9, "Scratch-register shadow").
	reg8, reg9, reg10 uint32

	fastAccessSave  FastdataDirection
	fastAccessValid bool
	fastDataArea    *WorkArea

	trace io.Writer
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithMode forces sequential or queued execution regardless of scan delay.
func WithMode(m Mode) Option { return func(s *Session) { s.mode = m } }

// WithScanDelay sets the inter-scan delay used by the queued engine and the
// sequential/queued mode threshold.
func WithScanDelay(d time.Duration) Option { return func(s *Session) { s.scanDelay = d } }

// WithEJTAGVersion records the discovered EJTAG implementation revision,
// needed for the old-core debug-capability fallback (see caps.go).
func WithEJTAGVersion(v EJTAGVersion) Option { return func(s *Session) { s.ejtagVer = v } }

// WithCacheRelease records whether the target is a release-1 or release-2
// EJTAG/MIPS32 core, selecting the cache-sync strategy in section F.
func WithCacheRelease(r CacheRelease) Option { return func(s *Session) { s.release = r } }

// WithTrace enables per-transaction diagnostic logging to w, in the style
// of the donor monitor's output scrollback. The core never logs on its
// own; this is purely an opt-in debugging aid for callers.
func WithTrace(w io.Writer) Option { return func(s *Session) { s.trace = w } }

// CacheRelease reports the cache release strategy the session was
// constructed with (WithCacheRelease), so callers driving CacheSync
// directly - the CLI's cache_sync command, for one - don't have to
// remember it independently of the session.
func (s *Session) CacheRelease() CacheRelease { return s.release }

// NewSession creates a session bound to transport t. Scan delay defaults to
// ScanDelayLegacyMode (sequential-safe); mode defaults to whichever the
// scan delay implies unless WithMode overrides it explicitly.
func NewSession(t Transport, opts ...Option) *Session {
	s := &Session{
		t:         t,
		sem:       semaphore.NewWeighted(1),
		ctx:       context.Background(),
		scanDelay: ScanDelayLegacyMode,
		release:   ReleaseTwo,
		mode:      Mode(-1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mode < 0 {
		s.mode = modeForDelay(s.scanDelay)
	}
	return s
}

func modeForDelay(d time.Duration) Mode {
	if d >= ScanDelayLegacyMode {
		return ModeSequential
	}
	return ModeQueued
}

// enter acquires exclusive ownership of the transport for the duration of
// one engine operation and checks that the target is halted.
func (s *Session) enter(op string) error {
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return newErr(op, ErrDeviceError, err)
	}
	halted, err := s.t.TargetHalted(s.ctx)
	if err != nil {
		s.sem.Release(1)
		return newErr(op, ErrDeviceError, err)
	}
	if !halted {
		s.sem.Release(1)
		return newErr(op, ErrNotHalted, nil)
	}
	return nil
}

func (s *Session) leave() { s.sem.Release(1) }

// run executes q via the engine selected by the session's mode, falling
// back to the sequential engine whenever q contains a DRET (see spec
// section 4.D: "implementation may simply always use C when DRET is
// present").
func (s *Session) run(op string, q *Queue) ([]uint32, error) {
	mode := s.mode
	if containsDret(q) {
		mode = ModeSequential
	}
	if s.trace != nil {
		s.logQueue(op, q, mode)
	}
	switch mode {
	case ModeQueued:
		return s.execQueued(s.ctx, q)
	default:
		return s.execSequential(s.ctx, q)
	}
}

func containsDret(q *Queue) bool {
	for _, i := range q.Instr {
		if i == MIPS32_DRET {
			return true
		}
	}
	return false
}

// loadImm32 emits a LUI+ORI pair (or the cheaper single instruction when
// one half is zero) to load a known 32-bit immediate into rt.
func loadImm32(q *Queue, rt, val uint32) {
	switch {
	case LOWER16(val) == 0:
		q.Push(0, LUI(rt, UPPER16(val)))
	case UPPER16(val) == 0:
		q.Push(0, ORI(rt, 0, LOWER16(val)))
	default:
		q.Push(0, LUI(rt, UPPER16(val)))
		q.Push(0, ORI(rt, rt, LOWER16(val)))
	}
}

// restoreReg emits the LUI+ORI pair that restores rt to the session's
// shadow value, the epilogue shape every generator uses before branching
// back (see spec section 4.E). Unlike loadImm32 used for fresh values, the
// shadow is restored unconditionally with both halves so a generator that
// never touched rt still leaves it bit-identical.
func restoreReg(q *Queue, rt, shadow uint32) {
	q.Push(0, LUI(rt, UPPER16(shadow)))
	q.Push(0, ORI(rt, rt, LOWER16(shadow)))
}
