// caps.go - debug-capability-bit discovery (spec.md Open Question: EJTAG 2.0
// IMPCODE fallback)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32.c mips32_configure_break_unit:
// EJTAG 2.0 moved the instruction/data-breakpoint-present bits from DCR into
// IMPCODE, inverted ("no IB"/"no DB" rather than "has IB"/"has DB"). Every
// later EJTAG revision reports them directly in DCR.

package pracc

import "context"

// Debug control register bits this package reads out of dmseg's DCR.
const (
	dcrENM  = 1 << 5
	dcrIB   = 1 << 7
	dcrDB   = 1 << 8
	ejtagDCRAddr = 0xFF300000
)

// IMPCODE bits relevant to the EJTAG 2.0 fallback.
const (
	impNoIB = 1 << 10
	impNoDB = 1 << 11
)

// DebugCaps is the set of breakpoint/endianness capability bits a target
// reports, independent of which EJTAG revision it implements.
type DebugCaps struct {
	BigEndian        bool
	HasInstBreaks    bool
	HasDataBreaks    bool
}

// ReadDebugCaps derives DebugCaps from DCR, falling back to IMPCODE for
// EJTAG 2.0 targets where DCR never carried the IB/DB bits at all.
func (s *Session) ReadDebugCaps(ctx context.Context) (DebugCaps, error) {
	const op = "read_debug_caps"
	var caps DebugCaps

	dcr, err := s.ReadU32(ejtagDCRAddr)
	if err != nil {
		return caps, err
	}
	caps.BigEndian = dcr&dcrENM != 0

	if s.ejtagVer != EJTAGVersion20 {
		caps.HasInstBreaks = dcr&dcrIB != 0
		caps.HasDataBreaks = dcr&dcrDB != 0
		return caps, nil
	}

	if err := s.enter(op); err != nil {
		return caps, err
	}
	defer s.leave()
	if err := s.t.SetInstruction(ctx, InstrImpcode); err != nil {
		return caps, newErr(op, ErrDeviceError, err)
	}
	impcode, err := s.t.Scan32(ctx, 0)
	if err != nil {
		return caps, newErr(op, ErrDeviceError, err)
	}
	caps.HasInstBreaks = impcode&impNoIB == 0
	caps.HasDataBreaks = impcode&impNoDB == 0
	return caps, nil
}
