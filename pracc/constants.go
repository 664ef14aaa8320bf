// constants.go - EJTAG/PrAcc address-space and control-bit constants
//
// License: GPLv3 or later

package pracc

import "time"

// dmseg layout constants (bit-exact, see spec section 6).
const (
	PraccText        = 0xFF200200
	PraccParamOut    = 0xFF202000
	PraccFastdata    = 0xFF200000
	PraccStack       = 0xFF204000
	PraccOutOffset   = PraccParamOut - PraccText&0xFFFF0000 // 0x2000
)

// PraccUpperBase is UPPER16(PraccText), the constant LUI immediate every
// queue prologue uses to load 0xFF200000 (the upper half of PRACC_TEXT) into
// a scratch register; PraccOutOffset is the PARAM_OUT offset from that base.
var PraccUpperBase = UPPER16(PraccText)

// EJTAG control-register bits of interest (nominal values; a real
// transport may redefine them from its own IMPCODE-derived layout, but the
// engine only needs these two).
const (
	EJTAGCtrlPracc = 1 << 18
	EJTAGCtrlPrnw  = 1 << 19
)

// CP0 register 31 is DeSave, the one word guaranteed to survive debug-mode
// entry/exit; the engine spills its reserved scratch GPR there.
const C0DeSave = 31

// ScanDelayLegacyMode is the threshold (inclusive) above which the engine
// must run in sequential mode; below it, queued mode is safe.
const ScanDelayLegacyMode = 2_000_000 * time.Nanosecond

// Mode selects which execution engine services a queue.
type Mode int

const (
	ModeSequential Mode = iota
	ModeQueued
)

// EJTAGVersion distinguishes the EJTAG spec revision a target implements,
// needed for the debug-capability-bits fallback (see caps.go).
type EJTAGVersion int

const (
	EJTAGVersion20 EJTAGVersion = iota
	EJTAGVersion25
	EJTAGVersion31
	EJTAGVersion41
	EJTAGVersion50
)

// JTAG instruction-register codes the transport must accept via SetInstruction.
const (
	InstrControl  = "CONTROL"
	InstrAddress  = "ADDRESS"
	InstrData     = "DATA"
	InstrAll      = "ALL"
	InstrFastdata = "FASTDATA"
	InstrImpcode  = "IMPCODE"
	InstrIdcode   = "IDCODE"
)

// CP0 register release flags, release ∈ {rel1, rel2}.
type CacheRelease int

const (
	ReleaseOne CacheRelease = iota
	ReleaseTwo
)

// CCA is the cache coherency attribute of a memory region.
type CCA int

const (
	CCAUncached    CCA = 0
	CCAWritethrough CCA = 1
	CCAWriteback   CCA = 3
)

// GPR indices by calling-convention name, used by the resident cache and
// fastdata handlers that run standalone in target RAM rather than through
// the scratch-register-shadow discipline (they own the whole register file
// for their duration).
const (
	regZero = 0
	regV0   = 2
	regV1   = 3
	regA0   = 4
	regA1   = 5
	regA2   = 6
	regA3   = 7
	regT0   = 8
	regT1   = 9
	regT2   = 10
	regT3   = 11
	regT4   = 12
	regT5   = 13
	regT6   = 14
	regT7   = 15
)

// CP0 TagLo/TagHi registers used by explicit cache invalidation (section H).
const (
	c0TagLo = 28
	c0TagHi = 29
)

// DSPEnable is the Status register's MX bit, set to gain access to the DSP
// ASE's accumulator and control registers.
const DSPEnable = 0x01000000

// FastdataHandlerSize is the size in bytes of the resident working area the
// fast-data transfer handler needs: its loop body plus a 4-word save area
// for the GPRs it borrows.
const FastdataHandlerSize = 0x80

// EJTAGDCRAddr is the dmseg address of the EJTAG debug control register,
// exported so callers outside the package (the CLI's ejtag_reg command) can
// read it directly alongside ReadDebugCaps's decoded view.
const EJTAGDCRAddr = ejtagDCRAddr
