// transport.go - the JTAG transport interface consumed by the engine
//
// License: GPLv3 or later
//
// Shaped after other_examples' OpenTraceLab-OpenTraceJTAG CMSISDAPAdapter:
// a small consumed interface the engine drives, independent of whatever
// USB/FTDI/remote-bitbang backend implements it. The engine never talks to
// hardware directly; it only ever calls through this interface.

package pracc

import "context"

// ScanRecord is one 96-bit combined control|data|address record, used by
// add_scan_96 / the queued engine's verify phase.
type ScanRecord struct {
	Ctrl uint32
	Data uint32
	Addr uint32
}

// FastdataDirection selects which way a FASTDATA scan moves a word.
type FastdataDirection int

const (
	FastdataWrite FastdataDirection = iota
	FastdataRead
)

// Transport is the JTAG-level interface the core consumes. It is
// implemented by a real probe backend (not part of this package) or by
// pracc/faketransport for tests and simulation.
type Transport interface {
	// SetInstruction latches a JTAG instruction-register code: one of
	// InstrControl, InstrAddress, InstrData, InstrAll, InstrFastdata,
	// InstrImpcode, InstrIdcode.
	SetInstruction(ctx context.Context, code string) error

	// Scan32 shifts 32 bits of in into the current data register and
	// returns the 32 bits shifted out.
	Scan32(ctx context.Context, in uint32) (uint32, error)

	// Scan32Out shifts 32 bits in, discarding whatever is shifted out.
	Scan32Out(ctx context.Context, in uint32) error

	// Scan8Out shifts 8 bits in, discarding the output; used for
	// vendor-specific TAP commands outside the PrAcc protocol proper.
	Scan8Out(ctx context.Context, in uint8) error

	// AddScan96 queues a combined 96-bit (control|data|address) scan for
	// the queued engine, returning a handle whose contents are populated
	// by the next ExecuteQueue.
	AddScan96(ctrl, data uint32) *ScanRecord

	// FastdataScan shifts one 33-bit FASTDATA record. dir selects
	// load-from-target vs store-to-target; v is the word transferred
	// (written on read, read on write... in practice it is in/out
	// depending on dir, hence the pointer).
	FastdataScan(ctx context.Context, dir FastdataDirection, v *uint32) error

	// AddClocks appends n idle JTAG clocks to the pending queue, used to
	// pace queued-mode scans against the target's processing latency.
	AddClocks(n int)

	// ExecuteQueue flushes all queued scans and clocks, populating every
	// outstanding ScanRecord and FastdataScan result.
	ExecuteQueue(ctx context.Context) error

	// SpeedKHz reports the current JTAG clock speed, for converting a
	// scan_delay in nanoseconds to an idle-clock count.
	SpeedKHz() int

	// TargetHalted reports whether the CPU is currently halted in debug
	// mode; the engine requires this to be true at entry to every
	// operation.
	TargetHalted(ctx context.Context) (bool, error)

	// Allocator exposes the working-area allocator used by the fast-data
	// and cache-invalidation handlers.
	Allocator() Allocator
}

// Allocator is the target working-area allocator the fast-data transfer and
// explicit cache-invalidation handlers use to install their resident code.
type Allocator interface {
	Alloc(size int) (WorkArea, error)
	Free(WorkArea) error
}

// WorkArea is a handle to a region of target RAM.
type WorkArea struct {
	Address uint32
	Size    int
}
