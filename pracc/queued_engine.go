// queued_engine.go - queued/pipelined PrAcc engine (spec section 4.D)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c
// mips32_pracc_queue_exec. Emit phase walks 2*code_count virtual slots
// (odd slots are store read-backs, only present when the previous
// instruction had a non-zero store address); verify phase walks the same
// pattern over the scanned-back records.

package pracc

import "context"

// execQueued batches the whole queue into AddScan96 calls, executes them
// in one shot, then verifies every response in a single pass.
func (s *Session) execQueued(ctx context.Context, q *Queue) ([]uint32, error) {
	const op = "queued_exec"

	buf := make([]uint32, q.StoreCount)

	numClocks := int((uint64(s.scanDelay.Nanoseconds())*uint64(s.t.SpeedKHz()) + 500000) / 1000000)

	ejtagCtrl := uint32(0) &^ EJTAGCtrlPracc
	if err := s.t.SetInstruction(ctx, InstrAll); err != nil {
		return nil, err
	}

	records := make([]*ScanRecord, 0, q.CodeCount+q.StoreCount)
	for i := 0; i != 2*q.CodeCount; i++ {
		var data uint32
		if i&1 != 0 {
			if i < 2 || q.StoreAddr[(i/2)-1] == 0 {
				continue
			}
		} else {
			data = q.Instr[i/2]
		}
		s.t.AddClocks(numClocks)
		records = append(records, s.t.AddScan96(ejtagCtrl, data))
	}

	if err := s.t.ExecuteQueue(ctx); err != nil {
		return nil, newErr(op, ErrDeviceError, err)
	}

	fetchAddr := uint32(PraccText)
	scanIdx := 0
	for i := 0; i != 2*q.CodeCount; i++ {
		var storeAddr uint32
		if i&1 != 0 {
			if i < 2 || q.StoreAddr[(i/2)-1] == 0 {
				continue
			}
			storeAddr = q.StoreAddr[(i/2)-1]
		}

		rec := records[scanIdx]
		if rec.Ctrl&EJTAGCtrlPracc == 0 {
			return nil, newErr(op, ErrProtocolViolation, nil)
		}

		if storeAddr != 0 {
			if rec.Ctrl&EJTAGCtrlPrnw == 0 {
				return nil, newErr(op, ErrProtocolViolation, nil)
			}
			if rec.Addr != storeAddr {
				return nil, newErr(op, ErrProtocolViolation, nil)
			}
			buf[(rec.Addr-PraccParamOut)/4] = rec.Data
		} else {
			if rec.Ctrl&EJTAGCtrlPrnw != 0 {
				return nil, newErr(op, ErrProtocolViolation, nil)
			}
			if rec.Addr != fetchAddr {
				return nil, newErr(op, ErrProtocolViolation, nil)
			}
			fetchAddr += 4
		}
		scanIdx++
	}

	return buf, nil
}
