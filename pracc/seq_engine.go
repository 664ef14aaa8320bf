// seq_engine.go - sequential PrAcc engine (spec section 4.C)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c
// wait_for_pracc_rw / mips32_pracc_read_ctrl_addr / mips32_pracc_finish /
// mips32_pracc_clean_text_jump / mips32_pracc_exec. The state machine below
// follows that function's control flow line for line; see spec section 9's
// note on modeling it as a small explicit state machine.

package pracc

import (
	"context"
	"time"
)

const praccPollTimeout = 1 * time.Second

// pollPracc shifts in CONTROL and spins until PRACC is set, honoring the
// ~1s timeout of spec section 4.C step 1.
func (s *Session) pollPracc(ctx context.Context) (uint32, error) {
	if err := s.t.SetInstruction(ctx, InstrControl); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(praccPollTimeout)
	for {
		ctrl, err := s.t.Scan32(ctx, 0)
		if err != nil {
			return 0, err
		}
		if ctrl&EJTAGCtrlPracc != 0 {
			return ctrl, nil
		}
		if time.Now().After(deadline) {
			return 0, newErr("pracc_poll", ErrDeviceError, nil)
		}
	}
}

// readCtrlAddr shifts in control then address, the two-step handshake of
// every PrAcc transaction.
func (s *Session) readCtrlAddr(ctx context.Context) (ctrl, addr uint32, err error) {
	ctrl, err = s.pollPracc(ctx)
	if err != nil {
		return 0, 0, err
	}
	if err := s.t.SetInstruction(ctx, InstrAddress); err != nil {
		return 0, 0, err
	}
	addr, err = s.t.Scan32(ctx, 0)
	if err != nil {
		return 0, 0, err
	}
	return ctrl, addr, nil
}

// finishPracc clears PRACC in the control word and flushes the transport.
func (s *Session) finishPracc(ctx context.Context, ctrl uint32) error {
	if err := s.t.SetInstruction(ctx, InstrControl); err != nil {
		return err
	}
	if err := s.t.Scan32Out(ctx, ctrl&^uint32(EJTAGCtrlPracc)); err != nil {
		return err
	}
	return s.t.ExecuteQueue(ctx)
}

// cleanTextJump shifts in three NOPs, a jump to PRACC_TEXT, and a NOP in
// the delay slot, then (outside queued mode) verifies the next fetch lands
// at PRACC_TEXT — accommodating LEXRA/BMIPS cores that fetch one extra
// word before settling.
func (s *Session) cleanTextJump(ctx context.Context) error {
	jtCode := Jump(PraccText)
	for i := 0; i != 5; i++ {
		ctrl, err := s.pollPracc(ctx)
		if err != nil {
			return err
		}
		if err := s.t.SetInstruction(ctx, InstrData); err != nil {
			return err
		}
		data := uint32(NOP)
		if i == 3 {
			data = jtCode
		}
		if err := s.t.Scan32Out(ctx, data); err != nil {
			return err
		}
		if err := s.finishPracc(ctx, ctrl); err != nil {
			return err
		}
	}

	if s.mode != ModeSequential {
		return nil
	}

	_, addr, err := s.readCtrlAddr(ctx)
	if err != nil {
		return err
	}
	if addr != PraccText {
		if err := s.t.SetInstruction(ctx, InstrData); err != nil {
			return err
		}
		if err := s.t.Scan32Out(ctx, NOP); err != nil {
			return err
		}
		return s.finishPracc(ctx, 0)
	}
	return nil
}

// execSequential runs q one PrAcc access at a time, with the bounded
// restart protocol of spec section 4.C.
func (s *Session) execSequential(ctx context.Context, q *Queue) ([]uint32, error) {
	const op = "seq_exec"
	paramOut := make([]uint32, q.StoreCount)

	codeCount := 0
	storePending := 0
	var maxStoreAddr uint32
	restart := false
	restartCount := 0
	finalCheck := false
	pass := false
	var instr uint32

	for {
		if restart {
			if restartCount >= 3 {
				return nil, newErr(op, ErrProtocolViolation, nil)
			}
			if err := s.cleanTextJump(ctx); err != nil {
				return nil, err
			}
			restartCount++
			restart = false
			codeCount = 0
		}

		ctrl, addr, err := s.readCtrlAddr(ctx)
		if err != nil {
			return nil, err
		}

		if ctrl&EJTAGCtrlPrnw != 0 {
			// Store access: the CPU is writing a word into PARAM_OUT.
			if storePending == 0 {
				if codeCount < 2 {
					restart = true
					continue
				}
				return nil, newErr(op, ErrProtocolViolation, nil)
			}
			if addr < PraccParamOut || addr > maxStoreAddr {
				return nil, newErr(op, ErrProtocolViolation, nil)
			}

			if err := s.t.SetInstruction(ctx, InstrData); err != nil {
				return nil, err
			}
			data, err := s.t.Scan32(ctx, 0)
			if err != nil {
				return nil, err
			}
			paramOut[(addr-PraccParamOut)/4] = data
			storePending--
		} else {
			// Fetch access: the CPU wants the next instruction.
			if !finalCheck {
				if addr != PraccText+uint32(codeCount)*4 {
					if codeCount == 1 && addr == PraccText && restartCount == 0 {
						restartCount++
						codeCount = 0
						continue
					}
					if codeCount < 2 {
						restart = true
						continue
					}
					return nil, newErr(op, ErrProtocolViolation, nil)
				}

				storeAddr := q.StoreAddr[codeCount]
				if storeAddr != 0 {
					if storeAddr > maxStoreAddr {
						maxStoreAddr = storeAddr
					}
					storePending++
				}
				instr = q.Instr[codeCount]
				codeCount++
				if codeCount == q.CodeCount {
					finalCheck = true
				}
			} else {
				if addr == PraccText {
					if !pass {
						if storePending == 0 {
							return paramOut, nil
						}
						pass = true
						codeCount = 0
					} else {
						return nil, newErr(op, ErrProtocolViolation, nil)
					}
				} else if addr != PraccText+uint32(codeCount)*4 {
					return nil, newErr(op, ErrProtocolViolation, nil)
				}

				if !pass {
					if codeCount-q.CodeCount > 1 {
						return nil, newErr(op, ErrProtocolViolation, nil)
					}
				} else if codeCount > 10 {
					return nil, newErr(op, ErrProtocolViolation, nil)
				}
				instr = NOP
				codeCount++
			}

			if err := s.t.SetInstruction(ctx, InstrData); err != nil {
				return nil, err
			}
			if err := s.t.Scan32Out(ctx, instr); err != nil {
				return nil, err
			}
		}

		if err := s.finishPracc(ctx, ctrl); err != nil {
			return nil, err
		}

		if instr == MIPS32_DRET {
			return paramOut, nil
		}
		if storePending == 0 && pass {
			return paramOut, nil
		}
	}
}
