// fastdata.go - fast-data block transfer (spec section 4.G)
//
// License: GPLv3 or later
//
// Grounded on original_source/src/target/mips32_pracc.c
// mips32_pracc_fastdata_xfer: a 20-instruction resident word-streaming
// handler, installed once per direction change, driven via the FASTDATA
// JTAG instruction rather than the CONTROL/ADDRESS/DATA handshake every
// other generator in this package uses.

package pracc

import "context"

const fastdataHandlerWords = 20

// fastdataHandler builds the resident loop. dir selects which side of the
// copy sits in the fastdata area (t0) vs. target RAM (t1): a write streams
// words in from the probe and stores them to RAM; a read loads from RAM and
// streams them out.
func fastdataHandler(dir FastdataDirection) []uint32 {
	h := []uint32{
		SW(regT0, FastdataHandlerSize-4, regT7),
		SW(regT1, FastdataHandlerSize-8, regT7),
		SW(regT2, FastdataHandlerSize-12, regT7),
		SW(regT3, FastdataHandlerSize-16, regT7),

		LUI(regT0, UPPER16(PraccFastdata)),
		ORI(regT0, regT0, LOWER16(PraccFastdata)),
		LW(regT1, 0, regT0),
		LW(regT2, 0, regT0),

		0, // patched below
		0, // patched below
		BNE(regT2, regT1, NEG16(3)),
		ADDI(regT1, regT1, 4),

		LW(regT0, FastdataHandlerSize-4, regT7),
		LW(regT1, FastdataHandlerSize-8, regT7),
		LW(regT2, FastdataHandlerSize-12, regT7),
		LW(regT3, FastdataHandlerSize-16, regT7),

		LUI(regT7, UPPER16(PraccText)),
		ORI(regT7, regT7, LOWER16(PraccText)),
		JR(regT7),
		MFC0(regT7, C0DeSave, 0),
	}
	if dir == FastdataWrite {
		h[8] = LW(regT3, 0, regT0)
		h[9] = SW(regT3, 0, regT1)
	} else {
		h[8] = LW(regT3, 0, regT1)
		h[9] = SW(regT3, 0, regT0)
	}
	return h
}

// FastdataTransfer streams count words between buf and target RAM starting
// at addr, installing the resident handler in work area source (reusing it
// without reinstall when the direction matches the session's last transfer).
func (s *Session) FastdataTransfer(ctx context.Context, source WorkArea, dir FastdataDirection, addr uint32, buf []uint32) error {
	const op = "fastdata_xfer"
	if source.Size < FastdataHandlerSize {
		return newErr(op, ErrResourceUnavailable, nil)
	}
	if !s.fastAccessValid || s.fastAccessSave != dir {
		if err := s.WriteMem(source.Address, 4, fastdataHandler(dir)); err != nil {
			return err
		}
		s.fastAccessSave = dir
		s.fastAccessValid = true
	}

	if err := s.enter(op); err != nil {
		return err
	}
	defer s.leave()

	jmp := []uint32{
		MTC0(15, C0DeSave, 0),
		LUI(15, UPPER16(source.Address)),
		ORI(15, 15, LOWER16(source.Address)),
		JR(15),
		NOP,
	}
	for _, word := range jmp {
		ctrl, err := s.pollPracc(ctx)
		if err != nil {
			return err
		}
		if err := s.t.SetInstruction(ctx, InstrData); err != nil {
			return err
		}
		if err := s.t.Scan32Out(ctx, word); err != nil {
			return err
		}
		if err := s.finishPracc(ctx, ctrl); err != nil {
			return err
		}
	}

	if _, err := s.pollPracc(ctx); err != nil {
		return err
	}
	if err := s.t.SetInstruction(ctx, InstrAddress); err != nil {
		return err
	}
	addrSeen, err := s.t.Scan32(ctx, 0)
	if err != nil {
		return err
	}
	if addrSeen != PraccFastdata {
		return newErr(op, ErrProtocolViolation, nil)
	}

	if err := s.t.SetInstruction(ctx, InstrFastdata); err != nil {
		return err
	}
	start := addr
	if err := s.t.FastdataScan(ctx, FastdataWrite, &start); err != nil {
		return err
	}
	if _, err := s.pollPracc(ctx); err != nil {
		return err
	}
	end := addr + uint32(len(buf)-1)*4
	if err := s.t.SetInstruction(ctx, InstrFastdata); err != nil {
		return err
	}
	if err := s.t.FastdataScan(ctx, FastdataWrite, &end); err != nil {
		return err
	}

	numClocks := 0
	if s.mode != ModeSequential {
		numClocks = int((uint64(s.scanDelay.Nanoseconds())*uint64(s.t.SpeedKHz()) + 500000) / 1000000)
	}
	for i := range buf {
		s.t.AddClocks(numClocks)
		if err := s.t.FastdataScan(ctx, dir, &buf[i]); err != nil {
			return err
		}
	}
	if err := s.t.ExecuteQueue(ctx); err != nil {
		return newErr(op, ErrDeviceError, err)
	}

	if _, err := s.pollPracc(ctx); err != nil {
		return err
	}
	if err := s.t.SetInstruction(ctx, InstrAddress); err != nil {
		return err
	}
	addrSeen, err = s.t.Scan32(ctx, 0)
	if err != nil {
		return err
	}
	if addrSeen == PraccText {
		return nil
	}

	return s.cleanupDanglingFastdata(ctx, len(buf))
}

// cleanupDanglingFastdata mirrors the C source's dangling-access recovery:
// the target is still waiting in the fastdata loop when the probe stops
// feeding it words, so feed it a fill pattern until it falls through back
// to PRACC_TEXT, bounded to count more accesses.
func (s *Session) cleanupDanglingFastdata(ctx context.Context, count int) error {
	const op = "fastdata_xfer"
	const fillPattern = 0xF111C0DE

	pending := 0
	for {
		pending++
		fill := uint32(fillPattern)
		if err := s.t.SetInstruction(ctx, InstrFastdata); err != nil {
			return err
		}
		if err := s.t.FastdataScan(ctx, FastdataWrite, &fill); err != nil {
			return newErr(op, ErrFastDownloadFailed, err)
		}
		if _, err := s.pollPracc(ctx); err != nil {
			return newErr(op, ErrFastDownloadFailed, err)
		}
		if err := s.t.SetInstruction(ctx, InstrAddress); err != nil {
			return err
		}
		addr, err := s.t.Scan32(ctx, 0)
		if err != nil {
			return err
		}
		if pending >= count {
			return newErr(op, ErrFastDownloadFailed, nil)
		}
		if addr == PraccText {
			return newErr(op, ErrFastDownloadFailed, nil)
		}
	}
}
