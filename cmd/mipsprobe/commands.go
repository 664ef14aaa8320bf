// commands.go - command parsing and dispatch for the mipsprobe shell
//
// License: GPLv3 or later
//
// Grounded on donor debug_commands.go: ParseCommand's whitespace-split
// lowercase-name convention, and ParseAddress's $hex/0xhex/bare-hex/#decimal
// format family (narrowed to uint32, since every address here is a MIPS32
// one). The command table covers the CLI surface of spec section 6:
// cp0, dsp, invalidate, scan_delay, ejtag_reg, cpuinfo - plus rd/wr/regs/sync
// so the rest of the engine (section 4.E/F) has a way in from the shell too.
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mipsprobe/mipsprobe/pracc"
)

// Command is a parsed shell input line.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a raw input line into a lowercase command name and
// its arguments.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{}
	}
	parts := strings.Fields(input)
	return Command{Name: strings.ToLower(parts[0]), Args: parts[1:]}
}

// ParseAddress parses a MIPS32 address/value in $hex, 0xhex, bare hex, or
// #decimal form.
func ParseAddress(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "#") {
		v, err := strconv.ParseUint(s[1:], 10, 32)
		return uint32(v), err == nil
	}
	if strings.HasPrefix(s, "$") {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		return uint32(v), err == nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return uint32(v), err == nil
	}
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err == nil
}

// execute dispatches cmd to its handler, writing output to w. Returns true
// if the shell should exit.
func (sh *Shell) execute(w io.Writer, cmd Command) bool {
	switch cmd.Name {
	case "cp0":
		sh.cmdCP0(w, cmd.Args)
	case "dsp":
		sh.cmdDSP(w, cmd.Args)
	case "invalidate":
		sh.cmdInvalidate(w, cmd.Args)
	case "scan_delay":
		sh.cmdScanDelay(w, cmd.Args)
	case "ejtag_reg":
		sh.cmdEJTAGReg(w, cmd.Args)
	case "cpuinfo":
		sh.cmdCPUInfo(w, cmd.Args)
	case "rd":
		sh.cmdReadMem(w, cmd.Args)
	case "wr":
		sh.cmdWriteMem(w, cmd.Args)
	case "regs":
		sh.cmdRegs(w, cmd.Args)
	case "sync":
		sh.cmdCacheSync(w, cmd.Args)
	case "script":
		sh.cmdScript(w, cmd.Args)
	case "?", "help":
		sh.cmdHelp(w)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(w, "unknown command: %s (try \"help\")\r\n", cmd.Name)
	}
	return false
}

func reportErr(w io.Writer, op string, err error) {
	if kind, ok := pracc.KindOf(err); ok {
		fmt.Fprintf(w, "%s: %s: %v\r\n", op, kind, err)
		return
	}
	fmt.Fprintf(w, "%s: %v\r\n", op, err)
}

// cmdCP0 implements "cp0 [name|reg sel] [value]": no args lists the table,
// one arg reads by name, two args read by (reg, sel), three args write.
func (sh *Shell) cmdCP0(w io.Writer, args []string) {
	if len(args) == 0 {
		for _, r := range pracc.CP0Regs {
			fmt.Fprintf(w, "  %-10s reg=%-2d sel=%d\r\n", r.Name, r.Reg, r.Sel)
		}
		return
	}

	var reg, sel uint32
	rest := args[1:]
	if r, s, ok := pracc.LookupCP0(args[0]); ok {
		reg, sel = r, s
	} else {
		regv, ok := ParseAddress(args[0])
		if !ok || len(args) < 2 {
			fmt.Fprintf(w, "usage: cp0 [name|reg sel] [value]\r\n")
			return
		}
		selv, ok := ParseAddress(args[1])
		if !ok {
			fmt.Fprintf(w, "invalid selector: %s\r\n", args[1])
			return
		}
		reg, sel = regv, selv
		rest = args[2:]
	}

	if len(rest) == 0 {
		v, err := sh.sess.CP0Read(reg, sel)
		if err != nil {
			reportErr(w, "cp0", err)
			return
		}
		fmt.Fprintf(w, "cp0[%d,%d] = 0x%08X\r\n", reg, sel, v)
		return
	}

	val, ok := ParseAddress(rest[0])
	if !ok {
		fmt.Fprintf(w, "invalid value: %s\r\n", rest[0])
		return
	}
	if err := sh.sess.CP0Write(reg, sel, val); err != nil {
		reportErr(w, "cp0", err)
		return
	}
	fmt.Fprintf(w, "cp0[%d,%d] <- 0x%08X\r\n", reg, sel, val)
}

// dspNames is sized to the DSP register set itself. The original's "dsp
// <name> <value>" write path looped its by-name lookup with
// "i < MIPS32NUMCP0REGS" instead of "i < MIPS32NUMDSPREGS" - harmless there
// only because MIPS32NUMCP0REGS happens to exceed the DSP table length, so
// the loop runs past the last real entry before ever reading out of bounds.
// lookupDSP below bounds itself on len(dspNames), so the mismatch has no
// analog to reproduce here.
var dspNames = []string{"ac1hi", "ac2hi", "ac3hi", "ac1lo", "ac2lo", "ac3lo", "control"}

func lookupDSP(name string) (pracc.DSPReg, bool) {
	for i, n := range dspNames {
		if n == name {
			return pracc.DSPReg(i), true
		}
	}
	return 0, false
}

// cmdDSP implements "dsp [name] [value]".
func (sh *Shell) cmdDSP(w io.Writer, args []string) {
	if len(args) == 0 {
		for _, n := range dspNames {
			fmt.Fprintf(w, "  %s\r\n", n)
		}
		return
	}

	reg, ok := lookupDSP(strings.ToLower(args[0]))
	if !ok {
		fmt.Fprintf(w, "unknown DSP register: %s\r\n", args[0])
		return
	}

	if len(args) == 1 {
		v, err := sh.sess.ReadDSPRegs(reg)
		if err != nil {
			reportErr(w, "dsp", err)
			return
		}
		fmt.Fprintf(w, "dsp.%s = 0x%08X\r\n", dspNames[reg], v)
		return
	}

	val, ok := ParseAddress(args[1])
	if !ok {
		fmt.Fprintf(w, "invalid value: %s\r\n", args[1])
		return
	}
	if err := sh.sess.WriteDSPRegs(reg, val); err != nil {
		reportErr(w, "dsp", err)
		return
	}
	fmt.Fprintf(w, "dsp.%s <- 0x%08X\r\n", dspNames[reg], val)
}

// cmdInvalidate implements "invalidate [all|inst|data|allnowb|datanowb]".
func (sh *Shell) cmdInvalidate(w io.Writer, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(w, "usage: invalidate [all|inst|data|allnowb|datanowb]\r\n")
		return
	}

	run := func(kind pracc.CacheKind) bool {
		if err := sh.sess.InvalidateCache(kind); err != nil {
			reportErr(w, "invalidate", err)
			return false
		}
		return true
	}

	switch args[0] {
	case "inst":
		run(pracc.CacheInst)
	case "data":
		run(pracc.CacheDataWriteback)
	case "datanowb":
		run(pracc.CacheDataNoWriteback)
	case "all":
		if run(pracc.CacheInst) {
			run(pracc.CacheDataWriteback)
		}
	case "allnowb":
		if run(pracc.CacheInst) {
			run(pracc.CacheDataNoWriteback)
		}
	default:
		fmt.Fprintf(w, "unknown invalidate target: %s\r\n", args[0])
		return
	}
	fmt.Fprintf(w, "invalidate %s: done\r\n", args[0])
}

// cmdScanDelay implements "scan_delay [ns]": no args reports the current
// delay; one arg rebuilds the session with the new delay.
func (sh *Shell) cmdScanDelay(w io.Writer, args []string) {
	if len(args) == 0 {
		fmt.Fprintf(w, "scan_delay = %s\r\n", sh.scanDelay)
		return
	}
	ns, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || ns < 0 {
		fmt.Fprintf(w, "invalid delay: %s\r\n", args[0])
		return
	}
	sh.scanDelay = time.Duration(ns)
	sh.rebuild(pracc.WithScanDelay(sh.scanDelay))
	fmt.Fprintf(w, "scan_delay <- %dns\r\n", ns)
}

// cmdEJTAGReg implements "ejtag_reg": dumps the decoded debug-capability bits.
func (sh *Shell) cmdEJTAGReg(w io.Writer, args []string) {
	caps, err := sh.sess.ReadDebugCaps(sh.ctx)
	if err != nil {
		reportErr(w, "ejtag_reg", err)
		return
	}
	dcr, err := sh.sess.ReadU32(pracc.EJTAGDCRAddr)
	if err != nil {
		reportErr(w, "ejtag_reg", err)
		return
	}
	fmt.Fprintf(w, "DCR        = 0x%08X\r\n", dcr)
	fmt.Fprintf(w, "big_endian = %v\r\n", caps.BigEndian)
	fmt.Fprintf(w, "inst_break = %v\r\n", caps.HasInstBreaks)
	fmt.Fprintf(w, "data_break = %v\r\n", caps.HasDataBreaks)
}

// cmdCPUInfo implements "cpuinfo": PRId plus transport link speed.
func (sh *Shell) cmdCPUInfo(w io.Writer, args []string) {
	prid, err := sh.sess.CP0Read(15, 0)
	if err != nil {
		reportErr(w, "cpuinfo", err)
		return
	}
	fmt.Fprintf(w, "PRId       = 0x%08X\r\n", prid)
	fmt.Fprintf(w, "link speed = %d kHz\r\n", sh.transport.SpeedKHz())
}

// cmdReadMem implements "rd <addr> [count] [size]".
func (sh *Shell) cmdReadMem(w io.Writer, args []string) {
	if len(args) < 1 {
		fmt.Fprintf(w, "usage: rd <addr> [count] [size]\r\n")
		return
	}
	addr, ok := ParseAddress(args[0])
	if !ok {
		fmt.Fprintf(w, "invalid address: %s\r\n", args[0])
		return
	}
	count := 1
	if len(args) >= 2 {
		if v, ok := ParseAddress(args[1]); ok {
			count = int(v)
		}
	}
	size := 4
	if len(args) >= 3 {
		if v, ok := ParseAddress(args[2]); ok {
			size = int(v)
		}
	}

	vals, err := sh.sess.ReadMem(addr, size, count)
	if err != nil {
		reportErr(w, "rd", err)
		return
	}
	for i, v := range vals {
		fmt.Fprintf(w, "%08X: 0x%0*X\r\n", addr+uint32(i*size), size*2, v)
	}
}

// cmdWriteMem implements "wr <addr> <value> [value...]".
func (sh *Shell) cmdWriteMem(w io.Writer, args []string) {
	if len(args) < 2 {
		fmt.Fprintf(w, "usage: wr <addr> <value> [value...]\r\n")
		return
	}
	addr, ok := ParseAddress(args[0])
	if !ok {
		fmt.Fprintf(w, "invalid address: %s\r\n", args[0])
		return
	}
	buf := make([]uint32, 0, len(args)-1)
	for _, a := range args[1:] {
		v, ok := ParseAddress(a)
		if !ok {
			fmt.Fprintf(w, "invalid value: %s\r\n", a)
			return
		}
		buf = append(buf, v)
	}
	if err := sh.sess.WriteMem(addr, 4, buf); err != nil {
		reportErr(w, "wr", err)
		return
	}
	fmt.Fprintf(w, "wrote %d word(s) at 0x%08X\r\n", len(buf), addr)
}

// cmdRegs implements "regs": dumps the GPR/CP0 snapshot ReadRegs returns.
func (sh *Shell) cmdRegs(w io.Writer, args []string) {
	regs, err := sh.sess.ReadRegs()
	if err != nil {
		reportErr(w, "regs", err)
		return
	}
	for i := 1; i < 32; i++ {
		fmt.Fprintf(w, "  $%-2d = 0x%08X\r\n", i, regs[i])
	}
	fmt.Fprintf(w, "  status   = 0x%08X\r\n", regs[32])
	fmt.Fprintf(w, "  lo       = 0x%08X\r\n", regs[33])
	fmt.Fprintf(w, "  hi       = 0x%08X\r\n", regs[34])
	fmt.Fprintf(w, "  badvaddr = 0x%08X\r\n", regs[35])
	fmt.Fprintf(w, "  cause    = 0x%08X\r\n", regs[36])
	fmt.Fprintf(w, "  depc     = 0x%08X\r\n", regs[37])
}

// cmdCacheSync implements "sync <start> <end> [uncached|writethrough|writeback]".
func (sh *Shell) cmdCacheSync(w io.Writer, args []string) {
	if len(args) < 2 {
		fmt.Fprintf(w, "usage: sync <start> <end> [uncached|writethrough|writeback]\r\n")
		return
	}
	start, ok1 := ParseAddress(args[0])
	end, ok2 := ParseAddress(args[1])
	if !ok1 || !ok2 {
		fmt.Fprintf(w, "invalid range\r\n")
		return
	}
	cca := pracc.CCAWriteback
	if len(args) >= 3 {
		switch args[2] {
		case "uncached":
			cca = pracc.CCAUncached
		case "writethrough":
			cca = pracc.CCAWritethrough
		case "writeback":
			cca = pracc.CCAWriteback
		default:
			fmt.Fprintf(w, "unknown cache attribute: %s\r\n", args[2])
			return
		}
	}
	if err := sh.sess.CacheSync(start, end, cca, sh.sess.CacheRelease()); err != nil {
		reportErr(w, "sync", err)
		return
	}
	fmt.Fprintf(w, "sync 0x%08X-0x%08X: done\r\n", start, end)
}

func (sh *Shell) cmdHelp(w io.Writer) {
	lines := []string{
		"cp0 [name|reg sel] [value]     Read/write/list CP0 registers",
		"dsp [name] [value]             Read/write/list DSP ASE registers",
		"invalidate [all|inst|data|allnowb|datanowb]  Invalidate caches",
		"scan_delay [ns]                Get/set inter-scan delay",
		"ejtag_reg                      Show EJTAG debug control register",
		"cpuinfo                        Show PRId and link speed",
		"rd <addr> [count] [size]       Read target memory",
		"wr <addr> <value...>           Write target memory (32-bit words)",
		"regs                           Dump GPR/CP0 register snapshot",
		"sync <start> <end> [cca]       Explicit cache synchronization",
		"script <file.lua>              Run a Lua script against this session",
		"help                           Show this text",
		"quit                           Exit",
	}
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\r\n", l)
	}
}
