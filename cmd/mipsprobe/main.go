// main.go - mipsprobe entry point
//
// License: GPLv3 or later
//
// Grounded on donor main.go's flag-then-os.Exit(1) style. Unlike the
// donor, which always drives a specific emulated CPU, mipsprobe has no
// real USB/JTAG adapter wired in yet (the pack carries no complete probe
// driver repo, only a single reference file - see DESIGN.md); the only
// pracc.Transport this binary can attach to today is the in-process
// simulator in pracc/faketransport, which main always attaches to; the
// seam for a real adapter is a one-function swap, not a rewrite.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mipsprobe/mipsprobe/pracc"
	"github.com/mipsprobe/mipsprobe/pracc/faketransport"
)

func banner() {
	fmt.Println("mipsprobe - MIPS32 EJTAG PrAcc debug engine")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	var (
		simFlag      = flag.NewFlagSet("", flag.ExitOnError)
		scanDelayNs  = simFlag.Int64("scan-delay", int64(pracc.ScanDelayLegacyMode), "inter-scan delay in nanoseconds")
		ejtagVerFlag = simFlag.String("ejtag-version", "5.0", "EJTAG version: 2.0, 2.5, 3.1, 4.1, 5.0")
		releaseFlag  = simFlag.Int("release", 2, "MIPS32 release: 1 or 2")
		scriptFlag   = simFlag.String("script", "", "run a Lua script then exit")
	)
	simFlag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: mipsprobe [-scan-delay ns] [-ejtag-version v] [-release 1|2] [-script file.lua]")
	}
	if err := simFlag.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	ver, ok := parseEJTAGVersion(*ejtagVerFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "mipsprobe: unknown EJTAG version %q\n", *ejtagVerFlag)
		os.Exit(1)
	}
	release := pracc.ReleaseTwo
	if *releaseFlag == 1 {
		release = pracc.ReleaseOne
	}

	banner()

	target := faketransport.New()
	sh := newShell(target, pracc.WithScanDelay(time.Duration(*scanDelayNs)),
		pracc.WithEJTAGVersion(ver), pracc.WithCacheRelease(release))
	sh.scanDelay = time.Duration(*scanDelayNs)

	if *scriptFlag != "" {
		if err := sh.runScriptFile(*scriptFlag); err != nil {
			fmt.Fprintf(os.Stderr, "mipsprobe: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := sh.run(); err != nil {
		fmt.Fprintf(os.Stderr, "mipsprobe: %v\n", err)
		os.Exit(1)
	}
}

func parseEJTAGVersion(s string) (pracc.EJTAGVersion, bool) {
	switch s {
	case "2.0":
		return pracc.EJTAGVersion20, true
	case "2.5":
		return pracc.EJTAGVersion25, true
	case "3.1":
		return pracc.EJTAGVersion31, true
	case "4.1":
		return pracc.EJTAGVersion41, true
	case "5.0":
		return pracc.EJTAGVersion50, true
	default:
		return 0, false
	}
}
