// shell.go - interactive command shell
//
// License: GPLv3 or later
//
// Grounded on donor terminal_host.go's raw-mode stdin handling, but driven
// through golang.org/x/term's line-editing Terminal rather than a raw byte
// reader: a debug shell wants history and basic editing, not a virtual
// terminal MMIO to feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/mipsprobe/mipsprobe/pracc"
)

// stdio adapts os.Stdin/os.Stdout into the io.ReadWriter term.NewTerminal wants.
type stdio struct {
	io.Reader
	io.Writer
}

// Shell owns one pracc.Session plus the options it was built with, so
// commands like scan_delay that change session-wide state can rebuild the
// Session in place (pracc.Session has no runtime setters by design - see
// spec section 9, "options are construction-time only").
type Shell struct {
	transport pracc.Transport
	sess      *pracc.Session
	opts      []pracc.Option
	ctx       context.Context
	scanDelay time.Duration
}

func newShell(t pracc.Transport, opts ...pracc.Option) *Shell {
	sh := &Shell{transport: t, opts: opts, ctx: context.Background(), scanDelay: pracc.ScanDelayLegacyMode}
	sh.sess = pracc.NewSession(t, opts...)
	return sh
}

// rebuild replaces the Session with one built from opts plus extra,
// preserving every option already in effect unless extra overrides it.
func (sh *Shell) rebuild(extra ...pracc.Option) {
	sh.opts = append(sh.opts, extra...)
	sh.sess = pracc.NewSession(sh.transport, sh.opts...)
}

func (sh *Shell) run() error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}

	t := term.NewTerminal(stdio{os.Stdin, os.Stdout}, "mipsprobe> ")
	for {
		line, err := t.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(os.Stdout, "\r")
				return nil
			}
			return err
		}
		cmd := ParseCommand(line)
		if cmd.Name == "" {
			continue
		}
		if sh.execute(t, cmd) {
			return nil
		}
	}
}
