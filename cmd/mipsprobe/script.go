// script.go - Lua scripting of a debug session
//
// License: GPLv3 or later
//
// The donor carries github.com/yuin/gopher-lua in go.mod but never imports
// it anywhere; this is the feature that dependency was evidently meant for.
// It gives the "script <file.lua>"/-script command a real embedded
// interpreter instead of the donor's own cmdScript/cmdMacro, which only
// replay lines of shell syntax.
package main

import (
	"fmt"
	"io"

	lua "github.com/yuin/gopher-lua"

	"github.com/mipsprobe/mipsprobe/pracc"
)

// runScriptFile loads the Lua interpreter, registers the session bindings,
// and runs path to completion.
func (sh *Shell) runScriptFile(path string) error {
	L := lua.NewState()
	defer L.Close()

	sh.registerLua(L)

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// cmdScript implements the shell's "script <file.lua>" command.
func (sh *Shell) cmdScript(w io.Writer, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(w, "usage: script <file.lua>\r\n")
		return
	}
	if err := sh.runScriptFile(args[0]); err != nil {
		fmt.Fprintf(w, "script: %v\r\n", err)
		return
	}
	fmt.Fprintf(w, "script %s: done\r\n", args[0])
}

// registerLua exposes the session's cp0/memory/invalidate operations as Lua
// global functions, each returning (value, err_string_or_nil).
func (sh *Shell) registerLua(L *lua.LState) {
	L.SetGlobal("cp0_read", L.NewFunction(func(L *lua.LState) int {
		reg := uint32(L.CheckInt(1))
		sel := uint32(L.CheckInt(2))
		v, err := sh.sess.CP0Read(reg, sel)
		return pushResult(L, lua.LNumber(v), err)
	}))

	L.SetGlobal("cp0_write", L.NewFunction(func(L *lua.LState) int {
		reg := uint32(L.CheckInt(1))
		sel := uint32(L.CheckInt(2))
		val := uint32(L.CheckInt(3))
		err := sh.sess.CP0Write(reg, sel, val)
		return pushResult(L, lua.LNil, err)
	}))

	L.SetGlobal("mem_read", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckInt(1))
		v, err := sh.sess.ReadU32(addr)
		return pushResult(L, lua.LNumber(v), err)
	}))

	L.SetGlobal("mem_write", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckInt(1))
		val := uint32(L.CheckInt(2))
		err := sh.sess.WriteMem(addr, 4, []uint32{val})
		return pushResult(L, lua.LNil, err)
	}))

	L.SetGlobal("invalidate", L.NewFunction(func(L *lua.LState) int {
		kind, ok := luaCacheKind(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			L.Push(lua.LString("unknown cache kind"))
			return 2
		}
		err := sh.sess.InvalidateCache(kind)
		return pushResult(L, lua.LNil, err)
	}))

	L.SetGlobal("sleep_ns", L.NewFunction(func(L *lua.LState) int {
		// no-op placeholder: scripts run against the in-process simulator,
		// which has no real bus timing to wait out.
		return 0
	}))
}

func luaCacheKind(s string) (pracc.CacheKind, bool) {
	switch s {
	case "inst":
		return pracc.CacheInst, true
	case "data":
		return pracc.CacheDataWriteback, true
	case "datanowb":
		return pracc.CacheDataNoWriteback, true
	default:
		return 0, false
	}
}

// pushResult pushes (value, nil) on success or (nil, err.Error()) on
// failure, the conventional gopher-lua (value, err) return shape.
func pushResult(L *lua.LState, value lua.LValue, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(value)
	return 1
}
