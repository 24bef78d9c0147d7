// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo && capstone

package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/bnagy/gapstone"
)

const (
	csArch   = gapstone.CS_ARCH_X86
	csMode   = gapstone.CS_MODE_64
	csSyntax = gapstone.CS_OPT_SYNTAX_INTEL
)

// Text disassembles functions.  Call and address immediates found in
// targets are annotated with the target name.
func Text(w io.Writer, funcs []Func, targets map[uintptr]string) error {
	engine, err := gapstone.New(csArch, csMode)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.SetOption(gapstone.CS_OPT_SYNTAX, csSyntax); err != nil {
		return err
	}

	for _, f := range funcs {
		insns, err := engine.Disasm(f.Code, uint64(f.Addr), 0)
		if err != nil {
			return err
		}

		header(w, f)

		for _, insn := range insns {
			text := strings.TrimSpace(fmt.Sprintf("%s\t%s", insn.Mnemonic, insn.OpStr))
			if name := annotation(insn, targets); name != "" {
				text += "\t; " + name
			}
			fmt.Fprintf(w, "%016x\t%s\n", insn.Address, text)
		}
	}

	fmt.Fprintln(w)
	return nil
}

func annotation(insn gapstone.Instruction, targets map[uintptr]string) string {
	var addr uint64

	switch {
	case insn.Mnemonic == "call":
		if _, err := fmt.Sscanf(insn.OpStr, "0x%x", &addr); err != nil {
			return ""
		}

	case insn.Mnemonic == "movabs":
		i := strings.LastIndex(insn.OpStr, ", 0x")
		if i < 0 {
			return ""
		}
		if _, err := fmt.Sscanf(insn.OpStr[i+2:], "0x%x", &addr); err != nil {
			return ""
		}

	default:
		return ""
	}

	return targets[uintptr(addr)]
}
