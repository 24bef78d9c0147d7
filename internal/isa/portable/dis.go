// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package portable

import (
	"fmt"
	"io"
)

// Disassemble linked code of one function.  Addresses are printed relative
// to base, which should be the address of the first byte of code.
func Disassemble(w io.Writer, code []byte, base uintptr) error {
	for pc := 0; pc < len(code); {
		insn, err := Decode(code, pc)
		if err != nil {
			return err
		}

		addr := base + uintptr(pc)

		var operands string

		switch opcodeInfo[insn.Op].format {
		case fmtFrame:
			operands = fmt.Sprintf("params=%d results=%d locals=%d", insn.Argc, insn.Results, insn.Index)

		case fmtU32:
			operands = fmt.Sprint(insn.Index)

		case fmtU64:
			operands = fmt.Sprintf("0x%x", insn.Imm)

		case fmtCall:
			target := int64(addr) + CallDispOffset + 4 + int64(insn.Imm)
			operands = fmt.Sprintf("%d %d 0x%x", insn.Argc, insn.Results, uint64(target))

		case fmtCallAbs:
			operands = fmt.Sprintf("%d %d 0x%x", insn.Argc, insn.Results, insn.Imm)

		case fmtCallIndirect:
			operands = fmt.Sprintf("table=%d %d %d", insn.Index, insn.Argc, insn.Results)
		}

		if _, err := fmt.Fprintf(w, "%#x\t%-14s %s\n", addr, insn.Op, operands); err != nil {
			return err
		}

		pc += insn.Len
	}

	return nil
}
