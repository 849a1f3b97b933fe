// This file is part of faultsim.
//
// faultsim is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// faultsim is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with faultsim.  If not, see <https://www.gnu.org/licenses/>.

package explore

import (
	"github.com/dop251/goja"

	curated "github.com/armory-go/faultsim/errors"
	"github.com/armory-go/faultsim/emulator"
)

// ScriptOracle evaluates a JavaScript predicate, given read-only access to
// registers, PSR flags and a peek-memory callback, to decide exploitability
// at a halting point. It exists alongside the compiled-in Oracle interface
// so a host can express a policy ("R0 == 0 at pc 0x...") without writing Go.
//
// The script must define a top-level function:
//
//	function evaluate(pc) { ... return "exploitable" | "not_exploitable" | "continue"; }
//
// goja runtimes are not goroutine-safe, so each ScriptOracle owns exactly
// one goja.Runtime; Clone compiles a fresh one from the same cached program.
type ScriptOracle struct {
	source  string
	program *goja.Program
	vm      *goja.Runtime
}

// NewScriptOracle compiles source once; compile errors are returned
// immediately rather than deferred to first Evaluate.
func NewScriptOracle(source string) (*ScriptOracle, error) {
	program, err := goja.Compile("oracle.js", source, false)
	if err != nil {
		return nil, curated.Errorf(curated.ScriptCompileError, err)
	}
	return &ScriptOracle{source: source, program: program}, nil
}

func (s *ScriptOracle) runtime() (*goja.Runtime, error) {
	if s.vm != nil {
		return s.vm, nil
	}
	vm := goja.New()
	if _, err := vm.RunProgram(s.program); err != nil {
		return nil, curated.Errorf(curated.ScriptRuntimeError, err)
	}
	s.vm = vm
	return vm, nil
}

func registersObject(emu *emulator.Emulator) map[string]uint32 {
	names := []string{"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9", "r10", "r11", "r12", "sp", "lr", "pc"}
	out := make(map[string]uint32, len(names))
	for i, name := range names {
		out[name] = emu.ReadRegister(i)
	}
	return out
}

func flagsObject(emu *emulator.Emulator) map[string]bool {
	st := emu.State.Registers.Status()
	return map[string]bool{
		"n": st.Negative(),
		"z": st.Zero(),
		"c": st.Carry(),
		"v": st.Overflow(),
		"q": st.Saturate(),
	}
}

// Evaluate runs the compiled evaluate(pc) function against a snapshot of
// the emulator's registers, flags, and a peekMemory(addr, length) callback
// that reads live memory.
func (s *ScriptOracle) Evaluate(emu *emulator.Emulator, pc uint32) Decision {
	vm, err := s.runtime()
	if err != nil {
		return NotExploitable
	}

	vm.Set("registers", registersObject(emu))
	vm.Set("flags", flagsObject(emu))
	vm.Set("pc", pc)
	vm.Set("peekMemory", func(addr, length uint32) []byte {
		data, rc := emu.ReadMemory(addr, length)
		if rc != emulator.OK {
			return nil
		}
		return data
	})

	fn, ok := goja.AssertFunction(vm.Get("evaluate"))
	if !ok {
		return NotExploitable
	}

	result, err := fn(goja.Undefined(), vm.ToValue(pc))
	if err != nil {
		return NotExploitable
	}

	switch result.String() {
	case "exploitable":
		return Exploitable
	case "continue":
		return ContinueSimulation
	default:
		return NotExploitable
	}
}

// Clone returns a new ScriptOracle sharing the compiled program but with its
// own, not-yet-initialized goja.Runtime, so that cloning never carries
// cross-trial script state forward (spec.md §5 "oracle cloning").
func (s *ScriptOracle) Clone() Oracle {
	return &ScriptOracle{source: s.source, program: s.program}
}
