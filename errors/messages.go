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

package errors

// error messages
const (
	// decoder
	UndefinedInstruction    = "decode error: undefined instruction (%#04x) at (%#08x)"
	UnpredictableInstruction = "decode error: unpredictable instruction (%#04x) at (%#08x)"
	TruncatedInstruction    = "decode error: truncated 32bit instruction at (%#08x)"
	UnsupportedEncoding     = "decode error: unsupported encoding (%#04x) at (%#08x)"

	// cpu / emulator
	InvalidRegister      = "cpu error: invalid register index (%d)"
	UnalignedAccess      = "cpu error: unaligned access to address (%#08x)"
	DivideByZero         = "cpu error: divide by zero trapped at (%#08x)"
	UnsupportedArchitecture = "cpu error: unsupported architecture (%v)"

	// memory
	UnreadableAddress  = "memory error: cannot read address (%#08x)"
	UnwritableAddress  = "memory error: cannot write address (%#08x)"
	UnexecutableAddress = "memory error: cannot execute address (%#08x)"
	OverlappingRegions = "memory error: regions overlap (%v and %v)"

	// snapshot
	SnapshotNotOwned = "snapshot error: snapshot does not belong to this emulator"
	SnapshotExpired  = "snapshot error: emulator has been reset since snapshot was taken"

	// fault model
	FaultModelEmpty        = "fault model error: model has no iterations"
	FaultCombinationInvalid = "fault combination error: %v"

	// explorer
	ExplorerNoHaltingPoints = "explorer error: no halting points configured"
	ExplorerNoOracle        = "explorer error: no exploitability oracle configured"
	ExplorerTimeout         = "explorer error: emulation timeout exceeded at (%#08x)"
	ExplorerWorkerError     = "explorer error: worker %v: %v"

	// scripting
	ScriptCompileError = "script oracle error: compile error: %v"
	ScriptRuntimeError = "script oracle error: runtime error: %v"

	// tracer
	TracerVerifyError = "tracer error: verification failed: %v"
	TracerReplayError = "tracer error: replay failed: %v"

	// configuration
	ConfigurationError = "configuration error: %v"
)
