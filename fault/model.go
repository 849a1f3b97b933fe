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

// Package fault defines the fault-model vocabulary (instruction and register
// fault models, concrete fault applications, and the FaultCombination
// algebra used to describe, order, compare and hash sets of simultaneous
// faults).
//
// The source hierarchy used inheritance and dynamic_cast to discriminate
// between instruction and register fault models. We use a tagged sum
// instead: Model wraps exactly one of *InstructionFaultModel or
// *RegisterFaultModel and dispatches by a Kind field.
package fault

import (
	"github.com/armory-go/faultsim/decode"
	curated "github.com/armory-go/faultsim/errors"
)

// Lifetime describes how long a fault's effect persists once injected.
type Lifetime int

const (
	// Transient faults affect exactly one instruction execution.
	Transient Lifetime = iota
	// Permanent faults are present from the start of the trial onward; for
	// registers they are re-applied on every subsequent write to the target.
	Permanent
	// UntilOverwrite faults (registers only) persist until the register is
	// next written by the program.
	UntilOverwrite
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	case UntilOverwrite:
		return "until-overwrite"
	default:
		return "unknown"
	}
}

// InstructionFaultModel mutates the bytes of a single instruction.
//
// IterationCount reports how many distinct manipulations this model can
// produce for the given instruction (e.g. one per bit for a bit-flip model).
// Applicable is consulted with the decoded instruction and iteration
// before Mutate is called, so a model can reject sites it cannot
// usefully act on (e.g. a skip model applied to the last instruction in
// flash). Mutate returns the manipulated encoding.
type InstructionFaultModel struct {
	Name           string
	Lifetime       Lifetime
	IterationCount func(in decode.Instruction) int
	Applicable     func(in decode.Instruction, iteration int) bool
	Mutate         func(in decode.Instruction, iteration int) [4]byte
}

// RegisterFaultModel mutates the value of a single register.
type RegisterFaultModel struct {
	Name           string
	Lifetime       Lifetime
	IterationCount func(reg int, value uint32) int
	Applicable     func(reg int, value uint32, iteration int) bool
	Mutate         func(reg int, value uint32, iteration int) uint32
}

// IsPermanent reports whether m's lifetime is Permanent.
func (m *InstructionFaultModel) IsPermanent() bool { return m.Lifetime == Permanent }

// IsPermanent reports whether m's lifetime is Permanent.
func (m *RegisterFaultModel) IsPermanent() bool { return m.Lifetime == Permanent }

// Kind discriminates the two Model variants.
type Kind int

const (
	InstructionKind Kind = iota
	RegisterKind
)

// Model is a tagged union of *InstructionFaultModel and *RegisterFaultModel.
type Model struct {
	Kind        Kind
	Instruction *InstructionFaultModel
	Register    *RegisterFaultModel
}

// NewInstructionModel wraps an InstructionFaultModel as a Model.
func NewInstructionModel(m *InstructionFaultModel) Model {
	return Model{Kind: InstructionKind, Instruction: m}
}

// NewRegisterModel wraps a RegisterFaultModel as a Model.
func NewRegisterModel(m *RegisterFaultModel) Model {
	return Model{Kind: RegisterKind, Register: m}
}

// Name returns the underlying model's name.
func (m Model) Name() string {
	if m.Kind == InstructionKind {
		return m.Instruction.Name
	}
	return m.Register.Name
}

// IsPermanent reports whether the underlying model's lifetime is Permanent.
func (m Model) IsPermanent() bool {
	return m.Lifetime() == Permanent
}

// Lifetime returns the underlying model's lifetime tag.
func (m Model) Lifetime() Lifetime {
	if m.Kind == InstructionKind {
		return m.Instruction.Lifetime
	}
	return m.Register.Lifetime
}

// Validate reports a configuration error if the model cannot produce any
// iterations at all, which would make it useless in a search.
func (m Model) Validate() error {
	if m.Kind == InstructionKind && m.Instruction.IterationCount == nil {
		return curated.Errorf(curated.FaultModelEmpty)
	}
	if m.Kind == RegisterKind && m.Register.IterationCount == nil {
		return curated.Errorf(curated.FaultModelEmpty)
	}
	return nil
}

// ModelMultiplicity pairs a model with how many simultaneous instances of it
// may appear in a single FaultCombination.
type ModelMultiplicity struct {
	Model        Model
	Multiplicity int
}
