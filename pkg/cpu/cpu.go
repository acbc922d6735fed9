package cpu

import (
	"errors"
	"fmt"
)

// Opcodes occupy the top six bits of an instruction word. Instructions listed
// in operandOps are followed by one operand word.
const (
	OpHLT  uint16 = 0x00
	OpNOP  uint16 = 0x01
	OpADD  uint16 = 0x02
	OpSUB  uint16 = 0x03
	OpMULT uint16 = 0x04
	OpDIV  uint16 = 0x05
	OpAND  uint16 = 0x06
	OpOR   uint16 = 0x07
	OpXORI uint16 = 0x08
	OpBSL  uint16 = 0x09
	OpBSR  uint16 = 0x0A
	OpSETA uint16 = 0x0B
	OpSETB uint16 = 0x0C
	OpLDA  uint16 = 0x0D
	OpLDB  uint16 = 0x0E
	OpSTA  uint16 = 0x0F
	OpSWP  uint16 = 0x10
	OpJMP  uint16 = 0x11
	OpJZ   uint16 = 0x12
	OpJC   uint16 = 0x13
	OpCALL uint16 = 0x14
	OpRET  uint16 = 0x15
)

var operandOps = map[uint16]bool{
	OpXORI: true,
	OpSETA: true,
	OpSETB: true,
	OpLDA:  true,
	OpLDB:  true,
	OpSTA:  true,
	OpJMP:  true,
	OpJZ:   true,
	OpJC:   true,
	OpCALL: true,
}

var opNames = map[uint16]string{
	OpHLT:  "HLT",
	OpNOP:  "NOP",
	OpADD:  "ADD",
	OpSUB:  "SUB",
	OpMULT: "MULT",
	OpDIV:  "DIV",
	OpAND:  "AND",
	OpOR:   "OR",
	OpXORI: "XORI",
	OpBSL:  "BSL",
	OpBSR:  "BSR",
	OpSETA: "SETA",
	OpSETB: "SETB",
	OpLDA:  "LDA",
	OpLDB:  "LDB",
	OpSTA:  "STA",
	OpSWP:  "SWP",
	OpJMP:  "JMP",
	OpJZ:   "JZ",
	OpJC:   "JC",
	OpCALL: "CALL",
	OpRET:  "RET",
}

// ErrStepLimit is returned by RunSteps when the program has not halted
// within the allowed number of instructions.
var ErrStepLimit = errors.New("cpu: step limit exceeded")

// MaxCallDepth bounds the hardware return stack.
const MaxCallDepth = 256

// CPU is a two-register machine. A is the accumulator and receives every ALU
// result; B is the second operand. Code and data share one word-addressed
// memory, with the program loaded at address 0.
type CPU struct {
	A uint16
	B uint16

	PC uint16

	// Z is set when the last ALU result was zero.
	Z bool
	// C is the carry-out of the last ADD or SUB. SUB computes A + ^B + 1,
	// so C is set exactly when no borrow occurred (A >= B unsigned).
	C bool

	Halted bool

	Memory [65536]uint16

	CallStack []uint16

	Steps int
}

func NewCPU() *CPU {
	return &CPU{}
}

// EncodeInstruction packs an opcode into an instruction word.
func EncodeInstruction(opcode uint16) uint16 {
	return (opcode & 0x3F) << 10
}

// DecodeInstruction extracts the opcode from an instruction word.
func DecodeInstruction(word uint16) uint16 {
	return (word >> 10) & 0x3F
}

// HasOperand reports whether opcode is followed by an operand word.
func HasOperand(opcode uint16) bool {
	return operandOps[opcode]
}

// OpName returns the mnemonic of opcode, or "" if it is not defined.
func OpName(opcode uint16) string {
	return opNames[opcode]
}

// Load copies a program image into memory at address 0 and resets the
// registers.
func (c *CPU) Load(words []uint16) error {
	if len(words) > len(c.Memory) {
		return fmt.Errorf("cpu: program of %d words does not fit in memory", len(words))
	}
	c.Reset()
	c.Memory = [65536]uint16{}
	copy(c.Memory[:], words)
	return nil
}

// Reset clears registers, flags and the return stack, leaving memory intact.
func (c *CPU) Reset() {
	c.A, c.B, c.PC = 0, 0, 0
	c.Z, c.C = false, false
	c.Halted = false
	c.CallStack = nil
	c.Steps = 0
}

func (c *CPU) setResult(result uint16) {
	c.A = result
	c.Z = result == 0
}

func (c *CPU) fetch() uint16 {
	w := c.Memory[c.PC]
	c.PC++
	return w
}

func (c *CPU) Step() {
	if c.Halted {
		return
	}
	c.Steps++

	opcode := DecodeInstruction(c.fetch())
	var operand uint16
	if HasOperand(opcode) {
		operand = c.fetch()
	}

	switch opcode {
	case OpHLT:
		c.Halted = true

	case OpNOP:
		// No operation.

	case OpADD:
		res32 := uint32(c.A) + uint32(c.B)
		c.C = res32 > 0xFFFF
		c.setResult(uint16(res32))

	case OpSUB:
		c.C = c.A >= c.B
		c.setResult(c.A - c.B)

	case OpMULT:
		c.setResult(c.A * c.B)

	case OpDIV:
		if c.B == 0 {
			c.setResult(0)
		} else {
			c.setResult(c.A / c.B)
		}

	case OpAND:
		c.setResult(c.A & c.B)

	case OpOR:
		c.setResult(c.A | c.B)

	case OpXORI:
		c.setResult(c.A ^ operand)

	case OpBSL:
		c.setResult(c.A << c.B)

	case OpBSR:
		c.setResult(c.A >> c.B)

	case OpSETA:
		c.A = operand

	case OpSETB:
		c.B = operand

	case OpLDA:
		c.A = c.Memory[operand]

	case OpLDB:
		c.B = c.Memory[operand]

	case OpSTA:
		c.Memory[operand] = c.A

	case OpSWP:
		c.A, c.B = c.B, c.A

	case OpJMP:
		c.PC = operand

	case OpJZ:
		if c.Z {
			c.PC = operand
		}

	case OpJC:
		if c.C {
			c.PC = operand
		}

	case OpCALL:
		if len(c.CallStack) >= MaxCallDepth {
			// Return stack overflow stops the machine.
			c.Halted = true
			return
		}
		c.CallStack = append(c.CallStack, c.PC)
		c.PC = operand

	case OpRET:
		n := len(c.CallStack)
		if n == 0 {
			c.Halted = true
			return
		}
		c.PC = c.CallStack[n-1]
		c.CallStack = c.CallStack[:n-1]

	default:
		c.Halted = true
	}
}

func (c *CPU) Run() {
	for !c.Halted {
		c.Step()
	}
}

// RunSteps executes until the machine halts or limit instructions have run.
func (c *CPU) RunSteps(limit int) error {
	for i := 0; i < limit; i++ {
		if c.Halted {
			return nil
		}
		c.Step()
	}
	if !c.Halted {
		return fmt.Errorf("%w after %d instructions (PC=0x%04X)", ErrStepLimit, limit, c.PC)
	}
	return nil
}

// Signed returns the A register as a two's-complement value.
func (c *CPU) Signed() int16 {
	return int16(c.A)
}
