package cpu

import (
	"errors"
	"testing"
)

// loadProgram loads a slice of words into memory starting at address 0.
func loadProgram(c *CPU, words ...uint16) {
	copy(c.Memory[:], words)
}

func op(opcode uint16) uint16 {
	return EncodeInstruction(opcode)
}

func TestInstructionEncoding(t *testing.T) {
	// OpBSR = 0x0A, shifted into the top six bits.
	encoded := EncodeInstruction(OpBSR)
	if encoded != 0x2800 {
		t.Errorf("EncodeInstruction(OpBSR): expected 0x2800, got 0x%04X", encoded)
	}
	if got := DecodeInstruction(encoded); got != OpBSR {
		t.Errorf("DecodeInstruction: expected 0x%02X, got 0x%02X", OpBSR, got)
	}
	if !HasOperand(OpSETA) || HasOperand(OpADD) {
		t.Errorf("HasOperand: SETA takes an operand, ADD does not")
	}
	if OpName(OpMULT) != "MULT" {
		t.Errorf("OpName(OpMULT) = %q", OpName(OpMULT))
	}
}

func TestALU(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		a, b   uint16
		want   uint16
		zero   bool
	}{
		{"ADD", OpADD, 10, 20, 30, false},
		{"SUB zero", OpSUB, 10, 10, 0, true},
		{"SUB wraps", OpSUB, 5, 6, 0xFFFF, false},
		{"MULT", OpMULT, 7, 6, 42, false},
		{"DIV", OpDIV, 17, 5, 3, false},
		{"DIV by zero", OpDIV, 17, 0, 0, true},
		{"AND", OpAND, 0x00FF, 0x0F0F, 0x000F, false},
		{"OR", OpOR, 0x00F0, 0x000F, 0x00FF, false},
		{"BSL", OpBSL, 1, 4, 16, false},
		{"BSR", OpBSR, 0x0100, 8, 1, false},
	}

	for _, tc := range tests {
		c := NewCPU()
		c.A, c.B = tc.a, tc.b
		loadProgram(c, op(tc.opcode), op(OpHLT))
		c.Run()
		if c.A != tc.want {
			t.Errorf("%s: expected 0x%04X, got 0x%04X", tc.name, tc.want, c.A)
		}
		if c.Z != tc.zero {
			t.Errorf("%s: expected Z=%v", tc.name, tc.zero)
		}
	}
}

func TestCarryFlag(t *testing.T) {
	tests := []struct {
		opcode uint16
		a, b   uint16
		carry  bool
	}{
		{OpSUB, 6, 5, true},
		{OpSUB, 5, 5, true},
		{OpSUB, 5, 6, false},
		{OpADD, 0xFFFF, 1, true},
		{OpADD, 1, 1, false},
	}

	for _, tc := range tests {
		c := NewCPU()
		c.A, c.B = tc.a, tc.b
		loadProgram(c, op(tc.opcode), op(OpHLT))
		c.Run()
		if c.C != tc.carry {
			t.Errorf("%s %d,%d: expected C=%v, got %v", OpName(tc.opcode), tc.a, tc.b, tc.carry, c.C)
		}
	}
}

func TestXorImmediate(t *testing.T) {
	c := NewCPU()
	c.A = 1
	loadProgram(c, op(OpXORI), 1, op(OpHLT))
	c.Run()
	if c.A != 0 || !c.Z {
		t.Errorf("XORI 1 on 1: expected 0 with Z, got %d Z=%v", c.A, c.Z)
	}
}

func TestLoadStoreSwap(t *testing.T) {
	c := NewCPU()
	loadProgram(c,
		op(OpSETA), 42, // 0
		op(OpSTA), 100, // 2
		op(OpSETA), 0, // 4
		op(OpLDB), 100, // 6
		op(OpSWP),      // 8
		op(OpLDB), 101, // 9
		op(OpHLT), // 11
	)
	c.Memory[101] = 7
	c.Run()
	if c.A != 42 || c.B != 7 {
		t.Errorf("expected A=42 B=7, got A=%d B=%d", c.A, c.B)
	}
	if c.Memory[100] != 42 {
		t.Errorf("STA: expected mem[100]=42, got %d", c.Memory[100])
	}
}

func TestJumps(t *testing.T) {
	// JMP skips the HLT at 2.
	c := NewCPU()
	loadProgram(c, op(OpJMP), 3, op(OpHLT), op(OpSETA), 9, op(OpHLT))
	c.Run()
	if c.A != 9 {
		t.Errorf("JMP: expected A=9, got %d", c.A)
	}

	// JZ taken
	c = NewCPU()
	c.Z = true
	loadProgram(c, op(OpJZ), 10)
	c.Step()
	if c.PC != 10 {
		t.Errorf("JZ taken: expected PC=10, got %d", c.PC)
	}

	// JZ not taken
	c = NewCPU()
	loadProgram(c, op(OpJZ), 10)
	c.Step()
	if c.PC != 2 {
		t.Errorf("JZ not taken: expected PC=2, got %d", c.PC)
	}

	// JC taken
	c = NewCPU()
	c.C = true
	loadProgram(c, op(OpJC), 10)
	c.Step()
	if c.PC != 10 {
		t.Errorf("JC taken: expected PC=10, got %d", c.PC)
	}
}

func TestCallReturn(t *testing.T) {
	c := NewCPU()
	loadProgram(c,
		op(OpCALL), 3, // 0
		op(OpHLT),      // 2
		op(OpSETA), 5, // 3
		op(OpRET), // 5
	)
	c.Run()
	if c.A != 5 {
		t.Errorf("expected A=5, got %d", c.A)
	}
	if c.PC != 3 {
		t.Errorf("expected to halt after HLT at 2, PC=%d", c.PC)
	}
	if len(c.CallStack) != 0 {
		t.Errorf("expected empty call stack, got %v", c.CallStack)
	}
}

func TestReturnOnEmptyStackHalts(t *testing.T) {
	c := NewCPU()
	loadProgram(c, op(OpRET), op(OpSETA), 1)
	c.Run()
	if !c.Halted || c.A != 0 {
		t.Errorf("expected halt without executing SETA, A=%d", c.A)
	}
}

func TestRunSteps(t *testing.T) {
	c := NewCPU()
	loadProgram(c, op(OpJMP), 0)
	err := c.RunSteps(100)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}

	c = NewCPU()
	loadProgram(c, op(OpNOP), op(OpHLT))
	if err := c.RunSteps(100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Steps != 2 {
		t.Errorf("expected 2 steps, got %d", c.Steps)
	}
}

func TestLoadResets(t *testing.T) {
	c := NewCPU()
	c.A, c.B, c.PC, c.Halted = 1, 2, 3, true
	c.Memory[500] = 9
	if err := c.Load([]uint16{op(OpHLT)}); err != nil {
		t.Fatal(err)
	}
	if c.A != 0 || c.B != 0 || c.PC != 0 || c.Halted {
		t.Errorf("Load did not reset registers: %+v", c.CallStack)
	}
	if c.Memory[500] != 0 {
		t.Errorf("Load did not clear memory")
	}
	if c.Signed() != 0 {
		t.Errorf("Signed: expected 0")
	}
}
