package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"twinreg/pkg/cpu"
)

var zeroOperandOps = map[string]uint16{
	"HLT":  cpu.OpHLT,
	"NOP":  cpu.OpNOP,
	"ADD":  cpu.OpADD,
	"SUB":  cpu.OpSUB,
	"MULT": cpu.OpMULT,
	"DIV":  cpu.OpDIV,
	"AND":  cpu.OpAND,
	"OR":   cpu.OpOR,
	"BSL":  cpu.OpBSL,
	"BSR":  cpu.OpBSR,
	"SWP":  cpu.OpSWP,
	"RET":  cpu.OpRET,
}

var oneOperandOps = map[string]uint16{
	"XORI": cpu.OpXORI,
	"SETA": cpu.OpSETA,
	"SETB": cpu.OpSETB,
	"LDA":  cpu.OpLDA,
	"LDB":  cpu.OpLDB,
	"STA":  cpu.OpSTA,
	"JMP":  cpu.OpJMP,
	"JZ":   cpu.OpJZ,
	"JC":   cpu.OpJC,
	"CALL": cpu.OpCALL,
}

// Program is an assembled memory image.
type Program struct {
	Words []uint16
	// Labels maps every label to its word address.
	Labels map[string]uint16
	// SourceMap maps the address of each emitted instruction or directive to
	// its 1-based line in the listing.
	SourceMap map[uint16]int
}

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

func Assemble(code string) (*Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	var address uint32

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if address > 0xFFFF {
				return fmt.Errorf("label '%s' on line %d points past addressable memory", lbl, lineNo)
			}
			if _, exists := a.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[lbl] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		length, err := lineLength(p)
		if err != nil {
			return err
		}
		if address+length > 65536 {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += length
	}

	return nil
}

func (a *Assembler) pass2(lines []string) (*Program, error) {
	prog := &Program{
		Labels:    a.labels,
		SourceMap: make(map[uint16]int),
	}

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		prog.SourceMap[uint16(len(prog.Words))] = lineNo
		mnemonic := p.mnemonic
		ops := p.operands

		switch mnemonic {
		case ".WORD":
			for _, o := range ops {
				val, err := a.parseImmediate(o, lineNo)
				if err != nil {
					return nil, err
				}
				prog.Words = append(prog.Words, val)
			}
			continue

		case ".SPACE":
			n, err := parseCount(ops, lineNo)
			if err != nil {
				return nil, err
			}
			prog.Words = append(prog.Words, make([]uint16, n)...)
			continue
		}

		if opcode, ok := zeroOperandOps[mnemonic]; ok {
			if len(ops) != 0 {
				return nil, fmt.Errorf("%s expects 0 operands on line %d", mnemonic, lineNo)
			}
			prog.Words = append(prog.Words, cpu.EncodeInstruction(opcode))
			continue
		}

		if opcode, ok := oneOperandOps[mnemonic]; ok {
			if len(ops) != 1 {
				return nil, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
			}
			imm, err := a.parseImmediate(ops[0], lineNo)
			if err != nil {
				return nil, err
			}
			prog.Words = append(prog.Words, cpu.EncodeInstruction(opcode), imm)
			continue
		}

		return nil, fmt.Errorf("unknown instruction on line %d: %s", lineNo, mnemonic)
	}

	return prog, nil
}

// lineLength returns the number of words a parsed line occupies.
func lineLength(p parsedLine) (uint32, error) {
	switch p.mnemonic {
	case ".WORD":
		if len(p.operands) == 0 {
			return 0, fmt.Errorf(".WORD expects at least one operand on line %d", p.lineNo)
		}
		return uint32(len(p.operands)), nil
	case ".SPACE":
		n, err := parseCount(p.operands, p.lineNo)
		return uint32(n), err
	}

	length, ok := instructionLength(p.mnemonic)
	if !ok {
		return 0, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}
	return uint32(length), nil
}

func parseCount(ops []string, lineNo int) (int, error) {
	if len(ops) != 1 {
		return 0, fmt.Errorf(".SPACE expects exactly one operand on line %d", lineNo)
	}
	n, err := strconv.ParseUint(ops[0], 0, 32)
	if err != nil || n > 0xFFFF {
		return 0, fmt.Errorf("invalid .SPACE size on line %d: %s", lineNo, ops[0])
	}
	return int(n), nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if beforeColon == "" {
			return p, fmt.Errorf("invalid label on line %d", lineNo)
		}

		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	line = strings.ReplaceAll(line, ",", " ")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

// parseImmediate resolves a numeric literal, a label, or a label with a
// constant offset ("frame+3").
func (a *Assembler) parseImmediate(token string, lineNo int) (uint16, error) {
	if value, err := strconv.ParseInt(token, 0, 32); err == nil {
		if value > 0xFFFF || value < -0x8000 {
			return 0, fmt.Errorf("immediate out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	base, offset := token, int64(0)
	if i := strings.IndexAny(token, "+-"); i > 0 {
		n, err := strconv.ParseInt(token[i:], 0, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid label offset on line %d: %s", lineNo, token)
		}
		base, offset = token[:i], n
	}

	if addr, ok := a.labels[base]; ok {
		return uint16(int64(addr) + offset), nil
	}

	if isIdentifier(base) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", base, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

// instructionLength returns the word length of an instruction.
// Instructions with an operand occupy two words.
func instructionLength(mnemonic string) (uint16, bool) {
	mnemonic = strings.ToUpper(mnemonic)

	if _, ok := zeroOperandOps[mnemonic]; ok {
		return 1, true
	}
	if _, ok := oneOperandOps[mnemonic]; ok {
		return 2, true
	}
	return 0, false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}

	return true
}
