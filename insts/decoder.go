package insts

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a malformed instruction line. Line is 1-based.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Decoder turns program text into a validated instruction list.
type Decoder struct{}

// NewDecoder creates a new Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses uppercased program text, one instruction per line. Blank
// lines are ignored; they do not consume an instruction index. On error the
// returned slice is nil and the *ParseError names the offending source line.
func (d *Decoder) Decode(lines []string) ([]Instruction, error) {
	program := make([]Instruction, 0, len(lines))

	for lineNo, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		inst, err := d.decodeLine(line, len(program), lineNo+1)
		if err != nil {
			return nil, err
		}

		program = append(program, inst)
	}

	return program, nil
}

func (d *Decoder) decodeLine(line string, index, lineNo int) (Instruction, error) {
	fields := tokenize(line)
	if len(fields) == 0 {
		return Instruction{}, &ParseError{Line: lineNo, Reason: "empty instruction"}
	}

	mnemonic := strings.ToUpper(fields[0])
	operands := fields[1:]

	switch mnemonic {
	case "ADD", "SUB", "MUL", "DIV":
		return d.decodeArith(mnemonic, operands, index, lineNo)
	case "LW", "SW":
		return d.decodeMem(mnemonic, operands, index, lineNo)
	case "BEQ":
		return d.decodeBranch(operands, index, lineNo)
	default:
		return Instruction{}, &ParseError{Line: lineNo, Reason: "unrecognized opcode " + mnemonic}
	}
}

func (d *Decoder) decodeArith(mnemonic string, operands []string, index, lineNo int) (Instruction, error) {
	if len(operands) != 3 {
		return Instruction{}, &ParseError{Line: lineNo, Reason: mnemonic + " requires Rd, Rs, Rt"}
	}

	rd, err := parseRegister(operands[0])
	if err != nil {
		return Instruction{}, &ParseError{Line: lineNo, Reason: err.Error()}
	}
	rs, err := parseRegister(operands[1])
	if err != nil {
		return Instruction{}, &ParseError{Line: lineNo, Reason: err.Error()}
	}
	rt, err := parseRegister(operands[2])
	if err != nil {
		return Instruction{}, &ParseError{Line: lineNo, Reason: err.Error()}
	}

	return Instruction{
		Index: index,
		Op:    opcodeFor(mnemonic),
		Dest:  Reg(rd),
		Src1:  Reg(rs),
		Src2:  Reg(rt),
	}, nil
}

// decodeMem parses "LW Rt, offset(Rs)" / "SW Rt, offset(Rs)".
func (d *Decoder) decodeMem(mnemonic string, operands []string, index, lineNo int) (Instruction, error) {
	if len(operands) != 2 {
		return Instruction{}, &ParseError{Line: lineNo, Reason: mnemonic + " requires Rt, offset(Rs)"}
	}

	rt, err := parseRegister(operands[0])
	if err != nil {
		return Instruction{}, &ParseError{Line: lineNo, Reason: err.Error()}
	}

	offset, base, err := parseOffsetBase(operands[1])
	if err != nil {
		return Instruction{}, &ParseError{Line: lineNo, Reason: err.Error()}
	}

	inst := Instruction{
		Index:     index,
		Op:        opcodeFor(mnemonic),
		Src1:      Reg(base),
		Immediate: offset,
	}
	if mnemonic == "LW" {
		inst.Dest = Reg(rt)
	} else {
		// SW has no destination; Rt is the value source, carried in Src2.
		inst.Src2 = Reg(rt)
	}

	return inst, nil
}

func (d *Decoder) decodeBranch(operands []string, index, lineNo int) (Instruction, error) {
	if len(operands) != 3 {
		return Instruction{}, &ParseError{Line: lineNo, Reason: "BEQ requires Rs, Rt, target"}
	}

	rs, err := parseRegister(operands[0])
	if err != nil {
		return Instruction{}, &ParseError{Line: lineNo, Reason: err.Error()}
	}
	rt, err := parseRegister(operands[1])
	if err != nil {
		return Instruction{}, &ParseError{Line: lineNo, Reason: err.Error()}
	}
	target, err := strconv.ParseInt(operands[2], 10, 64)
	if err != nil {
		return Instruction{}, &ParseError{Line: lineNo, Reason: "invalid BEQ target " + operands[2]}
	}

	return Instruction{
		Index:     index,
		Op:        OpBEQ,
		Src1:      Reg(rs),
		Src2:      Reg(rt),
		Immediate: target,
	}, nil
}

func opcodeFor(mnemonic string) Opcode {
	switch mnemonic {
	case "ADD":
		return OpADD
	case "SUB":
		return OpSUB
	case "MUL":
		return OpMUL
	case "DIV":
		return OpDIV
	case "LW":
		return OpLW
	case "SW":
		return OpSW
	default:
		return OpUnknown
	}
}

// parseRegister accepts R0..R31 or F0..F31, both mapping to a single
// 32-entry namespace; the prefix letter is cosmetic.
func parseRegister(tok string) (uint8, error) {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	if len(tok) < 2 || (tok[0] != 'R' && tok[0] != 'F') {
		return 0, fmt.Errorf("invalid register %q", tok)
	}

	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, fmt.Errorf("invalid register %q", tok)
	}

	return uint8(n), nil
}

// parseOffsetBase parses "offset(Rs)" into a signed offset and base register id.
func parseOffsetBase(tok string) (int64, uint8, error) {
	open := strings.IndexByte(tok, '(')
	close := strings.IndexByte(tok, ')')
	if open < 0 || close < 0 || close < open {
		return 0, 0, fmt.Errorf("invalid offset(base) operand %q", tok)
	}

	offset, err := strconv.ParseInt(tok[:open], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset in %q", tok)
	}

	base, err := parseRegister(tok[open+1 : close])
	if err != nil {
		return 0, 0, err
	}

	return offset, base, nil
}

// tokenize splits a line on whitespace and commas.
func tokenize(line string) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return fields
}
