package vm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

// Compile assembles a program from its textual form. The grammar is a
// whitespace-separated token stream:
//
//	program  := "begin" body "end"
//	body     := ( op | "if.true" body "else" body "end"
//	                 | "while.true" body "end" )*
//	op       := "push.<n>" | "read" | "hintinv" | "hintdiv2" | "dup"
//	          | "swap" | "roll.3" | "roll.4" | "drop" | "neg" | "add"
//	          | "mul" | "not" | "eq" | "choose" | "assert" | "asserteq"
//	          | "noop"
//
// "eq" expands to the advice-push pair [hintinv, eq] so the equality
// witness the constraint system expects is always present.
func Compile(source string) (*Program, error) {
	p := &parser{tokens: strings.Fields(source)}
	if !p.accept("begin") {
		return nil, p.errorf("program must start with 'begin'")
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if !p.accept("end") {
		return nil, p.errorf("program must close with 'end'")
	}
	if p.pos != len(p.tokens) {
		return nil, p.errorf("unexpected trailing token %q", p.tokens[p.pos])
	}
	return NewProgram(body), nil
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *parser) accept(token string) bool {
	if p.peek() == token {
		p.pos++
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("assembly: %s (at token %d)", fmt.Sprintf(format, args...), p.pos)
}

func (p *parser) parseBody() ([]Block, error) {
	var blocks []Block
	var span []Instruction

	flushSpan := func() {
		if len(span) > 0 {
			blocks = append(blocks, Span{Ops: span})
			span = nil
		}
	}

	for {
		token := p.peek()
		switch {
		case token == "" || token == "end" || token == "else":
			flushSpan()
			return blocks, nil

		case token == "if.true":
			p.pos++
			flushSpan()
			trueBody, err := p.parseBody()
			if err != nil {
				return nil, err
			}
			if !p.accept("else") {
				return nil, p.errorf("if.true requires an 'else' arm")
			}
			falseBody, err := p.parseBody()
			if err != nil {
				return nil, err
			}
			if !p.accept("end") {
				return nil, p.errorf("unterminated if.true")
			}
			blocks = append(blocks, IfBlock{True: trueBody, False: falseBody})

		case token == "while.true":
			p.pos++
			flushSpan()
			body, err := p.parseBody()
			if err != nil {
				return nil, err
			}
			if !p.accept("end") {
				return nil, p.errorf("unterminated while.true")
			}
			blocks = append(blocks, WhileBlock{Body: body})

		default:
			instrs, err := p.parseOp(token)
			if err != nil {
				return nil, err
			}
			p.pos++
			span = append(span, instrs...)
		}
	}
}

func (p *parser) parseOp(token string) ([]Instruction, error) {
	if value, ok := strings.CutPrefix(token, "push."); ok {
		n, valid := new(big.Int).SetString(value, 10)
		if !valid {
			return nil, p.errorf("invalid push literal %q", value)
		}
		return []Instruction{{Op: OpPush, Value: core.NewElement(n)}}, nil
	}

	simple := map[string]UserOp{
		"read":     OpRead,
		"hintinv":  OpHintInv,
		"hintdiv2": OpHintDiv2,
		"dup":      OpDup,
		"swap":     OpSwap,
		"roll.3":   OpRoll3,
		"roll.4":   OpRoll4,
		"drop":     OpDrop,
		"neg":      OpNeg,
		"add":      OpAdd,
		"mul":      OpMul,
		"not":      OpNot,
		"choose":   OpChoose,
		"assert":   OpAssert,
		"asserteq": OpAssertEq,
		"noop":     OpNoop,
	}
	if op, ok := simple[token]; ok {
		return []Instruction{{Op: op}}, nil
	}

	if token == "eq" {
		return []Instruction{{Op: OpHintInv}, {Op: OpEq}}, nil
	}

	return nil, p.errorf("unknown instruction %q", token)
}
