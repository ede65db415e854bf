// Package export turns a fitted decision tree into a dependency-free C header the packer
// can include. The tree is first compiled to a flat instruction stream; the same stream
// renders the C code and evaluates records in Go, so both agree on every threshold.
package export

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"exe-predictor/internal/ml"
)

// Op is an instruction kind.
type Op uint8

const (
	OpIf     Op = iota // if (x[Feature] <= Threshold) {
	OpElse             // } else {
	OpEnd              // }
	OpReturn           // return Class;
)

func (o Op) String() string {
	switch o {
	case OpIf:
		return "if"
	case OpElse:
		return "else"
	case OpEnd:
		return "end"
	case OpReturn:
		return "return"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Instr is one instruction. Jump is the next instruction when an If test fails, or after an
// Else branch.
type Instr struct {
	Op        Op
	Feature   int
	Threshold float64
	Class     int
	Jump      int
}

// Feature is a feature referenced by the program.
type Feature struct {
	Index int    // column in the training matrix
	Name  string // original name
	Ident string // sanitized C identifier
}

// Program is a compiled decision tree.
type Program struct {
	Instrs   []Instr
	Features []Feature // used features, ordered by Index
	names    []string
}

// thresholdFormat is the precision thresholds are written with.
const thresholdFormat = "%.9f"

// Compile walks the tree with an explicit stack, emitting the left subtree before the right
// one. Thresholds are rounded to the precision they are rendered with.
func Compile(tree *ml.DecisionTree, featNames []string) (*Program, error) {
	if tree == nil {
		return nil, errors.New("nil tree")
	}
	nodes := tree.Nodes()
	if len(nodes) == 0 {
		return nil, ml.ErrNotFitted
	}
	if tree.NumFeatures() != len(featNames) {
		return nil, fmt.Errorf("tree was fitted on %d features but %d names were given",
			tree.NumFeatures(), len(featNames))
	}

	type frame struct {
		node  int
		stage int // 0 enter, 1 left done, 2 right done
		instr int // index of the If emitted for this node
		els   int // index of the Else emitted for this node
	}

	p := &Program{names: featNames}
	used := make(map[int]bool)
	stack := []frame{{node: 0}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := nodes[top.node]

		if n.IsLeaf() {
			p.Instrs = append(p.Instrs, Instr{Op: OpReturn, Class: n.Class()})
			stack = stack[:len(stack)-1]
			continue
		}
		if n.Feature >= len(featNames) {
			return nil, fmt.Errorf("node %d tests feature %d of %d", top.node, n.Feature, len(featNames))
		}

		switch top.stage {
		case 0:
			thr, err := roundThreshold(n.Threshold)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", top.node, err)
			}
			used[n.Feature] = true
			top.instr = len(p.Instrs)
			top.stage = 1
			p.Instrs = append(p.Instrs, Instr{Op: OpIf, Feature: n.Feature, Threshold: thr})
			stack = append(stack, frame{node: n.Left})
		case 1:
			top.els = len(p.Instrs)
			top.stage = 2
			p.Instrs = append(p.Instrs, Instr{Op: OpElse})
			p.Instrs[top.instr].Jump = top.els + 1
			stack = append(stack, frame{node: n.Right})
		default:
			end := len(p.Instrs)
			p.Instrs = append(p.Instrs, Instr{Op: OpEnd})
			p.Instrs[top.els].Jump = end + 1
			stack = stack[:len(stack)-1]
		}
	}

	for idx := range used {
		p.Features = append(p.Features, Feature{Index: idx, Name: featNames[idx], Ident: Sanitize(featNames[idx])})
	}
	sort.Slice(p.Features, func(a, b int) bool { return p.Features[a].Index < p.Features[b].Index })
	return p, nil
}

func roundThreshold(t float64) (float64, error) {
	v, err := strconv.ParseFloat(fmt.Sprintf(thresholdFormat, t), 64)
	if err != nil {
		return 0, fmt.Errorf("threshold %v cannot be rendered: %w", t, err)
	}
	return v, nil
}

// EvalRow runs the program on a feature row laid out like the training matrix.
func (p *Program) EvalRow(row []float64) int {
	return p.run(func(f int) float64 {
		if f < len(row) {
			return row[f]
		}
		return 0
	})
}

// Eval runs the program on a record keyed by feature name. Absent features read as 0, the
// same as the zeroed struct in the generated wrapper.
func (p *Program) Eval(record map[string]float64) int {
	return p.run(func(f int) float64 { return record[p.names[f]] })
}

func (p *Program) run(value func(int) float64) int {
	pc := 0
	for pc < len(p.Instrs) {
		in := p.Instrs[pc]
		switch in.Op {
		case OpIf:
			if value(in.Feature) <= in.Threshold {
				pc++
			} else {
				pc = in.Jump
			}
		case OpElse:
			pc = in.Jump
		case OpEnd:
			pc++
		case OpReturn:
			return in.Class
		}
	}
	return 0
}
