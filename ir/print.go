package ir

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes op in the textual IR form understood by ir/irparse.
func Fprint(w io.Writer, op *Op) {
	p := &printer{w: w}
	p.printOp(op, 0)
}

// String renders op as text.
func String(op *Op) string {
	var sb strings.Builder
	Fprint(&sb, op)
	return sb.String()
}

type printer struct {
	w io.Writer
}

func (p *printer) indent(depth int) {
	io.WriteString(p.w, strings.Repeat("  ", depth))
}

func operandList(operands []Value) string {
	names := make([]string, len(operands))
	for i, o := range operands {
		names[i] = "%" + o.Name()
	}
	return strings.Join(names, ", ")
}

func (p *printer) printBlockBody(b *Block, depth int) {
	for _, o := range b.ops {
		p.printOp(o, depth)
	}
}

func (p *printer) printOp(op *Op, depth int) {
	switch op.Kind {
	case Module:
		p.printBlockBody(op.regions[0].Entry(), depth)
		return
	case Func:
		p.indent(depth)
		params := make([]string, 0, op.regions[0].Entry().NumArgs())
		for _, a := range op.regions[0].Entry().Args() {
			params = append(params, fmt.Sprintf("%%%s: %s", a.Name(), a.Type()))
		}
		fmt.Fprintf(p.w, "func @%s(%s) {\n", op.Sym, strings.Join(params, ", "))
		p.printBlockBody(op.regions[0].Entry(), depth+1)
		p.indent(depth)
		fmt.Fprintf(p.w, "}\n")
		return
	}

	p.indent(depth)
	switch op.Kind {
	case Constant:
		r := op.results[0]
		fmt.Fprintf(p.w, "%%%s = constant %s : %s\n", r.Name(), op.Value, r.Type())
	case MakeRange:
		r := op.results[0]
		fmt.Fprintf(p.w, "%%%s = make_range %d %d : %s\n", r.Name(), op.Start, op.End, r.Type())
	case CmpI:
		r := op.results[0]
		fmt.Fprintf(p.w, "%%%s = cmpi %s, %s : %s\n", r.Name(), op.Pred, operandList(op.operands), r.Type())
	case Assume:
		fmt.Fprintf(p.w, "assume %s\n", operandList(op.operands))
	case Return:
		if len(op.operands) == 0 {
			fmt.Fprintf(p.w, "return\n")
		} else {
			fmt.Fprintf(p.w, "return %s\n", operandList(op.operands))
		}
	case Yield:
		if len(op.operands) == 0 {
			fmt.Fprintf(p.w, "yield\n")
		} else {
			fmt.Fprintf(p.w, "yield %s\n", operandList(op.operands))
		}
	case For:
		body := op.regions[0].Entry()
		iters := make([]string, 0, len(op.operands)-3)
		for i, init := range op.operands[3:] {
			iters = append(iters, fmt.Sprintf("%%%s = %%%s", body.Arg(i+1).Name(), init.Name()))
		}
		fmt.Fprintf(p.w, "%sfor %%%s = %%%s to %%%s step %%%s iter(%s) {\n",
			resultDecls(op), body.Arg(0).Name(), op.operands[0].Name(), op.operands[1].Name(), op.operands[2].Name(),
			strings.Join(iters, ", "))
		p.printBlockBody(body, depth+1)
		p.indent(depth)
		fmt.Fprintf(p.w, "}\n")
	case While:
		body := op.regions[0].Entry()
		iters := make([]string, 0, len(op.operands))
		for i, init := range op.operands {
			iters = append(iters, fmt.Sprintf("%%%s = %%%s", body.Arg(i).Name(), init.Name()))
		}
		fmt.Fprintf(p.w, "%swhile iter(%s) {\n", resultDecls(op), strings.Join(iters, ", "))
		p.printBlockBody(body, depth+1)
		p.indent(depth)
		fmt.Fprintf(p.w, "}\n")
	case If:
		fmt.Fprintf(p.w, "%sif %%%s {\n", resultDecls(op), op.operands[0].Name())
		p.printBlockBody(op.regions[0].Entry(), depth+1)
		p.indent(depth)
		fmt.Fprintf(p.w, "} else {\n")
		p.printBlockBody(op.regions[1].Entry(), depth+1)
		p.indent(depth)
		fmt.Fprintf(p.w, "}\n")
	default:
		if len(op.results) == 0 {
			fmt.Fprintf(p.w, "%s %s\n", op.Kind, operandList(op.operands))
			return
		}
		names := make([]string, len(op.results))
		types := make([]string, len(op.results))
		for i, r := range op.results {
			names[i] = "%" + r.Name()
			types[i] = r.Type().String()
		}
		lhs := strings.Join(names, ", ")
		sig := strings.Join(types, ", ")
		if len(op.operands) == 0 {
			fmt.Fprintf(p.w, "%s = %s : %s\n", lhs, op.Kind, sig)
		} else {
			fmt.Fprintf(p.w, "%s = %s %s : %s\n", lhs, op.Kind, operandList(op.operands), sig)
		}
	}
}

// resultDecls renders the left-hand side of a region-bearing statement,
// including the trailing "= ", or nothing for a resultless one.
func resultDecls(op *Op) string {
	if len(op.results) == 0 {
		return ""
	}
	decls := make([]string, len(op.results))
	for i, r := range op.results {
		decls[i] = fmt.Sprintf("%%%s: %s", r.Name(), r.Type())
	}
	return strings.Join(decls, ", ") + " = "
}
