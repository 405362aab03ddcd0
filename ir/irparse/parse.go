// Package irparse parses the textual IR form back into ir ops. The
// syntax is exactly what ir.Fprint emits, so printing and parsing round-
// trip.
package irparse

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/tileir/tileir/ir"
)

var parser = participle.MustBuild[file](
	participle.Lexer(irLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// ParseFile parses the IR file at path into a module op.
func ParseFile(path string) (*ir.Op, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(path, string(source))
}

// Parse parses src into a module op. name is used in error positions.
func Parse(name, src string) (*ir.Op, error) {
	src = strings.TrimLeft(src, " \t\r\n")
	if !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	f, err := parser.ParseString(name, src)
	if err != nil {
		return nil, err
	}
	c := &converter{b: ir.NewBuilder(), scope: map[string]ir.Value{}}
	for _, fn := range f.Funcs {
		if err := c.convertFunc(fn); err != nil {
			return nil, err
		}
	}
	return c.b.Module(), nil
}

type converter struct {
	b     *ir.Builder
	scope map[string]ir.Value
}

func (c *converter) lookup(ref string) (ir.Value, error) {
	name := strings.TrimPrefix(ref, "%")
	v, ok := c.scope[name]
	if !ok {
		return nil, fmt.Errorf("undefined value %%%s", name)
	}
	return v, nil
}

func (c *converter) lookupAll(refs []string) ([]ir.Value, error) {
	values := make([]ir.Value, len(refs))
	for i, ref := range refs {
		v, err := c.lookup(ref)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (c *converter) define(ref string, v ir.Value) {
	c.scope[strings.TrimPrefix(ref, "%")] = v
}

func convertType(t *typeRef) (ir.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("missing type")
	}
	if t.Tensor != nil {
		elem, err := convertType(t.Tensor.Elem)
		if err != nil {
			return nil, err
		}
		return ir.TensorType{Dims: t.Tensor.Dims, Elem: elem}, nil
	}
	s := t.Scalar
	if s == "index" {
		return ir.Index, nil
	}
	unsigned := false
	if strings.HasPrefix(s, "ui") {
		unsigned = true
		s = s[2:]
	} else if strings.HasPrefix(s, "i") {
		s = s[1:]
	} else {
		return nil, fmt.Errorf("unknown type %q", t.Scalar)
	}
	var width uint
	if _, err := fmt.Sscanf(s, "%d", &width); err != nil || width == 0 {
		return nil, fmt.Errorf("unknown type %q", t.Scalar)
	}
	return ir.IntType{Width: width, Unsigned: unsigned}, nil
}

func (c *converter) convertFunc(fn *funcDecl) error {
	names := make([]string, len(fn.Params))
	types := make([]ir.Type, len(fn.Params))
	for i, p := range fn.Params {
		var err error
		names[i] = strings.TrimPrefix(p.Name, "%")
		if types[i], err = convertType(p.Type); err != nil {
			return err
		}
	}
	op := c.b.Func(strings.TrimPrefix(fn.Name, "@"), names, types)
	for i, arg := range op.Region(0).Entry().Args() {
		c.define(names[i], arg)
	}
	return c.convertBody(fn.Body)
}

func (c *converter) convertBody(stmts []*stmt) error {
	for _, s := range stmts {
		if err := c.convertStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) convertStmt(s *stmt) error {
	switch {
	case s.Assume != nil:
		cond, err := c.lookup(s.Assume.Cond)
		if err != nil {
			return err
		}
		c.b.Assume(cond)
		return nil
	case s.Return != nil:
		values, err := c.lookupAll(s.Return.Values)
		if err != nil {
			return err
		}
		c.b.Return(values...)
		return nil
	case s.Yield != nil:
		values, err := c.lookupAll(s.Yield.Values)
		if err != nil {
			return err
		}
		c.b.Yield(values...)
		return nil
	case s.For != nil:
		return c.convertFor(nil, s.For)
	case s.While != nil:
		return c.convertWhile(nil, s.While)
	case s.If != nil:
		return c.convertIf(nil, s.If)
	case s.Def != nil:
		return c.convertDef(s.Def)
	default:
		return fmt.Errorf("empty statement")
	}
}

func (c *converter) convertDef(def *defStmt) error {
	names := make([]string, len(def.Results))
	for i, r := range def.Results {
		names[i] = strings.TrimPrefix(r.Name, "%")
	}
	r := def.Rhs

	switch {
	case r.Constant != nil:
		typ, err := convertType(r.Constant.Type)
		if err != nil {
			return err
		}
		v, ok := new(big.Int).SetString(r.Constant.Value, 10)
		if !ok {
			return fmt.Errorf("bad integer literal %q", r.Constant.Value)
		}
		op := c.b.NamedOp(ir.Constant, nil, names, []ir.Type{typ})
		op.Value = v
		c.define(names[0], op.Result(0))
		return nil

	case r.MakeRange != nil:
		typ, err := convertType(r.MakeRange.Type)
		if err != nil {
			return err
		}
		res := c.b.MakeRange(names[0], r.MakeRange.Start, r.MakeRange.End, typ)
		c.define(names[0], res)
		return nil

	case r.Cmp != nil:
		pred, ok := ir.PredFromString(r.Cmp.Pred)
		if !ok {
			return fmt.Errorf("unknown predicate %q", r.Cmp.Pred)
		}
		lhs, err := c.lookup(r.Cmp.Lhs)
		if err != nil {
			return err
		}
		rhs, err := c.lookup(r.Cmp.Rhs)
		if err != nil {
			return err
		}
		res := c.b.CmpI(names[0], pred, lhs, rhs)
		c.define(names[0], res)
		return nil

	case r.For != nil:
		return c.convertFor(names, r.For)

	case r.While != nil:
		return c.convertWhile(names, r.While)

	case r.If != nil:
		return c.convertIf(def.Results, r.If)

	case r.Generic != nil:
		kind, ok := ir.OpKindFromString(r.Generic.Kind)
		if !ok {
			return fmt.Errorf("unknown operation %q", r.Generic.Kind)
		}
		if len(r.Generic.Types) != len(names) {
			return fmt.Errorf("%s defines %d results but lists %d types",
				r.Generic.Kind, len(names), len(r.Generic.Types))
		}
		types := make([]ir.Type, len(r.Generic.Types))
		for i, t := range r.Generic.Types {
			var err error
			if types[i], err = convertType(t); err != nil {
				return err
			}
		}
		operands, err := c.lookupAll(r.Generic.Operands)
		if err != nil {
			return err
		}
		op := c.b.NamedOp(kind, operands, names, types)
		c.defineResults(names, op)
		return nil

	default:
		return fmt.Errorf("empty right-hand side")
	}
}

func (c *converter) iterBinds(binds []*iterBind) (names []string, inits []ir.Value, err error) {
	names = make([]string, len(binds))
	inits = make([]ir.Value, len(binds))
	for i, bind := range binds {
		names[i] = strings.TrimPrefix(bind.Name, "%")
		if inits[i], err = c.lookup(bind.Init); err != nil {
			return nil, nil, err
		}
	}
	return names, inits, nil
}

func (c *converter) defineResults(names []string, op *ir.Op) {
	for i, name := range names {
		c.define(name, op.Result(i))
	}
}

func (c *converter) convertFor(names []string, f *forRhs) error {
	lb, err := c.lookup(f.Lower)
	if err != nil {
		return err
	}
	ub, err := c.lookup(f.Upper)
	if err != nil {
		return err
	}
	step, err := c.lookup(f.Step)
	if err != nil {
		return err
	}
	iterNames, inits, err := c.iterBinds(f.Iters)
	if err != nil {
		return err
	}

	ivName := strings.TrimPrefix(f.IndVar, "%")
	op := c.b.For(ivName, lb, ub, step, iterNames, inits, names)
	body := op.Region(0).Entry()
	c.define(ivName, body.Arg(0))
	for i, name := range iterNames {
		c.define(name, body.Arg(i+1))
	}
	if err := c.convertBody(f.Body); err != nil {
		return err
	}
	c.defineResults(names, op)
	return nil
}

func (c *converter) convertWhile(names []string, w *whileRhs) error {
	iterNames, inits, err := c.iterBinds(w.Iters)
	if err != nil {
		return err
	}
	op := c.b.While(iterNames, inits, names)
	body := op.Region(0).Entry()
	for i, name := range iterNames {
		c.define(name, body.Arg(i))
	}
	if err := c.convertBody(w.Body); err != nil {
		return err
	}
	c.defineResults(names, op)
	return nil
}

func (c *converter) convertIf(decls []*resultDecl, f *ifRhs) error {
	cond, err := c.lookup(f.Cond)
	if err != nil {
		return err
	}
	names := make([]string, len(decls))
	types := make([]ir.Type, len(decls))
	for i, d := range decls {
		names[i] = strings.TrimPrefix(d.Name, "%")
		if d.Type == nil {
			return fmt.Errorf("if result %%%s needs a type annotation", names[i])
		}
		if types[i], err = convertType(d.Type); err != nil {
			return err
		}
	}

	op := c.b.If(cond, names, types)
	if err := c.convertBody(f.Then); err != nil {
		return err
	}
	c.b.Else(op)
	if err := c.convertBody(f.Else); err != nil {
		return err
	}
	c.defineResults(names, op)
	return nil
}
