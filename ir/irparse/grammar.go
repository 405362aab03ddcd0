package irparse

// The grammar mirrors ir.Fprint's output one statement per line. Sigils
// stay attached to their tokens; conversion strips them.

type file struct {
	Funcs []*funcDecl `parser:"@@*"`
}

type funcDecl struct {
	Name   string   `parser:"'func' @At"`
	Params []*param `parser:"'(' (@@ (',' @@)*)? ')'"`
	Body   []*stmt  `parser:"'{' EOL @@* '}' EOL?"`
}

type param struct {
	Name string   `parser:"@Local ':'"`
	Type *typeRef `parser:"@@"`
}

type typeRef struct {
	Tensor *tensorType `parser:"@@"`
	Scalar string      `parser:"| @Ident"`
}

type tensorType struct {
	Dims []int64  `parser:"'tensor' '<' (@Int 'x')+"`
	Elem *typeRef `parser:"@@ '>'"`
}

type stmt struct {
	Assume *assumeStmt `parser:"@@"`
	Return *returnStmt `parser:"| @@"`
	Yield  *yieldStmt  `parser:"| @@"`
	For    *forRhs     `parser:"| @@"`
	While  *whileRhs   `parser:"| @@"`
	If     *ifRhs      `parser:"| @@"`
	Def    *defStmt    `parser:"| @@"`
}

type assumeStmt struct {
	Cond string `parser:"'assume' @Local EOL"`
}

type returnStmt struct {
	Values []string `parser:"'return' (@Local (',' @Local)*)? EOL"`
}

type yieldStmt struct {
	Values []string `parser:"'yield' (@Local (',' @Local)*)? EOL"`
}

type defStmt struct {
	Results []*resultDecl `parser:"@@ (',' @@)* '='"`
	Rhs     *rhs          `parser:"@@"`
}

// resultDecl is a defined value. Region-bearing forms annotate their
// results with types; plain operations carry the type on the right-hand
// side instead.
type resultDecl struct {
	Name string   `parser:"@Local"`
	Type *typeRef `parser:"(':' @@)?"`
}

type rhs struct {
	Constant  *constantRhs  `parser:"@@"`
	MakeRange *makeRangeRhs `parser:"| @@"`
	Cmp       *cmpRhs       `parser:"| @@"`
	For       *forRhs       `parser:"| @@"`
	While     *whileRhs     `parser:"| @@"`
	If        *ifRhs        `parser:"| @@"`
	Generic   *genericRhs   `parser:"| @@"`
}

type constantRhs struct {
	Value string   `parser:"'constant' @Int ':'"`
	Type  *typeRef `parser:"@@ EOL"`
}

type makeRangeRhs struct {
	Start int64    `parser:"'make_range' @Int"`
	End   int64    `parser:"@Int ':'"`
	Type  *typeRef `parser:"@@ EOL"`
}

type cmpRhs struct {
	Pred string   `parser:"'cmpi' @Ident ','"`
	Lhs  string   `parser:"@Local ','"`
	Rhs  string   `parser:"@Local ':'"`
	Type *typeRef `parser:"@@ EOL"`
}

type forRhs struct {
	IndVar string      `parser:"'for' @Local '='"`
	Lower  string      `parser:"@Local 'to'"`
	Upper  string      `parser:"@Local 'step'"`
	Step   string      `parser:"@Local"`
	Iters  []*iterBind `parser:"'iter' '(' (@@ (',' @@)*)? ')'"`
	Body   []*stmt     `parser:"'{' EOL @@* '}' EOL"`
}

type iterBind struct {
	Name string `parser:"@Local '='"`
	Init string `parser:"@Local"`
}

type whileRhs struct {
	Iters []*iterBind `parser:"'while' 'iter' '(' (@@ (',' @@)*)? ')'"`
	Body  []*stmt     `parser:"'{' EOL @@* '}' EOL"`
}

type ifRhs struct {
	Cond string  `parser:"'if' @Local"`
	Then []*stmt `parser:"'{' EOL @@* '}'"`
	Else []*stmt `parser:"'else' '{' EOL @@* '}' EOL"`
}

type genericRhs struct {
	Kind     string     `parser:"@Ident"`
	Operands []string   `parser:"(@Local (',' @Local)*)? ':'"`
	Types    []*typeRef `parser:"@@ (',' @@)* EOL"`
}
