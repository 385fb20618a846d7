package parser

// Expression is the root of an author-supplied formula or condition.
// The grammar only describes arithmetic, comparison, boolean logic and calls;
// there are no assignments, loops or member access beyond "Math.<name>".
type Expression struct {
	Ternary *Ternary `parser:"@@"`
}

// Ternary is "cond ? a : b". Without the "?" part it is just the condition.
type Ternary struct {
	Cond *Or      `parser:"@@"`
	Then *Ternary `parser:"( \"?\" @@"`
	Else *Ternary `parser:"  \":\" @@ )?"`
}

// Or chains "||" operands left to right.
type Or struct {
	Left  *And     `parser:"@@"`
	Right []*OrTerm `parser:"@@*"`
}

type OrTerm struct {
	Op      string `parser:"@\"||\""`
	Operand *And   `parser:"@@"`
}

// And chains "&&" operands left to right.
type And struct {
	Left  *Equality  `parser:"@@"`
	Right []*AndTerm `parser:"@@*"`
}

type AndTerm struct {
	Op      string    `parser:"@\"&&\""`
	Operand *Equality `parser:"@@"`
}

// Equality handles ==, !=, === and !==.
type Equality struct {
	Left  *Comparison     `parser:"@@"`
	Right []*EqualityTerm `parser:"@@*"`
}

type EqualityTerm struct {
	Op      string      `parser:"@( \"===\" | \"!==\" | \"==\" | \"!=\" )"`
	Operand *Comparison `parser:"@@"`
}

// Comparison handles the ordering operators.
type Comparison struct {
	Left  *Additive         `parser:"@@"`
	Right []*ComparisonTerm `parser:"@@*"`
}

type ComparisonTerm struct {
	Op      string    `parser:"@( \"<=\" | \">=\" | \"<\" | \">\" )"`
	Operand *Additive `parser:"@@"`
}

// Additive handles + and -.
type Additive struct {
	Left  *Multiplicative `parser:"@@"`
	Right []*AdditiveTerm `parser:"@@*"`
}

type AdditiveTerm struct {
	Op      string          `parser:"@( \"+\" | \"-\" )"`
	Operand *Multiplicative `parser:"@@"`
}

// Multiplicative handles *, / and %.
type Multiplicative struct {
	Left  *Unary                `parser:"@@"`
	Right []*MultiplicativeTerm `parser:"@@*"`
}

type MultiplicativeTerm struct {
	Op      string `parser:"@( \"*\" | \"/\" | \"%\" )"`
	Operand *Unary `parser:"@@"`
}

// Unary is a prefix operator applied to another unary, or a primary.
type Unary struct {
	Op      string   `parser:"  ( @( \"!\" | \"-\" | \"+\" )"`
	Unary   *Unary   `parser:"    @@ )"`
	Primary *Primary `parser:"| @@"`
}

// Primary is a literal, a reference or a parenthesised sub-expression.
type Primary struct {
	Number *float64    `parser:"  @Number"`
	String *string     `parser:"| @String"`
	Bool   *Boolean    `parser:"| @( \"true\" | \"false\" )"`
	Null   bool        `parser:"| @\"null\""`
	Ref    *Reference  `parser:"| @@"`
	Sub    *Expression `parser:"| \"(\" @@ \")\""`
}

// Reference names a binding ("strength"), a namespaced constant ("Math.PI")
// or a call ("floor(x)", "Math.floor(x)").
type Reference struct {
	Name   string    `parser:"@Ident"`
	Member string    `parser:"( \".\" @Ident )?"`
	Call   *CallArgs `parser:"@@?"`
}

// CallArgs is the parenthesised argument list of a call.
type CallArgs struct {
	Args []*Expression `parser:"\"(\" ( @@ ( \",\" @@ )* )? \")\""`
}

// Boolean captures the "true"/"false" keywords.
type Boolean bool

func (b *Boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}
