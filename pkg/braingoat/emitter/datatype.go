package emitter

import (
	"sort"
	"strconv"

	"github.com/sambeau/braingoat/pkg/braingoat/ast"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
	"github.com/sambeau/braingoat/pkg/braingoat/memory"
)

// MaxListLength is the largest IntList a program may declare. Indexes are
// single cells, so larger lists could not be walked dynamically.
const MaxListLength = 255

// Variable is a value living on the tape. The concrete types are *Int and
// *IntList; callers switch on them where behaviour differs.
type Variable interface {
	Name() string
	TypeName() string
	Region() memory.Region
	Reset()
	Destroy()
}

// TypeInfo describes a declarable data type.
type TypeInfo struct {
	Name        string
	Syntax      string
	Description string
	Example     string
	declare     func(e *Emitter, d *ast.Declaration) (Variable, error)
}

var dataTypes map[string]*TypeInfo

func init() {
	dataTypes = map[string]*TypeInfo{
		"Int": {
			Name:        "Int",
			Syntax:      "Int name = expr",
			Description: "A single byte cell. Arithmetic wraps modulo 256; comparisons yield 1 or 0.",
			Example:     "Int a = (3 + 4)\nprintN(a)",
			declare:     declareInt,
		},
		"IntList": {
			Name:        "IntList",
			Syntax:      "IntList<N> name = [e1, ..., eN]",
			Description: "A fixed-length list of N Int elements (1 to 255). Constant indexes are checked at compile time; computed indexes are not checked.",
			Example:     "IntList<3> k = [1, 2, 3]\nk[(1 + 1)] = 42\nprintN(k[2])",
			declare:     declareIntList,
		},
	}
}

// Types returns the declarable data types sorted by name.
func Types() []*TypeInfo {
	out := make([]*TypeInfo, 0, len(dataTypes))
	for _, t := range dataTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupType returns the data type with the given name.
func LookupType(name string) (*TypeInfo, bool) {
	t, ok := dataTypes[name]
	return t, ok
}

func typeNames() []string {
	names := make([]string, 0, len(dataTypes))
	for name := range dataTypes {
		names = append(names, name)
	}
	return names
}

func declareInt(e *Emitter, d *ast.Declaration) (Variable, error) {
	if d.TypeArgument != nil {
		return nil, errors.NewAt("COMPILE-0016", d.TypeArgument.Span, map[string]any{"Type": d.TypeName})
	}
	return e.newInt(d.Name), nil
}

func declareIntList(e *Emitter, d *ast.Declaration) (Variable, error) {
	if d.TypeArgument == nil {
		return nil, errors.NewAt("COMPILE-0008", d.TypeSpan, map[string]any{"Type": d.TypeName, "Name": d.Name})
	}
	n, err := strconv.Atoi(d.TypeArgument.Value)
	if err != nil || n < 1 || n > MaxListLength {
		return nil, errors.NewAt("COMPILE-0009", d.TypeArgument.Span, map[string]any{"Value": d.TypeArgument.Value, "Type": d.TypeName})
	}
	return e.newIntList(d.Name, n), nil
}
