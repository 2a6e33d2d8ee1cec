// Package help provides topic-based documentation for the goat language:
// data types, builtins and operators. It backs `braingoat describe` and the
// REPL's :describe command.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sambeau/braingoat/pkg/braingoat/ast"
	"github.com/sambeau/braingoat/pkg/braingoat/emitter"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
)

// TopicResult represents the help output for a topic
type TopicResult struct {
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Syntax      string         `json:"syntax,omitempty"`
	Example     string         `json:"example,omitempty"`
	Category    string         `json:"category,omitempty"`
	Builtins    []BuiltinEntry `json:"builtins,omitempty"`
	Operators   []OperatorInfo `json:"operators,omitempty"`
	Types       []TypeEntry    `json:"types,omitempty"`
}

// BuiltinEntry is a builtin in a list result
type BuiltinEntry struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// TypeEntry is a data type in a list result
type TypeEntry struct {
	Name        string `json:"name"`
	Syntax      string `json:"syntax"`
	Description string `json:"description"`
}

// OperatorInfo documents a binary operator
type OperatorInfo struct {
	Symbol      string `json:"symbol"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

var operatorDocs = map[ast.Operator]OperatorInfo{
	ast.ADD: {Category: "arithmetic", Description: "Addition modulo 256"},
	ast.SUB: {Category: "arithmetic", Description: "Subtraction modulo 256"},
	ast.MUL: {Category: "arithmetic", Description: "Multiplication modulo 256"},
	ast.DIV: {Category: "arithmetic", Description: "Integer division; dividing by 0 yields 0"},
	ast.POW: {Category: "arithmetic", Description: "Exponentiation modulo 256; x ^ 0 is 1"},
	ast.EQ:  {Category: "comparison", Description: "1 if both sides are equal, else 0"},
	ast.NEQ: {Category: "comparison", Description: "1 if the sides differ, else 0"},
	ast.LT:  {Category: "comparison", Description: "1 if the left side is smaller, else 0"},
	ast.LTE: {Category: "comparison", Description: "1 if the left side is smaller or equal, else 0"},
	ast.GT:  {Category: "comparison", Description: "1 if the left side is larger, else 0"},
	ast.GTE: {Category: "comparison", Description: "1 if the left side is larger or equal, else 0"},
}

// DescribeTopic returns help information for the given topic.
// Topics can be the keywords builtins, types and operators, a builtin
// name (printN), a type name (IntList) or an operator symbol (<=).
func DescribeTopic(topic string) (*TopicResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("no topic specified (try: builtins, types, operators, while, IntList)")
	}

	switch topic {
	case "builtins":
		return describeBuiltins(), nil
	case "types":
		return describeTypes(), nil
	case "operators":
		return describeOperators(), nil
	}

	if b, ok := emitter.LookupBuiltin(topic); ok {
		return &TopicResult{
			Kind:        "builtin",
			Name:        b.Name,
			Description: b.Description,
			Syntax:      b.Signature(),
			Example:     b.Example,
			Category:    b.Category,
		}, nil
	}

	if t, ok := emitter.LookupType(topic); ok {
		return &TopicResult{
			Kind:        "type",
			Name:        t.Name,
			Description: t.Description,
			Syntax:      t.Syntax,
			Example:     t.Example,
		}, nil
	}

	if op, ok := ast.Operators[topic]; ok {
		info := operatorInfo(op)
		return &TopicResult{
			Kind:        "operator",
			Name:        info.Symbol,
			Description: info.Description,
			Syntax:      fmt.Sprintf("(a %s b)", info.Symbol),
			Category:    info.Category,
		}, nil
	}

	return nil, unknownTopicError(topic)
}

func operatorInfo(op ast.Operator) OperatorInfo {
	info := operatorDocs[op]
	info.Symbol = op.String()
	return info
}

func describeBuiltins() *TopicResult {
	var entries []BuiltinEntry
	for _, b := range emitter.Builtins() {
		entries = append(entries, BuiltinEntry{
			Name:        b.Name,
			Signature:   b.Signature(),
			Category:    b.Category,
			Description: b.Description,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Category < entries[j].Category })
	return &TopicResult{Kind: "builtin-list", Name: "builtins", Builtins: entries}
}

func describeTypes() *TopicResult {
	var entries []TypeEntry
	for _, t := range emitter.Types() {
		entries = append(entries, TypeEntry{Name: t.Name, Syntax: t.Syntax, Description: t.Description})
	}
	return &TopicResult{Kind: "type-list", Name: "types", Types: entries}
}

func describeOperators() *TopicResult {
	ops := make([]OperatorInfo, 0, len(operatorDocs))
	for op := range operatorDocs {
		ops = append(ops, operatorInfo(op))
	}
	// Operator values follow source order: arithmetic before comparison.
	sort.Slice(ops, func(i, j int) bool {
		return ast.Operators[ops[i].Symbol] < ast.Operators[ops[j].Symbol]
	})
	return &TopicResult{Kind: "operator-list", Name: "operators", Operators: ops}
}

// Topics lists every single-item topic name, for completion.
func Topics() []string {
	topics := []string{"builtins", "operators", "types"}
	for _, b := range emitter.Builtins() {
		topics = append(topics, b.Name)
	}
	for _, t := range emitter.Types() {
		topics = append(topics, t.Name)
	}
	return topics
}

func unknownTopicError(topic string) error {
	if match := errors.FindClosestMatch(topic, Topics()); match != "" {
		return fmt.Errorf("unknown topic: %s\nDid you mean: %s?", topic, match)
	}
	return fmt.Errorf("unknown topic: %s\nTry: builtins, types, operators, while, IntList", topic)
}
