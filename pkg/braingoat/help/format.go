package help

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// FormatText formats a TopicResult for terminal output with the given width
func FormatText(result *TopicResult, width int) string {
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder
	switch result.Kind {
	case "builtin", "type", "operator":
		formatItemText(&sb, result, width)
	case "builtin-list":
		sb.WriteString("Builtin Functions\n=================\n")
		category := ""
		for _, b := range result.Builtins {
			if b.Category != category {
				category = b.Category
				fmt.Fprintf(&sb, "\n%s:\n", category)
			}
			fmt.Fprintf(&sb, "  %s\n", b.Signature)
			writeWrapped(&sb, b.Description, "      ", width)
		}
	case "type-list":
		sb.WriteString("Data Types\n==========\n\n")
		for _, t := range result.Types {
			fmt.Fprintf(&sb, "  %s\n", t.Syntax)
			writeWrapped(&sb, t.Description, "      ", width)
		}
	case "operator-list":
		sb.WriteString("Operators\n=========\n\n")
		for _, op := range result.Operators {
			fmt.Fprintf(&sb, "  %-3s %-11s %s\n", op.Symbol, op.Category, op.Description)
		}
		sb.WriteString("\nExpressions take exactly two operands and must be parenthesised: ((a + b) * c)\n")
	default:
		fmt.Fprintf(&sb, "Unknown result kind: %s\n", result.Kind)
	}
	return sb.String()
}

func formatItemText(sb *strings.Builder, result *TopicResult, width int) {
	fmt.Fprintf(sb, "%s\n\n", result.Syntax)
	writeWrapped(sb, result.Description, "", width)
	if result.Category != "" {
		fmt.Fprintf(sb, "\nCategory: %s\n", result.Category)
	}
	if result.Example != "" {
		sb.WriteString("\nExample:\n")
		for _, line := range strings.Split(result.Example, "\n") {
			fmt.Fprintf(sb, "  %s\n", line)
		}
	}
}

// writeWrapped writes text word-wrapped to width, each line prefixed by indent.
func writeWrapped(sb *strings.Builder, text, indent string, width int) {
	line := indent
	for _, word := range strings.Fields(text) {
		if len(line) > len(indent) && len(line)+1+len(word) > width {
			sb.WriteString(line + "\n")
			line = indent
		}
		if len(line) > len(indent) {
			line += " "
		}
		line += word
	}
	if len(line) > len(indent) {
		sb.WriteString(line + "\n")
	}
}

// FormatJSON formats a TopicResult as JSON
func FormatJSON(result *TopicResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// FormatMarkdown formats a TopicResult as a Markdown document
func FormatMarkdown(result *TopicResult) string {
	var sb strings.Builder
	switch result.Kind {
	case "builtin-list":
		sb.WriteString("# Builtins\n\n| Signature | Category | Description |\n|---|---|---|\n")
		for _, b := range result.Builtins {
			fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", b.Signature, b.Category, b.Description)
		}
	case "type-list":
		sb.WriteString("# Types\n\n| Syntax | Description |\n|---|---|\n")
		for _, t := range result.Types {
			fmt.Fprintf(&sb, "| `%s` | %s |\n", t.Syntax, t.Description)
		}
	case "operator-list":
		sb.WriteString("# Operators\n\n| Operator | Category | Description |\n|---|---|---|\n")
		for _, op := range result.Operators {
			fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", op.Symbol, op.Category, op.Description)
		}
	default:
		fmt.Fprintf(&sb, "# %s\n\n`%s`\n\n%s\n", result.Name, result.Syntax, result.Description)
		if result.Example != "" {
			fmt.Fprintf(&sb, "\n```\n%s\n```\n", result.Example)
		}
	}
	return sb.String()
}

// FormatHTML renders the Markdown form of a TopicResult to HTML
func FormatHTML(result *TopicResult) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(FormatMarkdown(result)), &buf); err != nil {
		return "", fmt.Errorf("rendering %s: %w", result.Name, err)
	}
	return buf.String(), nil
}
