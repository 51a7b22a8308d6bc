package snippet

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// Symbol is one declaration found in a snippet. Kind is one of function,
// class, interface, type, component, or hook.
type Symbol struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Exported bool   `json:"exported,omitempty"`
}

// ExtractSymbols pulls declared symbols out of JavaScript, TypeScript, TSX,
// and Go snippets. Other languages return nil.
func (v *Validator) ExtractSymbols(ctx context.Context, lang, content string) ([]Symbol, error) {
	switch lang {
	case "javascript", "typescript", "tsx", "go":
	default:
		return nil, nil
	}

	v.mu.Lock()
	parser := v.parsers[lang]
	tree, err := parser.ParseCtx(ctx, nil, []byte(content))
	v.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("parse %s snippet: %w", lang, err)
	}
	defer tree.Close()

	if lang == "go" {
		return extractGoSymbols(tree.RootNode(), []byte(content)), nil
	}
	return extractJSSymbols(tree.RootNode(), []byte(content)), nil
}

func extractGoSymbols(root *sitter.Node, content []byte) []Symbol {
	var symbols []Symbol
	getText := func(n *sitter.Node) string {
		return string(content[n.StartByte():n.EndByte()])
	}
	exported := func(name string) bool {
		return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				name := getText(nameNode)
				symbols = append(symbols, Symbol{Name: name, Kind: "function", Exported: exported(name)})
			}
		case "method_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				name := getText(nameNode)
				symbols = append(symbols, Symbol{Name: name, Kind: "method", Exported: exported(name)})
			}
		case "type_declaration":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				spec := n.NamedChild(i)
				if spec.Type() != "type_spec" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				name := getText(nameNode)
				kind := "type"
				if typeNode := spec.ChildByFieldName("type"); typeNode != nil {
					switch typeNode.Type() {
					case "struct_type":
						kind = "struct"
					case "interface_type":
						kind = "interface"
					}
				}
				symbols = append(symbols, Symbol{Name: name, Kind: kind, Exported: exported(name)})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}

	walk(root)
	return symbols
}

func extractJSSymbols(root *sitter.Node, content []byte) []Symbol {
	var symbols []Symbol

	getText := func(n *sitter.Node) string {
		return string(content[n.StartByte():n.EndByte()])
	}
	hasExport := func(n *sitter.Node) bool {
		parent := n.Parent()
		return parent != nil && parent.Type() == "export_statement"
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration", "generator_function_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				symbols = append(symbols, Symbol{
					Name:     getText(nameNode),
					Kind:     classifyFunction(getText(nameNode), getText(n)),
					Exported: hasExport(n),
				})
			}

		case "class_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				symbols = append(symbols, Symbol{
					Name:     getText(nameNode),
					Kind:     "class",
					Exported: hasExport(n),
				})
			}

		case "interface_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				symbols = append(symbols, Symbol{
					Name:     getText(nameNode),
					Kind:     "interface",
					Exported: hasExport(n),
				})
			}

		case "type_alias_declaration":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				symbols = append(symbols, Symbol{
					Name:     getText(nameNode),
					Kind:     "type",
					Exported: hasExport(n),
				})
			}

		case "lexical_declaration", "variable_declaration":
			exported := hasExport(n)
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if child.Type() != "variable_declarator" {
					continue
				}
				nameNode := child.ChildByFieldName("name")
				valueNode := child.ChildByFieldName("value")
				if nameNode == nil || valueNode == nil {
					continue
				}
				switch valueNode.Type() {
				case "arrow_function", "function", "function_expression":
					symbols = append(symbols, Symbol{
						Name:     getText(nameNode),
						Kind:     classifyFunction(getText(nameNode), getText(valueNode)),
						Exported: exported,
					})
				}
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}

	walk(root)
	return symbols
}

// classifyFunction refines plain functions into React components and hooks.
// Components are PascalCase functions whose body carries JSX; hooks follow
// the useXxx naming convention.
func classifyFunction(name, body string) string {
	if isHookName(name) {
		return "hook"
	}
	if len(name) > 0 && unicode.IsUpper(rune(name[0])) {
		if strings.Contains(body, "<") && (strings.Contains(body, "/>") || strings.Contains(body, "</")) {
			return "component"
		}
	}
	return "function"
}

func isHookName(name string) bool {
	return len(name) > 3 && strings.HasPrefix(name, "use") && unicode.IsUpper(rune(name[3]))
}
