//go:build cgo

package syntax

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var grammars = map[string]func() unsafe.Pointer{
	"go":         tree_sitter_go.Language,
	"python":     tree_sitter_python.Language,
	"typescript": tree_sitter_typescript.LanguageTypescript,
	"javascript": tree_sitter_typescript.LanguageTypescript,
	"tsx":        tree_sitter_typescript.LanguageTSX,
	"jsx":        tree_sitter_typescript.LanguageTSX,
	"bash":       tree_sitter_bash.Language,
}

// OutlineSupported reports whether language has a grammar.
func OutlineSupported(language string) bool {
	_, ok := grammars[language]
	return ok
}

// SupportedOutlineLanguages lists languages with a grammar, sorted.
func SupportedOutlineLanguages() []string {
	out := make([]string, 0, len(grammars))
	for name := range grammars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BuildOutline parses source and extracts its top-level declarations, plus
// the members of classes.
func BuildOutline(ctx context.Context, source []byte, language string) (*Outline, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	grammar, ok := grammars[language]
	if !ok {
		return nil, fmt.Errorf("no outline support for %q (supported: %s)", language, strings.Join(SupportedOutlineLanguages(), ", "))
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(tree_sitter.NewLanguage(grammar())); err != nil {
		return nil, fmt.Errorf("failed to set parser language: %w", err)
	}

	tree := parser.ParseCtx(ctx, source, nil)
	if tree == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse %s source", language)
	}
	defer tree.Close()

	root := tree.RootNode()
	o := &outliner{src: source, lang: language}
	return &Outline{
		Language:  language,
		Symbols:   o.children(root, ""),
		HasErrors: root.HasError(),
	}, nil
}

type outliner struct {
	src  []byte
	lang string
}

func (o *outliner) children(n *tree_sitter.Node, container string) []Symbol {
	var out []Symbol
	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		out = append(out, o.symbols(child, container)...)
	}
	return out
}

func (o *outliner) name(n *tree_sitter.Node) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Utf8Text(o.src)
	}
	return ""
}

func (o *outliner) symbol(kind string, n *tree_sitter.Node, container string) Symbol {
	return Symbol{
		Kind:      kind,
		Name:      o.name(n),
		Line:      int(n.StartPosition().Row) + 1,
		EndLine:   int(n.EndPosition().Row) + 1,
		Container: container,
	}
}

func (o *outliner) symbols(n *tree_sitter.Node, container string) []Symbol {
	switch o.lang {
	case "go":
		return o.goSymbols(n)
	case "python":
		return o.pythonSymbols(n, container)
	case "bash":
		if n.Kind() == "function_definition" {
			return []Symbol{o.symbol("function", n, "")}
		}
	default:
		return o.tsSymbols(n, container)
	}
	return nil
}

func (o *outliner) goSymbols(n *tree_sitter.Node) []Symbol {
	switch n.Kind() {
	case "function_declaration":
		return []Symbol{o.symbol("function", n, "")}
	case "method_declaration":
		s := o.symbol("method", n, "")
		if recv := n.ChildByFieldName("receiver"); recv != nil {
			s.Container = goReceiverType(recv.Utf8Text(o.src))
		}
		return []Symbol{s}
	case "type_declaration":
		var out []Symbol
		for i := uint(0); i < n.NamedChildCount(); i++ {
			spec := n.NamedChild(i)
			if spec != nil && (spec.Kind() == "type_spec" || spec.Kind() == "type_alias") {
				out = append(out, o.symbol("type", spec, ""))
			}
		}
		return out
	case "const_declaration", "var_declaration":
		kind := "const"
		if n.Kind() == "var_declaration" {
			kind = "var"
		}
		var out []Symbol
		o.collectGoSpecs(n, kind, &out)
		return out
	}
	return nil
}

// collectGoSpecs handles both single and grouped const/var declarations.
func (o *outliner) collectGoSpecs(n *tree_sitter.Node, kind string, out *[]Symbol) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "const_spec", "var_spec":
			*out = append(*out, o.symbol(kind, child, ""))
		case "var_spec_list":
			o.collectGoSpecs(child, kind, out)
		}
	}
}

func goReceiverType(recv string) string {
	recv = strings.Trim(recv, "()")
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	typ := strings.TrimPrefix(fields[len(fields)-1], "*")
	if idx := strings.Index(typ, "["); idx >= 0 {
		typ = typ[:idx]
	}
	return typ
}

func (o *outliner) pythonSymbols(n *tree_sitter.Node, container string) []Symbol {
	switch n.Kind() {
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return o.pythonSymbols(def, container)
		}
	case "function_definition":
		kind := "function"
		if container != "" {
			kind = "method"
		}
		return []Symbol{o.symbol(kind, n, container)}
	case "class_definition":
		s := o.symbol("class", n, container)
		if body := n.ChildByFieldName("body"); body != nil {
			s.Children = o.children(body, s.Name)
		}
		return []Symbol{s}
	}
	return nil
}

func (o *outliner) tsSymbols(n *tree_sitter.Node, container string) []Symbol {
	switch n.Kind() {
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			return o.tsSymbols(decl, container)
		}
	case "function_declaration", "generator_function_declaration":
		return []Symbol{o.symbol("function", n, container)}
	case "class_declaration", "abstract_class_declaration":
		s := o.symbol("class", n, container)
		if body := n.ChildByFieldName("body"); body != nil {
			s.Children = o.children(body, s.Name)
		}
		return []Symbol{s}
	case "method_definition", "abstract_method_signature":
		return []Symbol{o.symbol("method", n, container)}
	case "interface_declaration":
		return []Symbol{o.symbol("interface", n, container)}
	case "type_alias_declaration", "enum_declaration":
		return []Symbol{o.symbol("type", n, container)}
	case "lexical_declaration", "variable_declaration":
		var out []Symbol
		for i := uint(0); i < n.NamedChildCount(); i++ {
			decl := n.NamedChild(i)
			if decl == nil || decl.Kind() != "variable_declarator" {
				continue
			}
			kind := "var"
			if value := decl.ChildByFieldName("value"); value != nil {
				switch value.Kind() {
				case "arrow_function", "function_expression", "function":
					kind = "function"
				}
			}
			s := o.symbol(kind, decl, container)
			out = append(out, s)
		}
		return out
	}
	return nil
}
