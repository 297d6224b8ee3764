// Package template implements the Template Renderer (C2): named-variable
// substitution into a stored template string, grounded on the
// text/template-based prompt builder used elsewhere in the pack
// (itsneelabh-gomind's TemplatePromptBuilder) rather than the teacher's
// own fmt.Sprintf-based prompt assembly, which has no named placeholders
// to reject as "undeclared".
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"text/template"
	"text/template/parse"

	"github.com/scotty-git/sidelinescott-sub003/pkg/engineerr"
)

// Renderer parses and executes templates with strict undeclared-variable
// checking. Parsed templates are not cached across calls: callers persist
// template_text, not the compiled form, so recompiling per render keeps
// the renderer stateless and trivially safe across evaluations.
type Renderer struct{}

// NewRenderer returns a stateless Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Result is the rendered prompt plus an echo of the bound variable map,
// stored alongside the CleanedTurn/CalledFunction for reproducibility
// (spec §4.2).
type Result struct {
	Rendered  string
	Variables map[string]any
}

// Render substitutes vars into templateText. Lists and maps are
// serialized to stable, sorted-key JSON before being handed to the
// template engine, matching spec §4.2's "rendered as stable,
// human-readable JSON" requirement. Any placeholder not present in vars
// fails with engineerr.KindTemplateRender.
func (r *Renderer) Render(templateText string, vars map[string]any) (Result, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(templateText)
	if err != nil {
		return Result{}, engineerr.Wrap(engineerr.KindTemplateRender, "template parse failed", err)
	}

	declared := extractFieldNames(tmpl)
	for _, name := range declared {
		if _, ok := vars[name]; !ok {
			return Result{}, engineerr.New(engineerr.KindTemplateRender,
				fmt.Sprintf("undeclared placeholder %q has no bound value", name))
		}
	}

	data := make(map[string]any, len(vars))
	for k, v := range vars {
		data[k] = stringify(v)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Result{}, engineerr.Wrap(engineerr.KindTemplateRender, "template execution failed", err)
	}

	return Result{Rendered: buf.String(), Variables: vars}, nil
}

// stringify renders scalars as-is (text/template already stringifies
// them) but serializes lists/maps to deterministic JSON so the same
// variable map always renders identical prompt text.
func stringify(v any) any {
	switch v.(type) {
	case string, int, int64, float64, bool, nil:
		return v
	default:
		b, err := marshalSorted(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func marshalSorted(v any) ([]byte, error) {
	// encoding/json already sorts map[string]any keys; re-marshal through
	// a generic round trip so nested maps of other key types are covered.
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return b, nil
	}
	return json.Marshal(generic)
}

// extractFieldNames walks the parsed template's node tree collecting the
// top-level ".Name" field accesses it references, so undeclared
// placeholders can be rejected before Execute ever runs (Option
// "missingkey=error" alone only fires mid-execution, after partial
// output may already have been written to an internal buffer).
func extractFieldNames(tmpl *template.Template) []string {
	seen := map[string]bool{}
	var walk func(n parse.Node)
	walk = func(n parse.Node) {
		switch v := n.(type) {
		case *parse.ActionNode:
			walk(v.Pipe)
		case *parse.PipeNode:
			for _, cmd := range v.Cmds {
				for _, arg := range cmd.Args {
					walk(arg)
				}
			}
		case *parse.FieldNode:
			if len(v.Ident) > 0 {
				seen[v.Ident[0]] = true
			}
		case *parse.ListNode:
			if v == nil {
				return
			}
			for _, c := range v.Nodes {
				walk(c)
			}
		case *parse.IfNode:
			walk(v.Pipe)
			walk(v.List)
			walk(v.ElseList)
		case *parse.RangeNode:
			walk(v.Pipe)
			walk(v.List)
			walk(v.ElseList)
		case *parse.WithNode:
			walk(v.Pipe)
			walk(v.List)
			walk(v.ElseList)
		}
	}
	for _, t := range tmpl.Templates() {
		if t.Tree == nil {
			continue
		}
		walk(t.Tree.Root)
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
