// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and every metric it selects must be known.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/prometheus/prometheus/promql/parser"
)

// Result collects validation findings. Errors fail generation, warnings
// flag panels that are likely incomplete.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// panel is the subset of the Grafana panel JSON model the checks need.
// Rows nest their panels.
type panel struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Targets     []target `json:"targets"`
	Panels      []panel  `json:"panels"`
}

type target struct {
	Expr string `json:"expr"`
}

// Dashboard validates every panel query in dash against known.
func Dashboard(dash dashboard.Dashboard, known map[string]bool) Result {
	var res Result

	data, err := json.Marshal(dash)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("marshaling dashboard: %v", err))
		return res
	}
	var model struct {
		Panels []panel `json:"panels"`
	}
	if err := json.Unmarshal(data, &model); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("decoding dashboard JSON: %v", err))
		return res
	}

	for _, p := range model.Panels {
		res.merge(checkPanel(p, known))
	}
	return res
}

func checkPanel(p panel, known map[string]bool) Result {
	var res Result

	if p.Type == "row" {
		if len(p.Panels) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %q has no panels", p.Title))
		}
		for _, inner := range p.Panels {
			res.merge(checkPanel(inner, known))
		}
		return res
	}

	if p.Description == "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("panel %q has no description", p.Title))
	}
	if len(p.Targets) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("panel %q has no queries", p.Title))
	}
	for _, t := range p.Targets {
		res.merge(Expr(p.Title, t.Expr, known))
	}
	return res
}

// Rules validates every rule expression against known.
func Rules(exprs map[string]string, known map[string]bool) Result {
	var res Result

	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res.merge(Expr(name, exprs[name], known))
	}
	return res
}

// Expr parses a single PromQL expression and checks that every selected
// metric is in known. Histogram series suffixes resolve to their base
// metric.
func Expr(owner, expr string, known map[string]bool) Result {
	var res Result

	if strings.TrimSpace(expr) == "" {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: empty expression", owner))
		return res
	}

	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: invalid PromQL: %v", owner, err))
		return res
	}

	for _, name := range Metrics(node) {
		if !known[name] && !known[baseName(name)] {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: unknown metric %q", owner, name))
		}
	}
	return res
}

// Metrics returns the distinct metric names selected by node, in order of
// first appearance.
func Metrics(node parser.Node) []string {
	seen := make(map[string]bool)
	var names []string

	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" || seen[vs.Name] {
			return nil
		}
		seen[vs.Name] = true
		names = append(names, vs.Name)
		return nil
	})
	return names
}

func baseName(name string) string {
	for _, suffix := range []string{"_bucket", "_sum", "_count"} {
		if base, ok := strings.CutSuffix(name, suffix); ok {
			return base
		}
	}
	return name
}
