package policyopa

import "github.com/open-policy-agent/opa/ast"

// Admission rules are pure functions over the request document, so the
// engine only exposes builtins that cannot reach the clock, the
// network, or randomness.
var allowedBuiltins = map[string]struct{}{
	"abs":          {},
	"concat":       {},
	"contains":     {},
	"count":        {},
	"endswith":     {},
	"eq":           {},
	"equal":        {},
	"format_int":   {},
	"lower":        {},
	"max":          {},
	"min":          {},
	"neq":          {},
	"object.get":   {},
	"object.union": {},
	"replace":      {},
	"sort":         {},
	"split":        {},
	"sprintf":      {},
	"startswith":   {},
	"substring":    {},
	"sum":          {},
	"trim":         {},
	"trim_left":    {},
	"trim_right":   {},
	"upper":        {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
