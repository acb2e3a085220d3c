package workflow

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/InfinitiBit/graphbit-go/types"
)

// nodeRefPattern matches {{node.<ref>}} references where <ref> is a
// dot path whose first segment is a node ID or human name.
var nodeRefPattern = regexp.MustCompile(`\{\{node\.([a-zA-Z0-9_\-.]+)\}\}`)

// ResolveTemplateVariables resolves template placeholders against the
// workflow context:
//
//   - {{node.<ref>}} looks up a node output by ID or human name,
//     following the remaining dot path into the output's JSON
//     structure. References that do not resolve are left in place so
//     callers can detect (or tolerate) missing upstream data.
//   - {<var>} substitutes a variables-map entry, JSON-stringified with
//     string quotes stripped.
func ResolveTemplateVariables(template string, ctx *types.WorkflowContext) string {
	result := template

	for _, match := range nodeRefPattern.FindAllStringSubmatch(template, -1) {
		placeholder, reference := match[0], match[1]
		value, ok := ctx.GetNestedOutput(reference)
		if !ok {
			continue
		}
		result = strings.ReplaceAll(result, placeholder, stringifyValue(value))
	}

	for key, value := range ctx.VariablesSnapshot() {
		placeholder := "{" + key + "}"
		if !strings.Contains(result, placeholder) {
			continue
		}
		result = strings.ReplaceAll(result, placeholder, stringifyValue(value))
	}

	return result
}

// stringifyValue renders a value for template substitution: strings
// verbatim, everything else as compact JSON.
func stringifyValue(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return strings.Trim(string(encoded), `"`)
}
