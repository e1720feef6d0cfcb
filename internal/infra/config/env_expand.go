package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type envLookup func(key string) (string, bool)

// expandYAMLEnv replaces ${VAR} references in string scalars and reports the
// variables that were not set. Unquoted scalars are re-typed after expansion
// so "${TIMEOUT}" can still decode into an int.
func expandYAMLEnv(raw []byte, lookup envLookup) (string, []string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	exp := &expander{lookup: lookup, missing: make(map[string]struct{})}
	exp.node(&root)

	out, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return string(out), exp.missingNames(), nil
}

type expander struct {
	lookup  envLookup
	missing map[string]struct{}
}

func (e *expander) node(node *yaml.Node) {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			e.node(child)
		}
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			e.node(node.Content[i])
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			e.node(node.Alias)
		}
	case yaml.ScalarNode:
		e.scalar(node)
	}
}

func (e *expander) scalar(node *yaml.Node) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}
	expanded := os.Expand(node.Value, func(key string) string {
		if val, ok := e.lookup(key); ok {
			return val
		}
		e.missing[key] = struct{}{}
		return ""
	})
	if expanded == node.Value {
		return
	}
	if node.Style != 0 {
		node.Tag = "!!str"
		node.Value = expanded
		return
	}
	node.Tag, node.Value = retagScalar(expanded)
}

func (e *expander) missingNames() []string {
	if len(e.missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.missing))
	for name := range e.missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func retagScalar(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "!!str", value
	}
	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return "!!str", value
	}
	switch v := parsed.(type) {
	case nil:
		return "!!null", "null"
	case bool:
		return "!!bool", strconv.FormatBool(v)
	case int:
		return "!!int", strconv.Itoa(v)
	case float64:
		return "!!float", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "!!str", value
	}
}
