package module

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOptions turns the already-filtered flag tokens (see FilterModuleArgs)
// into a args map, starting from each spec's Default and overriding with
// whatever the caller actually passed.
func ParseOptions(tokens []string, specs []OptionSpec) (map[string]any, error) {
	byName := make(map[string]OptionSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	args := make(map[string]any, len(specs))
	for _, s := range specs {
		args[s.Name] = s.Default
	}

	for i := 0; i < len(tokens); i++ {
		name, value, consumed, err := nextFlag(tokens, i, byName)
		if err != nil {
			return nil, err
		}
		spec := byName[name]
		converted, err := convert(spec, value)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", name, err)
		}
		args[name] = converted
		i += consumed
	}
	return args, nil
}

// nextFlag parses the flag token at tokens[i], returning the option name,
// its raw string value, and how many extra tokens (0 or 1) it consumed.
func nextFlag(tokens []string, i int, specs map[string]OptionSpec) (name, value string, consumed int, err error) {
	tok := tokens[i]
	switch {
	case strings.HasPrefix(tok, "--"):
		body := tok[2:]
		if eq := strings.IndexByte(body, '='); eq >= 0 {
			return body[:eq], body[eq+1:], 0, nil
		}
		name = body
	case strings.HasPrefix(tok, "-"):
		name = tok[1:2]
	default:
		return "", "", 0, fmt.Errorf("unexpected positional argument %q", tok)
	}

	spec, ok := specs[name]
	if !ok {
		return "", "", 0, fmt.Errorf("undeclared option %q", name)
	}
	if spec.Type == "bool" {
		return name, "true", 0, nil
	}
	if i+1 >= len(tokens) {
		return "", "", 0, fmt.Errorf("option %q requires a value", name)
	}
	return name, tokens[i+1], 1, nil
}

func convert(spec OptionSpec, raw string) (any, error) {
	switch spec.Type {
	case "int":
		return strconv.Atoi(raw)
	case "bool":
		return strconv.ParseBool(raw)
	default:
		return raw, nil
	}
}
