package module

import "strings"

// FilterModuleArgs implements the bit-exact argument-filtering contract a
// module's own flags coexist with the CLI's global flag set under: start
// from the remainder the global parser didn't recognize, recombine anything
// that collides with a module-declared flag name, split glued short
// options, and keep only tokens the module actually declares.
//
// globalLong/globalShort name the CLI's own flags (without leading dashes)
// so their occurrences — and the value token that follows them, when not
// itself flag-shaped — are excluded from the module's view of argv, except
// where the module declares a flag of the same name: those are kept.
func FilterModuleArgs(argv []string, globalLong, globalShort map[string]bool, specs []OptionSpec) []string {
	moduleLong, moduleShort := splitSpecNames(specs)

	effectiveLong := make(map[string]bool, len(globalLong))
	for k := range globalLong {
		if !moduleLong[k] {
			effectiveLong[k] = true
		}
	}
	effectiveShort := make(map[string]bool, len(globalShort))
	for k := range globalShort {
		if !moduleShort[k] {
			effectiveShort[k] = true
		}
	}

	unknown := subtractGlobalFlags(argv, effectiveLong, effectiveShort)
	glued := applyShortOptionGlue(unknown, moduleShort)
	return filterToDeclaredFlags(glued, moduleLong, moduleShort)
}

func splitSpecNames(specs []OptionSpec) (long, short map[string]bool) {
	long = make(map[string]bool)
	short = make(map[string]bool)
	for _, s := range specs {
		if len(s.Name) == 1 {
			short[s.Name] = true
		} else {
			long[s.Name] = true
		}
	}
	return long, short
}

// subtractGlobalFlags walks argv, dropping any token (and its value token,
// when not itself flag-shaped) that the global flag set recognizes, and
// returns everything else in original order.
func subtractGlobalFlags(argv []string, globalLong, globalShort map[string]bool) []string {
	var unknown []string
	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		name, hasInline, isLong, ok := parseFlagToken(tok)
		if !ok {
			unknown = append(unknown, tok)
			continue
		}

		recognized := false
		if isLong {
			recognized = globalLong[name]
		} else {
			recognized = globalShort[name]
		}
		if !recognized {
			unknown = append(unknown, tok)
			continue
		}

		if !hasInline && i+1 < len(argv) && !looksLikeFlag(argv[i+1]) {
			i++ // consume this global flag's separate value token too
		}
	}
	return unknown
}

// applyShortOptionGlue splits a glued "-xVALUE" token into "-x" "VALUE" when
// -x is declared by the module.
func applyShortOptionGlue(tokens []string, moduleShort map[string]bool) []string {
	var out []string
	for _, tok := range tokens {
		if len(tok) > 2 && tok[0] == '-' && tok[1] != '-' {
			short := string(tok[1])
			if moduleShort[short] {
				out = append(out, "-"+short, tok[2:])
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

// filterToDeclaredFlags keeps only tokens that are declared module flags (or
// a declared "--key=" prefix), attaching the following token as the flag's
// value unless that token itself looks like a flag.
func filterToDeclaredFlags(tokens []string, moduleLong, moduleShort map[string]bool) []string {
	var out []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		name, hasInline, isLong, ok := parseFlagToken(tok)
		if !ok {
			continue
		}

		declared := false
		if isLong {
			declared = moduleLong[name]
		} else {
			declared = moduleShort[name]
		}
		if !declared {
			continue
		}

		out = append(out, tok)
		if !hasInline && i+1 < len(tokens) && !looksLikeFlag(tokens[i+1]) {
			out = append(out, tokens[i+1])
			i++
		}
	}
	return out
}

// parseFlagToken extracts a flag's name from a token. ok is false for
// tokens that aren't flag-shaped at all (bare positionals).
func parseFlagToken(tok string) (name string, hasInline, isLong, ok bool) {
	switch {
	case strings.HasPrefix(tok, "--"):
		body := tok[2:]
		if eq := strings.IndexByte(body, '='); eq >= 0 {
			return body[:eq], true, true, true
		}
		return body, false, true, true
	case strings.HasPrefix(tok, "-") && len(tok) > 1:
		if len(tok) > 2 {
			return string(tok[1]), true, false, true
		}
		return string(tok[1]), false, false, true
	default:
		return "", false, false, false
	}
}

func looksLikeFlag(tok string) bool {
	return strings.HasPrefix(tok, "-")
}
