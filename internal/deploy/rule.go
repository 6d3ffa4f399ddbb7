package deploy

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// PackagePatterns excludes everything except folder.
func PackagePatterns(folder string) []string {
	return []string{"!./**", strings.TrimSuffix(path.Clean(folder), "/") + "/**"}
}

type rule struct {
	negate bool
	match  glob.Glob
}

// Rule evaluates package patterns. Patterns apply in order and the last
// matching pattern decides; a leading "!" excludes.
type Rule struct {
	rules []rule
}

// CompileRule compiles patterns.
func CompileRule(patterns []string) (*Rule, error) {
	r := &Rule{}
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		expr := normalize(strings.TrimPrefix(p, "!"))
		g, err := glob.Compile(expr, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
		}
		r.rules = append(r.rules, rule{negate: negate, match: g})
	}
	return r, nil
}

// Includes reports whether the slash-separated relative path ships.
func (r *Rule) Includes(p string) bool {
	p = normalize(p)
	included := false
	for _, rl := range r.rules {
		if rl.match.Match(p) {
			included = !rl.negate
		}
	}
	return included
}

// Includes reports whether file ships with the package section.
func (p Package) Includes(file string) (bool, error) {
	r, err := CompileRule(p.Patterns)
	if err != nil {
		return false, err
	}
	return r.Includes(file), nil
}

func normalize(p string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(p, "./")), "/")
}
