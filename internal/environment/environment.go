package environment

import (
	"os"
	"strings"
)

// LookupFunc resolves a variable name; ok is false when it is not set
type LookupFunc func(name string) (value string, ok bool)

// Environment expands variable tokens in path-like strings. It recognises
// $NAME, ${NAME} and %NAME%. Unset variables are left in place exactly as
// written rather than collapsed to an empty string.
type Environment struct {
	sources []LookupFunc
}

// New creates an Environment that consults sources in order. With no sources
// it reads the process environment.
func New(sources ...LookupFunc) *Environment {
	if len(sources) == 0 {
		sources = []LookupFunc{os.LookupEnv}
	}
	return &Environment{sources: sources}
}

// FromMap adapts a fixed set of variables into a LookupFunc
func FromMap(vars map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		value, ok := vars[name]
		return value, ok
	}
}

func (e *Environment) Lookup(name string) (string, bool) {
	for _, source := range e.sources {
		if value, ok := source(name); ok {
			return value, true
		}
	}
	return "", false
}

// Expand replaces $NAME, ${NAME} and %NAME% in a single left-to-right
// pass. Substituted values are not expanded again, and text that is not a
// well-formed token (such as $1 or a lone %) is copied unchanged.
func (e *Environment) Expand(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		token, name := scanToken(s[i:])
		if token == "" {
			b.WriteByte(s[i])
			i++
			continue
		}
		if value, ok := e.Lookup(name); ok {
			b.WriteString(value)
		} else {
			b.WriteString(token)
		}
		i += len(token)
	}
	return b.String()
}

// scanToken reports the variable token at the start of s and the name it
// refers to, or an empty token when s does not start with one
func scanToken(s string) (token, name string) {
	switch {
	case strings.HasPrefix(s, "${"):
		end := strings.IndexByte(s, '}')
		if end < 0 || !isName(s[2:end]) {
			return "", ""
		}
		return s[:end+1], s[2:end]

	case s[0] == '$':
		n := nameLength(s[1:])
		if n == 0 {
			return "", ""
		}
		return s[:n+1], s[1 : n+1]

	case s[0] == '%':
		end := strings.IndexByte(s[1:], '%')
		if end < 0 || !isName(s[1:end+1]) {
			return "", ""
		}
		return s[:end+2], s[1 : end+1]
	}
	return "", ""
}

func isName(s string) bool {
	return s != "" && nameLength(s) == len(s)
}

// nameLength is the length of the [A-Za-z_][A-Za-z0-9_]* prefix of s
func nameLength(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return i
		}
	}
	return len(s)
}
