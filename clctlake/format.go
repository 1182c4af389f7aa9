package clctlake

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMissingFormatParam is returned when the statement references a parameter that is not provided.
var ErrMissingFormatParam = errors.New("missing format parameter")

// placeholderRe matches placeholders of the form {m[Name]}.
var placeholderRe = regexp.MustCompile(`\{m\[([^\]]+)\]\}`)

// FormatStatement replaces every {m[Name]} placeholder in the statement with the named parameter. Params
// that are not referenced are ignored.
func FormatStatement(stmt string, params map[string]string) (string, error) {
	var missing []string

	out := placeholderRe.ReplaceAllStringFunc(stmt, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]

		val, ok := params[name]
		if !ok {
			missing = append(missing, name)

			return m
		}

		return val
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %q", ErrMissingFormatParam, missing)
	}

	return out, nil
}
