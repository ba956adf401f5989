// Package shellex expands a command line into an argument vector the
// way a POSIX shell would: word splitting with quoting, environment
// variable substitution, and glob expansion.
package shellex

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/spf13/afero"
)

var envRegex = regexp.MustCompile(`(\$\$|\$\w+|\$\{\w+\})`)

// Shell expands command strings with POSIX-like rules. The zero
// value is not usable; call New.
type Shell struct {
	// Fs is the filesystem consulted for glob expansion.
	Fs afero.Fs

	// Lookup resolves environment variable references. Undefined
	// variables expand to the empty string.
	Lookup func(key string) string
}

// New returns a Shell backed by the host's real filesystem and
// environment.
func New() *Shell {
	return &Shell{
		Fs:     afero.NewOsFs(),
		Lookup: os.Getenv,
	}
}

// Expand turns one command line into an ordered argument vector.
//
// Variable references outside single quotes are substituted first,
// then the line is split into words honoring quotes and escapes,
// then unquoted words containing glob metacharacters are matched
// against the filesystem. A glob with no matches is kept literally,
// as in a shell without nullglob.
func (s *Shell) Expand(command string) ([]string, error) {
	expanded := s.expandVariables(command)
	words, err := shlex.Split(expanded, true)
	if err != nil {
		return nil, fmt.Errorf("shellex: split %q: %w", command, err)
	}

	var argv []string
	for _, word := range words {
		argv = append(argv, s.expandGlob(word)...)
	}
	return argv, nil
}

// expandVariables substitutes $VAR, ${VAR} and $$ everywhere except
// inside single-quoted regions.
func (s *Shell) expandVariables(command string) string {
	var out strings.Builder
	for i := 0; i < len(command); {
		if command[i] == '\'' {
			// Copy through the closing quote untouched.
			end := strings.IndexByte(command[i+1:], '\'')
			if end < 0 {
				out.WriteString(command[i:])
				break
			}
			out.WriteString(command[i : i+end+2])
			i += end + 2
			continue
		}
		next := strings.IndexByte(command[i:], '\'')
		if next < 0 {
			next = len(command) - i
		}
		out.WriteString(s.substitute(command[i : i+next]))
		i += next
	}
	return out.String()
}

func (s *Shell) substitute(segment string) string {
	return envRegex.ReplaceAllStringFunc(segment, func(ref string) string {
		if ref == "$$" {
			return strconv.Itoa(os.Getpid())
		}
		name := strings.TrimPrefix(ref, "$")
		name = strings.TrimPrefix(name, "{")
		name = strings.TrimSuffix(name, "}")
		return s.Lookup(name)
	})
}

// expandGlob matches a word containing glob metacharacters against
// the filesystem. Quote information is gone by the time words reach
// this point, so a quoted glob that survives splitting is expanded
// too; callers that need a literal metacharacter can escape it.
func (s *Shell) expandGlob(word string) []string {
	if !strings.ContainsAny(word, "*?[") {
		return []string{word}
	}
	matches, err := afero.Glob(s.Fs, word)
	if err != nil || len(matches) == 0 {
		return []string{word}
	}
	return matches
}
