package cmd

import (
	"fmt"
	"strings"

	"github.com/anmitsu/go-shlex"

	"github.com/josephlewis42/subproc/core/subproc"
)

// parsePipeline turns a pipeline string like
//
//	ps aux | awk '{print $2}' | sort > pids.txt
//
// into a runnable Command. Operators (|, <, >, >>, 2>, 2>>, 2>&1,
// 1>&2) must be standalone unquoted words; quoting an operator makes
// it an ordinary argument. Input redirection is only valid on the
// first stage and output redirection on the last, since only a
// pipeline's outer ends are redirectable.
func parsePipeline(line string) (*subproc.Command, error) {
	words, err := splitWords(line)
	if err != nil {
		return nil, err
	}

	type redirect struct {
		op    string
		path  string // unused for the fd-aliasing forms
		stage int
	}

	var stages [][]string
	var redirects []redirect
	var current []string

	endStage := func() error {
		if len(current) == 0 {
			return fmt.Errorf("syntax error: empty pipeline stage")
		}
		stages = append(stages, current)
		current = nil
		return nil
	}

	for i := 0; i < len(words); i++ {
		word := words[i]
		switch word {
		case "|":
			if err := endStage(); err != nil {
				return nil, err
			}

		case "<", ">", ">>", "2>", "2>>":
			if i+1 >= len(words) {
				return nil, fmt.Errorf("syntax error: %s needs a file operand", word)
			}
			i++
			path, err := unquote(words[i])
			if err != nil {
				return nil, err
			}
			redirects = append(redirects, redirect{op: word, path: path, stage: len(stages)})

		case "2>&1", "1>&2", ">&2":
			redirects = append(redirects, redirect{op: word, stage: len(stages)})

		default:
			current = append(current, word)
		}
	}
	if err := endStage(); err != nil {
		return nil, err
	}

	cmd := subproc.New(strings.Join(stages[0], " "))
	for _, stage := range stages[1:] {
		cmd = cmd.Chain(subproc.New(strings.Join(stage, " ")))
	}

	last := len(stages) - 1
	for _, r := range redirects {
		switch r.op {
		case "<":
			if r.stage != 0 {
				return nil, fmt.Errorf("syntax error: < is only valid on the first stage")
			}
			cmd = cmd.InputFile(r.path)
			continue
		}
		if r.stage != last {
			return nil, fmt.Errorf("syntax error: %s is only valid on the last stage", r.op)
		}
		switch r.op {
		case ">":
			cmd = cmd.OutputFile(r.path)
		case ">>":
			cmd = cmd.AppendOutputFile(r.path)
		case "2>":
			cmd = cmd.ErrorFile(r.path)
		case "2>>":
			cmd = cmd.AppendErrorFile(r.path)
		case "2>&1":
			cmd = cmd.ErrorToStdout()
		case "1>&2", ">&2":
			cmd = cmd.OutputToStderr()
		}
	}

	return cmd, cmd.Err()
}

// splitWords splits a line on unquoted whitespace, keeping quote
// characters in place so each stage can be re-tokenized with its
// quoting intact.
func splitWords(line string) ([]string, error) {
	var words []string
	var word strings.Builder
	inWord := false
	var quote byte

	flush := func() {
		if inWord {
			words = append(words, word.String())
			word.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			word.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			inWord = true
			quote = ch
			word.WriteByte(ch)
		case ch == '\\' && i+1 < len(line):
			inWord = true
			word.WriteByte(ch)
			i++
			word.WriteByte(line[i])
		case ch == ' ' || ch == '\t':
			flush()
		default:
			inWord = true
			word.WriteByte(ch)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("syntax error: unterminated %c quote", quote)
	}
	flush()
	return words, nil
}

// unquote reduces a single (possibly quoted) word to its literal value.
func unquote(word string) (string, error) {
	parsed, err := shlex.Split(word, true)
	if err != nil || len(parsed) != 1 {
		return "", fmt.Errorf("syntax error: bad file operand %q", word)
	}
	return parsed[0], nil
}
