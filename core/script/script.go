// Package script loads declarative pipeline definitions from YAML
// and turns them into runnable subproc Commands.
package script

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/josephlewis42/subproc/core/subproc"
)

// DefaultName is the script file looked for when none is given.
const DefaultName = "subproc.yaml"

// Pipeline is one named pipeline definition.
type Pipeline struct {
	// Stages are the commands of the pipeline in left-to-right
	// shell order, each a single command line.
	Stages []string `yaml:"stages" validate:"required,min=1,dive,required"`

	// StdinFile redirects the first stage's stdin from a file.
	StdinFile string `yaml:"stdin_file"`

	// Input feeds a literal string to the first stage's stdin.
	// Mutually exclusive with StdinFile.
	Input string `yaml:"input" validate:"excluded_with=StdinFile"`

	// Stdout redirects the last stage's stdout to a file,
	// truncating unless Append is set.
	Stdout string `yaml:"stdout"`
	Append bool   `yaml:"append"`

	// Stderr redirects the last stage's stderr to a file,
	// truncating unless AppendStderr is set.
	Stderr       string `yaml:"stderr"`
	AppendStderr bool   `yaml:"append_stderr"`
}

// Script is a parsed script file: a set of named pipelines.
type Script struct {
	Pipelines map[string]Pipeline `yaml:"pipelines" validate:"required,dive"`
}

// Load reads and validates a script file.
func Load(path string) (*Script, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(contents)
}

// LoadBytes parses and validates script file contents.
func LoadBytes(contents []byte) (*Script, error) {
	var out Script
	if err := yaml.UnmarshalStrict(contents, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks the script for basic semantic errors.
func (s *Script) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})

	return validate.Struct(s)
}

// Names lists the defined pipeline names.
func (s *Script) Names() []string {
	var names []string
	for name := range s.Pipelines {
		names = append(names, name)
	}
	return names
}

// Command builds the named pipeline into a runnable Command.
func (s *Script) Command(name string) (*subproc.Command, error) {
	pipeline, ok := s.Pipelines[name]
	if !ok {
		return nil, fmt.Errorf("script: no pipeline named %q", name)
	}

	cmd := subproc.New(pipeline.Stages[0])
	for _, stage := range pipeline.Stages[1:] {
		cmd = cmd.Chain(subproc.New(stage))
	}

	switch {
	case pipeline.StdinFile != "":
		cmd = cmd.InputFile(pipeline.StdinFile)
	case pipeline.Input != "":
		cmd = cmd.Input([]byte(pipeline.Input))
	}

	if pipeline.Stdout != "" {
		if pipeline.Append {
			cmd = cmd.AppendOutputFile(pipeline.Stdout)
		} else {
			cmd = cmd.OutputFile(pipeline.Stdout)
		}
	}
	if pipeline.Stderr != "" {
		if pipeline.AppendStderr {
			cmd = cmd.AppendErrorFile(pipeline.Stderr)
		} else {
			cmd = cmd.ErrorFile(pipeline.Stderr)
		}
	}

	return cmd, cmd.Err()
}
