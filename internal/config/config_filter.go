package config

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

const (
	FilterTypeFile  = "FILTER_TYPE_FILE"
	FilterTypeBlock = "FILTER_TYPE_BLOCK"
)

type Filter struct {
	Type      string
	Condition string

	once       sync.Once
	program    *vm.Program
	compileErr error
}

// FilterFileEnv is the environment of FILTER_TYPE_FILE filters, evaluated
// for every file picked up by a watch pattern.
//
// The `expr` tag is used to map the field to the corresponding option.
// Without it, all variables start with capitalized letters.
type FilterFileEnv struct {
	Path string `expr:"path"`
	Name string `expr:"name"`
	Ext  string `expr:"ext"`
	Size int64  `expr:"size"`
}

// FilterBlockEnv is the environment of FILTER_TYPE_BLOCK filters, evaluated
// for every mermaid block extracted from a markdown document.
type FilterBlockEnv struct {
	Index int    `expr:"index"`
	Title string `expr:"title"`
	Kind  string `expr:"kind"`
	Lines int    `expr:"lines"`
}

func (f *Filter) Evaluate(env interface{}) (bool, error) {
	f.once.Do(func() {
		program, err := expr.Compile(
			f.Condition,
			expr.Env(env),
			expr.AsBool(),
		)
		f.program, f.compileErr = program, errors.Wrap(err, "failed to compile filter program")
	})

	if f.program == nil {
		return false, f.compileErr
	}

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, errors.Wrap(err, "failed to run filter program")
	}
	return result.(bool), nil
}

// Match reports whether env passes every filter of type typ.
func Match(filters []*Filter, typ string, env interface{}) (bool, error) {
	for _, f := range filters {
		if f.Type != typ {
			continue
		}
		ok, err := f.Evaluate(env)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
