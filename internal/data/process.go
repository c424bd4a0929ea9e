package data

import (
	"github.com/roach88/atomtrack/internal/ir"
)

// CalcFunction is the process node recorded for one tracked call.
// Its label is the name of the wrapped function.
type CalcFunction struct {
	Node
	state     ir.ProcessState
	exception string
}

// NewCalcFunction returns an unstored process node for the named function.
func NewCalcFunction(name string) *CalcFunction {
	n := newNode(ir.NodeCalcFunction, ir.IRObject{
		"function_name":  ir.IRString(name),
		"engine_version": ir.IRString(ir.EngineVersion),
		"ir_version":     ir.IRString(ir.IRVersion),
	})
	n.label = name
	return &CalcFunction{Node: n}
}

// FunctionName returns the name of the wrapped function.
func (c *CalcFunction) FunctionName() string {
	v, _ := c.attrs["function_name"].(ir.IRString)
	return string(v)
}

// State returns the terminal state, or "" before the call completed.
func (c *CalcFunction) State() ir.ProcessState { return c.state }

// Exception returns the error text of an excepted process.
func (c *CalcFunction) Exception() string { return c.exception }

// SetFinished marks the process as completed successfully.
func (c *CalcFunction) SetFinished() error {
	if c.IsStored() {
		return ErrImmutable
	}
	c.state = ir.ProcessFinished
	c.exception = ""
	return nil
}

// SetExcepted marks the process as failed with err.
func (c *CalcFunction) SetExcepted(err error) error {
	if c.IsStored() {
		return ErrImmutable
	}
	c.state = ir.ProcessExcepted
	if err != nil {
		c.exception = err.Error()
	}
	return nil
}

// Record converts the process node to its store representation, including
// its state.
func (c *CalcFunction) Record() (ir.NodeRecord, error) {
	rec, err := c.Node.Record()
	if err != nil {
		return rec, err
	}
	rec.ProcessState = c.state
	rec.ExceptionText = c.exception
	return rec, nil
}
