package scripts

import "fmt"

// ScriptError represents an error that occurred in a script source.
type ScriptError struct {
	ScriptID  string
	Function  string
	Message   string
	Cause     error
	IsTimeout bool
	IsPanic   bool
}

func (e *ScriptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("script %s: function %s: %s: %v", e.ScriptID, e.Function, e.Message, e.Cause)
	}
	return fmt.Sprintf("script %s: function %s: %s", e.ScriptID, e.Function, e.Message)
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}
