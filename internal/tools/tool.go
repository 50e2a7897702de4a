// Package tools provides the tool contract, the validating registry, and the
// built-in side-effecting capabilities exposed to the agent.
package tools

import (
	"context"
	"fmt"
)

// Tool is a named side-effecting capability callable by the agent.
// Parameters returns a JSON-Schema object describing the arguments.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// ContextAware is implemented by tools that route replies and therefore need
// the originating channel/chat bound before each turn. The agent loop is the
// single writer.
type ContextAware interface {
	SetContext(channel, chatID string)
}

// Result is the unified return type from tool execution.
type Result struct {
	ForLLM  string `json:"for_llm"`            // content sent to the LLM
	ForUser string `json:"for_user,omitempty"` // content shown to the user
	IsError bool   `json:"is_error"`           // marks error
	Err     error  `json:"-"`                  // internal error (not serialized)
}

func NewResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM}
}

func ErrorResult(message string) *Result {
	return &Result{ForLLM: message, IsError: true}
}

func Errorf(format string, args ...interface{}) *Result {
	return ErrorResult(fmt.Sprintf(format, args...))
}

func (r *Result) WithError(err error) *Result {
	r.Err = err
	return r
}
