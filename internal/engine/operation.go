package engine

import (
	"context"
	"errors"
)

// Remote modules
const (
	ModuleJob   = "job"
	ModuleBuild = "build"
)

// Remote actions
const (
	ActionExists  = "exists"
	ActionCreate  = "create"
	ActionConfig  = "config"
	ActionBuild   = "build"
	ActionGet     = "get"
	ActionDestroy = "destroy"
	ActionStop    = "stop"
)

// ErrInvalidOperation marks an operation rejected before reaching the remote server
var ErrInvalidOperation = errors.New("invalid remote operation")

// readOnly lists the operations that may be repeated without side effects
var readOnly = map[string]bool{
	ModuleJob + "." + ActionExists: true,
	ModuleJob + "." + ActionGet:    true,
	ModuleBuild + "." + ActionGet:  true,
}

// Operation describes one call against the remote CI server.
// Params are positional and interpreted by the module/action entry point.
type Operation struct {
	Module string
	Action string
	Params []any
}

// NewOperation builds an operation descriptor
func NewOperation(module, action string, params ...any) Operation {
	return Operation{Module: module, Action: action, Params: params}
}

// Key returns the "module.action" name of the operation
func (o Operation) Key() string {
	return o.Module + "." + o.Action
}

// Idempotent reports whether the operation only reads remote state.
// Creating, configuring, triggering, stopping and deleting are not.
func (o Operation) Idempotent() bool {
	return readOnly[o.Key()]
}

// String omits params, which may carry credentials
func (o Operation) String() string {
	return o.Key()
}

// Invoker dispatches remote operations
type Invoker interface {
	Invoke(ctx context.Context, op Operation) (any, error)
}

// InvokerFunc adapts a plain function to the Invoker interface
type InvokerFunc func(ctx context.Context, op Operation) (any, error)

// Invoke calls f(ctx, op)
func (f InvokerFunc) Invoke(ctx context.Context, op Operation) (any, error) {
	return f(ctx, op)
}
