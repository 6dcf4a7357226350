package jenkins

import (
	"context"
	"fmt"

	"executorjenkins/internal/engine"
)

// remoteCall is one module/action entry point on the client
type remoteCall struct {
	arity int
	call  func(ctx context.Context, c *Client, params []any) (any, error)
}

var remoteCalls = map[string]remoteCall{
	engine.ModuleJob + "." + engine.ActionExists: {1, func(ctx context.Context, c *Client, p []any) (any, error) {
		name, err := stringParam(p, 0)
		if err != nil {
			return nil, err
		}
		return c.JobExists(ctx, name)
	}},
	engine.ModuleJob + "." + engine.ActionCreate: {2, func(ctx context.Context, c *Client, p []any) (any, error) {
		name, xml, err := nameAndXML(p)
		if err != nil {
			return nil, err
		}
		return nil, c.CreateJob(ctx, name, xml)
	}},
	engine.ModuleJob + "." + engine.ActionConfig: {2, func(ctx context.Context, c *Client, p []any) (any, error) {
		name, xml, err := nameAndXML(p)
		if err != nil {
			return nil, err
		}
		return nil, c.UpdateJobConfig(ctx, name, xml)
	}},
	engine.ModuleJob + "." + engine.ActionBuild: {2, func(ctx context.Context, c *Client, p []any) (any, error) {
		name, err := stringParam(p, 0)
		if err != nil {
			return nil, err
		}
		params, ok := p[1].(Parameters)
		if !ok {
			return nil, fmt.Errorf("%w: param 1: expected jenkins.Parameters, got %T", engine.ErrInvalidOperation, p[1])
		}
		return c.BuildJob(ctx, name, params)
	}},
	engine.ModuleJob + "." + engine.ActionGet: {1, func(ctx context.Context, c *Client, p []any) (any, error) {
		name, err := stringParam(p, 0)
		if err != nil {
			return nil, err
		}
		return c.GetJob(ctx, name)
	}},
	engine.ModuleJob + "." + engine.ActionDestroy: {1, func(ctx context.Context, c *Client, p []any) (any, error) {
		name, err := stringParam(p, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.DeleteJob(ctx, name)
	}},
	engine.ModuleBuild + "." + engine.ActionGet: {2, func(ctx context.Context, c *Client, p []any) (any, error) {
		name, number, err := nameAndNumber(p)
		if err != nil {
			return nil, err
		}
		return c.GetBuild(ctx, name, number)
	}},
	engine.ModuleBuild + "." + engine.ActionStop: {2, func(ctx context.Context, c *Client, p []any) (any, error) {
		name, number, err := nameAndNumber(p)
		if err != nil {
			return nil, err
		}
		return nil, c.StopBuild(ctx, name, number)
	}},
}

// Invoke dispatches op to the matching client method.
// Unknown operations and malformed params never reach the network.
func (c *Client) Invoke(ctx context.Context, op engine.Operation) (any, error) {
	rc, ok := remoteCalls[op.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported remote operation %s", engine.ErrInvalidOperation, op.Key())
	}
	if len(op.Params) != rc.arity {
		return nil, fmt.Errorf("%w: %s: expected %d params, got %d", engine.ErrInvalidOperation, op.Key(), rc.arity, len(op.Params))
	}

	result, err := rc.call(ctx, c, op.Params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Supports reports whether the client has an entry point for module.action
func Supports(module, action string) bool {
	_, ok := remoteCalls[module+"."+action]
	return ok
}

func stringParam(p []any, i int) (string, error) {
	s, ok := p[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: param %d: expected string, got %T", engine.ErrInvalidOperation, i, p[i])
	}
	return s, nil
}

func nameAndXML(p []any) (string, string, error) {
	name, err := stringParam(p, 0)
	if err != nil {
		return "", "", err
	}
	xml, err := stringParam(p, 1)
	if err != nil {
		return "", "", err
	}
	return name, xml, nil
}

func nameAndNumber(p []any) (string, int64, error) {
	name, err := stringParam(p, 0)
	if err != nil {
		return "", 0, err
	}
	number, ok := p[1].(int64)
	if !ok {
		return "", 0, fmt.Errorf("%w: param 1: expected int64, got %T", engine.ErrInvalidOperation, p[1])
	}
	return name, number, nil
}
