package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

// Component is a long-lived part of the bot process (scheduler, health
// server, gatekeeper sweeper).
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type namedComponent struct {
	name      string
	component Component
}

// Runtime starts registered components in order and stops the started ones
// in reverse. Components are registered under a name so start and stop
// failures identify the culprit.
type Runtime struct {
	registered []namedComponent
	started    []namedComponent
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	if name == "" {
		name = fmt.Sprintf("component#%d", len(r.registered))
	}
	r.registered = append(r.registered, namedComponent{name: name, component: component})
}

// Start brings components up in registration order. On the first failure
// the already started ones are torn down before the error is returned.
func (r *Runtime) Start(ctx context.Context) error {
	for _, nc := range r.registered {
		if err := nc.component.Start(ctx); err != nil {
			_ = r.Stop(ctx)
			return fmt.Errorf("start %s: %w", nc.name, err)
		}
		r.started = append(r.started, nc)
	}
	return nil
}

// Stop tears down only the components that actually started, newest first,
// and collects every stop error instead of bailing on the first one.
func (r *Runtime) Stop(ctx context.Context) error {
	var stopErr error
	for i := len(r.started) - 1; i >= 0; i-- {
		nc := r.started[i]
		if err := nc.component.Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", nc.name, err))
		}
	}
	r.started = nil
	return stopErr
}
