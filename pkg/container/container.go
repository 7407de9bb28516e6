// Package container builds named components on first use and passes each one
// through the registered post-processors exactly once, after it has been
// initialized. Consumers always receive the post-processed instance.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/calltime/pkg/errorsx"
)

type Factory func(ctx context.Context) (any, error)

// PostProcessor may replace a component before and after its Init runs.
type PostProcessor interface {
	BeforeInit(name string, obj any) (any, error)
	AfterInit(name string, obj any) (any, error)
}

// PostProcessorFuncs adapts plain functions; nil hooks pass the object through.
type PostProcessorFuncs struct {
	Before func(name string, obj any) (any, error)
	After  func(name string, obj any) (any, error)
}

func (p PostProcessorFuncs) BeforeInit(name string, obj any) (any, error) {
	if p.Before == nil {
		return obj, nil
	}
	return p.Before(name, obj)
}

func (p PostProcessorFuncs) AfterInit(name string, obj any) (any, error) {
	if p.After == nil {
		return obj, nil
	}
	return p.After(name, obj)
}

// Initializer is implemented by components that need setup after construction.
type Initializer interface {
	Init(ctx context.Context) error
}

type entry struct {
	name     string
	factory  Factory
	once     sync.Once
	instance any
	err      error
}

type Container struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string
	processors []PostProcessor
	log        *slog.Logger
}

func New(log *slog.Logger) *Container {
	if log == nil {
		log = slog.Default()
	}
	return &Container{
		entries: make(map[string]*entry),
		log:     log,
	}
}

// AddPostProcessor appends p. It only applies to components built afterwards.
func (c *Container) AddPostProcessor(p PostProcessor) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.processors = append(c.processors, p)
	c.mu.Unlock()
}

func (c *Container) Register(name string, factory Factory) error {
	key := normalizeName(name)
	if key == "" || factory == nil {
		return errorsx.Newf(errorsx.ReasonComponentInit, "component name and factory are required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return errorsx.Newf(errorsx.ReasonComponentDuplicate, "component %q already registered", name)
	}
	c.entries[key] = &entry{name: strings.TrimSpace(name), factory: factory}
	c.order = append(c.order, key)
	return nil
}

// RegisterInstance registers an already constructed value.
func (c *Container) RegisterInstance(name string, obj any) error {
	return c.Register(name, func(context.Context) (any, error) { return obj, nil })
}

// Get returns the post-processed component, building it on the first call.
// Concurrent callers share a single build, and a failed build stays failed.
func (c *Container) Get(ctx context.Context, name string) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[normalizeName(name)]
	procs := append([]PostProcessor(nil), c.processors...)
	c.mu.Unlock()
	if !ok {
		return nil, errorsx.Newf(errorsx.ReasonComponentMissing, "component %q not registered", name)
	}
	e.once.Do(func() {
		// A panicking build is cached as a failure so later callers never
		// see a nil instance with a nil error.
		defer func() {
			if r := recover(); r != nil {
				c.mu.Lock()
				e.instance = nil
				e.err = errorsx.Newf(errorsx.ReasonComponentInit, "build %s panicked: %v", e.name, r)
				c.mu.Unlock()
				panic(r)
			}
		}()
		obj, err := c.build(ctx, e, procs)
		c.mu.Lock()
		e.instance, e.err = obj, err
		c.mu.Unlock()
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return e.instance, e.err
}

// Resolve is Get with a type assertion.
func Resolve[T any](ctx context.Context, c *Container, name string) (T, error) {
	var zero T
	obj, err := c.Get(ctx, name)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, errorsx.Newf(errorsx.ReasonComponentInit, "component %q has type %T", name, obj)
	}
	return v, nil
}

func (c *Container) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.entries[key].name)
	}
	return out
}

// Close closes built components in reverse registration order.
func (c *Container) Close() error {
	type built struct {
		name string
		obj  any
	}
	c.mu.Lock()
	var list []built
	for _, key := range c.order {
		if e := c.entries[key]; e.instance != nil {
			list = append(list, built{name: e.name, obj: e.instance})
		}
	}
	c.mu.Unlock()

	var errs error
	for i := len(list) - 1; i >= 0; i-- {
		switch v := list[i].obj.(type) {
		case io.Closer:
			if err := v.Close(); err != nil {
				errs = errors.Join(errs, errorsx.Wrapf(err, errorsx.ReasonComponentInit, "close %s", list[i].name))
			}
		case interface{ Close() }:
			v.Close()
		}
	}
	return errs
}

func (c *Container) build(ctx context.Context, e *entry, procs []PostProcessor) (any, error) {
	obj, err := e.factory(ctx)
	if err != nil {
		return nil, errorsx.Wrapf(err, errorsx.ReasonComponentInit, "build %s", e.name)
	}
	for _, p := range procs {
		if obj, err = p.BeforeInit(e.name, obj); err != nil {
			return nil, errorsx.Wrapf(err, errorsx.ReasonComponentHook, "before init %s", e.name)
		}
	}
	if in, ok := obj.(Initializer); ok {
		if err := in.Init(ctx); err != nil {
			return nil, errorsx.Wrapf(err, errorsx.ReasonComponentInit, "init %s", e.name)
		}
	}
	raw := obj
	for _, p := range procs {
		if obj, err = p.AfterInit(e.name, obj); err != nil {
			return nil, errorsx.Wrapf(err, errorsx.ReasonComponentHook, "after init %s", e.name)
		}
	}
	c.log.Debug("component ready",
		"name", e.name,
		"type", typeName(raw),
		"replaced", typeName(obj) != typeName(raw),
	)
	return obj, nil
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
