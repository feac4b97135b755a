// Package tools implements the tool registry: the mapping from tool names to
// the backend services that own them.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mtb-digital/banking-assistant/internal/llm"
)

// ErrToolNotFound is returned when no registered service owns the tool.
var ErrToolNotFound = errors.New("tool not found")

// Service is a backend capability exposing one or more tools under a domain.
type Service interface {
	// Domain returns the service's domain name (e.g. "account").
	Domain() string

	// Tools returns the schemas of the tools this service owns.
	Tools() []llm.ToolDefinition

	// Execute runs the named tool with the given arguments.
	Execute(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error)
}

// Registry maps tool names to services. Services are registered once at
// startup; dispatch is read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
	byTool   map[string]Service
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Service),
		byTool:   make(map[string]Service),
	}
}

// RegisterService adds a service and indexes its tools. A tool name already
// claimed by another service is an error.
func (r *Registry) RegisterService(svc Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[svc.Domain()]; exists {
		return fmt.Errorf("service domain %q already registered", svc.Domain())
	}

	for _, def := range svc.Tools() {
		if owner, exists := r.byTool[def.Name]; exists && owner.Domain() != svc.Domain() {
			return fmt.Errorf("tool %q already owned by domain %q", def.Name, owner.Domain())
		}
	}

	r.services[svc.Domain()] = svc
	for _, def := range svc.Tools() {
		r.byTool[def.Name] = svc
	}
	return nil
}

// GetService returns the service registered under the domain.
func (r *Registry) GetService(domain string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[domain]
	return svc, ok
}

// AllTools returns the schemas of every registered tool, deduplicated by name.
func (r *Registry) AllTools() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.byTool))
	var defs []llm.ToolDefinition
	for _, svc := range r.services {
		for _, def := range svc.Tools() {
			if seen[def.Name] {
				continue
			}
			seen[def.Name] = true
			defs = append(defs, def)
		}
	}
	return defs
}

// Execute dispatches a tool call to the service that owns it.
func (r *Registry) Execute(ctx context.Context, toolName string, args map[string]interface{}) (map[string]interface{}, error) {
	r.mu.RLock()
	svc, ok := r.byTool[toolName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("execute %q: %w", toolName, ErrToolNotFound)
	}
	return svc.Execute(ctx, toolName, args)
}
