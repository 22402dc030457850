package mcp

import (
	"fmt"
	"sync"
)

// Catalog holds the fixed set of tools and resources the server advertises.
// It is owned by a single Server instance, constructed once at startup and
// passed by reference — never a package-level global (spec §9's
// anti-singleton redesign flag).
type Catalog struct {
	mu        sync.RWMutex
	tools     map[string]ToolDescriptor
	resources map[string]ResourceDescriptor
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tools:     make(map[string]ToolDescriptor),
		resources: make(map[string]ResourceDescriptor),
	}
}

// RegisterTool adds a tool descriptor. Call during startup wiring only.
func (c *Catalog) RegisterTool(d ToolDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools[d.Name] = d
}

// RegisterResource adds a resource descriptor. Call during startup wiring only.
func (c *Catalog) RegisterResource(d ResourceDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources[d.URI] = d
}

// Tool looks up a tool by name.
func (c *Catalog) Tool(name string) (ToolDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.tools[name]
	if !ok {
		return ToolDescriptor{}, fmt.Errorf("tool not found: %s", name)
	}
	return d, nil
}

// Resource looks up a resource by URI.
func (c *Catalog) Resource(uri string) (ResourceDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.resources[uri]
	if !ok {
		return ResourceDescriptor{}, fmt.Errorf("resource not found: %s", uri)
	}
	return d, nil
}

// ListTools returns all registered tools as wire-format ToolInfo, sorted
// by name for deterministic `tools/list` responses.
func (c *Catalog) ListTools() []ToolInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ToolInfo, 0, len(c.tools))
	for _, d := range c.tools {
		out = append(out, ToolInfo{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	sortToolInfo(out)
	return out
}

// ListResources returns all registered resources as wire-format ResourceInfo.
func (c *Catalog) ListResources() []ResourceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ResourceInfo, 0, len(c.resources))
	for _, d := range c.resources {
		out = append(out, ResourceInfo{URI: d.URI, Description: d.Description, MimeType: d.MimeType})
	}
	sortResourceInfo(out)
	return out
}

func sortToolInfo(in []ToolInfo) {
	for i := 1; i < len(in); i++ {
		for j := i; j > 0 && in[j].Name < in[j-1].Name; j-- {
			in[j], in[j-1] = in[j-1], in[j]
		}
	}
}

func sortResourceInfo(in []ResourceInfo) {
	for i := 1; i < len(in); i++ {
		for j := i; j > 0 && in[j].URI < in[j-1].URI; j-- {
			in[j], in[j-1] = in[j-1], in[j]
		}
	}
}
