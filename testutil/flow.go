package testutil

import (
	"encoding/json"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/config"
)

// PipelineBuilder is a helper for building pipeline configs programmatically.
type PipelineBuilder struct {
	cfg config.PipelineConfig
}

// NewPipelineBuilder creates an empty builder.
func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{}
}

// Element adds an element. A nil settings map leaves the type defaults.
func (b *PipelineBuilder) Element(name, typeID string, s map[string]any) *PipelineBuilder {
	b.cfg.Elements = append(b.cfg.Elements, config.ElementConfig{Name: name, Type: typeID, Settings: s})
	return b
}

// Manual adds an element the pipeline builds but does not start
func (b *PipelineBuilder) Manual(name, typeID string, s map[string]any) *PipelineBuilder {
	start := false
	b.cfg.Elements = append(b.cfg.Elements, config.ElementConfig{
		Name: name, Type: typeID, Settings: s, Start: &start,
	})
	return b
}

// Link adds a link between two endpoints of the form "element" or
// "element.pad".
func (b *PipelineBuilder) Link(from, to string) *PipelineBuilder {
	b.cfg.Links = append(b.cfg.Links, config.LinkConfig{From: from, To: to})
	return b
}

// Chain links each named element to the next one
func (b *PipelineBuilder) Chain(names ...string) *PipelineBuilder {
	for i := 1; i < len(names); i++ {
		b.Link(names[i-1], names[i])
	}
	return b
}

// Build returns the pipeline section.
func (b *PipelineBuilder) Build() config.PipelineConfig {
	return b.cfg
}

// Config returns a default daemon config carrying the pipeline, with
// metrics disabled.
func (b *PipelineBuilder) Config() *config.Config {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	cfg.Pipeline = b.cfg
	return cfg
}

// BuildJSON returns the pipeline section as JSON.
func (b *PipelineBuilder) BuildJSON() ([]byte, error) {
	return json.Marshal(b.cfg)
}
