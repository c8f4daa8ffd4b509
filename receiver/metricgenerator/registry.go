package metricgenerator

import (
	"github.com/pkg/errors"
)

// Kind is the type of a metric family.
type Kind int

const (
	// Counter families hold monotonically increasing values.
	Counter Kind = iota
	// Gauge families hold values that can go up and down.
	Gauge
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Gauge:
		return "gauge"
	}
	return "unknown"
}

// Sample is one labeled observation of a family. LabelValues is aligned with
// the LabelNames of the family that owns it.
type Sample struct {
	LabelValues []string
	Value       float64
}

// Family is a named, typed group of samples sharing the same label names.
type Family struct {
	Name       string
	Kind       Kind
	Help       string
	LabelNames []string
	Samples    []Sample
}

func (f *Family) copy() *Family {
	c := &Family{
		Name:       f.Name,
		Kind:       f.Kind,
		Help:       f.Help,
		LabelNames: append([]string(nil), f.LabelNames...),
		Samples:    make([]Sample, len(f.Samples)),
	}
	for i, s := range f.Samples {
		c.Samples[i] = Sample{
			LabelValues: append([]string(nil), s.LabelValues...),
			Value:       s.Value,
		}
	}
	return c
}

// Registry maps metric names to families and accumulates samples for them.
// It does no locking: callers serialize access.
type Registry struct {
	families map[string]*Family
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*Family)}
}

// DefineCounter registers a counter family.
func (r *Registry) DefineCounter(name, help string, labelNames []string) error {
	return r.define(name, Counter, help, labelNames)
}

// DefineGauge registers a gauge family.
func (r *Registry) DefineGauge(name, help string, labelNames []string) error {
	return r.define(name, Gauge, help, labelNames)
}

func (r *Registry) define(name string, kind Kind, help string, labelNames []string) error {
	if name == "" {
		return errors.New("metric name must not be empty")
	}
	if _, ok := r.families[name]; ok {
		return errors.Errorf("metric %q already defined", name)
	}
	r.families[name] = &Family{
		Name:       name,
		Kind:       kind,
		Help:       help,
		LabelNames: append([]string(nil), labelNames...),
	}
	r.order = append(r.order, name)
	return nil
}

// AddSample appends a sample to the named family. The number of label values
// must match the number of label names the family was defined with.
func (r *Registry) AddSample(name string, labelValues []string, value float64) error {
	f, ok := r.families[name]
	if !ok {
		return errors.Errorf("metric %q is not defined", name)
	}
	if len(labelValues) != len(f.LabelNames) {
		return errors.Errorf("metric %q expects %d label values, got %d", name, len(f.LabelNames), len(labelValues))
	}
	f.Samples = append(f.Samples, Sample{
		LabelValues: append([]string(nil), labelValues...),
		Value:       value,
	})
	return nil
}

// ClearSamples removes the samples of every family, keeping the definitions.
func (r *Registry) ClearSamples() {
	for _, f := range r.families {
		f.Samples = nil
	}
}

// Export returns a copy of every family with its current samples, in the
// order the families were defined.
func (r *Registry) Export() []*Family {
	out := make([]*Family, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.families[name].copy())
	}
	return out
}

// Definitions is like Export but leaves the samples out.
func (r *Registry) Definitions() []*Family {
	out := r.Export()
	for _, f := range out {
		f.Samples = nil
	}
	return out
}
