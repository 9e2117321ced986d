package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/config"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/health"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
)

// member is one configured element and whether it starts with the pipeline
type member struct {
	el        *element.Element
	autostart bool
}

// Pipeline owns a reference to every element it built
type Pipeline struct {
	rt     *element.Runtime
	logger *slog.Logger

	mu      sync.Mutex
	members []member
	byName  map[string]*element.Element
	started   []*element.Element
	startedAt time.Time
	closed    bool
}

// Build instantiates and links the elements of cfg. On failure every
// element created so far is removed again.
func Build(rt *element.Runtime, cfg config.PipelineConfig) (*Pipeline, error) {
	if rt == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Pipeline", "Build", "runtime is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		rt:     rt,
		logger: rt.Logger().With("component", "pipeline"),
		byName: make(map[string]*element.Element, len(cfg.Elements)),
	}

	for _, ec := range cfg.Elements {
		el, err := rt.Instantiate(ec.Type, ec.Name, ec.SettingsData())
		if err != nil {
			p.Close()
			return nil, errors.Wrap(err, "Pipeline", "Build", fmt.Sprintf("create element %q", ec.Name))
		}
		if el.Name() != ec.Name {
			// Another element of the runtime already holds the name.
			el.Remove()
			el.Release()
			p.Close()
			return nil, errors.WrapInvalid(errors.ErrDuplicateName, "Pipeline", "Build",
				fmt.Sprintf("element name %q is taken", ec.Name))
		}
		p.members = append(p.members, member{el: el, autostart: ec.Autostart()})
		p.byName[ec.Name] = el
	}

	for _, lc := range cfg.Links {
		if err := p.link(lc); err != nil {
			p.Close()
			return nil, err
		}
	}

	p.logger.Debug("Pipeline built", "elements", len(p.members), "links", len(cfg.Links))
	return p, nil
}

func (p *Pipeline) link(lc config.LinkConfig) error {
	from, err := config.ParseEndpoint(lc.From)
	if err != nil {
		return errors.WrapInvalid(err, "Pipeline", "link", "parse endpoint")
	}
	to, err := config.ParseEndpoint(lc.To)
	if err != nil {
		return errors.WrapInvalid(err, "Pipeline", "link", "parse endpoint")
	}
	src, sink := p.byName[from.Element], p.byName[to.Element]
	if src == nil || sink == nil {
		return errors.WrapInvalid(errors.ErrLinkFailed, "Pipeline", "link",
			fmt.Sprintf("link %s -> %s: unknown element", lc.From, lc.To))
	}
	if err := src.LinkPads(from.Pad, sink, to.Pad); err != nil {
		return errors.Wrap(err, "Pipeline", "link", fmt.Sprintf("link %s -> %s", lc.From, lc.To))
	}
	p.logger.Debug("Linked elements", "from", lc.From, "to", lc.To)
	return nil
}

// Start starts every autostart element, downstream elements first. If an
// element fails to start, the elements already started are stopped again.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Pipeline", "Start", "start closed pipeline")
	}

	order := make([]*element.Element, 0, len(p.members))
	var sources []*element.Element
	for i := len(p.members) - 1; i >= 0; i-- {
		m := p.members[i]
		if !m.autostart {
			continue
		}
		if m.el.Descriptor().Kind() == object.KindSource {
			sources = append(sources, m.el)
			continue
		}
		order = append(order, m.el)
	}
	for i := len(sources) - 1; i >= 0; i-- {
		order = append(order, sources[i])
	}

	for _, el := range order {
		if err := el.Start(ctx); err != nil {
			p.stopLocked()
			return err
		}
		p.started = append(p.started, el)
	}
	p.startedAt = time.Now()
	p.logger.Info("Pipeline started", "elements", len(p.started))
	return nil
}

// Stop stops the started elements, sources first
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pipeline) stopLocked() {
	if len(p.started) == 0 {
		return
	}
	for i := len(p.started) - 1; i >= 0; i-- {
		p.started[i].Stop()
	}
	p.started = nil
	p.logger.Info("Pipeline stopped")
}

// Wait blocks until every started source is done or ctx is cancelled. A
// pipeline without running sources waits for ctx.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	var done []<-chan struct{}
	for _, el := range p.started {
		if el.Descriptor().Kind() == object.KindSource {
			done = append(done, el.Done())
		}
	}
	p.mu.Unlock()

	if len(done) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	for _, ch := range done {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Health aggregates one status per element. A started element is healthy;
// an autostart element that is not running is unhealthy while the
// pipeline runs and degraded otherwise.
func (p *Pipeline) Health() health.Status {
	p.mu.Lock()
	members := append([]member(nil), p.members...)
	running := len(p.started) > 0
	startedAt := p.startedAt
	p.mu.Unlock()

	subs := make([]health.Status, 0, len(members))
	for _, m := range members {
		subs = append(subs, memberHealth(m, running))
	}
	status := health.Aggregate("pipeline", subs)
	if running {
		status = status.WithMetrics(&health.Metrics{Uptime: time.Since(startedAt)})
	}
	return status
}

func memberHealth(m member, pipelineRunning bool) health.Status {
	name := m.el.Name()
	switch {
	case m.el.Running():
		select {
		case <-m.el.Done():
			return health.NewHealthy(name, "finished")
		default:
			return health.NewHealthy(name, "running")
		}
	case !m.autostart:
		return health.NewHealthy(name, "not started")
	case pipelineRunning:
		return health.NewUnhealthy(name, "stopped")
	default:
		return health.NewDegraded(name, "stopped")
	}
}

// Element returns the named element. The pipeline keeps the reference;
// callers that outlive the pipeline must Retain it.
func (p *Pipeline) Element(name string) (*element.Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.byName[name]
	return el, ok
}

// Names returns the element names in declaration order
func (p *Pipeline) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, m.el.Name())
	}
	return out
}

// Close stops the pipeline, removes its elements from the runtime and
// releases them. Repeated calls are no-ops.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stopLocked()
	for _, m := range p.members {
		m.el.Remove()
		m.el.Release()
	}
	p.members = nil
	p.byName = map[string]*element.Element{}
}
