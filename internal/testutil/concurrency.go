package testutil

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/specialistvlad/assetgrid/internal/processor"
)

// Probe is an instrumented processor for scheduler and app tests. Each call
// is identified by the "id" option; it sleeps, records its execution window,
// then either fails with Err or copies every input to "<dir option>/<base>".
type Probe struct {
	Sleep time.Duration
	Err   error

	mu      sync.Mutex
	calls   map[string]int
	records map[string]ExecutionRecord
	order   []string
}

// Transform implements processor.Processor.
func (p *Probe) Transform(ctx context.Context, inputs []processor.Input, opts processor.Options) ([]processor.Output, error) {
	id, err := opts.String("id", "")
	if err != nil {
		return nil, err
	}
	dir, err := opts.String("dir", "")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if p.Sleep > 0 {
		time.Sleep(p.Sleep)
	}
	end := time.Now()

	p.mu.Lock()
	if p.calls == nil {
		p.calls = make(map[string]int)
		p.records = make(map[string]ExecutionRecord)
	}
	p.calls[id]++
	p.records[id] = ExecutionRecord{Start: start, End: end}
	p.order = append(p.order, id)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	outputs := make([]processor.Output, 0, len(inputs))
	for _, in := range inputs {
		outputs = append(outputs, processor.Output{
			Path:    path.Join(dir, path.Base(in.Path)),
			Content: in.Content,
		})
	}
	return outputs, nil
}

// Calls returns how many times id was invoked.
func (p *Probe) Calls(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

// Record returns the last execution window of id.
func (p *Probe) Record(id string) (ExecutionRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[id]
	return r, ok
}

// Order returns the ids in the order their calls completed.
func (p *Probe) Order() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

// SimpleModule registers a single processor under Name.
type SimpleModule struct {
	Name      string
	Processor processor.Processor
}

// Register implements the processor.Module interface.
func (m *SimpleModule) Register(r *processor.Registry) {
	r.Register(m.Name, m.Processor)
}
