package prover

import (
	"context"
	"sync"

	"VoteProof/log"
)

// Prover runs the guest program and proves its journals with the Groth16
// keys of the program.
type Prover struct {
	keys     *Keys
	workers  int
	sessions int
	mu       sync.Mutex
}

// NewProver sets up program, or reuses its keys when this process already
// did, and creates a prover for it. workers bounds the concurrent runs of
// ProveAll.
func NewProver(program Program, workers int) (*Prover, error) {
	if workers < 1 {
		workers = 1
	}
	keys, err := Setup(program)
	if err != nil {
		return nil, err
	}
	log.Logger.Infof("prover ready for %s, image %s", program, keys.ImageID())
	return &Prover{keys: keys, workers: workers}, nil
}

// ImageID returns the image ID of the program.
func (p *Prover) ImageID() Digest {
	return p.keys.image
}

// Program returns the guest program.
func (p *Prover) Program() Program {
	return p.keys.program
}

// NewSession creates an Idle session.
func (p *Prover) NewSession() *Session {
	p.mu.Lock()
	p.sessions++
	id := p.sessions
	p.mu.Unlock()
	return &Session{prover: p, id: id}
}

// RunResult is the outcome of one run of ProveAll.
type RunResult struct {
	Index   int
	Journal *Journal
	Proof   *Proof
	Err     error
}

// ProveAll runs every witness in its own session, at most p.workers at a
// time. Runs share nothing. Results are in the order of the witnesses.
func (p *Prover) ProveAll(ctx context.Context, witnesses []*Witness) []RunResult {
	results := make([]RunResult, len(witnesses))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, w := range witnesses {
		results[i].Index = i
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(res *RunResult, w *Witness) {
			defer wg.Done()
			defer func() { <-sem }()
			res.Journal, res.Proof, res.Err = p.proveOne(ctx, w)
		}(&results[i], w)
	}
	wg.Wait()
	return results
}

func (p *Prover) proveOne(ctx context.Context, w *Witness) (*Journal, *Proof, error) {
	s := p.NewSession()
	if err := s.Assemble(w); err != nil {
		return nil, nil, err
	}
	journal, err := s.Execute(ctx)
	if err != nil {
		return nil, nil, err
	}
	proof, err := s.Prove()
	if err != nil {
		return nil, nil, err
	}
	if err := s.Verify(); err != nil {
		return nil, nil, err
	}
	return journal, proof, nil
}
