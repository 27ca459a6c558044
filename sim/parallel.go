package sim

import (
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/desert/systems"
)

// parallelThreshold is the minimum agent count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	pcg *rand.PCG
	rng *rand.Rand
}

// workChunk represents a range of agents for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds resources for the parallel decision phase.
type parallelState struct {
	entities   []ecs.Entity     // aligned with the view's Agents
	intents    []systems.Action // one slot per agent, written by exactly one worker
	scratches  []workerScratch
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(workers int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, workers)
	for i := range scratches {
		pcg := rand.NewPCG(0, 0)
		scratches[i] = workerScratch{pcg: pcg, rng: rand.New(pcg)}
	}
	return &parallelState{
		numWorkers: workers,
		scratches:  scratches,
		entities:   make([]ecs.Entity, 0, 512),
		intents:    make([]systems.Action, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// decideAll fills one intent per agent in the view. Each agent draws from
// its own stream derived from (seed, tick, id), so the result does not
// depend on how agents are split across workers.
func (s *Simulation) decideAll() {
	n := len(s.view.Agents)
	if cap(s.parallel.intents) < n {
		s.parallel.intents = make([]systems.Action, n)
	}
	s.parallel.intents = s.parallel.intents[:n]
	if n == 0 {
		return
	}

	if n < parallelThreshold || s.parallel.numWorkers == 1 {
		s.computeChunk(0, n, &s.parallel.scratches[0])
		return
	}
	s.computeParallel(n)
}

// computeParallel dispatches work to the worker pool.
func (s *Simulation) computeParallel(n int) {
	if !s.parallel.running {
		s.parallel.startWorkers(s)
	}

	numWorkers := s.parallel.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		s.parallel.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-s.parallel.doneChan
	}
}

// computeChunk decides for a range of agents. It reads only the frozen view.
func (s *Simulation) computeChunk(i0, i1 int, scratch *workerScratch) {
	for i := i0; i < i1; i++ {
		agent := &s.view.Agents[i]
		scratch.pcg.Seed(s.seed, streamKey(s.tick, agent.ID))
		s.parallel.intents[i] = systems.Decide(agent, &s.view, scratch.rng)
	}
}

// streamKey derives the per-agent random stream for a tick.
func streamKey(tick int, id uint32) uint64 {
	return uint64(tick)<<32 | uint64(id)
}
