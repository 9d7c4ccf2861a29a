package workers

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"

	"rawpick/internal/logging"
)

// Priority orders queued tasks. Higher values run first; ties run in
// submission order.
type Priority int

const (
	// PriorityPrefetch is for speculative work that can wait.
	PriorityPrefetch Priority = 0
	// PriorityNeighbor is for assets adjacent to the cursor.
	PriorityNeighbor Priority = 10
	// PriorityCurrent is for the asset on screen.
	PriorityCurrent Priority = 20
)

// Task is one unit of queued work. Key dedupes pending submissions: while a
// task with the same key is waiting, later submissions only raise its
// priority instead of queueing again.
type Task struct {
	Key      string
	Priority Priority
	Run      func(ctx context.Context)
}

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	logger *slog.Logger
	size   int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   taskHeap
	pending map[string]*queuedTask
	running bool
	seq     uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool builds a pool with the given worker count. Counts below one are
// clamped to one.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pool{
		logger:  logging.WithComponent(logger, "workers"),
		size:    size,
		pending: make(map[string]*queuedTask),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.run(runCtx)
	}
	go func() {
		<-runCtx.Done()
		p.cond.Broadcast()
	}()
	return nil
}

// Stop cancels in-flight work, drops anything still queued, and waits for
// the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.queue = nil
	p.pending = make(map[string]*queuedTask)
	p.mu.Unlock()

	cancel()
	p.cond.Broadcast()
	p.wg.Wait()
}

// Submit queues task. If a task with the same key is already pending, the
// pending entry's priority is raised to the maximum of the two and the new
// submission is dropped. Returns false once the pool has stopped.
func (p *Pool) Submit(task Task) bool {
	if task.Run == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return false
	}
	if task.Key != "" {
		if existing, ok := p.pending[task.Key]; ok {
			if task.Priority > existing.task.Priority {
				existing.task.Priority = task.Priority
				heap.Fix(&p.queue, existing.index)
			}
			return true
		}
	}
	qt := &queuedTask{task: task, seq: p.nextSeq()}
	heap.Push(&p.queue, qt)
	if task.Key != "" {
		p.pending[task.Key] = qt
	}
	p.cond.Signal()
	return true
}

// Pending reports how many tasks are queued but not yet running.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// CancelPending drops every queued task whose key the keep function rejects.
// Running tasks are unaffected.
func (p *Pool) CancelPending(keep func(key string) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.queue[:0]
	for _, qt := range p.queue {
		if keep != nil && keep(qt.task.Key) {
			kept = append(kept, qt)
			continue
		}
		delete(p.pending, qt.task.Key)
	}
	p.queue = kept
	heap.Init(&p.queue)
	for i, qt := range p.queue {
		qt.index = i
	}
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		qt := p.next(ctx)
		if qt == nil {
			return
		}
		p.execute(ctx, qt)
	}
}

func (p *Pool) execute(ctx context.Context, qt *queuedTask) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				logging.String("task", qt.task.Key),
				slog.Any("panic", r),
			)
		}
	}()
	qt.task.Run(ctx)
}

func (p *Pool) next(ctx context.Context) *queuedTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if ctx.Err() != nil || !p.running {
			return nil
		}
		if p.queue.Len() > 0 {
			qt := heap.Pop(&p.queue).(*queuedTask)
			if qt.task.Key != "" {
				delete(p.pending, qt.task.Key)
			}
			return qt
		}
		p.cond.Wait()
	}
}

func (p *Pool) nextSeq() uint64 {
	p.seq++
	return p.seq
}
