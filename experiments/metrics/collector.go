package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Workers           int
	BeamWidth         int
	Depth             int
	Duration          time.Duration
	Plies             int
	Expansions        int
	Evaluations       int
	DeadEnds          int
	EnumerationErrors int
	IsFallback        bool
}

type MoveMetric struct {
	Step int
	Side int // 0 or 1
	SearchMetric
}

type GameMetric struct {
	Winner    int // side index, -1 for a draw
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Steps     int
	Capped    bool
}

type Collector interface {
	Start(workers, width, depth int)
	AddPly()
	AddExpansion()
	AddEvaluations(n int)
	AddDeadEnd()
	AddEnumerationError()
	SetFallback(value bool)
	Complete() SearchMetric
}

type collector struct {
	workers     int
	width       int
	depth       int
	startTime   time.Time
	plies       atomic.Int32
	expansions  atomic.Int32
	evaluations atomic.Int32
	deadEnds    atomic.Int32
	enumErrors  atomic.Int32
	isFallback  atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(workers, width, depth int) {
	m.startTime = time.Now()
	m.workers = workers
	m.width = width
	m.depth = depth
	m.plies.Store(0)
	m.expansions.Store(0)
	m.evaluations.Store(0)
	m.deadEnds.Store(0)
	m.enumErrors.Store(0)
	m.isFallback.Store(false)
}

func (m *collector) AddPly() {
	m.plies.Add(1)
}

func (m *collector) AddExpansion() {
	m.expansions.Add(1)
}

func (m *collector) AddEvaluations(n int) {
	m.evaluations.Add(int32(n))
}

func (m *collector) AddDeadEnd() {
	m.deadEnds.Add(1)
}

func (m *collector) AddEnumerationError() {
	m.enumErrors.Add(1)
}

func (m *collector) SetFallback(value bool) {
	m.isFallback.Store(value)
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Workers:           m.workers,
		BeamWidth:         m.width,
		Depth:             m.depth,
		Duration:          time.Since(m.startTime),
		Plies:             int(m.plies.Load()),
		Expansions:        int(m.expansions.Load()),
		Evaluations:       int(m.evaluations.Load()),
		DeadEnds:          int(m.deadEnds.Load()),
		EnumerationErrors: int(m.enumErrors.Load()),
		IsFallback:        m.isFallback.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(workers, width, depth int) {}
func (m *dummyCollector) AddPly()                         {}
func (m *dummyCollector) AddExpansion()                   {}
func (m *dummyCollector) AddEvaluations(n int)            {}
func (m *dummyCollector) AddDeadEnd()                     {}
func (m *dummyCollector) AddEnumerationError()            {}
func (m *dummyCollector) SetFallback(value bool)          {}
func (m *dummyCollector) Complete() SearchMetric          { return SearchMetric{} }
