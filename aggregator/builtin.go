package aggregator

import (
	"fmt"
	"math"
	"sync"

	"github.com/streamwin/streamwin/utils/cast"
)

// AggregateType names a combine function.
type AggregateType string

const (
	Sum     AggregateType = "sum"
	Count   AggregateType = "count"
	Avg     AggregateType = "avg"
	Max     AggregateType = "max"
	Min     AggregateType = "min"
	StdDev  AggregateType = "stddev"
	Collect AggregateType = "collect"
)

// AggregatorFunction is a combine function folded over the records of one
// window-key pane. Implementations must be associative over Add order;
// commutativity is a caller obligation when arrival order is not
// guaranteed, the engine cannot verify it.
type AggregatorFunction interface {
	New() AggregatorFunction
	Add(value interface{})
	Result() interface{}
}

// AggregationField binds an input record field to a combine function and
// an output name.
type AggregationField struct {
	InputField    string        // input field name, "*" for count(*)
	AggregateType AggregateType // combine function
	OutputAlias   string        // output field name, defaults to InputField
}

type SumAggregator struct {
	value float64
}

func (s *SumAggregator) New() AggregatorFunction {
	return &SumAggregator{}
}

func (s *SumAggregator) Add(v interface{}) {
	if vv, err := cast.ToFloat64E(v); err == nil {
		s.value += vv
	}
}

func (s *SumAggregator) Result() interface{} {
	return s.value
}

type CountAggregator struct {
	count int
}

func (c *CountAggregator) New() AggregatorFunction {
	return &CountAggregator{}
}

func (c *CountAggregator) Add(_ interface{}) {
	c.count++
}

func (c *CountAggregator) Result() interface{} {
	return float64(c.count)
}

type AvgAggregator struct {
	sum   float64
	count int
}

func (a *AvgAggregator) New() AggregatorFunction {
	return &AvgAggregator{}
}

func (a *AvgAggregator) Add(v interface{}) {
	if vv, err := cast.ToFloat64E(v); err == nil {
		a.sum += vv
		a.count++
	}
}

func (a *AvgAggregator) Result() interface{} {
	if a.count == 0 {
		return 0.0
	}
	return a.sum / float64(a.count)
}

type MinAggregator struct {
	value float64
	first bool
}

func (m *MinAggregator) New() AggregatorFunction {
	return &MinAggregator{first: true}
}

func (m *MinAggregator) Add(v interface{}) {
	vv, err := cast.ToFloat64E(v)
	if err != nil {
		return
	}
	if m.first || vv < m.value {
		m.value = vv
		m.first = false
	}
}

func (m *MinAggregator) Result() interface{} {
	return m.value
}

type MaxAggregator struct {
	value float64
	first bool
}

func (m *MaxAggregator) New() AggregatorFunction {
	return &MaxAggregator{first: true}
}

func (m *MaxAggregator) Add(v interface{}) {
	vv, err := cast.ToFloat64E(v)
	if err != nil {
		return
	}
	if m.first || vv > m.value {
		m.value = vv
		m.first = false
	}
}

func (m *MaxAggregator) Result() interface{} {
	return m.value
}

type StdDevAggregator struct {
	values []float64
}

func (s *StdDevAggregator) New() AggregatorFunction {
	return &StdDevAggregator{}
}

func (s *StdDevAggregator) Add(v interface{}) {
	if vv, err := cast.ToFloat64E(v); err == nil {
		s.values = append(s.values, vv)
	}
}

func (s *StdDevAggregator) Result() interface{} {
	if len(s.values) < 2 {
		return 0.0
	}
	avg := calculateAverage(s.values)
	var sum float64
	for _, v := range s.values {
		sum += (v - avg) * (v - avg)
	}
	return math.Sqrt(sum / float64(len(s.values)-1))
}

// CollectAggregator gathers raw values in arrival order.
type CollectAggregator struct {
	values []interface{}
}

func (c *CollectAggregator) New() AggregatorFunction {
	return &CollectAggregator{}
}

func (c *CollectAggregator) Add(v interface{}) {
	c.values = append(c.values, v)
}

func (c *CollectAggregator) Result() interface{} {
	return c.values
}

func calculateAverage(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

var (
	aggregatorRegistry = make(map[string]func() AggregatorFunction)
	registryMutex      sync.RWMutex
)

// Register adds a custom combine function to the global registry.
// Registered names take precedence over the builtins.
func Register(name string, constructor func() AggregatorFunction) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	aggregatorRegistry[name] = constructor
}

// NewAggregator creates a fresh accumulator for the given type, consulting
// the registry first and falling back to the builtins.
func NewAggregator(aggType AggregateType) (AggregatorFunction, error) {
	registryMutex.RLock()
	constructor, exists := aggregatorRegistry[string(aggType)]
	registryMutex.RUnlock()
	if exists {
		return constructor(), nil
	}

	switch aggType {
	case Sum:
		return &SumAggregator{}, nil
	case Count:
		return &CountAggregator{}, nil
	case Avg:
		return &AvgAggregator{}, nil
	case Min:
		return &MinAggregator{first: true}, nil
	case Max:
		return &MaxAggregator{first: true}, nil
	case StdDev:
		return &StdDevAggregator{}, nil
	case Collect:
		return &CollectAggregator{}, nil
	default:
		return nil, fmt.Errorf("unsupported aggregator type: %s", aggType)
	}
}
