package metrics

import (
	"sync"

	gometrics "github.com/armon/go-metrics"
)

var (
	sinkMu sync.RWMutex
	sink   gometrics.MetricSink = &gometrics.BlackholeSink{}
)

// SetSink installs the go-metrics sink that IncrCounterWithGroup,
// IncrCounterWithDimGroup, and UpdateGaugeWithGroup report through.
// Defaults to a BlackholeSink so calling these functions is always
// safe even before a real sink is wired up.
func SetSink(s gometrics.MetricSink) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = s
}

func currentSink() gometrics.MetricSink {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink
}

func dimsToLabels(dims Dimension) []gometrics.Label {
	if len(dims) == 0 {
		return nil
	}
	labels := make([]gometrics.Label, 0, len(dims))
	for k, v := range dims {
		labels = append(labels, gometrics.Label{Name: k, Value: v})
	}
	return labels
}

// IncrCounterWithGroup increments a named counter under group, with no
// dimensions attached.
func IncrCounterWithGroup(group, name string, val Value) {
	currentSink().IncrCounter([]string{group, name}, float32(val))
}

// IncrCounterWithDimGroup increments a named counter under group, with
// the given dimensions attached as labels.
func IncrCounterWithDimGroup(group, name string, val Value, dims Dimension) {
	currentSink().IncrCounterWithLabels([]string{group, name}, float32(val), dimsToLabels(dims))
}

// UpdateGaugeWithGroup sets a named gauge under group to val.
func UpdateGaugeWithGroup(group, name string, val Value) {
	currentSink().SetGauge([]string{group, name}, float32(val))
}

// UpdateGaugeWithDimGroup sets a named gauge under group to val, with
// the given dimensions attached as labels.
func UpdateGaugeWithDimGroup(group, name string, val Value, dims Dimension) {
	currentSink().SetGaugeWithLabels([]string{group, name}, float32(val), dimsToLabels(dims))
}
