package model

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/carefolio/core"
)

// countingClassifier 记录同时进入的调用数
type countingClassifier struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (c *countingClassifier) Name() string { return "counting" }

func (c *countingClassifier) PredictProba(ctx context.Context, rec *core.Record) ([]float64, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		old := c.maxSeen.Load()
		if n <= old || c.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return []float64{1}, nil
}

func TestExclusive_Serializes(t *testing.T) {
	inner := &countingClassifier{}
	ex := NewExclusive(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ex.PredictProba(context.Background(), core.NewRecord([]string{"x"}))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), inner.maxSeen.Load())
	assert.Equal(t, "counting", ex.Name())

	_, err := ex.PredictValues(context.Background(), core.NewRecord([]string{"x"}))
	assert.True(t, core.IsNotSupported(err))
	_, err = ex.PredictLabels(context.Background(), core.NewRecord([]string{"x"}))
	assert.True(t, core.IsNotSupported(err))
	assert.Nil(t, ex.Columns())
}

func TestObserved_PassesThrough(t *testing.T) {
	m, err := LoadTreeEnsemble("workout", []byte(classifierJSON))
	require.NoError(t, err)
	o := NewObserved(NewExclusive(m))

	proba, err := o.PredictProba(context.Background(), record([]string{"BMI", "Hypertension"}, 30, 1))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.05, 0.95}, proba, 1e-9)
	assert.Equal(t, []string{"BMI", "Hypertension"}, o.Columns())

	_, err = o.PredictValues(context.Background(), record([]string{"BMI", "Hypertension"}, 30, 1))
	assert.True(t, core.IsNotSupported(err))
}
