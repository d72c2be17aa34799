package benchmark

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	timer := NewTimer("sleep")
	time.Sleep(2 * time.Millisecond)
	d := timer.Stop()

	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	assert.Equal(t, d, timer.Duration())
	assert.Contains(t, timer.String(), "sleep: ")
}

func TestSuite_Add(t *testing.T) {
	suite := NewSuite()
	assert.Empty(t, suite.Names())

	suite.Add("first", func() error { return nil })
	suite.Add("second", func() error { return nil })

	assert.Equal(t, []string{"first", "second"}, suite.Names())
}

func TestSuite_Run(t *testing.T) {
	suite := NewSuite()
	calls := 0
	suite.Add("success_test", func() error {
		calls++
		time.Sleep(time.Millisecond)
		return nil
	})
	suite.Add("error_test", func() error {
		return errors.New("test error")
	})

	result := suite.Run("success_test", 5)
	assert.Equal(t, "success_test", result.Name)
	assert.Equal(t, 5, result.Iterations)
	assert.Equal(t, 5, calls)
	require.NoError(t, result.Error)
	assert.Positive(t, result.Duration)
	assert.GreaterOrEqual(t, result.AvgDuration(), time.Millisecond)

	result = suite.Run("error_test", 3)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "test error")
	assert.Contains(t, result.String(), "ERROR")

	result = suite.Run("non_existent", 1)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "not found")

	result = suite.Run("success_test", 0)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "iterations must be positive")
}

func TestSuite_RunAllAndPrint(t *testing.T) {
	suite := NewSuite()
	suite.Add("fast_test", func() error { return nil })
	suite.Add("alloc_test", func() error {
		_ = make([]byte, 64*1024)
		return nil
	})

	results := suite.RunAll(3)
	require.Len(t, results, 2)
	assert.Equal(t, results, suite.Results())
	assert.Equal(t, "fast_test", results[0].Name)
	assert.Equal(t, "alloc_test", results[1].Name)

	var buf bytes.Buffer
	suite.PrintResults(&buf)
	assert.Contains(t, buf.String(), "Benchmark Results:")
	assert.Contains(t, buf.String(), "fast_test: 3 iterations")
	assert.Contains(t, buf.String(), "alloc_test: 3 iterations")
}

func TestResult_Derived(t *testing.T) {
	r := Result{
		Name:         "x",
		Duration:     10 * time.Millisecond,
		Iterations:   4,
		MemoryBefore: MemoryStats{TotalAllocBytes: 1000},
		MemoryAfter:  MemoryStats{TotalAllocBytes: 9000},
	}
	assert.Equal(t, 2500*time.Microsecond, r.AvgDuration())
	assert.Equal(t, uint64(2000), r.AllocPerOp())

	assert.Zero(t, Result{}.AvgDuration())
	assert.Zero(t, Result{}.AllocPerOp())
}

func TestGetMemoryStats(t *testing.T) {
	m := GetMemoryStats()
	assert.Positive(t, m.TotalAllocBytes)
	assert.Contains(t, m.String(), "Alloc:")
}
