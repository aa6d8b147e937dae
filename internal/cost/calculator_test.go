package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() map[string]ModelRate {
	return map[string]ModelRate{
		"haiku":  {Input: 0.80, Output: 4.00},
		"sonnet": {Input: 3.00, Output: 15.00},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		model  string
		input  int64
		output int64
		want   float64
	}{
		{
			name:  "haiku",
			model: "haiku", input: 1000000, output: 100000,
			want: 0.80 + 0.40,
		},
		{
			name:  "sonnet",
			model: "sonnet", input: 1000000, output: 100000,
			want: 3.00 + 1.50,
		},
		{
			name:  "typical opener",
			model: "haiku", input: 400, output: 60,
			want: 400.0/1e6*0.80 + 60.0/1e6*4.00,
		},
		{
			name:  "unknown model returns 0",
			model: "unknown", input: 1000000, output: 1000000,
			want: 0,
		},
		{
			name:  "zero tokens returns 0",
			model: "haiku",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Claude(tt.model, tt.input, tt.output), 1e-9)
		})
	}
}

func TestDefaultRates(t *testing.T) {
	rates := DefaultRates()
	assert.Contains(t, rates, "claude-haiku-4-5-20251001")
	for model, r := range rates {
		assert.Greater(t, r.Output, r.Input, model)
	}
}

func TestMeter(t *testing.T) {
	m := NewMeter(NewCalculator(testRates()))
	assert.Equal(t, Usage{}, m.Snapshot())

	m.Add("haiku", 1000000, 0)
	m.Add("unknown", 10, 5)

	u := m.Snapshot()
	assert.Equal(t, int64(2), u.Calls)
	assert.Equal(t, int64(1000010), u.InputTokens)
	assert.Equal(t, int64(5), u.OutputTokens)
	assert.InDelta(t, 0.80, u.CostUSD, 1e-9)
}

func TestMeter_Concurrent(t *testing.T) {
	m := NewMeter(NewCalculator(testRates()))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Add("sonnet", 100, 10)
		}()
	}
	wg.Wait()

	u := m.Snapshot()
	assert.Equal(t, int64(50), u.Calls)
	assert.Equal(t, int64(5000), u.InputTokens)
}
