package dnslocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStripsTrailingDotAndOrdersByPriority(t *testing.T) {
	recs := []Record{
		{Priority: 10, Weight: 0, Port: 389, Target: "b.example.com."},
		{Priority: 0, Weight: 0, Port: 389, Target: "a.example.com."},
	}
	hosts := Select(recs)
	require.Len(t, hosts, 2)
	assert.Equal(t, "a.example.com", hosts[0].Hostname)
	assert.Equal(t, "b.example.com", hosts[1].Hostname)
}

func TestSelectWeightZeroSortsLast(t *testing.T) {
	// Across many trials, a weight-0 record is never chosen before a
	// weight>0 sibling in the same priority group.
	for trial := 0; trial < 200; trial++ {
		recs := []Record{
			{Priority: 0, Weight: 0, Port: 389, Target: "zero.example.com."},
			{Priority: 0, Weight: 5, Port: 389, Target: "five.example.com."},
		}
		hosts := Select(recs)
		require.Len(t, hosts, 2)
		assert.Equal(t, "zero.example.com", hosts[1].Hostname, "weight-0 record must be selected last")
	}
}

func TestSelectWeightedDistribution(t *testing.T) {
	const trials = 4000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		recs := []Record{
			{Priority: 0, Weight: 0, Port: 389, Target: "w0.example.com."},
			{Priority: 0, Weight: 1, Port: 389, Target: "w1.example.com."},
			{Priority: 0, Weight: 9, Port: 389, Target: "w9.example.com."},
		}
		hosts := Select(recs)
		require.Len(t, hosts, 3)
		counts[hosts[0].Hostname]++
	}
	// w9 should win "first place" roughly 9x as often as w1; w0
	// should essentially never win first place since it always
	// sorts after any weight>0 sibling.
	assert.Zero(t, counts["w0.example.com"])
	ratio := float64(counts["w9.example.com"]) / float64(counts["w1.example.com"])
	assert.Greater(t, ratio, 5.0)
	assert.Less(t, ratio, 14.0)
}

func TestSelectEmpty(t *testing.T) {
	assert.Nil(t, Select(nil))
}
