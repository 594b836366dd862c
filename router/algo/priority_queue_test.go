package algo_test

import (
	"container/heap"
	"testing"

	"git.fiblab.net/sim/accessibility/router/algo"
	"github.com/stretchr/testify/assert"
)

func TestPriorityQueueIndex(t *testing.T) {
	pq := make(algo.PriorityQueue, 0)
	items := []*algo.Item{{Value: 7, Priority: 0.7}, {Value: 5, Priority: 0.5}, {Value: 9, Priority: 0.9}}
	for _, item := range items {
		heap.Push(&pq, item)
	}
	for i, item := range pq {
		assert.Equal(t, i, item.Index)
	}
	item := heap.Pop(&pq).(*algo.Item)
	assert.Equal(t, 5, item.Value)
	assert.Equal(t, -1, item.Index)
	assert.Equal(t, 2, pq.Len())
}
