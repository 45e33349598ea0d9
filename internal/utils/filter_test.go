package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }

	assert.Equal(t, []int{2, 4}, Filter([]int{1, 2, 3, 4}, even))
	assert.NotNil(t, Filter(nil, even))
	assert.Empty(t, Filter([]int{1, 3}, even))
}

func TestCount(t *testing.T) {
	assert.Equal(t, 2, Count([]string{"a", "b", "a"}, func(s string) bool { return s == "a" }))
	assert.Equal(t, 0, Count(nil, func(string) bool { return true }))
}

func TestUnique(t *testing.T) {
	type pair struct{ k, v string }
	items := []pair{{"x", "1"}, {"y", "2"}, {"x", "3"}}

	assert.Equal(t, []string{"x", "y"}, Unique(items, func(p pair) string { return p.k }))
}
