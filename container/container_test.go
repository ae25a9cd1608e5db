package container_test

import (
	"sync"
	"testing"

	"github.com/abstergo/concur/container"
	"github.com/abstergo/concur/lockutil"
	"github.com/stretchr/testify/assert"
)

func TestWriteAtomicReadAtomic(t *testing.T) {
	c := container.New([]int{}, lockutil.NewMutex())

	c.WriteAtomic(func(s *[]int) { *s = append(*s, 1, 2, 3) })

	var snapshot []int
	c.ReadAtomic(func(s []int) { snapshot = append(snapshot, s...) })

	assert.Equal(t, []int{1, 2, 3}, snapshot)
}

func TestSharedReadersConcurrent(t *testing.T) {
	c := container.New(42, lockutil.NewRWMutex())

	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.ReadAtomic(func(v int) { results[i] = v })
		}(i)
	}
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestClone(t *testing.T) {
	c := container.New([]int{1, 2, 3}, lockutil.NewMutex())
	clone := c.Clone(lockutil.NewMutex())

	clone.WriteAtomic(func(s *[]int) { *s = append(*s, 4) })

	var original []int
	c.ReadAtomic(func(s []int) { original = s })
	assert.Equal(t, []int{1, 2, 3}, original)

	var cloned []int
	clone.ReadAtomic(func(s []int) { cloned = s })
	assert.Equal(t, []int{1, 2, 3, 4}, cloned)
}
