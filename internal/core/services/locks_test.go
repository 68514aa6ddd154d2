package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerialisesPerKey(t *testing.T) {
	locks := newKeyedMutex()

	const workers = 8
	const rounds = 200
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				unlock := locks.Lock("shared")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*rounds, counter)
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	locks := newKeyedMutex()

	unlockA := locks.Lock("a")
	defer unlockA()

	released := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(released)
	}()

	// Key "b" must not wait for key "a".
	<-released
}

func TestKeyedMutex_DrainsReleasedEntries(t *testing.T) {
	locks := newKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			unlock := locks.Lock(string(rune('a' + n%26)))
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Zero(t, locks.size(), "released keys must not accumulate")
}
