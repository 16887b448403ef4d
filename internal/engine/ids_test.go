package engine

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^QP[0-9A-Z]+$`)

func TestNewTransactionIDFormat(t *testing.T) {
	id := NewTransactionID()
	assert.Regexp(t, idPattern, id)
	assert.Greater(t, len(id), 2+6)
}

func TestWriteRandomSymbolsRedrawsBiasedBytes(t *testing.T) {
	var b strings.Builder
	// 252 and above would favour the first four symbols.
	src := bytes.NewReader([]byte{255, 252, 0, 35, 253, 251, 36})
	require.NoError(t, writeRandomSymbols(&b, src, 4))
	assert.Equal(t, "0ZZ0", b.String())

	b.Reset()
	err := writeRandomSymbols(&b, bytes.NewReader([]byte{254, 1}), 3)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteRandomSymbolsIsUniform(t *testing.T) {
	// Every byte value below the limit exactly once: each symbol must come
	// out the same number of times.
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	var b strings.Builder
	require.NoError(t, writeRandomSymbols(&b, bytes.NewReader(all), idByteLimit))

	counts := make(map[rune]int)
	for _, r := range b.String() {
		counts[r]++
	}
	assert.Len(t, counts, len(idAlphabet))
	for sym, n := range counts {
		assert.Equal(t, idByteLimit/len(idAlphabet), n, string(sym))
	}
}

func TestNewTransactionIDUniqueAcrossGoroutines(t *testing.T) {
	const workers, perWorker = 16, 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]string, perWorker)
			for i := range ids {
				ids[i] = NewTransactionID()
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestLockTableReleasesEntries(t *testing.T) {
	locks := newLockTable()
	a, b := uuid.New(), uuid.New()

	release := locks.acquire(a, b, a)
	assert.Equal(t, 2, locks.size())
	release()
	assert.Zero(t, locks.size())
}

func TestLockTableSerializesSameAccount(t *testing.T) {
	locks := newLockTable()
	id := uuid.New()

	release := locks.acquire(id)
	acquired := make(chan struct{})
	go func() {
		r := locks.acquire(id)
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire did not wait")
	default:
	}
	release()
	<-acquired
	require.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, time.Millisecond)
}
