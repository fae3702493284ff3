package logger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogBufferConcurrentAccess(t *testing.T) {
	buffer, err := NewLogBuffer(100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	numGoroutines := 10
	logsPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				buffer.Add("info", fmt.Sprintf("Log from goroutine %d, iteration %d", id, j), map[string]interface{}{
					"goroutine": id,
				})
			}
		}(i)
	}

	// Concurrent reads
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = buffer.GetRecentLogs(10)
		}
	}()

	wg.Wait()

	total, dropped := buffer.GetStats()
	assert.Equal(t, uint64(numGoroutines*logsPerGoroutine), total)
	assert.Equal(t, total-100, dropped)
	assert.Len(t, buffer.GetRecentLogs(0), 100)
}

func TestLogBufferOrdering(t *testing.T) {
	buffer, err := NewLogBuffer(3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		buffer.Add("info", fmt.Sprintf("msg-%d", i), nil)
	}

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, "msg-2", logs[0].Message)
	assert.Equal(t, "msg-4", logs[2].Message)

	recent := buffer.GetRecentLogs(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "msg-3", recent[0].Message)
	assert.Equal(t, "msg-4", recent[1].Message)
}

func TestLogBufferPartiallyFilled(t *testing.T) {
	buffer, err := NewLogBuffer(10)
	require.NoError(t, err)

	assert.Empty(t, buffer.GetRecentLogs(5))

	buffer.Add("warn", "first", nil)
	buffer.Add("error", "second", nil)

	logs := buffer.GetRecentLogs(5)
	require.Len(t, logs, 2)
	assert.Equal(t, "first", logs[0].Message)
	assert.Equal(t, "error", logs[1].Level)
}

func TestNewLogBufferRejectsZeroSize(t *testing.T) {
	_, err := NewLogBuffer(0)
	assert.Error(t, err)
}

func TestTUILoggerWritesIntoBuffer(t *testing.T) {
	buffer, err := NewLogBuffer(10)
	require.NoError(t, err)

	log, err := CreateTUILogger(false, buffer, FileConfig{})
	require.NoError(t, err)

	log.Named("wallet").Info("Wallet connected", zap.String("public_key", "abc"))
	log.Debug("hidden at info level")

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 1)
	assert.Equal(t, "info", logs[0].Level)
	assert.Equal(t, "Wallet connected", logs[0].Message)
	assert.Equal(t, "abc", logs[0].Fields["public_key"])
	assert.Equal(t, "wallet", logs[0].Fields["logger"])
	assert.False(t, logs[0].Timestamp.IsZero())
}

func TestTUILoggerRequiresBuffer(t *testing.T) {
	_, err := CreateTUILogger(true, nil, FileConfig{})
	assert.Error(t, err)
}

func TestLogBufferKeepsPlainText(t *testing.T) {
	buffer, err := NewLogBuffer(2)
	require.NoError(t, err)

	n, err := buffer.Write([]byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, "not json", buffer.GetRecentLogs(1)[0].Message)
}

func TestShortenAddress(t *testing.T) {
	assert.Equal(t, "So11...1112", ShortenAddress("So11111111111111111111111111111111111111112"))
	assert.Equal(t, "short", ShortenAddress("short"))
}
