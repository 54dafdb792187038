package server

import "sync"

const maxLogLines = 1000

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

// NewLogBuffer creates an empty buffer
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{
		lines: make([]string, 0, maxLogLines),
	}
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > maxLogLines {
		lb.lines = lb.lines[len(lb.lines)-maxLogLines:]
	}

	return len(p), nil
}

// GetLogs returns a copy of the buffered lines
func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
