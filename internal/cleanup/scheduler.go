package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Scheduler removes request scratch directories that outlived their
// request, e.g. after a crash mid-batch
type Scheduler struct {
	uploadDir string
	interval  time.Duration
	maxAge    time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once

	mu     sync.Mutex
	active map[string]int
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(uploadDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}
	if maxAgeHours <= 0 {
		maxAgeHours = 6
	}
	return &Scheduler{
		uploadDir: uploadDir,
		interval:  time.Duration(intervalMinutes) * time.Minute,
		maxAge:    time.Duration(maxAgeHours) * time.Hour,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		active:    make(map[string]int),
	}
}

// Acquire marks the upload dir entry name as in use. Sweep never removes an
// entry while it is held, however old it is.
func (s *Scheduler) Acquire(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[name]++
}

// Release undoes one Acquire
func (s *Scheduler) Release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[name] <= 1 {
		delete(s.active, name)
		return
	}
	s.active[name]--
}

func (s *Scheduler) inUse(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[name] > 0
}

// Start runs one sweep immediately, then sweeps on every interval
func (s *Scheduler) Start() {
	log.Println("Running initial upload scratch cleanup...")
	s.Sweep()

	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		log.Println("Cleanup scheduler stopped")
	})
}

// Sweep removes top-level entries of the upload dir older than maxAge that
// are not held by a running request, and returns how many were deleted
func (s *Scheduler) Sweep() int {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error during cleanup: %v", err)
		}
		return 0
	}

	now := s.now()
	var deletedCount int

	for _, entry := range entries {
		if s.inUse(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // removed concurrently
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			continue
		}

		path := filepath.Join(s.uploadDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("Failed to delete stale upload %s: %v", path, err)
			continue
		}
		deletedCount++
		log.Printf("Deleted stale upload: %s (age: %s)", entry.Name(), age.Round(time.Minute))
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d stale uploads deleted", deletedCount)
	}
	return deletedCount
}

// EnsureDirExists creates dir if it doesn't exist
func EnsureDirExists(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	log.Printf("Directory ready: %s", dir)
	return nil
}
