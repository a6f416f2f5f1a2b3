package watcher

import (
	"sync"
	"time"
)

// settler tracks inbox files that have changed recently. A file is released
// to fire only after it has gone quiet for the full delay; every new change
// restarts its clock.
type settler struct {
	delay  time.Duration
	fire   func(path string)
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newSettler(delay time.Duration, fire func(path string)) *settler {
	return &settler{
		delay:  delay,
		fire:   fire,
		timers: make(map[string]*time.Timer),
	}
}

// touch records a change to path and restarts its timer.
func (s *settler) touch(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[path]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		current := s.timers[path] == t
		if current {
			delete(s.timers, path)
		}
		s.mu.Unlock()
		if current {
			s.fire(path)
		}
	})
	s.timers[path] = t
}

// forget drops a pending path without firing it.
func (s *settler) forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[path]; ok {
		t.Stop()
		delete(s.timers, path)
	}
}

// drain cancels every pending path.
func (s *settler) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, t := range s.timers {
		t.Stop()
		delete(s.timers, path)
	}
}

func (s *settler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
