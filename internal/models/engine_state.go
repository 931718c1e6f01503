package models

import (
	"sync"
	"time"
)

// EngineState хранит общее состояние процесса: пауза, последний прогноз, последний ретрейн.
// Пишут команды оператора и джобы, читает статус. Один мьютекс на всё.
type EngineState struct {
	mu          sync.RWMutex
	paused      bool
	lastSignal  *Signal
	lastRetrain time.Time
}

func NewEngineState() *EngineState {
	return &EngineState{}
}

func (s *EngineState) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// SetPaused возвращает предыдущее значение.
func (s *EngineState) SetPaused(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.paused
	s.paused = v
	return prev
}

func (s *EngineState) LastSignal() (Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSignal == nil {
		return Signal{}, false
	}
	return *s.lastSignal, true
}

func (s *EngineState) SetLastSignal(sig Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSignal = &sig
}

func (s *EngineState) LastRetrain() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRetrain, !s.lastRetrain.IsZero()
}

func (s *EngineState) SetLastRetrain(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRetrain = t
}

// Snapshot: копия для статуса и /healthz.
type StateSnapshot struct {
	Paused      bool
	LastSignal  *Signal
	LastRetrain time.Time
}

func (s *EngineState) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := StateSnapshot{Paused: s.paused, LastRetrain: s.lastRetrain}
	if s.lastSignal != nil {
		sig := *s.lastSignal
		snap.LastSignal = &sig
	}
	return snap
}
