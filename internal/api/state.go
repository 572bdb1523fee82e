package api

import (
	"sync"

	"crypto-tracker/internal/pipeline"
)

// State keeps the latest job results for the HTTP handlers and pushes each
// one to the websocket hub.
type State struct {
	mu          sync.RWMutex
	last        *pipeline.Result
	lastSuccess *pipeline.Result
	hub         *Hub
}

func NewState(hub *Hub) *State {
	return &State{hub: hub}
}

// Publish implements pipeline.Listener.
func (s *State) Publish(r pipeline.Result) {
	s.mu.Lock()
	s.last = &r
	if r.Status == pipeline.StatusSucceeded {
		s.lastSuccess = &r
	}
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Broadcast(r)
	}
}

// Last returns the most recent run, successful or not.
func (s *State) Last() (pipeline.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return pipeline.Result{}, false
	}
	return *s.last, true
}

// LastSuccess returns the most recent run that produced a table.
func (s *State) LastSuccess() (pipeline.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSuccess == nil {
		return pipeline.Result{}, false
	}
	return *s.lastSuccess, true
}
