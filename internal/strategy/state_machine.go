package strategy

import "sync"

type StateMachine struct {
	mu    sync.Mutex
	State State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{State: StateFlat}
}

func (s *StateMachine) Apply(event Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = nextState(s.State, event)
	return s.State
}

func (s *StateMachine) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func nextState(current State, event Event) State {
	switch current {
	case StateFlat:
		if event == EventOpen {
			return StatePositioned
		}
	case StatePositioned:
		if event == EventClose {
			return StateFlat
		}
	}
	return current
}
