// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package signing drives wallet signing of an inspected vote transaction and
// double checks the witness the wallet returns.
package signing

import (
	"errors"
	"fmt"
)

type State struct {
	Id   uint
	Name string
}

func NewState(id uint, name string) State {
	return State{
		Id:   id,
		Name: name,
	}
}

func (s State) String() string {
	return s.Name
}

var (
	StateIdle    = NewState(0, "Idle")
	StateSigning = NewState(1, "Signing")
	StateSuccess = NewState(2, "Success")
	StateFailed  = NewState(3, "Failed")
)

// Event drives a state transition
type Event uint8

const (
	EventSign Event = iota
	EventSigned
	EventFail
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventSign:
		return "Sign"
	case EventSigned:
		return "Signed"
	case EventFail:
		return "Fail"
	case EventReset:
		return "Reset"
	}
	return fmt.Sprintf("Event(%d)", uint8(e))
}

var ErrInvalidTransition = errors.New("invalid signing state transition")

type StateTransition struct {
	Event    Event
	NewState State
}

type StateMapEntry struct {
	Transitions []StateTransition
}

type StateMap map[State]StateMapEntry

var DefaultStateMap = StateMap{
	StateIdle: StateMapEntry{
		Transitions: []StateTransition{
			{
				Event:    EventSign,
				NewState: StateSigning,
			},
		},
	},
	StateSigning: StateMapEntry{
		Transitions: []StateTransition{
			{
				Event:    EventSigned,
				NewState: StateSuccess,
			},
			{
				Event:    EventFail,
				NewState: StateFailed,
			},
		},
	},
	StateSuccess: StateMapEntry{
		Transitions: []StateTransition{
			{
				Event:    EventReset,
				NewState: StateIdle,
			},
		},
	},
	StateFailed: StateMapEntry{
		Transitions: []StateTransition{
			{
				Event:    EventReset,
				NewState: StateIdle,
			},
		},
	},
}

// Next returns the state reached from current on event
func (s StateMap) Next(current State, event Event) (State, error) {
	entry, ok := s[current]
	if ok {
		for _, transition := range entry.Transitions {
			if transition.Event == event {
				return transition.NewState, nil
			}
		}
	}
	return current, fmt.Errorf(
		"%w: %s in state %s",
		ErrInvalidTransition,
		event,
		current,
	)
}
