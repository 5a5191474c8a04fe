package blockchain

import (
	"context"

	"github.com/looplab/fsm"
)

type FSMStateType string

const (
	FSMStateIdle    FSMStateType = "IDLE"
	FSMStateMining  FSMStateType = "MINING"
	FSMStateStopped FSMStateType = "STOPPED"
)

func (s FSMStateType) String() string {
	return string(s)
}

type FSMEventType string

const (
	FSMEventMine  FSMEventType = "MINE"
	FSMEventMined FSMEventType = "MINED"
	FSMEventStop  FSMEventType = "STOP"
)

func (e FSMEventType) String() string {
	return string(e)
}

// NewFiniteStateMachine creates the state machine of the chain writer.
// The finite state machine has the following states:
// - Idle
// - Mining
// - Stopped
// The finite state machine has the following events:
// - Mine
// - Mined
// - Stop
func (b *Blockchain) NewFiniteStateMachine(opts ...func(*fsm.FSM)) *fsm.FSM {
	finiteStateMachine := fsm.NewFSM(
		FSMStateIdle.String(),
		fsm.Events{
			{
				Name: FSMEventMine.String(),
				Src: []string{
					FSMStateIdle.String(),
				},
				Dst: FSMStateMining.String(),
			},
			{
				Name: FSMEventMined.String(),
				Src: []string{
					FSMStateMining.String(),
				},
				Dst: FSMStateIdle.String(),
			},
			{
				Name: FSMEventStop.String(),
				Src: []string{
					FSMStateIdle.String(),
					FSMStateMining.String(),
				},
				Dst: FSMStateStopped.String(),
			},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				b.logger.Debugf("[Blockchain] state %s -> %s (%s)", e.Src, e.Dst, e.Event)
			},
		},
	)

	// apply options
	for _, opt := range opts {
		opt(finiteStateMachine)
	}

	return finiteStateMachine
}

// State returns the current state of the chain writer.
func (b *Blockchain) State() FSMStateType {
	return FSMStateType(b.finiteStateMachine.Current())
}

func (b *Blockchain) sendFSMEvent(ctx context.Context, event FSMEventType) error {
	return b.finiteStateMachine.Event(ctx, event.String())
}
