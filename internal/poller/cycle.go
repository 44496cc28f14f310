package poller

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	fsmutil "visioniq.io/visioniq/internal/pkg/util/fsm"
	"visioniq.io/visioniq/internal/store"
	"visioniq.io/visioniq/pkg/log"
)

// Cycle phases.
const (
	PhaseIdle       = "idle"
	PhaseFetching   = "fetching"
	PhaseRefreshing = "refreshing"
	PhaseRecording  = "recording"
	PhaseSkipped    = "skipped"
)

const (
	// EventFetch starts a cycle.
	EventFetch = "event_fetch"
	// EventRefresh forces a live read because the cached state is stale or absent.
	EventRefresh = "event_refresh"
	// EventRecord commits a sample.
	EventRecord = "event_record"
	// EventSkip ends a cycle without data.
	EventSkip = "event_skip"
	// EventFinish returns to idle.
	EventFinish = "event_finish"
)

var errNoSample = errors.New("record requires a sample")

// cycleMachine tracks the phase of one poll cycle and mirrors it to the
// phase gauge.
type cycleMachine struct {
	*fsm.FSM

	recorder Recorder
	logger   log.Logger
}

func newCycleMachine(recorder Recorder, logger log.Logger) *cycleMachine {
	m := &cycleMachine{recorder: recorder, logger: logger}

	events := fsm.Events{
		{Name: EventFetch, Src: []string{PhaseIdle}, Dst: PhaseFetching},
		{Name: EventRefresh, Src: []string{PhaseFetching}, Dst: PhaseRefreshing},
		{Name: EventRecord, Src: []string{PhaseFetching, PhaseRefreshing}, Dst: PhaseRecording},
		{Name: EventSkip, Src: []string{PhaseIdle, PhaseFetching, PhaseRefreshing}, Dst: PhaseSkipped},
		{Name: EventFinish, Src: []string{PhaseFetching, PhaseRefreshing, PhaseRecording, PhaseSkipped}, Dst: PhaseIdle},
	}

	callbacks := fsm.Callbacks{
		"before_" + EventRecord: fsmutil.WrapEvent(m.GuardHasSample),
		"enter_state":           fsmutil.WrapEvent(m.ActionEnterState),
	}

	m.FSM = fsm.NewFSM(PhaseIdle, events, callbacks)
	return m
}

// GuardHasSample refuses to enter recording without a sample argument.
func (m *cycleMachine) GuardHasSample(_ context.Context, e *fsm.Event) error {
	if len(e.Args) == 0 {
		e.Cancel(errNoSample)
		return nil
	}
	if _, ok := e.Args[0].(*store.Sample); !ok {
		e.Cancel(errNoSample)
	}
	return nil
}

func (m *cycleMachine) ActionEnterState(_ context.Context, e *fsm.Event) error {
	m.recorder.SetPhase(e.Dst)
	m.logger.Debug("Poll cycle phase changed", "from", e.Src, "to", e.Dst, "event", e.Event)
	return nil
}

func (m *cycleMachine) fire(ctx context.Context, event string, args ...any) {
	// Phases still advance during shutdown so the gauge ends on idle.
	// A rejected transition never stops the cycle.
	if err := fsmutil.Fire(context.WithoutCancel(ctx), m.FSM, event, args...); err != nil {
		m.logger.Warn("Poll cycle transition rejected", "event", event, "phase", m.Current(), "error", err)
	}
}
