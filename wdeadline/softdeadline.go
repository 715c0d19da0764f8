package wdeadline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/packerlschupfer/ESP32-Watchdog/internal/wchan"
	"github.com/packerlschupfer/ESP32-Watchdog/wtask"
)

// SoftwareDeadline is an [Adapter] backed by an in-process timer
// instead of a hardware watchdog peripheral.
//
// A single kernel goroutine owns all deadline state.
// Arming starts one global timer; a ping from any tracked participant
// resets it. If the timer elapses, the context returned by
// [NewSoftwareDeadline] is cancelled with an [ExpiredError] cause.
// When armed with panic-on-timeout, the kernel panics instead,
// which is the closest in-process analogue to a hardware reset.
type SoftwareDeadline struct {
	log *slog.Logger

	clock clock.Clock

	cancel context.CancelCauseFunc

	// Request plumbing runs off the root context rather than the deadline
	// context, so that participant operations still resolve after the
	// deadline has fired.
	rootCtx context.Context

	armRequests         chan armRequest
	participantRequests chan participantRequest
	statusRequests      chan statusRequest

	wg sync.WaitGroup
}

var _ Adapter = (*SoftwareDeadline)(nil)

type armRequest struct {
	Timeout        time.Duration
	PanicOnTimeout bool

	Resp chan error
}

type participantOp uint8

const (
	participantAdd participantOp = iota
	participantRemove
	participantPing
)

type participantRequest struct {
	Op participantOp
	ID wtask.ID

	Resp chan error
}

type statusRequest struct {
	ID wtask.ID

	Resp chan Status
}

// NewSoftwareDeadline returns a new SoftwareDeadline and a context associated
// with it and derived from the passed-in context.
//
// The returned context is cancelled when the armed deadline elapses without a
// participant ping, or upon a call to [*SoftwareDeadline.Terminate].
// Use [IsExpiration] to distinguish those causes from an ordinary
// cancellation of the parent context.
//
// A nil clk defaults to the real clock; tests pass a [clock.Mock].
func NewSoftwareDeadline(ctx context.Context, log *slog.Logger, clk clock.Clock) (*SoftwareDeadline, context.Context) {
	if clk == nil {
		clk = clock.New()
	}

	dCtx, cancel := context.WithCancelCause(ctx)
	d := &SoftwareDeadline{
		log:     log,
		clock:   clk,
		cancel:  cancel,
		rootCtx: ctx,

		// Unbuffered since all requests are synchronous.
		armRequests:         make(chan armRequest),
		participantRequests: make(chan participantRequest),
		statusRequests:      make(chan statusRequest),
	}
	d.wg.Add(1)
	go d.kernel(ctx, cancel)
	return d, dCtx
}

// Wait blocks until d's kernel goroutine completes.
// The kernel is tied to the lifecycle of the context passed to
// [NewSoftwareDeadline]; a fired deadline alone does not unblock Wait,
// because the kernel keeps serving requests so that late unregistrations
// still resolve.
func (d *SoftwareDeadline) Wait() {
	d.wg.Wait()
}

// Terminate forces the deadline context to be cancelled
// with a cause of [ForcedTerminationError].
func (d *SoftwareDeadline) Terminate(reason string) {
	d.cancel(ForcedTerminationError{Reason: reason})
}

func (d *SoftwareDeadline) kernel(rootCtx context.Context, cancel context.CancelCauseFunc) {
	defer d.wg.Done()

	var (
		armed          bool
		timeout        time.Duration
		panicOnTimeout bool

		participants = make(map[wtask.ID]struct{})

		timer  *clock.Timer
		timerC <-chan time.Time
	)

	for {
		select {
		case <-rootCtx.Done():
			if timer != nil {
				timer.Stop()
			}
			d.log.Info("Stopping due to root context cancellation", "cause", context.Cause(rootCtx))
			return

		case <-timerC:
			if panicOnTimeout {
				// An unrecovered panic from the kernel goroutine takes down
				// the whole process, matching the fatal-reset policy of a
				// hardware deadline.
				panic(ExpiredError{Timeout: timeout})
			}
			cancel(ExpiredError{Timeout: timeout})

			// The deadline only fires once.
			timerC = nil

		case req := <-d.armRequests:
			if armed {
				req.Resp <- ErrAlreadyArmed
				continue
			}
			if req.Timeout <= 0 {
				req.Resp <- fmt.Errorf("deadline timeout must be positive, got %v", req.Timeout)
				continue
			}

			armed = true
			timeout = req.Timeout
			panicOnTimeout = req.PanicOnTimeout
			timer = d.clock.Timer(timeout)
			timerC = timer.C

			d.log.Info("Global deadline armed", "timeout", timeout, "panic_on_timeout", panicOnTimeout)
			req.Resp <- nil

		case req := <-d.participantRequests:
			if !armed {
				req.Resp <- ErrNotArmed
				continue
			}

			switch req.Op {
			case participantAdd:
				// Re-adding a tracked participant is a no-op.
				participants[req.ID] = struct{}{}
				req.Resp <- nil

			case participantRemove:
				if _, ok := participants[req.ID]; !ok {
					req.Resp <- ErrParticipantNotFound
					continue
				}
				delete(participants, req.ID)
				req.Resp <- nil

			case participantPing:
				if _, ok := participants[req.ID]; !ok {
					req.Resp <- ErrParticipantNotFound
					continue
				}
				if timerC != nil {
					timer.Reset(timeout)
				}
				req.Resp <- nil

			default:
				req.Resp <- fmt.Errorf("unknown participant operation %d", req.Op)
			}

		case req := <-d.statusRequests:
			st := StatusNotArmed
			if _, ok := participants[req.ID]; ok && armed {
				st = StatusArmed
			}
			req.Resp <- st
		}
	}
}

// Arm implements [Adapter].
func (d *SoftwareDeadline) Arm(timeout time.Duration, panicOnTimeout bool) error {
	req := armRequest{
		Timeout:        timeout,
		PanicOnTimeout: panicOnTimeout,
		Resp:           make(chan error, 1),
	}
	err, ok := wchan.ReqResp(
		d.rootCtx, d.log,
		d.armRequests, req,
		req.Resp,
		"arm",
	)
	if !ok {
		return d.stoppedError()
	}
	return err
}

// AddParticipant implements [Adapter].
func (d *SoftwareDeadline) AddParticipant(id wtask.ID) error {
	return d.participantOp(participantAdd, id, "add participant")
}

// RemoveParticipant implements [Adapter].
func (d *SoftwareDeadline) RemoveParticipant(id wtask.ID) error {
	return d.participantOp(participantRemove, id, "remove participant")
}

// Ping implements [Adapter].
func (d *SoftwareDeadline) Ping(id wtask.ID) error {
	return d.participantOp(participantPing, id, "ping")
}

func (d *SoftwareDeadline) participantOp(op participantOp, id wtask.ID, reqType string) error {
	req := participantRequest{
		Op:   op,
		ID:   id,
		Resp: make(chan error, 1),
	}
	err, ok := wchan.ReqResp(
		d.rootCtx, d.log,
		d.participantRequests, req,
		req.Resp,
		reqType,
	)
	if !ok {
		return d.stoppedError()
	}
	return err
}

// ParticipantStatus implements [Adapter].
func (d *SoftwareDeadline) ParticipantStatus(id wtask.ID) (Status, error) {
	req := statusRequest{
		ID:   id,
		Resp: make(chan Status, 1),
	}
	st, ok := wchan.ReqResp(
		d.rootCtx, d.log,
		d.statusRequests, req,
		req.Resp,
		"participant status",
	)
	if !ok {
		return StatusNotArmed, d.stoppedError()
	}
	return st, nil
}

func (d *SoftwareDeadline) stoppedError() error {
	cause := context.Cause(d.rootCtx)
	if cause == nil {
		cause = errors.New("kernel unavailable")
	}
	return fmt.Errorf("software deadline stopped: %w", cause)
}
