package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/Conversion/server/internal/domain/resource"
	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
	"github.com/MRamiBalles/Conversion/server/internal/platform/metrics"
	"github.com/MRamiBalles/Conversion/server/internal/platform/optimization"
)

// ErrEngineStopped is returned for requests made after the loop has exited.
var ErrEngineStopped = errors.New("engine stopped")

// ErrRealtimeFrames is returned by Advance while the frame ticker owns time.
var ErrRealtimeFrames = errors.New("explicit advance needs the frame ticker disabled")

// ClickPayload is attached to REGION_CLICKED events.
type ClickPayload struct {
	Amount float64 `json:"amount"`
	Value  float64 `json:"value"`
}

// TransferPayload is attached to UNIT_TRANSFERRED events.
type TransferPayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// RejectedPayload is attached to ACTION_REJECTED events.
type RejectedPayload struct {
	Action ActionType `json:"action"`
	Reason string     `json:"reason"`
}

// ReportPayload is attached to CONVERSION_REPORT events.
type ReportPayload struct {
	ConversionPercent float64       `json:"conversion_percent"`
	Resources         resource.Pool `json:"resources"`
	Units             int           `json:"units"`
	Frame             int64         `json:"frame"`
}

type requestKind int

const (
	requestAction requestKind = iota
	requestSnapshot
	requestAdvance
)

type request struct {
	kind   requestKind
	action Action
	delta  float64
	reply  chan reply
}

type reply struct {
	result   Result
	snapshot Snapshot
	report   StepReport
}

// Engine owns a Session and is the only goroutine that touches it. Frames
// from the Ticker and requests from transports are drained from one loop, so
// every mutation runs to completion before the next one starts.
type Engine struct {
	session  *Session
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	ticker   *Ticker

	requests       chan request
	done           chan struct{}
	statusInterval time.Duration
	startedAt      time.Time

	// Hooks, called on the engine goroutine. Set before Start and keep them fast.
	OnFrame  func(report StepReport)
	OnChange func(snap Snapshot) // after every frame and accepted action
}

// NewEngine wires a session to its event log and runtime tuning.
func NewEngine(session *Session, eventLog *events.EventLog, log *logger.Logger, tuning *optimization.Config) *Engine {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	buffer := tuning.RequestQueueBuffer
	if buffer < 0 {
		buffer = 0
	}

	return &Engine{
		session:        session,
		eventLog:       eventLog,
		logger:         log,
		metrics:        metrics.Get(),
		ticker:         NewTicker(session.clock, tuning.FrameInterval, log),
		requests:       make(chan request, buffer),
		done:           make(chan struct{}),
		statusInterval: tuning.StatusInterval,
	}
}

// SessionID identifies the game this engine runs.
func (e *Engine) SessionID() string { return e.session.ID() }

// Config returns the balance constants of the session.
func (e *Engine) Config() rules.Config { return e.session.Config() }

// GetEventLog exposes the journal to transports.
func (e *Engine) GetEventLog() *events.EventLog { return e.eventLog }

// Done is closed once the loop has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Start runs the engine in the background.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		if err := e.Run(ctx); err != nil {
			e.logger.Error("engine exited", "error", err)
		}
	}()
}

// Run blocks until ctx is cancelled. It starts the frame ticker and drains
// the request queue.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	e.startedAt = time.Now()
	e.logger.Info("starting conversion engine",
		"session", e.session.ID(),
		"regions", len(e.session.store.Regions),
	)
	e.append(events.GameEvent{
		Type:    events.EventTypeSessionStarted,
		ActorID: events.ActorSystem,
		Payload: e.session.Config(),
	})

	go e.ticker.Start(ctx)
	defer e.ticker.Stop()

	var status <-chan time.Time
	if e.statusInterval > 0 {
		st := time.NewTicker(e.statusInterval)
		defer st.Stop()
		status = st.C
	}

	for {
		select {
		case <-ctx.Done():
			e.report()
			e.append(events.GameEvent{
				Type:    events.EventTypeSessionStopped,
				ActorID: events.ActorSystem,
			})
			e.logger.Info("conversion engine stopped", "frames", e.session.Frame())
			return nil

		case f := <-e.ticker.Frames():
			e.step(f.DeltaSeconds)

		case req := <-e.requests:
			e.handle(req)

		case <-status:
			e.report()
		}
	}
}

// Submit queues an action and waits for its result.
func (e *Engine) Submit(ctx context.Context, a Action) (Result, error) {
	r, err := e.roundTrip(ctx, request{kind: requestAction, action: a})
	return r.result, err
}

// Snapshot returns a consistent copy of the game state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	r, err := e.roundTrip(ctx, request{kind: requestSnapshot})
	return r.snapshot, err
}

// Advance steps the simulation explicitly. It is only available when
// FrameInterval <= 0; otherwise the ticker would count the same time twice.
func (e *Engine) Advance(ctx context.Context, deltaSeconds float64) (StepReport, error) {
	if e.ticker.interval > 0 {
		return StepReport{}, ErrRealtimeFrames
	}
	r, err := e.roundTrip(ctx, request{kind: requestAdvance, delta: deltaSeconds})
	return r.report, err
}

func (e *Engine) roundTrip(ctx context.Context, req request) (reply, error) {
	req.reply = make(chan reply, 1)

	select {
	case e.requests <- req:
	case <-e.done:
		return reply{}, ErrEngineStopped
	case <-ctx.Done():
		return reply{}, fmt.Errorf("submit: %w", ctx.Err())
	}

	select {
	case r := <-req.reply:
		return r, nil
	case <-e.done:
		return reply{}, ErrEngineStopped
	case <-ctx.Done():
		return reply{}, fmt.Errorf("await reply: %w", ctx.Err())
	}
}

// handle runs one request on the engine goroutine.
func (e *Engine) handle(req request) {
	var r reply

	switch req.kind {
	case requestSnapshot:
		r.snapshot = e.session.Snapshot()

	case requestAdvance:
		r.report = e.step(req.delta)

	case requestAction:
		r.result = e.apply(req.action)
	}

	req.reply <- r
}

// step advances the session and journals milestones.
func (e *Engine) step(deltaSeconds float64) StepReport {
	start := time.Now()
	report := e.session.Advance(deltaSeconds)
	if report.Skipped {
		return report
	}
	e.metrics.RecordTick(time.Since(start))

	frame := e.session.Frame()
	for _, id := range report.Maxed {
		e.append(events.GameEvent{Type: events.EventTypeRegionMaxed, ActorID: events.ActorSystem, RegionID: id, Frame: frame})
	}
	for _, id := range report.Lost {
		e.append(events.GameEvent{Type: events.EventTypeRegionLost, ActorID: events.ActorSystem, RegionID: id, Frame: frame})
	}

	if e.OnFrame != nil {
		e.OnFrame(report)
	}
	e.changed()
	return report
}

// apply runs an action and journals the outcome.
func (e *Engine) apply(a Action) Result {
	wasMax := false
	if r, ok := e.session.store.Region(a.RegionID); ok {
		wasMax = r.CurrentValue >= e.session.cfg.MaxRegionValue
	}

	res := e.session.Apply(a)
	e.metrics.RecordAction(res.OK)

	actor := a.ActorID
	if actor == "" {
		actor = events.ActorPlayer
	}
	ev := events.GameEvent{ActorID: actor, RegionID: a.RegionID, Frame: e.session.Frame()}

	switch {
	case !res.OK:
		ev.Type = events.EventTypeActionRejected
		ev.Payload = RejectedPayload{Action: a.Type, Reason: res.Reason}
		e.logger.Debug("action rejected", "action", a.Type, "reason", res.Reason, "actor", actor)

	case a.Type == ActionClick:
		ev.Type = events.EventTypeRegionClicked
		amount := a.Amount
		if amount == 0 {
			amount = e.session.Config().UnitPerClick
		}
		ev.Payload = ClickPayload{Amount: amount, Value: res.Value}

	case a.Type == ActionCreateUnit:
		ev.Type = events.EventTypeUnitCreated
		ev.UnitID = res.Unit.ID
		e.logger.Event(string(ev.Type), actor, fmt.Sprintf("unit %d created", res.Unit.ID))

	case a.Type == ActionAssignUnit:
		ev.Type = events.EventTypeUnitAssigned
		ev.UnitID = a.UnitID

	case a.Type == ActionTransferUnit:
		ev.Type = events.EventTypeUnitTransferred
		ev.RegionID = a.TargetRegionID
		ev.Payload = TransferPayload{From: a.RegionID, To: a.TargetRegionID}
	}
	e.append(ev)

	if res.OK && a.Type == ActionClick && !wasMax && res.Value >= e.session.cfg.MaxRegionValue {
		e.append(events.GameEvent{Type: events.EventTypeRegionMaxed, ActorID: actor, RegionID: a.RegionID, Frame: ev.Frame})
	}

	if res.OK {
		e.changed()
	}
	return res
}

func (e *Engine) changed() {
	if e.OnChange != nil {
		e.OnChange(e.session.Snapshot())
	}
}

func (e *Engine) append(ev events.GameEvent) {
	if e.eventLog == nil {
		return
	}
	e.eventLog.Append(ev)
}

// report logs a status line and journals a CONVERSION_REPORT.
func (e *Engine) report() {
	store := e.session.store
	pct := store.TotalConversionPercentage
	e.metrics.RecordGame(pct, len(store.Units))

	e.logger.Info("conversion status",
		"conversion", humanize.FtoaWithDigits(pct, 2)+"%",
		"thought", humanize.CommafWithDigits(store.Resources.Balance(resource.Thought), 1),
		"guns", humanize.CommafWithDigits(store.Resources.Balance(resource.Guns), 1),
		"volunteers", humanize.CommafWithDigits(store.Resources.Balance(resource.Volunteers), 1),
		"units", humanize.Comma(int64(len(store.Units))),
		"frames", humanize.Comma(e.session.Frame()),
		"started", humanize.Time(e.startedAt),
	)

	e.append(events.GameEvent{
		Type:    events.EventTypeConversionReport,
		ActorID: events.ActorSystem,
		Frame:   e.session.Frame(),
		Payload: ReportPayload{
			ConversionPercent: pct,
			Resources:         store.Resources.Clone(),
			Units:             len(store.Units),
			Frame:             e.session.Frame(),
		},
	})
}
