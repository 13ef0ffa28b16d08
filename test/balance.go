// Package test - balance.go
// Balance suite: headless scenarios that pin the numbers a player feels.
// Runs against a fake clock so every scenario is deterministic.
package test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/Conversion/server/internal/domain/intellectual"
	"github.com/MRamiBalles/Conversion/server/internal/domain/resource"
	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
	"github.com/MRamiBalles/Conversion/server/internal/engine"
	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
	"github.com/MRamiBalles/Conversion/server/internal/platform/optimization"
)

const tolerance = 1e-4

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// ScenarioResult captures the outcome of each scenario.
type ScenarioResult struct {
	ScenarioName string
	Expected     string
	Actual       string
	Passed       bool
	Reason       string
}

type scenario struct {
	name string
	run  func(ctx context.Context) ScenarioResult
}

// BalanceSuite runs every scenario against a fresh session.
type BalanceSuite struct {
	cfg     rules.Config
	logger  *logger.Logger
	results []ScenarioResult
}

// NewBalanceSuite creates the suite for cfg.
func NewBalanceSuite(cfg rules.Config, log *logger.Logger) *BalanceSuite {
	return &BalanceSuite{cfg: cfg, logger: log}
}

// Run executes all scenarios in order and prints a verdict per scenario.
func (b *BalanceSuite) Run(ctx context.Context) {
	scenarios := []scenario{
		{"decay after grace period", b.decayAfterGrace},
		{"decay slows towards the cap", b.decaySlows},
		{"adjacency production", b.adjacencyProduction},
		{"cap and degenerate frames", b.capAndNoop},
		{"economy: buy, spend, place", b.economy},
		{"intellectuals reverse decay", b.unitsReverseDecay},
		{"random play keeps invariants", b.randomPlay},
		{"engine journals a session", b.engineJournal},
	}

	for _, sc := range scenarios {
		if ctx.Err() != nil {
			b.logger.Warn("balance suite interrupted", "error", ctx.Err())
			return
		}
		res := sc.run(ctx)
		res.ScenarioName = sc.name
		b.results = append(b.results, res)

		verdict := "PASS"
		if !res.Passed {
			verdict = "FAIL"
		}
		fmt.Printf("[%s] %-32s expected %s, got %s\n", verdict, sc.name, res.Expected, res.Actual)
		if !res.Passed {
			fmt.Println("       " + res.Reason)
		}
	}
	fmt.Println(strings.Repeat("=", 60))
}

// GetResults returns all scenario results.
func (b *BalanceSuite) GetResults() []ScenarioResult {
	return b.results
}

func (b *BalanceSuite) newSession() (*engine.Session, *engine.FakeClock, error) {
	clock := engine.NewFakeClock(epoch)
	s, err := engine.NewSession(b.cfg, clock)
	return s, clock, err
}

func (b *BalanceSuite) pastGrace(clock *engine.FakeClock) {
	clock.Advance(b.cfg.DecayDelay() + 2*time.Second)
}

func failed(err error) ScenarioResult {
	return ScenarioResult{Expected: "session", Actual: "error", Reason: err.Error()}
}

func check(expected, actual float64, reason string) ScenarioResult {
	return ScenarioResult{
		Expected: humanize.FtoaWithDigits(expected, 4),
		Actual:   humanize.FtoaWithDigits(actual, 4),
		Passed:   math.Abs(expected-actual) < tolerance,
		Reason:   reason,
	}
}

func region(s *engine.Session, id int) engine.RegionView {
	v, _ := s.Snapshot().Region(id)
	return v
}

// One click, five quiet seconds, a four second frame: 1 - 0.2*4.
func (b *BalanceSuite) decayAfterGrace(context.Context) ScenarioResult {
	s, clock, err := b.newSession()
	if err != nil {
		return failed(err)
	}
	s.ApplyClick(1, b.cfg.UnitPerClick)
	clock.Advance(5 * time.Second)
	s.Advance(4)
	return check(0.2, region(s, 1).CurrentValue, "a lone click should decay at the base rate")
}

// At value 50 the multiplier is 1-(40/90), so the rate is -0.1111.
func (b *BalanceSuite) decaySlows(context.Context) ScenarioResult {
	s, clock, err := b.newSession()
	if err != nil {
		return failed(err)
	}
	s.ApplyClick(1, 50)
	b.pastGrace(clock)
	s.Advance(0.001)
	return check(-0.1111, region(s, 1).ConversionRate, "decay should shrink as a region fills up")
}

// Region 12 at the cap with neighbours 2 and 11 touched: 1 + 1*2*1.
func (b *BalanceSuite) adjacencyProduction(context.Context) ScenarioResult {
	s, _, err := b.newSession()
	if err != nil {
		return failed(err)
	}
	s.ApplyClick(12, b.cfg.MaxRegionValue)
	s.ApplyClick(2, 5)
	s.ApplyClick(11, 5)
	s.Advance(1)

	res := check(3.0, region(s, 12).ProductionRate, "two converted neighbours should triple output")
	if guns := s.Snapshot().Resources.Balance(resource.Guns); res.Passed && math.Abs(guns-3.0) > tolerance {
		res.Passed = false
		res.Reason = fmt.Sprintf("guns balance %v after one second", guns)
	}
	return res
}

func (b *BalanceSuite) capAndNoop(context.Context) ScenarioResult {
	s, clock, err := b.newSession()
	if err != nil {
		return failed(err)
	}
	v, _ := s.ApplyClick(7, b.cfg.MaxRegionValue*5)
	b.pastGrace(clock)
	s.Advance(10)

	before := s.Snapshot()
	for _, dt := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		if !s.Advance(dt).Skipped {
			return ScenarioResult{Expected: "skipped", Actual: "stepped", Reason: fmt.Sprintf("delta %v advanced the game", dt)}
		}
	}
	if s.Snapshot().Frame != before.Frame {
		return ScenarioResult{Expected: "same frame", Actual: "new frame", Reason: "degenerate delta advanced the frame"}
	}

	res := check(b.cfg.MaxRegionValue, region(s, 7).CurrentValue, "a capped region must neither decay nor overflow")
	if v != b.cfg.MaxRegionValue {
		res.Passed = false
		res.Reason = "click did not clamp to the cap"
	}
	return res
}

// Ten academic regions at the cap earn 28 thought per second.
func (b *BalanceSuite) economy(context.Context) ScenarioResult {
	s, _, err := b.newSession()
	if err != nil {
		return failed(err)
	}
	if _, ok := s.CreateUnit(); ok {
		return ScenarioResult{Expected: "refused", Actual: "bought", Reason: "a unit was bought with no thought"}
	}
	if s.Spend(resource.Thought, 1) {
		return ScenarioResult{Expected: "refused", Actual: "spent", Reason: "spent more than the balance"}
	}

	for id := 1; id <= b.cfg.AcademicRegions; id++ {
		s.ApplyClick(id, b.cfg.MaxRegionValue)
	}
	s.Advance(2)

	bought := 0
	for s.CanAfford(intellectual.PurchaseIntellectual) {
		u, ok := s.CreateUnit()
		if !ok {
			break
		}
		bought++
		s.AssignUnit(u.ID, 30)
	}
	if !s.TransferUnit(30, 31) || s.TransferUnit(31, 31) {
		return ScenarioResult{Expected: "transfer ok", Actual: "transfer failed", Reason: "transfer rules broken"}
	}
	if msg := s.CheckInvariants(); msg != "" {
		return ScenarioResult{Expected: "invariants", Actual: "broken", Reason: msg}
	}

	res := check(16, s.Snapshot().Resources.Balance(resource.Thought), "56 thought minus two units at 20")
	if res.Passed && bought != 2 {
		res.Passed = false
		res.Reason = fmt.Sprintf("bought %d units, want 2", bought)
	}
	return res
}

func (b *BalanceSuite) unitsReverseDecay(context.Context) ScenarioResult {
	s, clock, err := b.newSession()
	if err != nil {
		return failed(err)
	}
	for id := 1; id <= b.cfg.AcademicRegions; id++ {
		s.ApplyClick(id, b.cfg.MaxRegionValue)
	}
	s.Advance(2)
	for i := 0; i < 2; i++ {
		u, ok := s.CreateUnit()
		if !ok {
			return ScenarioResult{Expected: "unit", Actual: "none", Reason: "could not afford a unit"}
		}
		s.AssignUnit(u.ID, 30)
	}
	s.ApplyClick(30, 50)
	b.pastGrace(clock)
	s.Advance(1)

	// -0.1111 from decay plus 2 * 0.3 from the intellectuals.
	return check(0.4889, region(s, 30).ConversionRate, "assigned intellectuals should outpace decay")
}

func (b *BalanceSuite) randomPlay(context.Context) ScenarioResult {
	s, clock, err := b.newSession()
	if err != nil {
		return failed(err)
	}
	rng := rand.New(rand.NewSource(42))
	n := b.cfg.RegionCount
	prev := s.Snapshot().Resources

	for i := 0; i < 5000; i++ {
		switch rng.Intn(6) {
		case 0:
			s.ApplyClick(rng.Intn(n+2), float64(rng.Intn(40)))
		case 1:
			s.CreateUnit()
		case 2:
			s.AssignUnit(rng.Intn(20), rng.Intn(n+2))
		case 3:
			s.TransferUnit(rng.Intn(n+2), rng.Intn(n+2))
		default:
			clock.Advance(time.Duration(rng.Intn(3000)) * time.Millisecond)
			s.Advance(rng.Float64() * 2)
			cur := s.Snapshot().Resources
			for _, k := range resource.Kinds {
				if cur.Balance(k) < prev.Balance(k)-tolerance {
					return ScenarioResult{Expected: "monotone pool", Actual: "shrank", Reason: fmt.Sprintf("step %d: %s fell during a frame", i, k)}
				}
			}
		}
		if msg := s.CheckInvariants(); msg != "" {
			return ScenarioResult{Expected: "invariants", Actual: "broken", Reason: fmt.Sprintf("step %d: %s", i, msg)}
		}
		prev = s.Snapshot().Resources
	}
	return ScenarioResult{Expected: "5,000 steps", Actual: "5,000 steps", Passed: true}
}

// Drives the runtime instead of the session and checks what it journals.
func (b *BalanceSuite) engineJournal(ctx context.Context) ScenarioResult {
	s, _, err := b.newSession()
	if err != nil {
		return failed(err)
	}
	tuning := optimization.LowResourceConfig()
	tuning.FrameInterval = 0
	tuning.StatusInterval = 0

	el := events.NewEventLog(nil)
	eng := engine.NewEngine(s, el, b.logger, tuning)
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = eng.Run(runCtx) }()

	for id := 1; id <= 3; id++ {
		if _, err := eng.Submit(ctx, engine.Action{Type: engine.ActionClick, RegionID: id, Amount: b.cfg.MaxRegionValue}); err != nil {
			cancel()
			return failed(err)
		}
	}
	if _, err := eng.Submit(ctx, engine.Action{Type: engine.ActionCreateUnit}); err != nil {
		cancel()
		return failed(err)
	}
	cancel()
	<-eng.Done()

	maxed := len(el.GetByType(events.EventTypeRegionMaxed))
	rejected := len(el.GetByType(events.EventTypeActionRejected))
	res := check(3, float64(maxed), "every click to the cap is a milestone")
	if res.Passed && (rejected != 1 || len(el.GetByType(events.EventTypeSessionStopped)) != 1) {
		res.Passed = false
		res.Reason = fmt.Sprintf("rejected=%d, want 1 and a SESSION_STOPPED entry", rejected)
	}
	return res
}
