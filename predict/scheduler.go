package predict

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/feras-hamam/adastream/telemetry"
	"github.com/feras-hamam/adastream/xerr"
	"github.com/feras-hamam/adastream/xlog"
)

// Scheduler drives a Predictor on a wall-clock cadence via robfig/cron
// (grounded on the teacher pack's n-backup internal/agent/scheduler.go),
// re-checking the spec's step-cadence gate on every wake-up: a fresh
// prediction is only computed when S_aug has crossed a new multiple of
// the prediction cadence C since the last action (spec §4.3 "Trigger
// policy").
type Scheduler struct {
	cronRunner *cron.Cron
	pred       Predictor
	hub        *telemetry.Hub

	cadence   int
	lookahead int
	linkMbps  float64

	lastActedStep int
	probe         *HostProbe // optional, nil disables C16
}

// NewScheduler builds a Scheduler that wakes every interval (a Go
// duration string, e.g. "3s") and, when the step-cadence gate opens,
// invokes pred.Predict over hub.
func NewScheduler(interval string, cadence, lookahead int, linkMbps float64, pred Predictor, hub *telemetry.Hub) (*Scheduler, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindPredictorUnavailable, err, "parse predictor_cadence_interval %q", interval)
	}
	if cadence <= 0 {
		cadence = 1
	}
	if lookahead <= 0 {
		lookahead = 1
	}
	s := &Scheduler{
		pred:          pred,
		hub:           hub,
		cadence:       cadence,
		lookahead:     lookahead,
		linkMbps:      linkMbps,
		lastActedStep: -1,
	}
	s.cronRunner = cron.New(cron.WithSeconds())
	spec := "@every " + d.String()
	if _, err := s.cronRunner.AddFunc(spec, s.tick); err != nil {
		return nil, xerr.Wrap(xerr.KindPredictorUnavailable, err, "schedule %q", spec)
	}
	return s, nil
}

// WithHostProbe enables the C16 sanity probe alongside every tick.
func (s *Scheduler) WithHostProbe(p *HostProbe) *Scheduler {
	s.probe = p
	return s
}

// shouldAct implements spec §4.3's trigger policy: act only once per
// fresh crossing of a cadence-C step boundary.
func (s *Scheduler) shouldAct(stepAug int) bool {
	if stepAug == s.lastActedStep {
		return false
	}
	if stepAug%s.cadence != 0 {
		return false
	}
	return true
}

func (s *Scheduler) tick() {
	stepAug := s.hub.StepAug()
	if s.probe != nil {
		s.probe.Sample()
	}
	if !s.shouldAct(stepAug) {
		return
	}
	s.lastActedStep = stepAug
	if err := s.pred.Predict(s.hub, stepAug, s.lookahead, s.linkMbps); err != nil {
		// PredictorUnavailable is never fatal (spec §7): the threshold
		// window is simply left at its last good value.
		xlog.Warningf("predictor: %v", err)
		return
	}
	xlog.Infof("predictor: refreshed threshold window at step %d (lookahead=%d)", stepAug, s.lookahead)
}

// Run starts the cron scheduler and blocks until ctx is cancelled
// (spec §5: "the predictor respects a stop flag polled between cycles").
func (s *Scheduler) Run(ctx context.Context) error {
	s.cronRunner.Start()
	<-ctx.Done()
	stopCtx := s.cronRunner.Stop()
	<-stopCtx.Done()
	return nil
}
