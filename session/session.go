// Package session implements the top-level orchestration (C14): fanning
// out the two stream workers plus the predictor (sender side) or the
// processor goroutine (receiver side) under one errgroup, and mapping
// the worst resulting error to a process exit code.
package session

import (
	"context"
	"strconv"
	"time"

	"github.com/teris-io/shortid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/feras-hamam/adastream/cfg"
	"github.com/feras-hamam/adastream/invoke"
	"github.com/feras-hamam/adastream/metrics"
	"github.com/feras-hamam/adastream/predict"
	"github.com/feras-hamam/adastream/receiver"
	"github.com/feras-hamam/adastream/sender"
	"github.com/feras-hamam/adastream/stepbarrier"
	"github.com/feras-hamam/adastream/telemetry"
	"github.com/feras-hamam/adastream/wire"
	"github.com/feras-hamam/adastream/xerr"
	"github.com/feras-hamam/adastream/xlog"
)

// NewSessionID mints a short correlation ID stamped on every log line
// for one run (spec §3 "Session ID"); no metrics label carries it.
func NewSessionID() (string, error) {
	id, err := shortid.Generate()
	if err != nil {
		return "", xerr.Wrap(xerr.KindShutdown, err, "generate session id")
	}
	return id, nil
}

// SenderSession drives the sending side of the pipeline end to end.
type SenderSession struct {
	Config  *cfg.Config
	Hub     *telemetry.Hub
	Metrics *metrics.Registry // optional; nil disables metrics updates

	ReducedFiles      [][]string // per-step file lists, index = step
	AugmentationFiles [][]string
}

// Run connects both streams, starts the predictor (if enabled), and
// drives every step to completion. The first worker error cancels the
// rest; Run returns the worst error across all workers.
func (s *SenderSession) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reducedChan, err := wire.Dial(ctx, s.Config.ReducedAddr)
	if err != nil {
		return xerr.Wrap(xerr.KindTransportInit, err, "dial reduced stream at %s", s.Config.ReducedAddr)
	}
	defer reducedChan.Close()

	augChan, err := wire.Dial(ctx, s.Config.AugmentationAddr)
	if err != nil {
		return xerr.Wrap(xerr.KindTransportInit, err, "dial augmentation stream at %s", s.Config.AugmentationAddr)
	}
	defer augChan.Close()

	var limiter *rate.Limiter
	if s.Config.MaxSendRateMbps > 0 {
		bytesPerSec := s.Config.MaxSendRateMbps * 1e6 / 8
		limiter = rate.NewLimiter(rate.Limit(bytesPerSec), s.Config.ChunkSize)
	}

	reducedSender := &sender.Sender{Kind: sender.Reduced, Chan: reducedChan, ChunkSize: s.Config.ChunkSize, Hub: s.Hub, Metrics: s.Metrics}
	augSender := &sender.Sender{
		Kind: sender.Augmentation, Chan: augChan, ChunkSize: s.Config.ChunkSize, Hub: s.Hub,
		Metrics: s.Metrics, Limiter: limiter,
	}

	// The two stream senders are the session's definition of "done": once
	// both finish (however they finish), background workers (predictor,
	// metrics gauge) are cancelled along with them. Each goroutine's own
	// error is captured separately so the session can join on the worst
	// of them (xerr.Worst) rather than whichever the errgroup happened to
	// observe first.
	var reducedErr, augErr error
	streams, streamsCtx := errgroup.WithContext(ctx)

	streams.Go(func() error {
		for step := 0; step < s.Config.NumSteps; step++ {
			select {
			case <-streamsCtx.Done():
				reducedErr = streamsCtx.Err()
				return reducedErr
			default:
			}
			isLast := step == s.Config.NumSteps-1
			if err := reducedSender.RunStep(step, s.ReducedFiles[step], isLast); err != nil {
				reducedErr = err
				return err
			}
			s.Hub.IncrReducedStep()
		}
		return nil
	})

	streams.Go(func() error {
		for step := 0; step < s.Config.NumSteps; step++ {
			select {
			case <-streamsCtx.Done():
				augErr = streamsCtx.Err()
				return augErr
			default:
			}
			isLast := step == s.Config.NumSteps-1
			if err := augSender.RunStep(step, s.AugmentationFiles[step], isLast); err != nil {
				augErr = err
				return err
			}
			s.Hub.IncrAugStep()
		}
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	bgCtx, cancelBG := context.WithCancel(gctx)
	defer cancelBG()

	var predErr, metricsErr error

	g.Go(func() error {
		err := streams.Wait()
		cancelBG()
		return err
	})

	if s.Config.PredictorMode != cfg.PredictorDisabled {
		pred, perr := buildPredictor(s.Config)
		if perr != nil {
			return perr
		}
		sched, serr := predict.NewScheduler(s.Config.PredictorCadenceInterval, s.Config.PredictionCadence, s.Config.LookaheadSteps, s.Config.LinkBandwidthMbps, pred, s.Hub)
		if serr != nil {
			return serr
		}
		sched.WithHostProbe(predict.NewHostProbe(""))
		g.Go(func() error {
			err := sched.Run(bgCtx)
			predErr = err
			return err
		})
		if s.Metrics != nil {
			g.Go(func() error {
				err := s.publishThresholdGauge(bgCtx)
				metricsErr = err
				return err
			})
		}
	}

	g.Wait()
	return xerr.Worst(xerr.Worst(reducedErr, augErr), xerr.Worst(predErr, metricsErr))
}

// publishThresholdGauge periodically copies the current step's
// progress threshold into the metrics gauge, until ctx is cancelled.
func (s *SenderSession) publishThresholdGauge(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			step := s.Hub.StepAug()
			s.Metrics.CurrentThreshold.WithLabelValues(strconv.Itoa(step)).Set(float64(s.Hub.Threshold(step)))
			s.Metrics.LastCongestionPct.Set(s.Hub.LastCongestionPct())
		}
	}
}

func buildPredictor(c *cfg.Config) (predict.Predictor, error) {
	switch c.PredictorMode {
	case cfg.PredictorSpectral:
		return predict.SpectralPredictor{}, nil
	case cfg.PredictorOracle:
		if c.OracleFilePath == "" {
			return nil, xerr.New(xerr.KindPredictorUnavailable, "predictor_mode=oracle_file requires oracle_file_path")
		}
		return predict.OracleFilePredictor{Path: c.OracleFilePath}, nil
	default:
		return nil, xerr.New(xerr.KindPredictorUnavailable, "unknown predictor_mode %q", c.PredictorMode)
	}
}

// ReceiverSession drives the receiving side: two stream receivers, the
// step barrier, and the processor goroutine that drains released steps.
type ReceiverSession struct {
	Config  *cfg.Config
	Metrics *metrics.Registry // optional; nil disables metrics updates
}

func (s *ReceiverSession) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reducedListener, err := wire.Listen(s.Config.ReducedAddr)
	if err != nil {
		return xerr.Wrap(xerr.KindTransportInit, err, "listen reduced stream on %s", s.Config.ReducedAddr)
	}
	defer reducedListener.Close()

	augListener, err := wire.Listen(s.Config.AugmentationAddr)
	if err != nil {
		return xerr.Wrap(xerr.KindTransportInit, err, "listen augmentation stream on %s", s.Config.AugmentationAddr)
	}
	defer augListener.Close()

	reducedChan, err := reducedListener.Accept(ctx)
	if err != nil {
		return xerr.Wrap(xerr.KindTransportInit, err, "accept reduced stream")
	}
	defer reducedChan.Close()

	augChan, err := augListener.Accept(ctx)
	if err != nil {
		return xerr.Wrap(xerr.KindTransportInit, err, "accept augmentation stream")
	}
	defer augChan.Close()

	barrier := stepbarrier.New()
	defer barrier.Close()

	ledger, err := invoke.OpenLedger(s.Config.LedgerDBPath(), 20)
	if err != nil {
		return err
	}
	defer ledger.Close()

	archiver, err := invoke.NewArchiver(s.Config)
	if err != nil {
		return err
	}
	invoker := &invoke.Invoker{
		ProcessorPath: s.Config.OutputRoot + "/process_step.sh",
		OutputRoot:    s.Config.OutputRoot,
		Ledger:        ledger,
		Archiver:      archiver,
	}

	reducedRecv := &receiver.Receiver{Stream: stepbarrier.Reduced, Chan: reducedChan, OutputRoot: s.Config.OutputRoot, Barrier: barrier}
	augRecv := &receiver.Receiver{Stream: stepbarrier.Augmentation, Chan: augChan, OutputRoot: s.Config.OutputRoot, Barrier: barrier}

	g, gctx := errgroup.WithContext(ctx)

	// Each worker's own error is captured separately so Run can join on
	// the worst of them (xerr.Worst) rather than whichever the errgroup
	// happened to observe first.
	var reducedErr, augErr, processorErr error

	// The processor goroutine below blocks in barrier.WaitAndTakeNext()
	// until the next step is both-done or the barrier is closed. If
	// either stream worker errors, gctx is cancelled but nothing else
	// would ever close the barrier, so the processor (and g.Wait) would
	// hang forever. Close it as soon as gctx is done, by whichever cause.
	// This goroutine stays outside the group: on a clean finish gctx is
	// only cancelled once g.Wait returns, so waiting inside the group
	// would keep g.Wait from ever returning.
	go func() {
		<-gctx.Done()
		barrier.Close()
	}()

	g.Go(func() error {
		for step := 0; ; step++ {
			last, err := reducedRecv.RunStep(step)
			if err != nil {
				reducedErr = err
				return err
			}
			if last {
				return nil
			}
			select {
			case <-gctx.Done():
				reducedErr = gctx.Err()
				return reducedErr
			default:
			}
		}
	})

	g.Go(func() error {
		for step := 0; ; step++ {
			last, err := augRecv.RunStep(step)
			if err != nil {
				augErr = err
				return err
			}
			if last {
				return nil
			}
			select {
			case <-gctx.Done():
				augErr = gctx.Err()
				return augErr
			default:
			}
		}
	})

	g.Go(func() error {
		for {
			step, files, ok := barrier.WaitAndTakeNext()
			if !ok {
				return nil
			}
			now := time.Now()
			if err := invoker.Invoke(gctx, step, now, now, files.Reduced, files.Augmentation); err != nil {
				xlog.Warningf("invoke: ledger write failed for step %d: %v", step, err)
				processorErr = err
			}
			if s.Metrics != nil {
				s.Metrics.StepsCompleted.Inc()
				if rec, ok, _ := ledger.Get(step); ok {
					s.Metrics.ProcessorDuration.Observe(rec.ProcessorDuration.Seconds())
					if rec.ProcessorError == "" && s.Config.ArchiveBackend != cfg.ArchiveNone && rec.Archive == nil {
						s.Metrics.ArchiveFailures.Inc()
					}
				}
			}
			if step == s.Config.NumSteps-1 {
				return nil
			}
		}
	})

	g.Wait()
	return xerr.Worst(xerr.Worst(reducedErr, augErr), processorErr)
}
