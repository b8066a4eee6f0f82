// Package pipeline runs the report waterfall: persist the raw orders, build
// the workbook, write it to disk, notify. Each step sees the request and the
// envelope produced by the step before it; the first failure ends the run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"trade-reporter/internal/envelope"
)

const ActionProcess = "processReportData"

type State string

const (
	StateIdle       State = "idle"
	StatePersisting State = "persisting"
	StateBuilding   State = "building"
	StateSinking    State = "sinking"
	StateNotifying  State = "notifying"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// CanFail reports whether a step running in s may end the run. Notification
// always proceeds to Done.
func (s State) CanFail() bool {
	return s != StateNotifying
}

type Step interface {
	Name() string
	State() State
	// Run receives the envelope of the previous step, nil for the first one.
	Run(ctx context.Context, req *Request, prev *envelope.Envelope) (*envelope.Envelope, error)
}

type Result struct {
	RunID      string
	Envelope   *envelope.Envelope
	State      State
	FailedStep string
	Trail      []State
}

type Pipeline struct {
	steps  []Step
	log    *zap.Logger
	tracer trace.Tracer
	newID  func() string
}

func New(log *zap.Logger, steps ...Step) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		steps:  steps,
		log:    log,
		tracer: otel.Tracer("trade-reporter/pipeline"),
		newID:  uuid.NewString,
	}
}

func (p *Pipeline) Run(ctx context.Context, req *Request) Result {
	res := Result{RunID: p.newID(), State: StateIdle, Trail: []State{StateIdle}}
	log := p.log.With(zap.String("run_id", res.RunID))

	ctx, span := p.tracer.Start(ctx, ActionProcess, trace.WithAttributes(attribute.String("run.id", res.RunID)))
	defer span.End()

	if err := req.Validate(); err != nil {
		res.Envelope = errorEnvelope(ActionProcess, err)
		res.State = StateFailed
		res.FailedStep = ActionProcess
		res.Trail = append(res.Trail, StateFailed)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("report request rejected", zap.Error(err))
		return res
	}
	log = log.With(zap.String("collection", req.CollectionName), zap.String("file", req.FileName))
	log.Info("report run started", zap.Int("orders", len(req.Data)))

	var prev *envelope.Envelope
	for _, step := range p.steps {
		res.State = step.State()
		res.Trail = append(res.Trail, res.State)

		env, err := p.runStep(ctx, log, step, req, prev)
		if err != nil {
			if !step.State().CanFail() {
				log.Warn("best-effort step failed", zap.String("step", step.Name()), zap.Error(err))
				env = envelope.OK(step.Name(), MsgNotificationNotSent, nil)
			} else {
				res.Envelope = errorEnvelope(step.Name(), err)
				res.State = StateFailed
				res.FailedStep = step.Name()
				res.Trail = append(res.Trail, StateFailed)
				span.SetStatus(codes.Error, err.Error())
				return res
			}
		}
		prev = env
	}
	res.Envelope = prev
	if res.Envelope == nil {
		res.Envelope = envelope.OK(ActionProcess, "Success", nil)
	}
	res.State = StateDone
	res.Trail = append(res.Trail, StateDone)
	log.Info("report run finished")
	return res
}

func (p *Pipeline) runStep(ctx context.Context, log *zap.Logger, step Step, req *Request, prev *envelope.Envelope) (*envelope.Envelope, error) {
	ctx, span := p.tracer.Start(ctx, step.Name())
	defer span.End()

	start := time.Now()
	env, err := step.Run(ctx, req, prev)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("step failed", zap.String("step", step.Name()), zap.Duration("took", elapsed), zap.Error(err))
		return nil, err
	}
	if env == nil {
		env = envelope.OK(step.Name(), "", nil)
	}
	log.Debug("step done", zap.String("step", step.Name()), zap.Duration("took", elapsed), zap.String("message", env.Message))
	return env, nil
}
