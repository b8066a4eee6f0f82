package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"trade-reporter/internal/envelope"
	"trade-reporter/internal/model"
	"trade-reporter/internal/notify"
	"trade-reporter/internal/orders"
	"trade-reporter/internal/report"
)

const (
	ActionPersist = "saveTransactions"
	ActionBuild   = "createExcelData"
	ActionSink    = "saveExcelLocally"
	ActionNotify  = "sendTelegramMessage"

	MsgNotificationSent    = "Notification Sent"
	MsgNotificationNotSent = "Telegram Notification Not Sent"
)

var errNoWorkbook = errors.New("previous step produced no workbook")

// PersistStep archives the raw orders into the request's collection.
type PersistStep struct {
	store orders.DocumentStore
}

func NewPersistStep(store orders.DocumentStore) *PersistStep {
	return &PersistStep{store: store}
}

func (s *PersistStep) Name() string { return ActionPersist }
func (s *PersistStep) State() State { return StatePersisting }

func (s *PersistStep) Run(ctx context.Context, req *Request, _ *envelope.Envelope) (*envelope.Envelope, error) {
	if len(req.Data) == 0 {
		return envelope.OK(ActionPersist, "Nothing to save", orders.InsertResult{Collection: req.CollectionName}), nil
	}
	res, err := s.store.InsertMany(ctx, req.CollectionName, req.Data)
	if err != nil {
		return nil, internalError(KindPersistence, "Something went wrong", err.Error(), err)
	}
	return envelope.OK(ActionPersist, "Success", res), nil
}

// BuildStep classifies the orders into the report workbook.
type BuildStep struct{}

func NewBuildStep() *BuildStep { return &BuildStep{} }

func (s *BuildStep) Name() string { return ActionBuild }
func (s *BuildStep) State() State { return StateBuilding }

func (s *BuildStep) Run(_ context.Context, req *Request, _ *envelope.Envelope) (*envelope.Envelope, error) {
	decoded, err := model.DecodeFilled(req.Data)
	if err != nil {
		return nil, internalError(KindBuild, "Error while creating Excel", nil, fmt.Errorf("decode orders: %w", err))
	}
	wb, err := report.Build(decoded)
	if err != nil {
		return nil, internalError(KindBuild, "Error while creating Excel", nil, err)
	}
	return envelope.OK(ActionBuild, "Data Manipulated For Excel Sheet", wb), nil
}

// SinkStep writes the workbook produced by BuildStep.
type SinkStep struct {
	sink *report.Sink
	log  *zap.Logger
}

func NewSinkStep(sink *report.Sink, log *zap.Logger) *SinkStep {
	if log == nil {
		log = zap.NewNop()
	}
	return &SinkStep{sink: sink, log: log}
}

func (s *SinkStep) Name() string { return ActionSink }
func (s *SinkStep) State() State { return StateSinking }

func (s *SinkStep) Run(_ context.Context, req *Request, prev *envelope.Envelope) (*envelope.Envelope, error) {
	var wb *report.Workbook
	if prev != nil {
		wb, _ = prev.Data.(*report.Workbook)
	}
	if wb == nil {
		return nil, internalError(KindSink, "Error while saving report", nil, errNoWorkbook)
	}
	path, err := s.sink.Write(wb, req.ReportPath, req.FileName)
	if err != nil {
		return nil, internalError(KindSink, "Error while saving report", nil, err)
	}
	s.log.Info("report written", zap.String("path", path))
	return envelope.OK(ActionSink, "Success", nil), nil
}

// NotifyStep pushes the request's message. It never fails the run: a send
// error is logged and reported as "not sent".
type NotifyStep struct {
	notifier notify.Notifier
	log      *zap.Logger
}

func NewNotifyStep(n notify.Notifier, log *zap.Logger) *NotifyStep {
	if n == nil {
		n = notify.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NotifyStep{notifier: n, log: log}
}

func (s *NotifyStep) Name() string { return ActionNotify }
func (s *NotifyStep) State() State { return StateNotifying }

func (s *NotifyStep) Run(ctx context.Context, req *Request, _ *envelope.Envelope) (*envelope.Envelope, error) {
	if err := s.notifier.Send(ctx, req.TGMessage); err != nil {
		s.log.Warn("notification not sent", zap.Error(err))
		return envelope.OK(ActionNotify, MsgNotificationNotSent, nil), nil
	}
	return envelope.OK(ActionNotify, MsgNotificationSent, nil), nil
}

// Default wires the four steps in their fixed order.
func Default(store orders.DocumentStore, sink *report.Sink, n notify.Notifier, log *zap.Logger) *Pipeline {
	return New(log,
		NewPersistStep(store),
		NewBuildStep(),
		NewSinkStep(sink, log),
		NewNotifyStep(n, log),
	)
}
