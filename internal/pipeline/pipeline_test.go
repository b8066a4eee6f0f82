package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"trade-reporter/internal/envelope"
	"trade-reporter/internal/orders"
	"trade-reporter/internal/report"
)

type fakeStore struct {
	calls      int
	collection string
	docs       []json.RawMessage
	err        error
}

func (f *fakeStore) InsertMany(_ context.Context, collection string, docs []json.RawMessage) (orders.InsertResult, error) {
	f.calls++
	f.collection = collection
	f.docs = docs
	if f.err != nil {
		return orders.InsertResult{}, f.err
	}
	return orders.InsertResult{Collection: collection, InsertedCount: int64(len(docs))}, nil
}

type fakeNotifier struct {
	calls int
	text  string
	err   error
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.calls++
	f.text = text
	return f.err
}

type harness struct {
	root     string
	store    *fakeStore
	notifier *fakeNotifier
	pipeline *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{root: t.TempDir(), store: &fakeStore{}, notifier: &fakeNotifier{}}
	h.pipeline = Default(h.store, report.NewSink(h.root), h.notifier, zap.NewNop())
	return h
}

func (h *harness) reportFile(req *Request) string {
	return filepath.Join(h.root, req.ReportPath, req.FileName)
}

func docs(raw ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		out[i] = json.RawMessage(r)
	}
	return out
}

func validRequest() *Request {
	return &Request{
		CollectionName: "binance_btcusdt",
		ReportPath:     "reports/BINANCE_BTCUSDT/",
		FileName:       "BINANCE_BTCUSDT_2024-01-01.xls",
		TGMessage:      "*BINANCE BTCUSDT* report ready",
		Data: docs(
			`{"orderId":"v1","status":"FILLED","strategyType":"VOLUME","fillPrice":{"$numberDecimal":"43000.1"}}`,
			`{"orderId":"s1","status":"FILLED","strategyType":"SPREAD","account":"sub"}`,
			`{"orderId":"n1","status":"NEW","strategyType":"BULKORDER"}`,
		),
	}
}

func TestRunEndToEnd(t *testing.T) {
	h := newHarness(t)
	req := validRequest()

	res := h.pipeline.Run(context.Background(), req)

	require.Equal(t, StateDone, res.State)
	assert.Equal(t, []State{StateIdle, StatePersisting, StateBuilding, StateSinking, StateNotifying, StateDone}, res.Trail)
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.FailedStep)
	assert.Equal(t, http.StatusOK, res.Envelope.Status)
	assert.Equal(t, ActionNotify, res.Envelope.Action)
	assert.Equal(t, MsgNotificationSent, res.Envelope.Message)
	assert.False(t, res.Envelope.Error)

	assert.Equal(t, 1, h.store.calls)
	assert.Equal(t, "binance_btcusdt", h.store.collection)
	assert.Len(t, h.store.docs, 3)
	assert.Equal(t, 1, h.notifier.calls)
	assert.Equal(t, req.TGMessage, h.notifier.text)

	f, err := excelize.OpenFile(h.reportFile(req))
	require.NoError(t, err)
	defer f.Close()
	counts := map[string]int{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		counts[sheet] = len(rows) - 1
	}
	assert.Equal(t, map[string]int{"Volume": 1, "BulkOrder": 0, "Spread": 1}, counts)
}

func TestRunMissingFieldsRejectsWithoutSideEffects(t *testing.T) {
	cases := map[string]func(r *Request){
		"fileName":       func(r *Request) { r.FileName = "" },
		"reportPath":     func(r *Request) { r.ReportPath = "" },
		"collectionName": func(r *Request) { r.CollectionName = " " },
		"tgMessage":      func(r *Request) { r.TGMessage = "" },
		"data":           func(r *Request) { r.Data = nil },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			h := newHarness(t)
			req := validRequest()
			mutate(req)

			res := h.pipeline.Run(context.Background(), req)

			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, []State{StateIdle, StateFailed}, res.Trail)
			assert.Equal(t, ActionProcess, res.FailedStep)
			assert.Equal(t, http.StatusBadRequest, res.Envelope.Status)
			assert.Equal(t, ActionProcess, res.Envelope.Action)
			assert.True(t, res.Envelope.Error)
			assert.Contains(t, res.Envelope.Message, field)
			assert.Equal(t, map[string]any{"missing": []string{field}}, res.Envelope.Data)

			assert.Zero(t, h.store.calls)
			assert.Zero(t, h.notifier.calls)
			_, err := os.Stat(filepath.Join(h.root, "reports"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestRunRejectsFileNameWithPath(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.FileName = "../escape.xls"

	res := h.pipeline.Run(context.Background(), req)
	assert.Equal(t, http.StatusBadRequest, res.Envelope.Status)
	assert.Zero(t, h.store.calls)
}

func TestRunPersistenceFailureStopsPipeline(t *testing.T) {
	h := newHarness(t)
	h.store.err = errors.New("E11000 duplicate key error")
	req := validRequest()

	res := h.pipeline.Run(context.Background(), req)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ActionPersist, res.FailedStep)
	assert.Equal(t, []State{StateIdle, StatePersisting, StateFailed}, res.Trail)
	assert.Equal(t, http.StatusInternalServerError, res.Envelope.Status)
	assert.Equal(t, ActionPersist, res.Envelope.Action)
	assert.Equal(t, "Something went wrong", res.Envelope.Message)
	assert.Equal(t, "E11000 duplicate key error", res.Envelope.Data)

	assert.Zero(t, h.notifier.calls)
	_, err := os.Stat(h.reportFile(req))
	assert.True(t, os.IsNotExist(err))
}

func TestRunUnknownStrategyFailsBuildAfterPersisting(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.Data = append(req.Data, json.RawMessage(`{"orderId":"x","status":"FILLED","strategyType":"GRID"}`))

	res := h.pipeline.Run(context.Background(), req)

	assert.Equal(t, ActionBuild, res.FailedStep)
	assert.Equal(t, http.StatusInternalServerError, res.Envelope.Status)
	assert.Equal(t, "Error while creating Excel", res.Envelope.Message)
	assert.Equal(t, 1, h.store.calls)
	assert.Zero(t, h.notifier.calls)
	_, err := os.Stat(h.reportFile(req))
	assert.True(t, os.IsNotExist(err))
}

func TestRunMalformedOrderFailsBuild(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.Data = docs(`{"orderId":"v1","status":"FILLED","strategyType":"VOLUME","price":"not-a-number"}`)

	res := h.pipeline.Run(context.Background(), req)
	assert.Equal(t, ActionBuild, res.FailedStep)
	assert.Equal(t, http.StatusInternalServerError, res.Envelope.Status)
}

func TestRunSkipsMalformedUnfilledOrders(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.Data = append(req.Data, docs(
		`{"orderId":98765,"status":"CANCELED","strategyType":"VOLUME"}`,
		`{"orderId":"n2","status":"NEW","price":{"$numberDecimal":"NaN"}}`,
	)...)

	res := h.pipeline.Run(context.Background(), req)
	require.Equal(t, StateDone, res.State)
	assert.Equal(t, http.StatusOK, res.Envelope.Status)
	assert.Len(t, h.store.docs, 5)

	f, err := excelize.OpenFile(h.reportFile(req))
	require.NoError(t, err)
	defer f.Close()
	for sheet, want := range map[string]int{"Volume": 1, "BulkOrder": 0, "Spread": 1} {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		assert.Len(t, rows, want+1, sheet)
	}
}

func TestRunSinkFailure(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.ReportPath = "blocked"
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "blocked"), []byte("x"), 0o644))

	res := h.pipeline.Run(context.Background(), req)
	assert.Equal(t, ActionSink, res.FailedStep)
	assert.Equal(t, http.StatusInternalServerError, res.Envelope.Status)
	assert.Equal(t, ActionSink, res.Envelope.Action)
	assert.Zero(t, h.notifier.calls)
}

func TestRunNotificationFailureStillSucceeds(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("Forbidden: bot was blocked")

	res := h.pipeline.Run(context.Background(), validRequest())

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, http.StatusOK, res.Envelope.Status)
	assert.False(t, res.Envelope.Error)
	assert.Equal(t, MsgNotificationNotSent, res.Envelope.Message)
	assert.Equal(t, 1, h.notifier.calls)
}

func TestRunEmptyDataSkipsStore(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.Data = []json.RawMessage{}

	res := h.pipeline.Run(context.Background(), req)

	assert.Equal(t, StateDone, res.State)
	assert.Zero(t, h.store.calls)
	f, err := excelize.OpenFile(h.reportFile(req))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Volume")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type recordingStep struct {
	name  string
	state State
	seen  []*envelope.Envelope
	out   *envelope.Envelope
	err   error
}

func (s *recordingStep) Name() string { return s.name }
func (s *recordingStep) State() State { return s.state }
func (s *recordingStep) Run(_ context.Context, _ *Request, prev *envelope.Envelope) (*envelope.Envelope, error) {
	s.seen = append(s.seen, prev)
	return s.out, s.err
}

func TestRunPassesPreviousEnvelope(t *testing.T) {
	first := &recordingStep{name: "first", state: StatePersisting, out: envelope.OK("first", "one", 1)}
	second := &recordingStep{name: "second", state: StateBuilding, out: envelope.OK("second", "two", 2)}
	third := &recordingStep{name: "third", state: StateSinking, out: envelope.OK("third", "three", 3)}

	res := New(nil, first, second, third).Run(context.Background(), validRequest())

	require.Len(t, first.seen, 1)
	assert.Nil(t, first.seen[0])
	assert.Same(t, first.out, second.seen[0])
	assert.Same(t, second.out, third.seen[0])
	assert.Same(t, third.out, res.Envelope)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	first := &recordingStep{name: "first", state: StatePersisting, err: internalError(KindPersistence, "nope", nil, errors.New("x"))}
	second := &recordingStep{name: "second", state: StateBuilding}

	res := New(nil, first, second).Run(context.Background(), validRequest())

	assert.Empty(t, second.seen)
	assert.Equal(t, "first", res.FailedStep)
	assert.Equal(t, "nope", res.Envelope.Message)
}

func TestRunForeignErrorBecomesServerError(t *testing.T) {
	step := &recordingStep{name: "odd", state: StateBuilding, err: errors.New("plain")}
	res := New(nil, step).Run(context.Background(), validRequest())
	assert.Equal(t, http.StatusInternalServerError, res.Envelope.Status)
	assert.Equal(t, "Something went wrong", res.Envelope.Message)
	assert.Equal(t, "plain", res.Envelope.Data)
}

func TestRunNotifyingStepErrorIsDowngraded(t *testing.T) {
	step := &recordingStep{name: "notify", state: StateNotifying, err: errors.New("timeout")}
	res := New(nil, step).Run(context.Background(), validRequest())
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, http.StatusOK, res.Envelope.Status)
	assert.Equal(t, MsgNotificationNotSent, res.Envelope.Message)
}

func TestSinkStepWithoutWorkbook(t *testing.T) {
	step := NewSinkStep(report.NewSink(t.TempDir()), nil)
	_, err := step.Run(context.Background(), validRequest(), envelope.OK(ActionBuild, "", "not a workbook"))
	require.Error(t, err)
	assert.Equal(t, KindSink, KindOf(err))
	assert.ErrorIs(t, err, errNoWorkbook)
}

func TestNotifyStepAlwaysOK(t *testing.T) {
	for _, sendErr := range []error{nil, errors.New("down")} {
		n := &fakeNotifier{err: sendErr}
		env, err := NewNotifyStep(n, nil).Run(context.Background(), validRequest(), nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, env.Status)
		assert.False(t, env.Error)
	}
	env, err := NewNotifyStep(nil, nil).Run(context.Background(), validRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, MsgNotificationNotSent, env.Message)
}
