package reports

import (
	"context"
	"errors"
	"net/http"
	"os"

	"go.uber.org/zap"

	"trade-reporter/internal/envelope"
	"trade-reporter/internal/httputil"
	"trade-reporter/internal/pipeline"
	"trade-reporter/internal/report"
)

const (
	ActionLookup = "verifyReportQueryAndSend"

	msgLookupMissing  = "Provide all the required field for report generation!"
	msgLookupInvalid  = "Invalid report query"
	msgLookupNotFound = "No such report exist, contact tech team for more details!"
)

type Runner interface {
	Run(ctx context.Context, req *pipeline.Request) pipeline.Result
}

type Readiness interface {
	Ready() bool
}

type Handler struct {
	runner  Runner
	ready   Readiness
	root    string
	maxBody int64
	log     *zap.Logger
}

func NewHandler(runner Runner, ready Readiness, root string, maxBody int64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{runner: runner, ready: ready, root: root, maxBody: maxBody, log: log}
}

// Create runs the report pipeline for the posted batch.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil && !h.ready.Ready() {
		writeEnvelope(w, envelope.New(http.StatusServiceUnavailable, "Store not connected", pipeline.ActionProcess, nil, nil))
		return
	}
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	var req pipeline.Request
	if err := httputil.ReadJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeEnvelope(w, envelope.New(http.StatusRequestEntityTooLarge, "Request body too large", pipeline.ActionProcess, nil, nil))
			return
		}
		writeEnvelope(w, envelope.BadRequest(pipeline.ActionProcess, "Invalid request body: "+err.Error()))
		return
	}
	res := h.runner.Run(r.Context(), &req)
	if res.Envelope.Error {
		h.log.Warn("report run failed",
			zap.String("run_id", res.RunID),
			zap.String("step", res.FailedStep),
			zap.Int("status", res.Envelope.Status))
	}
	writeEnvelope(w, res.Envelope)
}

// Download streams a previously generated report.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc, err := report.Lookup(h.root, report.Query{
		Date:     q.Get("date"),
		Exchange: q.Get("exchange"),
		Pair:     q.Get("pair"),
	})
	if err != nil {
		writeEnvelope(w, envelope.BadRequest(ActionLookup, lookupMessage(err)))
		return
	}
	f, err := os.Open(loc.Path)
	if err != nil {
		writeEnvelope(w, envelope.BadRequest(ActionLookup, msgLookupNotFound))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeEnvelope(w, envelope.ServerError(ActionLookup, "", nil))
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+loc.Name)
	http.ServeContent(w, r, loc.Name, info.ModTime(), f)
}

func lookupMessage(err error) string {
	switch {
	case errors.Is(err, report.ErrMissingQuery):
		return msgLookupMissing
	case errors.Is(err, report.ErrInvalidQuery):
		return msgLookupInvalid
	default:
		return msgLookupNotFound
	}
}

func writeEnvelope(w http.ResponseWriter, env *envelope.Envelope) {
	httputil.WriteJSON(w, env.HTTPStatus(), env)
}
