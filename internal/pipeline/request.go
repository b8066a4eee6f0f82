package pipeline

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Request is the body of POST /report.
type Request struct {
	CollectionName string            `json:"collectionName"`
	ReportPath     string            `json:"reportPath"`
	FileName       string            `json:"fileName"`
	TGMessage      string            `json:"tgMessage"`
	Data           []json.RawMessage `json:"data"`
}

// Missing lists the required fields that are absent or blank. An empty but
// present data array is allowed.
func (r *Request) Missing() []string {
	var missing []string
	if strings.TrimSpace(r.FileName) == "" {
		missing = append(missing, "fileName")
	}
	if strings.TrimSpace(r.ReportPath) == "" {
		missing = append(missing, "reportPath")
	}
	if strings.TrimSpace(r.CollectionName) == "" {
		missing = append(missing, "collectionName")
	}
	if strings.TrimSpace(r.TGMessage) == "" {
		missing = append(missing, "tgMessage")
	}
	if r.Data == nil {
		missing = append(missing, "data")
	}
	return missing
}

func (r *Request) Validate() error {
	if missing := r.Missing(); len(missing) > 0 {
		return validationError("Missing required fields: "+strings.Join(missing, ", "), map[string]any{"missing": missing})
	}
	name := r.FileName
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return validationError("fileName must be a plain file name", map[string]any{"fileName": name})
	}
	return nil
}
