package httpx

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/splax/cornerstone/internal/report"
	"github.com/splax/cornerstone/internal/repository"
)

func (r *Router) statusDigest(req *http.Request) (report.Digest, error) {
	info, _ := authInfoFromContext(req.Context())
	orgs, err := r.svc.Organisations.List(req.Context(), info.Actor(), repository.Query{}.OrderBy("name", false))
	if err != nil {
		return report.Digest{}, err
	}
	return report.Build(orgs, r.now()), nil
}

func (r *Router) handleStatusReport(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	digest, err := r.statusDigest(req)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, digest)
}

func (r *Router) handleStatusReportPDF(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	digest, err := r.statusDigest(req)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, digest); err != nil {
		r.writeServiceError(w, err)
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "application/pdf")
	headers.Set("Content-Disposition", `attachment; filename="`+report.CurrentStatus.ID+`-report.pdf"`)
	headers.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
