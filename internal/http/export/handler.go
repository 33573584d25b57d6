package export

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/numrent/internal/export"
	"github.com/MrJamesThe3rd/numrent/internal/http/middleware"
	"github.com/MrJamesThe3rd/numrent/internal/http/respond"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/statement", h.statement)
	r.Get("/statement.zip", h.download)
}

// period reads the from and to query dates. Both are calendar days in UTC and to
// is inclusive.
func period(r *http.Request) (export.Period, error) {
	var p export.Period

	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return p, fmt.Errorf("%w: from must be YYYY-MM-DD", ledger.ErrInvalidInput)
		}

		p.From = &from
	}

	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return p, fmt.Errorf("%w: to must be YYYY-MM-DD", ledger.ErrInvalidInput)
		}

		p.To = new(to.AddDate(0, 0, 1))
	}

	return p, nil
}

func (h *Handler) lines(w http.ResponseWriter, r *http.Request) ([]export.Line, bool) {
	p, err := period(r)
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}

	lines, err := h.svc.Statement(r.Context(), middleware.Principal(r).UserID, p)
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}

	return lines, true
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	lines, ok := h.lines(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, export.Summary(lines))

		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"statement_%s.csv\"", time.Now().Format("20060102")))

	if err := export.WriteCSV(w, lines); err != nil {
		slog.Error("failed to write statement", "error", err)
	}
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	lines, ok := h.lines(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"statement_%s.zip\"", time.Now().Format("20060102")))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	f, err := zipWriter.Create("statement.csv")
	if err == nil {
		err = export.WriteCSV(f, lines)
	}

	if err == nil {
		f, err = zipWriter.Create("summary.txt")
	}

	if err == nil {
		_, err = io.WriteString(f, export.Summary(lines))
	}

	if err != nil {
		slog.Error("failed to create zip", "error", err)
	}
}
