// Package dashboard serves the dues dashboard: one HTML page with the edit
// grid and results table, the form actions behind its buttons, and a JSON API
// over the same session operations.
package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
	"github.com/shunichi-ikebuchi/society-dues/pkg/layout"
	"github.com/shunichi-ikebuchi/society-dues/pkg/pathutil"
	"github.com/shunichi-ikebuchi/society-dues/pkg/session"
	"github.com/shunichi-ikebuchi/society-dues/pkg/workbook"
)

// Options configures the page and export.
type Options struct {
	Title     string
	Backend   string // Store label shown in the page footer
	Worksheet string // Sheet name used for .xlsx exports
	Layout    *layout.Layout
}

// Handler handles the dashboard page and its actions.
type Handler struct {
	manager *session.Manager
	opts    Options
	flashes *flashStore
	now     func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(m *session.Manager, opts Options) *Handler {
	if opts.Layout == nil {
		opts.Layout = layout.Default()
	}
	if opts.Worksheet == "" {
		opts.Worksheet = "Sheet1"
	}
	return &Handler{
		manager: m,
		opts:    opts,
		flashes: newFlashStore(),
		now:     time.Now,
	}
}

// Router builds the chi router with all dashboard routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Get("/", h.Index)
		r.Post("/edits", h.Edits)
		r.Post("/save", h.Save)
		r.Post("/discard", h.Discard)
		r.Post("/reload", h.Reload)
		r.Get("/export.xlsx", h.Export)

		r.Route("/api", func(r chi.Router) {
			r.Get("/table", h.APITable)
			r.Post("/edits", h.APIEdits)
			r.Post("/save", h.APISave)
			r.Post("/discard", h.APIDiscard)
		})
	})

	return r
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	id := SessionID(r.Context())

	var data pageData
	err := h.manager.Do(r.Context(), id, func(s *session.Session) error {
		data = h.buildPage(s)
		return nil
	})
	if err != nil && !errors.Is(err, dues.ErrEmptyData) {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		data = pageData{Title: h.opts.Title, Backend: h.opts.Backend, Empty: true}
	}
	data.Flashes = h.flashes.pop(id)
	h.render(w, http.StatusOK, data)
}

func (h *Handler) buildPage(s *session.Session) pageData {
	working := s.Working()
	editable := s.Columns().Editable()

	data := pageData{
		Title:      h.opts.Title,
		Backend:    h.opts.Backend,
		Headers:    working.Headers,
		Editable:   editable,
		DirtyCount: len(s.Dirty()),
	}
	for pos, row := range working.Rows {
		dirty := s.IsDirty(pos)
		data.Rows = append(data.Rows, rowView{Cells: row.Cells, Dirty: dirty})

		g := gridRow{Label: h.opts.Layout.RowLabel(working, pos), Dirty: dirty}
		for i, col := range editable {
			v, _ := working.Cell(pos, col)
			g.Cells = append(g.Cells, gridCell{Name: cellName(pos, i), Value: v})
		}
		data.Grid = append(data.Grid, g)
	}
	return data
}

// Edits handles POST /edits: the submitted grid is compared with the working
// table and every changed editable cell is applied.
func (h *Handler) Edits(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	id := SessionID(r.Context())

	err := h.manager.Do(r.Context(), id, func(s *session.Session) error {
		edits, rejected := parseGrid(r.PostForm, s.Columns().Editable(), s.Working())
		for _, msg := range rejected {
			h.flashes.add(id, LevelError, msg)
		}

		result := s.ScanEdits(edits)
		for _, err := range result.Errors {
			h.flashes.add(id, LevelError, err.Error())
		}
		if n := countRows(result.Applied); n > 0 {
			h.flashes.add(id, LevelInfo, fmt.Sprintf("Recalculated %d row(s). Save to write them to the sheet.", n))
		}
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Save handles POST /save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	id := SessionID(r.Context())

	var report session.SaveReport
	err := h.manager.Do(r.Context(), id, func(s *session.Session) error {
		report = h.manager.Save(r.Context(), s)
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	for _, f := range saveFlashes(report) {
		h.flashes.add(id, f.Level, f.Message)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Discard handles POST /discard.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	id := SessionID(r.Context())

	err := h.manager.Do(r.Context(), id, func(s *session.Session) error {
		s.Discard()
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slog.Info("session discarded", "session_id", id)
	h.flashes.add(id, LevelSuccess, "All changes discarded!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Reload handles POST /reload: the sheet is read again and unsaved edits are dropped.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	id := SessionID(r.Context())

	var rows int
	err := h.manager.Do(r.Context(), id, func(s *session.Session) error {
		if err := h.manager.Reload(r.Context(), s); err != nil {
			return err
		}
		rows = s.Working().Len()
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.flashes.add(id, LevelInfo, fmt.Sprintf("Reloaded %d row(s) from the sheet.", rows))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Export handles GET /export.xlsx: the working table as a workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var table *dues.Table
	err := h.manager.Do(r.Context(), SessionID(r.Context()), func(s *session.Session) error {
		table = s.Working()
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := workbook.WriteTable(&buf, h.opts.Worksheet, table); err != nil {
		slog.Error("export failed", "error", err)
		h.fail(w, r, err)
		return
	}

	name := pathutil.ExportFileName(h.opts.Worksheet, h.now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// fail renders the page for an action error. An empty sheet shows the
// warning page; store and auth failures show the blocking error page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := classify(err)
	id := SessionID(r.Context())

	if errors.Is(err, dues.ErrEmptyData) {
		h.render(w, status, pageData{Title: h.opts.Title, Backend: h.opts.Backend, Empty: true, Flashes: h.flashes.pop(id)})
		return
	}

	slog.Error("request failed", "session_id", id, "path", r.URL.Path, "error", err)
	h.renderTemplate(w, status, errorPageTemplate, errorPageData{
		Title:   h.opts.Title,
		Heading: errorTitle(err),
		Message: err.Error(),
	})
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	h.renderTemplate(w, status, pageTemplate, data)
}

func (h *Handler) renderTemplate(w http.ResponseWriter, status int, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		slog.Error("template error", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// saveFlashes turns a save report into page messages.
func saveFlashes(report session.SaveReport) []Flash {
	if report.Empty() {
		return []Flash{{Level: LevelInfo, Message: "No changes detected to save."}}
	}

	failed := make(map[session.CellRef]bool, len(report.Failures))
	var flashes []Flash
	for _, f := range report.Failures {
		failed[f.Cell] = true
		flashes = append(flashes, Flash{Level: LevelError, Message: fmt.Sprintf("Failed to update %s: %v", f.Cell, f.Err)})
	}

	var updated []string
	for _, c := range report.Attempted {
		if !failed[c] {
			updated = append(updated, c.String())
		}
	}
	if len(updated) > 0 {
		flashes = append([]Flash{{Level: LevelSuccess, Message: "Updated cells: " + strings.Join(updated, ", ")}}, flashes...)
	}
	return flashes
}

func countRows(edits []session.Edit) int {
	rows := make(map[int]struct{})
	for _, e := range edits {
		rows[e.Position] = struct{}{}
	}
	return len(rows)
}
