package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/shunichi-ikebuchi/society-dues/pkg/session"
)

// TableResponse represents the response for GET /api/table.
type TableResponse struct {
	Headers []string      `json:"headers"`
	Rows    [][]string    `json:"rows"`
	Dirty   []int         `json:"dirty"`
	State   session.State `json:"state"`
}

// EditsRequest represents the body of POST /api/edits.
type EditsRequest struct {
	Edits []session.Edit `json:"edits"`
}

// EditsResponse represents the response for POST /api/edits.
type EditsResponse struct {
	Applied  []session.Edit `json:"applied"`
	Rejected []string       `json:"rejected,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
	Table    TableResponse  `json:"table"`
}

// CellFailureResponse is one failed cell of a save.
type CellFailureResponse struct {
	Cell  session.CellRef `json:"cell"`
	Error string          `json:"error"`
}

// SaveResponse represents the response for POST /api/save.
type SaveResponse struct {
	Attempted []session.CellRef     `json:"attempted"`
	Failures  []CellFailureResponse `json:"failures"`
	Messages  []string              `json:"messages"`
}

func tableResponse(s *session.Session) TableResponse {
	working := s.Working()
	rows := make([][]string, len(working.Rows))
	for i, r := range working.Rows {
		rows[i] = r.Cells
	}
	dirty := s.Dirty()
	if dirty == nil {
		dirty = []int{}
	}
	return TableResponse{
		Headers: working.Headers,
		Rows:    rows,
		Dirty:   dirty,
		State:   s.State(),
	}
}

// APITable handles GET /api/table.
func (h *Handler) APITable(w http.ResponseWriter, r *http.Request) {
	var resp TableResponse
	err := h.manager.Do(r.Context(), SessionID(r.Context()), func(s *session.Session) error {
		resp = tableResponse(s)
		return nil
	})
	if err != nil {
		h.apiFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// APIEdits handles POST /api/edits.
func (h *Handler) APIEdits(w http.ResponseWriter, r *http.Request) {
	var req EditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	var resp EditsResponse
	err := h.manager.Do(r.Context(), SessionID(r.Context()), func(s *session.Session) error {
		valid, rejected := filterEdits(req.Edits, s.Columns(), s.Working())
		result := s.ScanEdits(valid)

		resp.Applied = result.Applied
		if resp.Applied == nil {
			resp.Applied = []session.Edit{}
		}
		resp.Rejected = rejected
		for _, e := range result.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
		resp.Table = tableResponse(s)
		return nil
	})
	if err != nil {
		h.apiFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// APISave handles POST /api/save.
func (h *Handler) APISave(w http.ResponseWriter, r *http.Request) {
	var report session.SaveReport
	err := h.manager.Do(r.Context(), SessionID(r.Context()), func(s *session.Session) error {
		report = h.manager.Save(r.Context(), s)
		return nil
	})
	if err != nil {
		h.apiFail(w, err)
		return
	}

	resp := SaveResponse{
		Attempted: report.Attempted,
		Failures:  []CellFailureResponse{},
	}
	if resp.Attempted == nil {
		resp.Attempted = []session.CellRef{}
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, CellFailureResponse{Cell: f.Cell, Error: f.Err.Error()})
	}
	for _, f := range saveFlashes(report) {
		resp.Messages = append(resp.Messages, f.Message)
	}
	writeJSON(w, http.StatusOK, resp)
}

// APIDiscard handles POST /api/discard.
func (h *Handler) APIDiscard(w http.ResponseWriter, r *http.Request) {
	var resp TableResponse
	err := h.manager.Do(r.Context(), SessionID(r.Context()), func(s *session.Session) error {
		s.Discard()
		resp = tableResponse(s)
		return nil
	})
	if err != nil {
		h.apiFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) apiFail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	description := err.Error()
	if code == "empty_data" {
		description = "No data found in the sheet"
	}
	writeJSONError(w, status, code, description)
}

