package dashboard

import (
	"errors"
	"net/http"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
	"github.com/shunichi-ikebuchi/society-dues/pkg/session"
)

// classify maps an action error onto an HTTP status and an API error code.
func classify(err error) (int, string) {
	var missing *dues.MissingColumnsError
	var invalid *dues.InvalidInputError

	switch {
	case errors.Is(err, dues.ErrEmptyData):
		return http.StatusConflict, "empty_data"
	case errors.Is(err, dues.ErrAuth):
		return http.StatusBadGateway, "auth_failed"
	case errors.Is(err, dues.ErrConnection):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.As(err, &missing):
		return http.StatusBadGateway, "missing_columns"
	case errors.Is(err, session.ErrNotEditable), errors.Is(err, session.ErrNoSuchRow):
		return http.StatusBadRequest, "invalid_cell"
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity, "invalid_input"
	}
	return http.StatusInternalServerError, "server_error"
}

// errorTitle is the heading of the blocking error page.
func errorTitle(err error) string {
	var missing *dues.MissingColumnsError
	switch {
	case errors.Is(err, dues.ErrAuth):
		return "Could not authenticate with the spreadsheet"
	case errors.Is(err, dues.ErrConnection):
		return "Could not reach the spreadsheet"
	case errors.As(err, &missing):
		return "The sheet is missing required columns"
	}
	return "Something went wrong"
}
