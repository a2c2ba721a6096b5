package response

import (
	"encoding/json"
	"net/http"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
	Details    []string    `json:"details,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, status int, data interface{}, message string) {
	JSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

func Paginated(w http.ResponseWriter, data interface{}, pagination interface{}) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: pagination})
}

func Error(w http.ResponseWriter, status int, message string, errors ...[]string) {
	payload := Envelope{Success: false, Error: message}
	if len(errors) > 0 && len(errors[0]) > 0 {
		payload.Details = errors[0]
	}
	JSON(w, status, payload)
}

// FromError writes the status and public message for err. Errors outside the
// taxonomy are logged and replaced with a generic message.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	status := appErrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}
	Error(w, status, appErrors.PublicMessage(err), appErrors.Details(err))
}

func NotFound(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusNotFound, "Path not found")
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
