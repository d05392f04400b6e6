package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"

	"airsolutions/services"
)

// errorStatus maps engine error kinds to HTTP status codes.
var errorStatus = []struct {
	kind   error
	status int
}{
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrMissingParent, http.StatusNotFound},
	{services.ErrConcurrentModification, http.StatusConflict},
	{services.ErrDuplicateLevelCode, http.StatusConflict},
	{services.ErrInvalidTransition, http.StatusConflict},
	{services.ErrInvalidLineItem, http.StatusUnprocessableEntity},
	{services.ErrInvalidConfiguration, http.StatusUnprocessableEntity},
	{services.ErrInvalidProject, http.StatusUnprocessableEntity},
	{services.ErrEmptyQuotation, http.StatusUnprocessableEntity},
}

// ErrorJSON writes {"error": message} with the given status.
func ErrorJSON(e *core.RequestEvent, statusCode int, message string) error {
	return e.JSON(statusCode, map[string]any{"error": message})
}

// respondError translates err into a JSON error response. Unknown errors are
// logged and reported as 500 without their detail.
func respondError(e *core.RequestEvent, component string, err error) error {
	for _, m := range errorStatus {
		if errors.Is(err, m.kind) {
			return ErrorJSON(e, m.status, err.Error())
		}
	}
	log.Printf("%s: %v", component, err)
	return ErrorJSON(e, http.StatusInternalServerError, "Internal error")
}

// versionBody is embedded by requests that carry an optimistic lock.
type versionBody struct {
	Version int `json:"version"`
}

// queryVersion reads the expected version from the "version" query parameter.
func queryVersion(e *core.RequestEvent) (int, error) {
	raw := strings.TrimSpace(e.Request.URL.Query().Get("version"))
	if raw == "" {
		return 0, errors.New("missing version query parameter")
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, errors.New("version must be an integer")
	}
	return v, nil
}

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	return s
}

func sendAttachment(e *core.RequestEvent, contentType, filename string, data []byte) error {
	e.Response.Header().Set("Content-Type", contentType)
	e.Response.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	e.Response.WriteHeader(http.StatusOK)
	_, err := e.Response.Write(data)
	return err
}
