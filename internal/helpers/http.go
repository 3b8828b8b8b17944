package helpers

import (
	"encoding/json"
	"net/http"

	"github.com/isometry/sms-relay-app/internal/models"
)

type httpResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RespondHTTP writes the response as a JSON document carrying the message and, if set, the error.
func RespondHTTP(response models.Response, err error, rw http.ResponseWriter) {
	hR := httpResponse{
		Message: response.Body,
	}
	if err != nil {
		hR.Error = err.Error()
	}

	respBody, _ := json.Marshal(hR)
	statusCode := response.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	rw.Header().Set("Content-Type", "application/json")
	for k, v := range response.Headers {
		rw.Header().Set(k, v)
	}
	rw.WriteHeader(statusCode)
	_, _ = rw.Write(respBody)
}

// ResponseJSON renders the response the same way RespondHTTP does, for runtimes that do not own a ResponseWriter.
func ResponseJSON(response models.Response, err error) string {
	hR := httpResponse{
		Message: response.Body,
	}
	if err != nil {
		hR.Error = err.Error()
	}
	respBody, _ := json.Marshal(hR)
	return string(respBody)
}
