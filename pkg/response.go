package pkg

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

var ContentType = struct {
	JSON string
	Text string
}{
	JSON: "application/json",
	Text: "text/plain",
}

func WriteTextResponseOK(w http.ResponseWriter, message string) {
	WriteResponseBytes(w, ContentType.Text, []byte(message), http.StatusOK)
}

func WriteJSONResponseOK(w http.ResponseWriter, message string) {
	WriteResponseBytes(w, ContentType.JSON, []byte(message), http.StatusOK)
}

func WriteResponse(w http.ResponseWriter, contentType, message string, statusCode int) {
	WriteResponseBytes(w, contentType, []byte(message), statusCode)
}

func WriteResponseBytes(w http.ResponseWriter, contentType string, message []byte, statusCode int) {
	if contentType != "" {
		w.Header().Add("Content-Type", contentType)
	}
	w.WriteHeader(statusCode)
	if _, err := w.Write(message); err != nil {
		log.Errorf("failed to write response [%s]: %s", message, err)
	}
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func WriteJSONError(w http.ResponseWriter, statusCode int, errMessage string) {
	WriteJSONErrorDetails(w, statusCode, errMessage, nil)
}

func WriteJSONErrorDetails(w http.ResponseWriter, statusCode int, errMessage string, details map[string]string) {
	respJson, err := json.Marshal(ErrorResponse{
		Error:   errMessage,
		Details: details,
	})
	if err != nil {
		log.Errorf("failed to marshal error response [%s]: %s", errMessage, err)
		http.Error(w, errMessage, statusCode)
		return
	}
	WriteResponseBytes(w, ContentType.JSON, respJson, statusCode)
}
