package response

import (
	"bytes"
	"encoding/json"
	"net/http"
)

const contentTypeJSON = "application/json; charset=utf-8"

// JSON renders v as the response body. The value is encoded before any header is
// written so a marshal failure still produces a complete 500.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeJSON(w, http.StatusInternalServerError, &ErrorResponse{
			Error:   "error",
			Message: "failed to encode response: " + err.Error(),
			Code:    errorCodeFromStatus(http.StatusInternalServerError),
		})
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// Empty writes a status with no body
func Empty(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
