package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, err)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusInternalServerError, err)
}

// writeError maps a domain error (agentpayerrors.Error) to its registered
// transport status; anything else is treated as an opaque internal error so
// no unexpected detail leaks into a response body.
func writeError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var domainErr *agentpayerrors.Error
	if errors.As(err, &domainErr) {
		payload := map[string]any{
			"code":    string(domainErr.Code),
			"message": domainErr.Message,
		}
		if len(domainErr.Details) > 0 {
			payload["details"] = domainErr.Details
		}
		writeJSON(w, domainErr.Status(), payload)
		return
	}
	writeInternalError(w, err)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	payload, marshalErr := json.Marshal(map[string]string{"error": message})
	if marshalErr != nil {
		replacer := strings.NewReplacer(
			"\\", "\\\\",
			"\"", "\\\"",
			"\n", "\\n",
			"\r", "\\r",
			"\t", "\\t",
		)
		fallback := fmt.Sprintf("{\"error\":\"%s\"}", replacer.Replace(message))
		payload = []byte(fallback)
	}
	_, _ = w.Write(payload)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
