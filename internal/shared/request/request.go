// Package request holds the parsing steps every handler repeats.
package request

import (
	"encoding/json"
	"net/http"
	"strconv"

	"empires-server/internal/shared/errors"
)

const maxBodyBytes = 1 << 20 // 1 MB

// PathID parses the {id} wildcard of the matched route.
func PathID(r *http.Request, entity string) (int64, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		return 0, errors.Validationf("%s ID is required", entity)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validationf("invalid %s ID format: %q", entity, idStr)
	}
	return id, nil
}

// QueryInt64 reads an optional integer query parameter. Absent means zero.
func QueryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.Validationf("invalid %s parameter: %q", name, raw)
	}
	return v, nil
}

func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.WrapValidation("invalid JSON in request body", err)
	}
	return nil
}
