package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var errInvalidIPv4 = errors.New("invalid IPv4 address")

const maxBodySize = 1 << 20 // 1MB

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
}
