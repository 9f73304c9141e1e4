package httpmiddleware

import (
	"net/http"
	"slices"

	"github.com/go-faster/jx"
)

// Error is the JSON error body every API response uses.
type Error struct {
	Code    int
	Message string
	// Fields maps request field names to validation messages.
	Fields map[string]string
}

// Encode writes the error as {"code":..,"message":..,"fields":{..},"requestId":..}.
func (e Error) Encode(enc *jx.Encoder, requestID string) {
	enc.ObjStart()
	enc.FieldStart("code")
	enc.Int(e.Code)
	enc.FieldStart("message")
	enc.Str(e.Message)
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		slices.Sort(names)

		enc.FieldStart("fields")
		enc.ObjStart()
		for _, name := range names {
			enc.FieldStart(name)
			enc.Str(e.Fields[name])
		}
		enc.ObjEnd()
	}
	if requestID != "" {
		enc.FieldStart("requestId")
		enc.Str(requestID)
	}
	enc.ObjEnd()
}

// WriteError writes e with its code as the response status.
func WriteError(w http.ResponseWriter, r *http.Request, e Error) {
	enc := jx.GetEncoder()
	defer jx.PutEncoder(enc)
	e.Encode(enc, RequestIDFromContext(r.Context()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	_, _ = w.Write(enc.Bytes())
}
