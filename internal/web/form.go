package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/form/v4"

	"github.com/evcraddock/churchdesk/internal/apperr"
)

const maxFormBytes = 1 << 20

var errBadBody = apperr.Validation(apperr.FieldError{Field: "body", Message: "request body could not be read"})

// formDecoder fills input structs by their form tags. Safe for concurrent use.
var formDecoder = form.NewDecoder()

// decodeForm fills dst from either a urlencoded form or a JSON object.
// Values are trimmed; a value that does not fit its field is a field error.
func decodeForm(r *http.Request, dst any) error {
	values, err := bodyValues(r)
	if err != nil {
		return errBadBody
	}
	for k, vs := range values {
		for i := range vs {
			vs[i] = strings.TrimSpace(vs[i])
		}
		values[k] = vs
	}

	if err := formDecoder.Decode(dst, values); err != nil {
		var de form.DecodeErrors
		if !errors.As(err, &de) {
			return errBadBody
		}
		fields := make([]apperr.FieldError, 0, len(de))
		for name := range de {
			fields = append(fields, apperr.FieldError{Field: name, Message: name + " has an invalid value"})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return apperr.Validation(fields...)
	}
	return nil
}

// bodyValues reads the request body as form values. A JSON object's
// scalars are stringified so both encodings decode the same way.
func bodyValues(r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxFormBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parsing form: %w", err)
		}
		return r.PostForm, nil
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding json body: %w", err)
	}
	values := make(url.Values, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			values.Set(k, "")
		case string:
			values.Set(k, t)
		case bool:
			values.Set(k, strconv.FormatBool(t))
		case float64:
			values.Set(k, strconv.FormatFloat(t, 'f', -1, 64))
		default:
			return nil, fmt.Errorf("field %s: unsupported JSON value %T", k, v)
		}
	}
	return values, nil
}
