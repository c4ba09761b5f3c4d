package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"financas/internal/core"
)

var (
	errMalformedBody = errors.New("malformed JSON body")
	errBadFileData   = errors.New("file data is not valid base64")
	errBadID         = errors.New("id must be a positive integer")
)

// jsonOverhead covers the non-file fields of an upload body.
const jsonOverhead = 64 << 10

// uploadBodyLimit bounds a JSON body carrying maxFile bytes as base64.
func uploadBodyLimit(maxFile int) int64 {
	return int64(base64.StdEncoding.EncodedLen(maxFile)) + jsonOverhead
}

// decodeJSON reads at most limit bytes of r's body into dst. A larger body
// fails with *core.FileTooLargeError without being read in full.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &core.FileTooLargeError{Limit: tooLarge.Limit}
		}
		return &core.ValidationError{Field: "body", Err: errMalformedBody}
	}
	if _, err := dec.Token(); err != io.EOF {
		return &core.ValidationError{Field: "body", Err: errMalformedBody}
	}
	return nil
}

// flexAmount holds an amount sent either as a JSON number or as a string
// such as "12,50".
type flexAmount string

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = flexAmount(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*a = flexAmount(n.String())
	}
	return nil
}

// parse converts the amount, reporting problems against field.
func (a flexAmount) parse(field string) (core.Money, error) {
	m, err := core.ParseAmount(string(a))
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Err: err}
	}
	return m, nil
}

// parseOptionalDate parses a YYYY-MM-DD field, leaving the date empty when
// the field is blank.
func parseOptionalDate(field, s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Err: err}
	}
	return d, nil
}

// decodeFileData decodes base64 file content. Browser data URLs
// ("data:application/pdf;base64,....") are accepted as is.
func decodeFileData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	if s == "" {
		return nil, &core.ValidationError{Field: "arquivo_dados", Err: core.ErrEmptyFile}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &core.ValidationError{Field: "arquivo_dados", Err: errBadFileData}
	}
	return data, nil
}

// periodFromQuery reads the optional data_inicio and data_fim bounds.
func periodFromQuery(r *http.Request) (core.Period, error) {
	q := r.URL.Query()
	return core.NewPeriod(q.Get("data_inicio"), q.Get("data_fim"))
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Err: errBadID}
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
