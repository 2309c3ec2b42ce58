package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Envelope codes with pipeline-level meaning.
const (
	CodeSuccess        = "200"
	CodeSessionExpired = "401"
)

// Code is an envelope status code. It decodes from a JSON string or number
// and is always held in its string form.
type Code string

// UnmarshalJSON accepts "200" and 200 alike. Whole numbers written as 200.0
// or 2e2 normalize to "200".
func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("envelope code: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*c = Code(strconv.FormatInt(i, 10))
		return nil
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		*c = Code(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*c = Code(n.String())
	return nil
}

// Envelope is the response body shape used by every endpoint.
type Envelope struct {
	Code    Code            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

var errEmptyEnvelope = errors.New("response envelope has no code")

func decodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, err
	}
	if env.Code == "" {
		return Envelope{}, errEmptyEnvelope
	}
	return env, nil
}
