package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedResponse is returned when a response is missing fields the
// caller depends on or has the wrong shape.
var ErrMalformedResponse = errors.New("malformed response")

// Response is the envelope every endpoint returns
type Response struct {
	Success bool            `json:"success"`
	Code    *int            `json:"code,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Msg     string          `json:"msg"`
}

// CodeIs reports whether the response carries the given code
func (r *Response) CodeIs(code int) bool {
	return r != nil && r.Code != nil && *r.Code == code
}

// HasData reports whether the data field is present and not null
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ParseResponse decodes a raw body into a Response
func ParseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// NewResponse builds a Response with data marshalled to JSON. A nil data
// leaves the field empty.
func NewResponse(success bool, code int, data interface{}, msg string) *Response {
	resp := &Response{Success: success, Code: &code, Msg: msg}
	if data != nil {
		raw, err := json.Marshal(data)
		if err == nil {
			resp.Data = raw
		}
	}
	return resp
}

// DecodeData decodes the data field into T
func DecodeData[T any](r *Response) (T, error) {
	var out T
	if !r.HasData() {
		return out, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if err := json.Unmarshal(r.Data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// DataIsTrue reports whether the data field is the JSON literal true
func (r *Response) DataIsTrue() bool {
	if !r.HasData() {
		return false
	}
	var b bool
	return json.Unmarshal(r.Data, &b) == nil && b
}

// FlexString accepts a JSON string or number
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// FlexNumber accepts a JSON number or a numeric string
type FlexNumber float64

func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	str := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("expected number, got %s", string(b))
	}
	*n = FlexNumber(f)
	return nil
}

func (n FlexNumber) Float() float64 {
	return float64(n)
}

func (n FlexNumber) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}
