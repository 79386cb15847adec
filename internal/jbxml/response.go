package jbxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cyberscoundrel/jobbossutils/internal/failure"
)

// StatusOK is the success status code.
const StatusOK = 0

// Response holds the fields extracted from a response document.
type Response struct {
	StatusCode    int
	StatusMessage string
	ErrorMessage  string

	// Record body, present on successful query and update answers.
	ID          string
	OnHand      *decimal.Decimal
	LastUpdated string
}

// OK reports whether the status code signals success.
func (r *Response) OK() bool {
	return r.StatusCode == StatusOK
}

// Message returns the failure text for a non-zero status: the status message,
// else the error message, else the raw status code. Empty on success.
func (r *Response) Message() string {
	if r.OK() {
		return ""
	}
	if r.StatusMessage != "" {
		return r.StatusMessage
	}
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	return fmt.Sprintf("Status code: %d", r.StatusCode)
}

// ParseResponse extracts status and record fields from a response document.
//
// A document without a StatusCode element, or with a non-integer one, yields
// an UNRECOGNIZED_RESPONSE error; the caller treats it like a transport fault.
func ParseResponse(data []byte) (*Response, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var (
		resp   Response
		status string
		seen   = make(map[string]bool)
		text   strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if seen["StatusCode"] {
				// Trailing garbage after a usable status is tolerated.
				break
			}
			return nil, failure.Unrecognized(fmt.Sprintf("malformed document: %v", err))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			name := t.Name.Local
			value := strings.TrimSpace(text.String())
			text.Reset()
			if seen[name] {
				continue
			}
			switch name {
			case "StatusCode":
				status = value
			case "StatusMessage":
				resp.StatusMessage = value
			case "ErrorMessage":
				resp.ErrorMessage = value
			case "ID":
				resp.ID = value
			case "LastUpdated":
				resp.LastUpdated = value
			case "OnHand":
				if d, err := decimal.NewFromString(value); err == nil {
					resp.OnHand = &d
				}
			default:
				continue
			}
			seen[name] = true
		}
	}

	if !seen["StatusCode"] {
		return nil, failure.Unrecognized("no StatusCode element")
	}
	code, err := strconv.Atoi(status)
	if err != nil {
		return nil, failure.Unrecognized(fmt.Sprintf("StatusCode %q is not an integer", status))
	}
	resp.StatusCode = code

	return &resp, nil
}
