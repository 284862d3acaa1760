package amqpx

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ErrDecode is the failure returned when a payload cannot be interpreted
// under the requested grammar. The original parser diagnostic is wrapped and
// reachable with errors.Is / errors.As.
var ErrDecode = errors.New("amqpx: payload could not be decoded")

// Content is a raw message payload which can be lazily interpreted on demand.
//
// Decoding is stateless and repeatable: every accessor reads the same
// underlying bytes, calling one never affects the result of another, and the
// payload itself is never mutated.
type Content []byte

// Bytes returns the raw payload unchanged.
func (c Content) Bytes() []byte { return c }

// Text interprets the payload as a UTF-8 string.
func (c Content) Text() (string, error) {
	if !utf8.Valid(c) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", ErrDecode)
	}
	return string(c), nil
}

// Int parses the payload text as a base-10 integer literal.
func (c Content) Int() (int64, error) {
	s, err := c.Text()
	if err != nil {
		return 0, err
	}

	v, pErr := strconv.ParseInt(s, 10, 64)
	if pErr != nil {
		return 0, fmt.Errorf("%w: %q is not an integer literal", ErrDecode, s)
	}
	return v, nil
}

// Float parses the payload text as a floating point literal.
func (c Content) Float() (float64, error) {
	s, err := c.Text()
	if err != nil {
		return 0, err
	}

	v, pErr := strconv.ParseFloat(s, 64)
	if pErr != nil {
		return 0, fmt.Errorf("%w: %q is not a float literal", ErrDecode, s)
	}
	return v, nil
}

// JSON parses the payload as JSON into dst. Passing a *interface{} yields the
// generic decoded value.
func (c Content) JSON(dst interface{}) error {
	if err := json.Unmarshal(c, dst); err != nil {
		return fmt.Errorf("%w: %s", ErrDecode, err)
	}
	return nil
}

// XML parses the payload as XML into dst.
func (c Content) XML(dst interface{}) error {
	if err := xml.Unmarshal(c, dst); err != nil {
		return fmt.Errorf("%w: %s", ErrDecode, err)
	}
	return nil
}
