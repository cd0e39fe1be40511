/*
Copyright 2023 The Koordinator Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import (
	"errors"
	"fmt"
)

// TransportError is returned when a REST request or a yarn command fails,
// including non-2xx responses and non-zero exit codes.
type TransportError struct {
	// Op is the http method or "exec".
	Op string
	// Target is the request url or the command line.
	Target     string
	StatusCode int
	Output     string
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Op, e.Target)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s, status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Output != "" {
		msg = fmt.Sprintf("%s, output: %s", msg, e.Output)
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a payload from the resource manager does not have the expected format.
type ParseError struct {
	Source string
	Input  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s failed, input %q: %v", e.Source, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigConflictError is returned when the requested change contradicts the current
// cluster configuration, e.g. the scheduler rejects a queue mutation.
type ConfigConflictError struct {
	Subject string
	Reason  string
	Err     error
}

func (e *ConfigConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config conflict on %s: %s: %v", e.Subject, e.Reason, e.Err)
	}
	return fmt.Sprintf("config conflict on %s: %s", e.Subject, e.Reason)
}

func (e *ConfigConflictError) Unwrap() error {
	return e.Err
}

func NewParseError(source, input string, err error) error {
	return &ParseError{Source: source, Input: input, Err: err}
}

func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

func IsConfigConflict(err error) bool {
	var e *ConfigConflictError
	return errors.As(err, &e)
}
