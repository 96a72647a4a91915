// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package apierror carries an HTTP status alongside an internal cause so
// handlers can log the cause while returning a small, stable JSON body.
package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error pairs an HTTP status with a client-facing message and an optional
// internal cause that is logged but never serialized.
type Error struct {
	Status int
	Msg    string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

func New(status int, msg string) *Error {
	return &Error{Status: status, Msg: msg}
}

func Wrap(status int, msg string, cause error) *Error {
	return &Error{Status: status, Msg: msg, Cause: cause}
}

func BadRequest(msg string) *Error       { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error     { return New(http.StatusUnauthorized, msg) }
func NotFound(msg string) *Error         { return New(http.StatusNotFound, msg) }
func Internal(msg string, err error) *Error {
	return Wrap(http.StatusInternalServerError, msg, err)
}

// As unwraps err looking for an *Error, defaulting to a 500 wrapping err
// when none is found so every handler path produces a consistent body.
func As(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("internal error", err)
}

// body is the wire shape of an error response. The field is named "msg" to
// match the field name the original hypervisor's error type serializes.
type body struct {
	Msg string `json:"msg"`
}

// Write sends err as a JSON error body with the appropriate status code.
func Write(w http.ResponseWriter, err error) {
	apiErr := As(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(body{Msg: apiErr.Msg})
}
