// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package dataio

import "fmt"

// Level is the severity of a Diagnostic.
type Level string

// Diagnostic levels.
const (
	LevelFatal   Level = "FATAL"
	LevelError   Level = "ERROR"
	LevelWarning Level = "WARNING"
)

// Diagnostic describes a failure which did not abort the operation it
// happened in, but which consumers must take into account.
type Diagnostic struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	// Stacktrace holds the rendered cause, if any.
	Stacktrace string `json:"stacktrace,omitempty"`

	cause error
}

// NewFatalDiagnostic builds a FATAL diagnostic. cause may be nil.
func NewFatalDiagnostic(message string, cause error) Diagnostic {
	return newDiagnostic(LevelFatal, message, cause)
}

// NewWarningDiagnostic builds a WARNING diagnostic. cause may be nil.
func NewWarningDiagnostic(message string, cause error) Diagnostic {
	return newDiagnostic(LevelWarning, message, cause)
}

func newDiagnostic(level Level, message string, cause error) Diagnostic {
	d := Diagnostic{Level: level, Message: message, cause: cause}
	if cause != nil {
		d.Stacktrace = fmt.Sprintf("%+v", cause)
	}
	return d
}

// Cause returns the error which caused the diagnostic. It is not preserved
// across serialization.
func (d Diagnostic) Cause() error { return d.cause }

// HasFatal reports whether any of diags is FATAL.
func HasFatal(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Level == LevelFatal {
			return true
		}
	}
	return false
}
