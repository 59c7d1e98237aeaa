/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package block

import (
	"fmt"
)

// Error an extended error containing a message, a code value (one of the
// kzpipe.ERR_* constants) and the underlying cause if any
type Error struct {
	Code  int
	Msg   string
	cause error
}

func newError(code int, cause error) *Error {
	return &Error{Code: code, Msg: cause.Error(), cause: cause}
}

func newErrorf(code int, format string, args ...any) *Error {
	return newError(code, fmt.Errorf(format, args...))
}

// Error returns the message and the code
func (this *Error) Error() string {
	return fmt.Sprintf("%v (code %v)", this.Msg, this.Code)
}

// ErrorCode returns the code value associated with the error
func (this *Error) ErrorCode() int {
	return this.Code
}

// Unwrap returns the underlying cause so that errors.Is can match the
// kzpipe sentinel errors
func (this *Error) Unwrap() error {
	return this.cause
}
