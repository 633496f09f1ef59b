/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package fdxutil

import (
	"fmt"
)

// Indicates an access to an attribute handle that was never registered.
// Handles are fixed at registration, so this is always a programming error.
type HandleError struct {
	Text      string
	AttHandle uint16
}

func NewHandleError(attHandle uint16) *HandleError {
	return &HandleError{
		Text:      fmt.Sprintf("unknown attribute handle: %d", attHandle),
		AttHandle: attHandle,
	}
}

func (e *HandleError) Error() string {
	return e.Text
}

func IsHandle(err error) bool {
	_, ok := err.(*HandleError)
	return ok
}

// Represents a low-level transport error.
type XportError struct {
	Text string
}

func NewXportError(text string) *XportError {
	return &XportError{text}
}

func FmtXportError(format string, args ...interface{}) *XportError {
	return NewXportError(fmt.Sprintf(format, args...))
}

func (e *XportError) Error() string {
	return e.Text
}

func IsXport(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*XportError)
	return ok
}

// Represents a failure reading or driving a peripheral pin (ADC, PWM).
type HwError struct {
	Text string
	Pin  string
}

func NewHwError(pin string, text string) *HwError {
	return &HwError{
		Text: text,
		Pin:  pin,
	}
}

func FmtHwError(pin string, format string, args ...interface{}) *HwError {
	return NewHwError(pin, fmt.Sprintf(format, args...))
}

func (e *HwError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pin, e.Text)
}

func IsHw(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*HwError)
	return ok
}

// Indicates an attempt to transition to the already-current state.
type AlreadyError struct {
	Text string
}

func NewAlreadyError(text string) *AlreadyError {
	return &AlreadyError{text}
}

func (err *AlreadyError) Error() string {
	return err.Text
}

func IsAlready(err error) bool {
	if err == nil {
		return false
	}

	_, ok := err.(*AlreadyError)
	return ok
}
