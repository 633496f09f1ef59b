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

// Package hw holds the narrow hardware contracts the device core consumes:
// a PWM output driving the buzzer and an analog input sampling the battery
// divider.
package hw

// Buzzer output.  A zero period silences the output.
type PwmOut interface {
	SetPeriod(seconds float64) error
	SetDutyCycle(fraction float64) error
}

// Battery input.  Read returns a sample normalized to [0,1] of the input's
// full scale.
type AnalogIn interface {
	Read() (float64, error)
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
