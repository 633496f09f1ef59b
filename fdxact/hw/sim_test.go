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

package hw

import (
	"fmt"
	"testing"
)

func TestSimPwm(t *testing.T) {
	p := NewSimPwm()
	p.SetPeriod(0.000253)
	p.SetDutyCycle(1.5)
	p.SetPeriod(0)

	events := p.Events()
	if len(events) != 3 {
		t.Fatalf("%d events; want 3", len(events))
	}
	if events[1].Duty != 1 {
		t.Errorf("duty cycle not clamped: %f", events[1].Duty)
	}
	if events[1].String() != "3953Hz@1.00" {
		t.Errorf("unexpected event string: %s", events[1].String())
	}
	if events[2].String() != "silent" {
		t.Errorf("unexpected event string: %s", events[2].String())
	}

	p.Reset()
	if len(p.Events()) != 0 {
		t.Errorf("events not cleared")
	}
}

func TestSimAdc(t *testing.T) {
	a := NewSimAdc(0.5)
	if v, err := a.Read(); v != 0.5 || err != nil {
		t.Errorf("Read() = %f, %v", v, err)
	}

	a.Set(0.75)
	a.SetErr(fmt.Errorf("unplugged"))
	if _, err := a.Read(); err == nil {
		t.Errorf("Read() succeeded with an injected error")
	}

	a.SetErr(nil)
	if v, err := a.Read(); v != 0.75 || err != nil {
		t.Errorf("Read() = %f, %v", v, err)
	}
	if a.Reads() != 3 {
		t.Errorf("%d reads; want 3", a.Reads())
	}
}
