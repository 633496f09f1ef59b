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

package gatts

import (
	"fmt"
	"testing"

	. "github.com/findy-ble/findy/fdxact/bledefs"
	"github.com/findy-ble/findy/fdxact/task"
)

type recHandler struct {
	store  *AttrStore
	events []string
}

func (h *recHandler) OnDataSent(s BleGattSent) {
	h.events = append(h.events, fmt.Sprintf("sent %d", s.AttHandle))
}

func (h *recHandler) OnDataWritten(w BleGattWrite) {
	v, _ := h.store.Get(w.AttHandle)
	h.events = append(h.events, fmt.Sprintf("written %d=%d", w.AttHandle, v))
}

func (h *recHandler) OnDataRead(r BleGattRead) {
	h.events = append(h.events, fmt.Sprintf("read %d", r.AttHandle))
	h.store.SetLocal(r.AttHandle, 77)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *recHandler,
	*task.TaskQueue) {

	cb := func(w BleGattWrite) BleAttErrCode {
		if w.Data[0] > 10 {
			return ERR_CODE_ATT_WRITE_NOT_PERMITTED
		}
		return ERR_CODE_ATT_SUCCESS
	}

	s := newTestStore(t, cb)
	h := &recHandler{store: s}

	q := task.NewTaskQueue("test")
	if err := q.Start(4); err != nil {
		t.Fatalf("start: %v", err)
	}

	return NewDispatcher(s, h, &q), h, &q
}

func TestDispatchWrite(t *testing.T) {
	d, h, q := newTestDispatcher(t)
	defer q.Stop(fmt.Errorf("done"))

	rc := d.Write(BleGattWrite{AttHandle: 3, Data: []byte{20}})
	if rc != ERR_CODE_ATT_WRITE_NOT_PERMITTED {
		t.Errorf("rejected write returned %s", rc.String())
	}
	if len(h.events) != 0 {
		t.Errorf("handler notified of rejected write: %v", h.events)
	}

	rc = d.Write(BleGattWrite{AttHandle: 3, Data: []byte{5}})
	if rc != ERR_CODE_ATT_SUCCESS {
		t.Errorf("accepted write returned %s", rc.String())
	}

	// The handler sees the committed value.
	if len(h.events) != 1 || h.events[0] != "written 3=5" {
		t.Errorf("unexpected events: %v", h.events)
	}

	rc = d.Write(BleGattWrite{AttHandle: 42, Data: []byte{1}})
	if rc != ERR_CODE_ATT_INVALID_HANDLE {
		t.Errorf("write to unknown handle returned %s", rc.String())
	}
}

func TestDispatchRead(t *testing.T) {
	d, h, q := newTestDispatcher(t)
	defer q.Stop(fmt.Errorf("done"))

	val, rc := d.Read(BleGattRead{AttHandle: 7})
	if rc != ERR_CODE_ATT_SUCCESS {
		t.Fatalf("read returned %s", rc.String())
	}

	// Value as updated by the handler.
	if len(val) != 1 || val[0] != 77 {
		t.Errorf("read returned %v; want [77]", val)
	}
	if len(h.events) != 1 || h.events[0] != "read 7" {
		t.Errorf("unexpected events: %v", h.events)
	}

	if _, rc := d.Read(BleGattRead{AttHandle: 1}); rc !=
		ERR_CODE_ATT_INVALID_HANDLE {

		t.Errorf("read of unknown handle returned %s", rc.String())
	}
}

func TestDispatchStopped(t *testing.T) {
	d, h, q := newTestDispatcher(t)
	q.Stop(fmt.Errorf("done"))

	if rc := d.Write(BleGattWrite{AttHandle: 3, Data: []byte{1}}); rc !=
		ERR_CODE_ATT_UNLIKELY {

		t.Errorf("write on stopped queue returned %s", rc.String())
	}
	if _, rc := d.Read(BleGattRead{AttHandle: 3}); rc != ERR_CODE_ATT_UNLIKELY {
		t.Errorf("read on stopped queue returned %s", rc.String())
	}

	d.Sent(BleGattSent{AttHandle: 3})
	if len(h.events) != 0 {
		t.Errorf("unexpected events: %v", h.events)
	}
}

func TestDispatchSent(t *testing.T) {
	d, h, q := newTestDispatcher(t)
	defer q.Stop(fmt.Errorf("done"))

	d.Sent(BleGattSent{AttHandle: 3, Indicate: true})
	if len(h.events) != 1 || h.events[0] != "sent 3" {
		t.Errorf("unexpected events: %v", h.events)
	}
}
