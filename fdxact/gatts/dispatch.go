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
	log "github.com/sirupsen/logrus"

	. "github.com/findy-ble/findy/fdxact/bledefs"
	"github.com/findy-ble/findy/fdxact/task"
)

// Dispatcher implements Accessor by running every access as a job on the
// device's task queue, so BLE events are serialized with the periodic jobs
// and with each other.
type Dispatcher struct {
	store *AttrStore
	h     BleGattEventHandler
	q     *task.TaskQueue
}

func NewDispatcher(store *AttrStore, h BleGattEventHandler,
	q *task.TaskQueue) *Dispatcher {

	return &Dispatcher{
		store: store,
		h:     h,
		q:     q,
	}
}

// Write authorizes a client write, commits it on success and reports it to
// the event handler.  The returned code is the ATT response sent to the
// client.
func (d *Dispatcher) Write(w BleGattWrite) BleAttErrCode {
	status := ERR_CODE_ATT_UNLIKELY

	err := d.q.Run(func() error {
		status = d.store.Authorize(w)
		if status != ERR_CODE_ATT_SUCCESS {
			return nil
		}

		status = d.store.Commit(w)
		if status != ERR_CODE_ATT_SUCCESS {
			return nil
		}

		d.h.OnDataWritten(w)
		return nil
	})
	if err != nil {
		log.Debugf("Failed to dispatch write (%s): %s", w.String(),
			err.Error())
		return ERR_CODE_ATT_UNLIKELY
	}

	return status
}

// Read reports the read to the event handler, then returns the attribute's
// value as it stands after the handler ran.
func (d *Dispatcher) Read(r BleGattRead) ([]byte, BleAttErrCode) {
	var val []byte
	status := ERR_CODE_ATT_UNLIKELY

	err := d.q.Run(func() error {
		if d.store.FindByHandle(r.AttHandle) == nil {
			status = ERR_CODE_ATT_INVALID_HANDLE
			return nil
		}

		d.h.OnDataRead(r)

		var err error
		val, err = d.store.Value(r.AttHandle)
		if err != nil {
			return err
		}

		status = ERR_CODE_ATT_SUCCESS
		return nil
	})
	if err != nil {
		log.Debugf("Failed to dispatch read (att_handle=%d): %s",
			r.AttHandle, err.Error())
		return nil, ERR_CODE_ATT_UNLIKELY
	}

	return val, status
}

func (d *Dispatcher) Sent(s BleGattSent) {
	err := d.q.Run(func() error {
		d.h.OnDataSent(s)
		return nil
	})
	if err != nil {
		log.Debugf("Failed to dispatch sent event (att_handle=%d): %s",
			s.AttHandle, err.Error())
	}
}
