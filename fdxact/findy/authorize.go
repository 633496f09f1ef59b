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

package findy

import (
	log "github.com/sirupsen/logrus"

	. "github.com/findy-ble/findy/fdxact/bledefs"
)

const (
	// Client-written values must be below CmdValueLimit.  Battery level
	// writes are further restricted to values below BattValueLimit.
	CmdValueLimit  = 60
	BattValueLimit = 24
)

// AuthorizeWrite decides whether a client write may be applied.  Checks
// are made in order: offset, length, then value range.  battHandle is the
// value handle of the battery level characteristic.
func AuthorizeWrite(battHandle uint16, w BleGattWrite) BleAttErrCode {
	if w.Offset != 0 {
		return ERR_CODE_ATT_INVALID_OFFSET
	}

	if len(w.Data) != 1 {
		return ERR_CODE_ATT_INVALID_ATTR_VALUE_LEN
	}

	v := w.Data[0]
	if v >= CmdValueLimit || (v >= BattValueLimit && w.AttHandle == battHandle) {
		return ERR_CODE_ATT_WRITE_NOT_PERMITTED
	}

	return ERR_CODE_ATT_SUCCESS
}

func (d *Device) authorizeWrite(w BleGattWrite) BleAttErrCode {
	status := AuthorizeWrite(d.battHandle, w)

	log.Debugf("Authorize write: %s chr=%s status=%s",
		w.String(), d.chrName(w.AttHandle), status.String())

	return status
}
