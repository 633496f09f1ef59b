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
	. "github.com/findy-ble/findy/fdxact/bledefs"
)

// Accessor is the GATT server's view of the device: every client access
// the transport receives is handed to it.  Methods may block and must not be
// called from a job running on the device's task queue.
type Accessor interface {
	Write(w BleGattWrite) BleAttErrCode
	Read(r BleGattRead) ([]byte, BleAttErrCode)
	Sent(s BleGattSent)
}

// Server is a GATT server transport (the BLE stack).  Serve publishes the
// store's services and routes client accesses to acc.  The server installs
// itself as the store's notifier.
type Server interface {
	Serve(store *AttrStore, acc Accessor) error
}
