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

	log "github.com/sirupsen/logrus"

	. "github.com/findy-ble/findy/fdxact/bledefs"
	"github.com/findy-ble/findy/fdxact/fdxutil"
)

// Receives values pushed by the attribute store to subscribed clients.
// Implemented by the BLE transport.  Notify must not block on the client;
// it returns the number of subscriptions the value was queued for.
type Notifier interface {
	Notify(attHandle uint16, val []byte) int
}

type Attr struct {
	// Handles of the service declaration, characteristic declaration and
	// characteristic value.  CccdHandle is 0 when the characteristic
	// neither notifies nor indicates.
	SvcHandle  uint16
	DefHandle  uint16
	ValHandle  uint16
	CccdHandle uint16

	SvcUuid BleUuid
	ChrUuid BleUuid
	Name    string
	Flags   BleChrFlags

	// Always exactly the registered size.
	value []byte
	cb    BleWriteAuthFn
}

// Size is also the capacity: attributes are fixed length.
func (a *Attr) Size() int {
	return len(a.value)
}

func (a *Attr) String() string {
	return fmt.Sprintf("%s (svc=%s chr=%s val_handle=%d)",
		a.Name, a.SvcUuid.String(), a.ChrUuid.String(), a.ValHandle)
}

type AttrStore struct {
	attrs    map[uint16]*Attr
	order    []*Attr
	svcs     []BleSvc
	notifier Notifier
	nextHdl  uint16
}

func NewAttrStore() *AttrStore {
	s := &AttrStore{}
	s.Clear()
	return s
}

func (s *AttrStore) Clear() {
	s.attrs = map[uint16]*Attr{}
	s.order = nil
	s.svcs = nil
	s.nextHdl = 1
}

func (s *AttrStore) add(attr *Attr) error {
	if _, ok := s.attrs[attr.ValHandle]; ok {
		return fmt.Errorf("Characteristic with duplicate ATT handle: %d",
			attr.ValHandle)
	}

	s.attrs[attr.ValHandle] = attr
	s.order = append(s.order, attr)
	return nil
}

func (s *AttrStore) allocHandle() uint16 {
	h := s.nextHdl
	s.nextHdl++
	return h
}

// Register assigns handles to every characteristic of the given services in
// GATT database order: service declaration, then for each characteristic its
// declaration, its value and, if it notifies or indicates, its client
// characteristic configuration descriptor.
func (s *AttrStore) Register(svcs []BleSvc) error {
	for _, svc := range svcs {
		svcHandle := s.allocHandle()

		for _, chr := range svc.Chrs {
			if len(chr.Value) == 0 {
				return fmt.Errorf("Characteristic %s has no value",
					chr.Uuid.String())
			}
			if len(chr.Value) > BLE_ATT_ATTR_MAX_LEN {
				return fmt.Errorf("Characteristic %s value too long: %d",
					chr.Uuid.String(), len(chr.Value))
			}

			attr := &Attr{
				SvcHandle: svcHandle,
				DefHandle: s.allocHandle(),
				ValHandle: s.allocHandle(),
				SvcUuid:   svc.Uuid,
				ChrUuid:   chr.Uuid,
				Name:      chr.Name,
				Flags:     chr.Flags,
				value:     append([]byte(nil), chr.Value...),
				cb:        chr.WriteAuthCb,
			}
			if chr.Flags.Pushes() {
				attr.CccdHandle = s.allocHandle()
			}

			if err := s.add(attr); err != nil {
				return err
			}
		}

		s.svcs = append(s.svcs, svc)
	}

	return nil
}

func (s *AttrStore) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *AttrStore) Services() []BleSvc {
	return s.svcs
}

// Attrs lists every registered attribute in handle order.
func (s *AttrStore) Attrs() []*Attr {
	return s.order
}

func (s *AttrStore) FindByHandle(handle uint16) *Attr {
	return s.attrs[handle]
}

func (s *AttrStore) FindByUuid(svcUuid BleUuid, chrUuid BleUuid) *Attr {
	for _, a := range s.order {
		if CompareUuids(a.SvcUuid, svcUuid) == 0 &&
			CompareUuids(a.ChrUuid, chrUuid) == 0 {

			return a
		}
	}

	return nil
}

// Value returns a copy of the attribute's current value.
func (s *AttrStore) Value(handle uint16) ([]byte, error) {
	a := s.attrs[handle]
	if a == nil {
		return nil, fdxutil.NewHandleError(handle)
	}

	return append([]byte(nil), a.value...), nil
}

func (s *AttrStore) Get(handle uint16) (byte, error) {
	a := s.attrs[handle]
	if a == nil {
		return 0, fdxutil.NewHandleError(handle)
	}

	return a.value[0], nil
}

// Set stores val in a one-byte attribute and pushes the new value to
// subscribed clients.
func (s *AttrStore) Set(handle uint16, val byte) error {
	return s.set(handle, val, false)
}

// SetLocal stores val without forwarding it to subscribed clients.
func (s *AttrStore) SetLocal(handle uint16, val byte) error {
	return s.set(handle, val, true)
}

func (s *AttrStore) set(handle uint16, val byte, localOnly bool) error {
	a := s.attrs[handle]
	if a == nil {
		return fdxutil.NewHandleError(handle)
	}
	if a.Size() != 1 {
		return fmt.Errorf("Characteristic %s is %d bytes; not a byte",
			a.Name, a.Size())
	}

	a.value[0] = val

	if !localOnly {
		s.push(a)
	}

	return nil
}

func (s *AttrStore) push(a *Attr) {
	if s.notifier == nil || !a.Flags.Pushes() {
		return
	}

	n := s.notifier.Notify(a.ValHandle, append([]byte(nil), a.value...))
	if n > 0 {
		log.Debugf("Queued %s update for %d subscriber(s)", a.Name, n)
	}
}

// Authorize runs the attribute's write authorization callback against a
// pending client write.  The store is not modified.
func (s *AttrStore) Authorize(w BleGattWrite) BleAttErrCode {
	a := s.attrs[w.AttHandle]
	if a == nil {
		return ERR_CODE_ATT_INVALID_HANDLE
	}

	if a.cb == nil {
		return ERR_CODE_ATT_SUCCESS
	}

	return a.cb(w)
}

// Commit applies an authorized client write.  Client writes are not pushed
// back to subscribers.
func (s *AttrStore) Commit(w BleGattWrite) BleAttErrCode {
	a := s.attrs[w.AttHandle]
	if a == nil {
		return ERR_CODE_ATT_INVALID_HANDLE
	}

	if w.Offset != 0 {
		return ERR_CODE_ATT_INVALID_OFFSET
	}
	if len(w.Data) != a.Size() {
		return ERR_CODE_ATT_INVALID_ATTR_VALUE_LEN
	}

	copy(a.value, w.Data)
	return ERR_CODE_ATT_SUCCESS
}
