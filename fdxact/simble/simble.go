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

// Package simble is an in-memory GATT transport with a single simulated
// central.  It lets the device run without a BLE controller.
package simble

import (
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	. "github.com/findy-ble/findy/fdxact/bledefs"
	"github.com/findy-ble/findy/fdxact/fdxutil"
	"github.com/findy-ble/findy/fdxact/gatts"
)

const DfltPeer = "sim-central"

type Push struct {
	AttHandle uint16
	Value     []byte
	Indicate  bool
}

type subMode int

const (
	subNone subMode = iota
	subNotify
	subIndicate
)

type SimServer struct {
	// Address reported for the simulated central.
	Peer string

	mtx    sync.Mutex
	acc    gatts.Accessor
	store  *gatts.AttrStore
	subs   map[uint16]subMode
	pushes []Push
	out    io.Writer
	sentWg sync.WaitGroup
}

// out receives a line for every pushed value; it may be nil.
func NewSimServer(out io.Writer) *SimServer {
	return &SimServer{
		Peer: DfltPeer,
		subs: map[uint16]subMode{},
		out:  out,
	}
}

func (s *SimServer) Serve(store *gatts.AttrStore, acc gatts.Accessor) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.acc != nil {
		return fdxutil.NewAlreadyError("simulated server already serving")
	}

	s.acc = acc
	s.store = store
	store.SetNotifier(s)

	log.Debugf("Simulated GATT server serving %d attribute(s)",
		len(store.Attrs()))
	return nil
}

func (s *SimServer) accessor() (gatts.Accessor, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.acc == nil {
		return nil, fdxutil.NewXportError("simulated server not serving")
	}
	return s.acc, nil
}

// Write performs a client write and returns the ATT status the client
// would receive.
func (s *SimServer) Write(attHandle uint16, offset int,
	data []byte) (BleAttErrCode, error) {

	acc, err := s.accessor()
	if err != nil {
		return ERR_CODE_ATT_UNLIKELY, err
	}

	return acc.Write(BleGattWrite{
		Peer:      s.Peer,
		AttHandle: attHandle,
		Offset:    offset,
		Data:      data,
	}), nil
}

func (s *SimServer) Read(attHandle uint16) ([]byte, BleAttErrCode, error) {
	acc, err := s.accessor()
	if err != nil {
		return nil, ERR_CODE_ATT_UNLIKELY, err
	}

	val, status := acc.Read(BleGattRead{
		Peer:      s.Peer,
		AttHandle: attHandle,
	})
	return val, status, nil
}

// Subscribe enables or disables notifications (or indications) of an
// attribute's value.
func (s *SimServer) Subscribe(attHandle uint16, on bool,
	indicate bool) error {

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.store == nil {
		return fdxutil.NewXportError("simulated server not serving")
	}

	a := s.store.FindByHandle(attHandle)
	if a == nil {
		return fdxutil.NewHandleError(attHandle)
	}

	if !on {
		delete(s.subs, attHandle)
		return nil
	}

	mode := subNotify
	flag := BLE_GATT_F_NOTIFY
	if indicate {
		mode = subIndicate
		flag = BLE_GATT_F_INDICATE
	}
	if a.Flags&BleChrFlags(flag) == 0 {
		return fmt.Errorf("Characteristic %s does not support %s",
			a.Name, modeString(mode))
	}

	s.subs[attHandle] = mode
	return nil
}

func modeString(m subMode) string {
	switch m {
	case subNotify:
		return "notifications"
	case subIndicate:
		return "indications"
	default:
		return "none"
	}
}

func (s *SimServer) Notify(attHandle uint16, val []byte) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	mode := s.subs[attHandle]
	if mode == subNone {
		return 0
	}

	p := Push{
		AttHandle: attHandle,
		Value:     val,
		Indicate:  mode == subIndicate,
	}
	s.pushes = append(s.pushes, p)

	if s.out != nil {
		fmt.Fprintf(s.out, "%s att_handle=%d value=%s\n",
			modeString(mode), attHandle, fdxutil.HexString(val))
	}

	// Completion is reported from outside the queue job that pushed the
	// value.
	acc := s.acc
	sent := BleGattSent{
		Peer:      s.Peer,
		AttHandle: attHandle,
		Indicate:  p.Indicate,
	}
	s.sentWg.Add(1)
	go func() {
		defer s.sentWg.Done()
		acc.Sent(sent)
	}()

	return 1
}

// Pushes lists every value pushed to the simulated central so far.
func (s *SimServer) Pushes() []Push {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return append([]Push(nil), s.pushes...)
}

// WaitSent blocks until every pushed value has been reported as sent.
func (s *SimServer) WaitSent() {
	s.sentWg.Wait()
}
