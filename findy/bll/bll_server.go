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

package bll

import (
	"context"
	"fmt"
	"sync"

	"github.com/JuulLabs-OSS/ble"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	. "github.com/findy-ble/findy/fdxact/bledefs"
	"github.com/findy-ble/findy/fdxact/gatts"
)

// Number of pushed values that may wait for transmission to a single
// subscriber.  Values beyond this are dropped.
const subQueueDepth = 8

type subscriber struct {
	peer     string
	indicate bool
	ch       chan []byte
}

// GattServer publishes an attribute store through the default ble device.
// It implements gatts.Server and gatts.Notifier.
type GattServer struct {
	mtx      sync.Mutex
	acc      gatts.Accessor
	subs     map[uint16]map[*subscriber]struct{}
	svcUuids []ble.UUID

	// Adds a service to the device's GATT database.
	addSvc func(s *ble.Service) error
}

func NewGattServer() *GattServer {
	return &GattServer{
		subs:   map[uint16]map[*subscriber]struct{}{},
		addSvc: ble.AddService,
	}
}

func (s *GattServer) Serve(store *gatts.AttrStore, acc gatts.Accessor) error {
	s.acc = acc

	for _, svc := range store.Services() {
		bsvc := ble.NewService(BllUuidFromUuid(svc.Uuid))

		for _, chr := range svc.Chrs {
			attr := store.FindByUuid(svc.Uuid, chr.Uuid)
			if attr == nil {
				return fmt.Errorf("Characteristic %s not registered",
					chr.Uuid.String())
			}
			s.addChr(bsvc, attr)
		}

		if err := s.addSvc(bsvc); err != nil {
			return errors.Wrapf(err, "failed to add service %s",
				svc.Uuid.String())
		}

		s.svcUuids = append(s.svcUuids, bsvc.UUID)
	}

	store.SetNotifier(s)
	return nil
}

func (s *GattServer) addChr(bsvc *ble.Service, attr *gatts.Attr) {
	c := bsvc.NewCharacteristic(BllUuidFromUuid(attr.ChrUuid))
	h := attr.ValHandle

	if attr.Flags&BLE_GATT_F_READ != 0 {
		c.HandleRead(ble.ReadHandlerFunc(
			func(req ble.Request, rsp ble.ResponseWriter) {
				s.serveRead(h, req, rsp)
			}))
	}
	if attr.Flags&BLE_GATT_F_WRITE != 0 {
		c.HandleWrite(ble.WriteHandlerFunc(
			func(req ble.Request, rsp ble.ResponseWriter) {
				s.serveWrite(h, req, rsp)
			}))
	}
	if attr.Flags&BLE_GATT_F_NOTIFY != 0 {
		c.HandleNotify(ble.NotifyHandlerFunc(
			func(req ble.Request, n ble.Notifier) {
				s.serveSub(h, false, req, n)
			}))
	}
	if attr.Flags&BLE_GATT_F_INDICATE != 0 {
		c.HandleIndicate(ble.NotifyHandlerFunc(
			func(req ble.Request, n ble.Notifier) {
				s.serveSub(h, true, req, n)
			}))
	}
}

func peerString(req ble.Request) string {
	if req == nil || req.Conn() == nil {
		return ""
	}
	return req.Conn().RemoteAddr().String()
}

func (s *GattServer) serveRead(h uint16, req ble.Request,
	rsp ble.ResponseWriter) {

	val, status := s.acc.Read(BleGattRead{
		Peer:      peerString(req),
		AttHandle: h,
	})
	if status != ERR_CODE_ATT_SUCCESS {
		rsp.SetStatus(ble.ATTError(status))
		return
	}

	off := req.Offset()
	if off > len(val) {
		rsp.SetStatus(ble.ATTError(ERR_CODE_ATT_INVALID_OFFSET))
		return
	}

	if _, err := rsp.Write(val[off:]); err != nil {
		log.Debugf("Failed to write read response: %s", err.Error())
	}
}

func (s *GattServer) serveWrite(h uint16, req ble.Request,
	rsp ble.ResponseWriter) {

	// The HCI stack reassembles queued (prepared) writes itself and delivers
	// them at offset 0; only single writes carry the client's offset here.
	status := s.acc.Write(BleGattWrite{
		Peer:      peerString(req),
		AttHandle: h,
		Offset:    req.Offset(),
		Data:      append([]byte(nil), req.Data()...),
	})

	// Writes without response have no response writer.
	if rsp != nil {
		rsp.SetStatus(ble.ATTError(status))
	}
}

// Runs for the lifetime of one subscription, transmitting pushed values in
// order.
func (s *GattServer) serveSub(h uint16, indicate bool, req ble.Request,
	n ble.Notifier) {

	sub := &subscriber{
		peer:     peerString(req),
		indicate: indicate,
		ch:       make(chan []byte, subQueueDepth),
	}

	s.addSub(h, sub)
	defer s.removeSub(h, sub)

	for {
		select {
		case <-n.Context().Done():
			return

		case val := <-sub.ch:
			if _, err := n.Write(val); err != nil {
				log.Debugf("Failed to push value to %s (att_handle=%d): %s",
					sub.peer, h, err.Error())
				continue
			}

			s.acc.Sent(BleGattSent{
				Peer:      sub.peer,
				AttHandle: h,
				Indicate:  indicate,
			})
		}
	}
}

func (s *GattServer) addSub(h uint16, sub *subscriber) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	m := s.subs[h]
	if m == nil {
		m = map[*subscriber]struct{}{}
		s.subs[h] = m
	}
	m[sub] = struct{}{}

	log.Debugf("Subscribed: peer=%s att_handle=%d indicate=%t",
		sub.peer, h, sub.indicate)
}

func (s *GattServer) removeSub(h uint16, sub *subscriber) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.subs[h], sub)

	log.Debugf("Unsubscribed: peer=%s att_handle=%d indicate=%t",
		sub.peer, h, sub.indicate)
}

// Notify queues val for every subscriber of the attribute.  It never
// blocks.  Returns the number of subscribers the value was queued for.
func (s *GattServer) Notify(attHandle uint16, val []byte) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	count := 0
	for sub, _ := range s.subs[attHandle] {
		select {
		case sub.ch <- val:
			count++
		default:
			log.Debugf("Dropping update for slow subscriber %s "+
				"(att_handle=%d)", sub.peer, attHandle)
		}
	}

	return count
}

func (s *GattServer) NumSubs(attHandle uint16) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return len(s.subs[attHandle])
}

func (s *GattServer) ServiceUuids() []ble.UUID {
	return s.svcUuids
}

// Advertise advertises name and the served services until ctx is done.
func (s *GattServer) Advertise(ctx context.Context, name string) error {
	err := ble.AdvertiseNameAndServices(ctx, name, s.svcUuids...)
	if err != nil && ctx.Err() != nil {
		// Cancellation is the normal way to stop advertising.
		return nil
	}
	return err
}
