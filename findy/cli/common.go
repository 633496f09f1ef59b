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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"

	"github.com/findy-ble/findy/fdxact/findy"
	"github.com/findy-ble/findy/fdxact/task"
	"github.com/findy-ble/findy/fdxact/telem"
	"github.com/findy-ble/findy/findy/bll"
	"github.com/findy-ble/findy/findy/config"
	"github.com/findy-ble/findy/findy/fdutil"
)

const queueDepth = 16

var globalQueue *task.TaskQueue
var globalXport *bll.BllXport
var globalSink *telem.MqttSink
var globalConsole io.WriteCloser
var globalCancel context.CancelFunc

var onExit func()

func FdSetOnExit(cb func()) {
	onExit = cb
}

func FdExit(code int) {
	if onExit != nil {
		onExit()
	}
	os.Exit(code)
}

func fdUsage(cmd *cobra.Command, err error) {
	if err != nil {
		if sErr, ok := err.(*util.NewtError); ok {
			log.Debugf("%s", sErr.StackTrace)
			fmt.Fprintf(os.Stderr, "Error: %s\n", sErr.Text)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		}
	}

	if cmd != nil {
		fmt.Printf("\n")
		fmt.Printf("%s - ", cmd.Name())
		cmd.Help()
	}

	FdExit(1)
}

// devConfig parses the devstring and applies global flag overrides.
func devConfig(cmd *cobra.Command) (*config.DevConfig, error) {
	dc, err := config.ParseDevString(fdutil.DevString)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("hci") {
		dc.HciIdx = fdutil.HciIdx
	}
	if fdutil.DeviceName != "" {
		dc.Name = fdutil.DeviceName
	}

	return dc, nil
}

func startQueue() (*task.TaskQueue, error) {
	q := task.NewTaskQueue("findy")
	if err := q.Start(queueDepth); err != nil {
		return nil, util.ChildNewtError(err)
	}

	globalQueue = &q
	return globalQueue, nil
}

// startTelem connects the device's battery samples to the configured MQTT
// broker, if any.
func startTelem(dc *config.DevConfig, dev *findy.Device) error {
	mc, ok, err := config.BuildMqttCfg(dc)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	sink := telem.NewMqttSink(mc)
	if err := sink.Start(5 * time.Second); err != nil {
		return util.ChildNewtError(err)
	}

	globalSink = sink
	dev.SetTelemetrySink(sink)
	return nil
}

func StopAll() {
	if globalCancel != nil {
		globalCancel()
		globalCancel = nil
	}

	if globalQueue != nil {
		globalQueue.Stop(fmt.Errorf("shutting down"))
		globalQueue = nil
	}

	if globalXport != nil {
		if err := globalXport.Stop(); err != nil {
			log.Debugf("Failed to stop BLE transport: %s", err.Error())
		}
		globalXport = nil
	}

	if globalSink != nil {
		globalSink.Stop()
		globalSink = nil
	}

	if globalConsole != nil {
		globalConsole.Close()
		globalConsole = nil
	}
}
