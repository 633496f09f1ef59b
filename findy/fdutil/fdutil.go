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

package fdutil

import (
	"io"

	"github.com/mitchellh/go-homedir"
	"github.com/tarm/serial"

	"mynewt.apache.org/newt/util"
)

type ToolInfoType struct {
	ExeName       string
	ShortName     string
	LongName      string
	VersionString string
}

var DevString string
var DeviceName string
var HciIdx int
var LogFile string
var ConsoleDev string
var ConsoleBaud int
var ToolInfo ToolInfoType

// ExpandPath resolves a leading "~" in a user-supplied path.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	p, err := homedir.Expand(path)
	if err != nil {
		return "", util.FmtNewtError("Invalid path \"%s\": %s", path,
			err.Error())
	}

	return p, nil
}

// OpenConsole opens the serial port that mirrors diagnostic output.
func OpenConsole(dev string, baud int) (io.WriteCloser, error) {
	c := &serial.Config{
		Name: dev,
		Baud: baud,
	}

	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, util.FmtNewtError("Failed to open console %s: %s", dev,
			err.Error())
	}

	return port, nil
}
