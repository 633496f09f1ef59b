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

// Package power puts the host into its low-power state at boot and on each
// idle cycle.
package power

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Saver interface {
	Save() error
}

type NopSaver struct{}

func (s NopSaver) Save() error {
	return nil
}

const (
	DfltSysfsRoot     = "/sys/devices/system/cpu"
	PowersaveGovernor = "powersave"
)

// CpufreqSaver selects the powersave cpufreq governor on every CPU.  CPUs
// already running the governor are left alone.
type CpufreqSaver struct {
	Root string
}

func NewCpufreqSaver() *CpufreqSaver {
	return &CpufreqSaver{
		Root: DfltSysfsRoot,
	}
}

func (s *CpufreqSaver) Save() error {
	paths, err := filepath.Glob(filepath.Join(s.Root, "cpu[0-9]*",
		"cpufreq", "scaling_governor"))
	if err != nil {
		return errors.Wrapf(err, "failed to list cpufreq governors")
	}

	for _, p := range paths {
		cur, err := ioutil.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", p)
		}
		if strings.TrimSpace(string(cur)) == PowersaveGovernor {
			continue
		}

		if err := ioutil.WriteFile(p, []byte(PowersaveGovernor), 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", p)
		}
		log.Debugf("%s: %s -> %s", p, strings.TrimSpace(string(cur)),
			PowersaveGovernor)
	}

	return nil
}
