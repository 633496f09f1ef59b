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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"

	"github.com/findy-ble/findy/fdxact/sensor"
	"github.com/findy-ble/findy/findy/config"
)

func sampleRunCmd(cmd *cobra.Command, args []string) {
	dc, err := devConfig(cmd)
	if err != nil {
		fdUsage(nil, err)
	}

	count, err := cmd.Flags().GetInt("count")
	if err != nil || count < 1 {
		fdUsage(cmd, util.FmtNewtError("Invalid count"))
	}

	adc, err := config.BuildAdc(dc)
	if err != nil {
		fdUsage(nil, err)
	}

	s := sensor.NewSampler(adc, nil, 0)
	for i := 0; i < count; i++ {
		if i > 0 {
			time.Sleep(2000 * time.Millisecond)
		}

		r, err := s.Sample()
		if err != nil {
			fdUsage(nil, util.ChildNewtError(err))
		}
		fmt.Printf("sample=%.4f %s\n", r.Sample, r.String())
	}
}

func sampleCmd() *cobra.Command {
	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Read the battery level from the ADC",
		Run:   sampleRunCmd,
	}

	sampleCmd.Flags().IntP("count", "n", 1, "number of samples to take")

	return sampleCmd
}
