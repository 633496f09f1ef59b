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

	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/findy-ble/findy/fdxact/melody"
	"github.com/findy-ble/findy/findy/config"
)

func playRunCmd(cmd *cobra.Command, args []string) {
	dc, err := devConfig(cmd)
	if err != nil {
		fdUsage(nil, err)
	}

	pwm, err := config.BuildPwm(dc)
	if err != nil {
		fdUsage(nil, err)
	}

	player := melody.NewPlayer(pwm, nil)

	bar := pb.StartNew(melody.NumPatterns)
	player.PlayAll(func(idx int) {
		bar.Increment()
	})
	bar.Finish()

	fmt.Printf("Done\n")
}

func playCmd() *cobra.Command {
	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Play the melody once on the buzzer",
		Run:   playRunCmd,
	}

	return playCmd
}
