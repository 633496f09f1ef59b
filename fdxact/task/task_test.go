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

package task

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRunOrder(t *testing.T) {
	q := NewTaskQueue("test")
	if err := q.Start(8); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer q.Stop(fmt.Errorf("done"))

	var order []int
	var chs []chan error
	for i := 0; i < 5; i++ {
		i := i
		chs = append(chs, q.Enqueue(func() error {
			order = append(order, i)
			return nil
		}))
	}
	for _, ch := range chs {
		if err := <-ch; err != nil {
			t.Fatalf("job failed: %v", err)
		}
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("jobs ran out of order: %v", order)
		}
	}
}

func TestRunReturnsJobError(t *testing.T) {
	q := NewTaskQueue("test")
	q.Start(1)
	defer q.Stop(fmt.Errorf("done"))

	want := fmt.Errorf("boom")
	if err := q.Run(func() error { return want }); err != want {
		t.Errorf("Run() = %v; want %v", err, want)
	}
}

func TestInactive(t *testing.T) {
	q := NewTaskQueue("test")

	if err := q.Run(func() error { return nil }); err != InactiveError {
		t.Errorf("Run() on unstarted queue = %v; want InactiveError", err)
	}
	if err := q.CallEvery(time.Second, "tick",
		func() error { return nil }); err != InactiveError {

		t.Errorf("CallEvery() on unstarted queue = %v; want InactiveError",
			err)
	}

	q.Start(1)
	if err := q.Start(1); err == nil {
		t.Errorf("second Start() succeeded")
	}
	q.Stop(fmt.Errorf("done"))

	if q.Active() {
		t.Errorf("queue active after Stop()")
	}
	if err := q.Stop(fmt.Errorf("done")); err == nil {
		t.Errorf("second Stop() succeeded")
	}
}

func TestCallEvery(t *testing.T) {
	q := NewTaskQueue("test")
	q.Start(4)

	var mtx sync.Mutex
	count := 0
	err := q.CallEvery(10*time.Millisecond, "count", func() error {
		mtx.Lock()
		count++
		mtx.Unlock()
		return fmt.Errorf("periodic jobs keep running after errors")
	})
	if err != nil {
		t.Fatalf("CallEvery: %v", err)
	}

	if err := q.CallEvery(0, "bad", func() error { return nil }); err == nil {
		t.Errorf("CallEvery() accepted a zero period")
	}

	time.Sleep(100 * time.Millisecond)
	q.Stop(fmt.Errorf("done"))

	mtx.Lock()
	n := count
	mtx.Unlock()
	if n < 3 {
		t.Fatalf("periodic job ran %d times; want at least 3", n)
	}

	time.Sleep(30 * time.Millisecond)
	mtx.Lock()
	defer mtx.Unlock()
	if count != n {
		t.Errorf("periodic job ran after Stop()")
	}
}

func TestPeriodicJobsSerialized(t *testing.T) {
	q := NewTaskQueue("test")
	q.Start(4)

	var mtx sync.Mutex
	running := 0
	overlap := false

	job := func() error {
		mtx.Lock()
		running++
		if running > 1 {
			overlap = true
		}
		mtx.Unlock()

		time.Sleep(5 * time.Millisecond)

		mtx.Lock()
		running--
		mtx.Unlock()
		return nil
	}

	q.CallEvery(3*time.Millisecond, "a", job)
	q.CallEvery(4*time.Millisecond, "b", job)
	time.Sleep(60 * time.Millisecond)
	q.Stop(fmt.Errorf("done"))

	if overlap {
		t.Errorf("periodic jobs ran concurrently")
	}
}

func TestCallEveryDropsTicks(t *testing.T) {
	q := NewTaskQueue("test")
	q.Start(4)

	var mtx sync.Mutex
	runs := 0
	q.CallEvery(10*time.Millisecond, "slow", func() error {
		mtx.Lock()
		runs++
		mtx.Unlock()

		time.Sleep(50 * time.Millisecond)
		return nil
	})

	time.Sleep(205 * time.Millisecond)
	q.Stop(fmt.Errorf("done"))

	mtx.Lock()
	defer mtx.Unlock()

	// A backlog of missed ticks would give one run per period.
	if runs < 2 || runs > 6 {
		t.Errorf("slow periodic job ran %d times in 205ms; want about 4",
			runs)
	}
}
