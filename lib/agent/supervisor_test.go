// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
)

func newTestSupervisor(t *testing.T, script string) (*Supervisor, chan Exit, chan logrecord.Record) {
	t.Helper()
	exits := make(chan Exit, 4)
	records := make(chan logrecord.Record, 16)
	supervisor := NewSupervisor(Options{
		Project:   "api",
		Command:   []string{"/bin/sh", "-c", script},
		Sender:    &recordingSender{},
		Logger:    discardLogger(),
		WaitDelay: 2 * time.Second,
		OnRecord: func(record logrecord.Record) {
			records <- record
		},
	}, func(exit Exit) {
		exits <- exit
	})
	t.Cleanup(supervisor.Stop)
	return supervisor, exits, records
}

func receiveExit(t *testing.T, exits <-chan Exit) Exit {
	t.Helper()
	select {
	case exit := <-exits:
		return exit
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the command to exit")
		return Exit{}
	}
}

func TestSupervisorReportsExit(t *testing.T) {
	t.Parallel()

	supervisor, exits, records := newTestSupervisor(t, "echo ready; exit 3")
	launch, err := supervisor.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if launch.PID <= 0 || launch.Generation != 1 {
		t.Errorf("launch = %+v", launch)
	}

	exit := receiveExit(t, exits)
	if exit.Launch != launch || exit.Result.ExitCode != 3 || exit.Stopped || exit.Err != nil {
		t.Errorf("exit = %+v", exit)
	}
	select {
	case record := <-records:
		if record.Data.Message != "ready" || record.Data.PID != int64(launch.PID) {
			t.Errorf("record = %+v", record.Data)
		}
	default:
		t.Error("OnRecord was not called")
	}
	if _, running := supervisor.Running(); running {
		t.Error("Running after exit")
	}
}

func TestSupervisorRestart(t *testing.T) {
	t.Parallel()

	supervisor, exits, _ := newTestSupervisor(t, "sleep 30")
	first, err := supervisor.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := supervisor.Start(context.Background()); err == nil {
		t.Error("second Start while running should fail")
	}

	second, err := supervisor.Restart(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.Generation != first.Generation+1 || second.PID == first.PID {
		t.Errorf("restart launch = %+v after %+v", second, first)
	}

	exit := receiveExit(t, exits)
	if exit.Launch != first || !exit.Stopped {
		t.Errorf("exit = %+v, want the stopped first launch", exit)
	}
	if current, running := supervisor.Running(); !running || current != second {
		t.Errorf("Running = %+v, %v", current, running)
	}

	supervisor.Stop()
	if exit := receiveExit(t, exits); exit.Launch != second || !exit.Stopped {
		t.Errorf("exit = %+v, want the stopped second launch", exit)
	}
	supervisor.Stop()
}

func TestSupervisorStartFailure(t *testing.T) {
	t.Parallel()

	exits := make(chan Exit, 1)
	supervisor := NewSupervisor(Options{
		Project: "api",
		Command: []string{"/nonexistent/logrelay-test-binary"},
		Sender:  &recordingSender{},
		Logger:  discardLogger(),
	}, func(exit Exit) { exits <- exit })

	if _, err := supervisor.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded for a missing binary")
	}
	if _, running := supervisor.Running(); running {
		t.Error("Running after a failed start")
	}
	select {
	case exit := <-exits:
		t.Errorf("unexpected exit %+v", exit)
	case <-time.After(50 * time.Millisecond):
	}
}
