// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package monitor

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/tomtom215/vigil/internal/models"
	"github.com/tomtom215/vigil/internal/pipeline"
	"github.com/tomtom215/vigil/internal/risk"
	"github.com/tomtom215/vigil/internal/store"
)

func newTestSimulator(t *testing.T, cfg Config) (*Simulator, *store.Store) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	ing := pipeline.NewIngestor(pipeline.Config{}, s, s, s, risk.NewEngine(nil), nil, nil)
	return NewSimulator(cfg, s, ing), s
}

func saveUser(t *testing.T, s *store.Store, id string, consent bool) {
	t.Helper()
	err := s.SaveUser(context.Background(), &models.User{
		ID: id, Name: id, Role: "student", ConsentGiven: consent,
	})
	if err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
}

func TestRunPassProvisionsDefaultDevice(t *testing.T) {
	sim, s := newTestSimulator(t, Config{})
	ctx := context.Background()
	saveUser(t, s, "alice", true)

	if err := sim.RunPass(ctx); err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	devices, err := s.ListDevices(ctx, "alice")
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1 auto-provisioned", len(devices))
	}
	if devices[0].Name != defaultDeviceName || devices[0].Type != defaultDeviceType {
		t.Errorf("default device = %q/%q, want %q/%q",
			devices[0].Name, devices[0].Type, defaultDeviceName, defaultDeviceType)
	}

	events, err := s.AllEvents(ctx, "alice")
	if err != nil {
		t.Fatalf("AllEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events after one pass, want 1", len(events))
	}
	if events[0].DeviceID != devices[0].ID {
		t.Errorf("event device = %q, want %q", events[0].DeviceID, devices[0].ID)
	}
}

func TestRunPassSkipsNonConsentingUsers(t *testing.T) {
	sim, s := newTestSimulator(t, Config{})
	ctx := context.Background()
	saveUser(t, s, "alice", true)
	saveUser(t, s, "bob", false)

	if err := sim.RunPass(ctx); err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	events, err := s.AllEvents(ctx, "bob")
	if err != nil {
		t.Fatalf("AllEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("non-consenting user received %d events, want 0", len(events))
	}
}

func TestRunPassCoversEveryDevice(t *testing.T) {
	sim, s := newTestSimulator(t, Config{})
	ctx := context.Background()
	saveUser(t, s, "carol", true)
	for _, id := range []string{"d1", "d2", "d3"} {
		err := s.SaveDevice(ctx, &models.Device{ID: id, UserID: "carol", Name: id, Type: "tablet"})
		if err != nil {
			t.Fatalf("SaveDevice: %v", err)
		}
	}

	if err := sim.RunPass(ctx); err != nil {
		t.Fatalf("RunPass: %v", err)
	}

	events, err := s.AllEvents(ctx, "carol")
	if err != nil {
		t.Fatalf("AllEvents: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("got %d events, want one per device (3)", len(events))
	}
}

func TestBaselineRefreshAfterConfiguredPasses(t *testing.T) {
	sim, s := newTestSimulator(t, Config{BaselineRefreshEvery: 2})
	ctx := context.Background()
	saveUser(t, s, "alice", true)

	if err := sim.RunPass(ctx); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	b, err := s.GetBaseline(ctx, "alice")
	if err != nil {
		t.Fatalf("GetBaseline: %v", err)
	}
	if b != nil {
		t.Fatalf("baseline present after 1 of 2 passes: %+v", b)
	}

	if err := sim.RunPass(ctx); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	b, err = s.GetBaseline(ctx, "alice")
	if err != nil {
		t.Fatalf("GetBaseline: %v", err)
	}
	if b == nil {
		t.Fatal("baseline missing after refresh pass")
	}
	if b.UserID != "alice" || b.ComputedAt.IsZero() {
		t.Errorf("refreshed baseline = %+v", b)
	}
}

func TestGenerateEventProfiles(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	isSuspicious := func(app string) bool {
		for _, s := range suspiciousApps {
			if s == app {
				return true
			}
		}
		return false
	}

	t.Run("anomalous", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			e := generateEvent(rng, "u", "d", 1.0)
			if !e.AnomalyFlag {
				t.Fatal("anomaly flag not set with chance 1.0")
			}
			if !isSuspicious(e.AppName) {
				t.Errorf("anomalous event from benign app %q", e.AppName)
			}
			if !e.HasPermission() {
				t.Error("anomalous event without sensitive permission")
			}
			if e.NetworkActivityLevel < 60 || e.NetworkActivityLevel > 100 {
				t.Errorf("anomalous network level = %v, want [60,100]", e.NetworkActivityLevel)
			}
			if !e.BackgroundProcess {
				t.Error("anomalous event without background process")
			}
		}
	})

	t.Run("benign", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			e := generateEvent(rng, "u", "d", 0.0)
			if e.AnomalyFlag {
				t.Fatal("anomaly flag set with chance 0")
			}
			if isSuspicious(e.AppName) {
				t.Errorf("benign event from suspicious app %q", e.AppName)
			}
			if e.NetworkActivityLevel < 0 || e.NetworkActivityLevel > 40 {
				t.Errorf("benign network level = %v, want [0,40]", e.NetworkActivityLevel)
			}
		}
	})
}

func TestGenerateEventDeterministicWithSeed(t *testing.T) {
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		ea := generateEvent(a, "u", "d", 0.2)
		eb := generateEvent(b, "u", "d", 0.2)
		if ea.AppName != eb.AppName ||
			ea.PermissionRequested != eb.PermissionRequested ||
			ea.NetworkActivityLevel != eb.NetworkActivityLevel ||
			ea.AnomalyFlag != eb.AnomalyFlag {
			t.Fatalf("divergence at event %d: %+v vs %+v", i, ea, eb)
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	sim, _ := newTestSimulator(t, Config{Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sim.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
