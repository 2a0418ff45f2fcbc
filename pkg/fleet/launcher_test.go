package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newtron-network/conexus/internal/testutil"
	"github.com/newtron-network/conexus/pkg/model"
)

func newFleetCloud() *testutil.FakeCloud {
	cloud := testutil.NewFakeCloud()
	cloud.Networks = []model.Resource{
		{ID: "net-dmz", Name: "DMZ_NETWORK_100", TenantID: "t"},
		{ID: "net-overlay", Name: "CONEXUS_OVERLAY_100", TenantID: "t"},
	}
	return cloud
}

func newTestLauncher(cloud *testutil.FakeCloud) *Launcher {
	l := NewLauncher(cloud)
	l.PollInterval = time.Millisecond
	l.ReadyTimeout = 20 * time.Millisecond
	return l
}

func fleetRequest(count int) Request {
	return Request{
		TenantID:         "t",
		Line:             4,
		ImageID:          "img-1",
		FlavorID:         "m1.small",
		Count:            count,
		DMZNetworkID:     "net-dmz",
		OverlayNetworkID: "net-overlay",
	}
}

func TestLaunch_CreatesCountInstances(t *testing.T) {
	cloud := newFleetCloud()
	instances := newTestLauncher(cloud).Launch(context.Background(), fleetRequest(3))

	calls := cloud.CallsFor("CreateServer")
	if len(calls) != 3 {
		t.Fatalf("CreateServer called %d times, want 3", len(calls))
	}
	wantNames := []string{"PaaS-VM-0", "PaaS-VM-1", "PaaS-VM-2"}
	for i, c := range calls {
		if c.Args[0] != wantNames[i] {
			t.Errorf("instance %d name = %q, want %q", i, c.Args[0], wantNames[i])
		}
		if c.Args[1] != "img-1" || c.Args[2] != "m1.small" {
			t.Errorf("instance %d image/flavor = %v", i, c.Args[1:])
		}
	}
	for i, spec := range cloud.ServerSpecs {
		if len(spec.NetworkIDs) != 2 || spec.NetworkIDs[0] != "net-dmz" || spec.NetworkIDs[1] != "net-overlay" {
			t.Errorf("instance %d networks = %v, want [net-dmz net-overlay]", i, spec.NetworkIDs)
		}
	}

	if len(instances) != 3 {
		t.Fatalf("Launch() returned %d instances, want 3", len(instances))
	}
	for _, inst := range instances {
		if inst.Err != nil || inst.Status != model.ServerStatusActive || inst.ID == "" {
			t.Errorf("instance %+v, want ACTIVE without error", inst)
		}
	}
}

func TestLaunch_ZeroCount(t *testing.T) {
	cloud := newFleetCloud()
	if got := newTestLauncher(cloud).Launch(context.Background(), fleetRequest(0)); len(got) != 0 {
		t.Errorf("Launch() returned %d instances, want 0", len(got))
	}
	if n := cloud.CallCount("CreateServer"); n != 0 {
		t.Errorf("CreateServer called %d times, want 0", n)
	}
}

func TestLaunch_ErrorStateDoesNotAbortFleet(t *testing.T) {
	cloud := newFleetCloud()
	cloud.StatusSequence["PaaS-VM-1"] = []string{model.ServerStatusBuild, model.ServerStatusError}

	instances := newTestLauncher(cloud).Launch(context.Background(), fleetRequest(3))
	if len(instances) != 3 {
		t.Fatalf("Launch() returned %d instances, want 3", len(instances))
	}

	bad := instances[1]
	if !errors.Is(bad.Err, ErrServerFailed) || !bad.Failed() {
		t.Errorf("instance 1 Err = %v, want ErrServerFailed", bad.Err)
	}
	if bad.Status != model.ServerStatusError {
		t.Errorf("instance 1 Status = %q, want ERROR", bad.Status)
	}
	if instances[2].Err != nil {
		t.Errorf("instance 2 should launch normally: %v", instances[2].Err)
	}

	// ERROR is terminal: one BUILD poll and one ERROR poll.
	polls := 0
	for _, c := range cloud.CallsFor("GetServer") {
		if c.Args[0] == bad.ID {
			polls++
		}
	}
	if polls != 2 {
		t.Errorf("instance 1 polled %d times, want 2", polls)
	}
}

func TestLaunch_PollsUntilActive(t *testing.T) {
	cloud := newFleetCloud()
	cloud.StatusSequence["PaaS-VM-0"] = []string{"BUILD", "BUILD", "ACTIVE"}

	instances := newTestLauncher(cloud).Launch(context.Background(), fleetRequest(1))
	if instances[0].Err != nil || instances[0].Status != model.ServerStatusActive {
		t.Errorf("instance = %+v, want ACTIVE", instances[0])
	}
	if n := cloud.CallCount("GetServer"); n != 3 {
		t.Errorf("GetServer called %d times, want 3", n)
	}
}

func TestLaunch_NotReadyBeforeTimeout(t *testing.T) {
	cloud := newFleetCloud()
	cloud.StatusSequence["PaaS-VM-0"] = []string{"BUILD"}

	l := newTestLauncher(cloud)
	l.ReadyTimeout = 3 * time.Millisecond
	instances := l.Launch(context.Background(), fleetRequest(1))

	inst := instances[0]
	if !errors.Is(inst.Err, ErrNotReady) {
		t.Fatalf("Err = %v, want ErrNotReady", inst.Err)
	}
	if inst.Failed() {
		t.Error("an instance still building is not a failure")
	}
	if inst.Status != model.ServerStatusBuild {
		t.Errorf("Status = %q, want BUILD", inst.Status)
	}
	if n := cloud.CallCount("GetServer"); n != 4 {
		t.Errorf("GetServer called %d times, want 4", n)
	}
}

func TestLaunch_CreateFailureContinues(t *testing.T) {
	cloud := newFleetCloud()
	cloud.FailName["PaaS-VM-0"] = errors.New("quota exceeded")

	instances := newTestLauncher(cloud).Launch(context.Background(), fleetRequest(2))
	if len(instances) != 2 {
		t.Fatalf("Launch() returned %d instances, want 2", len(instances))
	}
	if !instances[0].Failed() || instances[0].ID != "" {
		t.Errorf("instance 0 = %+v, want failed without id", instances[0])
	}
	if instances[1].Err != nil {
		t.Errorf("instance 1 Err = %v, want nil", instances[1].Err)
	}
}

func TestLaunch_CancelledContext(t *testing.T) {
	cloud := newFleetCloud()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	instances := newTestLauncher(cloud).Launch(ctx, fleetRequest(3))
	if len(instances) != 0 {
		t.Errorf("Launch() returned %d instances, want 0", len(instances))
	}
	if n := cloud.CallCount("CreateServer"); n != 0 {
		t.Errorf("CreateServer called %d times after cancel, want 0", n)
	}
}

func TestLaunch_CustomPrefix(t *testing.T) {
	cloud := newFleetCloud()
	l := newTestLauncher(cloud)
	l.NamePrefix = "edge-"

	instances := l.Launch(context.Background(), fleetRequest(2))
	if instances[0].Name != "edge-0" || instances[1].Name != "edge-1" {
		t.Errorf("names = %q, %q; want edge-0, edge-1", instances[0].Name, instances[1].Name)
	}
}
