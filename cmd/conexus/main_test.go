package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newtron-network/conexus/internal/testutil"
	"github.com/newtron-network/conexus/pkg/audit"
	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/batch"
	"github.com/newtron-network/conexus/pkg/cli"
	"github.com/newtron-network/conexus/pkg/model"
)

const twoLines = `t-1,acme,img-1,m1.small,2,192.168.10.0/24,100,physnet1,10.100.0.0/24,172.16.100.0/24
t-9,nobody,img-1,m1.small,1,192.168.20.0/24,200,physnet1,10.200.0.0/24,172.16.200.0/24
`

type harness struct {
	dir   string
	out   *bytes.Buffer
	cloud *testutil.FakeCloud
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clearEnv(t)
	cli.SetColor(false)
	dir := t.TempDir()
	t.Setenv("CONEXUS_SETTINGS", filepath.Join(dir, "settings.json"))
	return &harness{
		dir:   dir,
		out:   &bytes.Buffer{},
		cloud: testutil.NewFakeCloud(model.Tenant{ID: "t-1", Name: "acme"}),
	}
}

func (h *harness) writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, "local.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (h *harness) execute(args ...string) error {
	app := newApp()
	app.out = h.out
	app.connect = func(ctx context.Context, opts Options) (backend.Cloud, func(), error) {
		return h.cloud, func() {}, nil
	}
	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func (h *harness) auditLog() string {
	return filepath.Join(h.dir, "audit.log")
}

func TestRunCommand(t *testing.T) {
	h := newHarness(t)
	conf := h.writeConfig(t, twoLines)
	report := filepath.Join(h.dir, "run.yaml")

	err := h.execute("run", "--backend", "lab", "-c", conf,
		"--audit-log", h.auditLog(), "--report", report,
		"--poll-interval", "1ms", "--ready-timeout", "10ms")
	if !errors.Is(err, errIncomplete) {
		t.Fatalf("run error = %v, want errIncomplete (line 2 names an unknown tenant)", err)
	}

	out := h.out.String()
	for _, want := range []string{"LINE", "provisioned", "rejected", "tenant not found", "1 provisioned, 1 rejected, 0 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := h.cloud.CallCount("CreateServer"); n != 2 {
		t.Errorf("CreateServer calls = %d, want 2", n)
	}

	summary, err := batch.ReadReport(report)
	if err != nil {
		t.Fatalf("ReadReport() error: %v", err)
	}
	if summary.Config != conf || len(summary.Lines) != 2 {
		t.Errorf("report config=%q lines=%d, want %q and 2", summary.Config, len(summary.Lines), conf)
	}

	events, err := audit.QueryFile(h.auditLog(), audit.Filter{})
	if err != nil {
		t.Fatalf("QueryFile() error: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("no audit events written")
	}
	if events[0].RunID != summary.RunID {
		t.Errorf("event run id = %q, want %q", events[0].RunID, summary.RunID)
	}
}

func TestRunCommand_AllProvisioned(t *testing.T) {
	h := newHarness(t)
	conf := h.writeConfig(t, strings.SplitAfter(twoLines, "\n")[0])

	err := h.execute("run", "--backend", "lab", "-c", conf, "--audit-log", h.auditLog(),
		"--poll-interval", "1ms", "--ready-timeout", "10ms")
	if err != nil {
		t.Fatalf("run error = %v, want nil", err)
	}
}

func TestRunCommand_MissingCredential(t *testing.T) {
	h := newHarness(t)
	conf := h.writeConfig(t, twoLines)

	err := h.execute("run", "-c", conf, "--audit-log", h.auditLog())
	if err == nil || !strings.Contains(err.Error(), "--os-username") {
		t.Fatalf("run error = %v, want missing --os-username", err)
	}
	if n := len(h.cloud.Calls); n != 0 {
		t.Errorf("backend calls = %d, want 0", n)
	}
}

func TestRunCommand_MissingConfig(t *testing.T) {
	h := newHarness(t)
	err := h.execute("run", "--backend", "lab", "-c", filepath.Join(h.dir, "absent.conf"))
	if err == nil {
		t.Fatal("run error = nil, want error for a missing file")
	}
}

func TestValidateCommand(t *testing.T) {
	h := newHarness(t)
	conf := h.writeConfig(t, twoLines)

	err := h.execute("validate", "--backend", "lab", "-c", conf, "--audit-log", h.auditLog())
	if !errors.Is(err, errIncomplete) {
		t.Fatalf("validate error = %v, want errIncomplete", err)
	}
	out := h.out.String()
	if !strings.Contains(out, "line 1 (acme)") || !strings.Contains(out, "1 valid, 1 rejected") {
		t.Errorf("unexpected output:\n%s", out)
	}
	for _, op := range []string{"CreateRouter", "CreateNetwork", "CreateSubnet", "CreateServer"} {
		if n := h.cloud.CallCount(op); n != 0 {
			t.Errorf("%s calls = %d, want 0", op, n)
		}
	}
}

func TestNamesCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "distinct",
			args: []string{"names", "2001"},
			want: []string{"CONEXUS_ROUTER_2001", "CONEXUS_OVERLAY_SUBNET_2001", "DMZ_SUBNET_2001"},
		},
		{
			name: "legacy",
			args: []string{"names", "2001", "--naming", "legacy"},
			want: []string{"CONEXUS_TRANSIT_2001", "DMZ_NETWORK_2001"},
		},
		{
			name: "transit host",
			args: []string{"names", "100", "10.0.0.0/24"},
			want: []string{"Transit host: 10.0.0.7"},
		},
		{name: "vlan out of range", args: []string{"names", "4095"}, wantErr: true},
		{name: "vlan not a number", args: []string{"names", "abc"}, wantErr: true},
		{name: "subnet too small", args: []string{"names", "100", "10.0.0.0/30"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.execute(tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("names error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(h.out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, h.out.String())
				}
			}
		})
	}
}

func TestSettingsCommands(t *testing.T) {
	h := newHarness(t)

	if err := h.execute("settings", "set", "os-auth-url", "http://keystone:5000/v3"); err != nil {
		t.Fatalf("settings set error: %v", err)
	}
	h.out.Reset()
	if err := h.execute("settings", "get", "os-auth-url"); err != nil {
		t.Fatalf("settings get error: %v", err)
	}
	if got := strings.TrimSpace(h.out.String()); got != "http://keystone:5000/v3" {
		t.Errorf("settings get = %q, want http://keystone:5000/v3", got)
	}

	if err := h.execute("settings", "set", "os-password", "secret"); err == nil {
		t.Error("settings set os-password succeeded, want error")
	}
	if err := h.execute("settings", "set", "backend", "aws"); err == nil {
		t.Error("settings set backend aws succeeded, want error")
	}

	if err := h.execute("settings", "clear"); err != nil {
		t.Fatalf("settings clear error: %v", err)
	}
	h.out.Reset()
	if err := h.execute("settings", "get", "os-auth-url"); err != nil {
		t.Fatalf("settings get error: %v", err)
	}
	if got := strings.TrimSpace(h.out.String()); got != "(not set)" {
		t.Errorf("settings get after clear = %q, want (not set)", got)
	}
}

func TestAuditListCommand(t *testing.T) {
	h := newHarness(t)
	conf := h.writeConfig(t, twoLines)
	_ = h.execute("run", "--backend", "lab", "-c", conf, "--audit-log", h.auditLog(),
		"--poll-interval", "1ms", "--ready-timeout", "10ms")

	h.out.Reset()
	if err := h.execute("audit", "list", "--failures", "--audit-log", h.auditLog()); err != nil {
		t.Fatalf("audit list error: %v", err)
	}
	out := h.out.String()
	if !strings.Contains(out, "t-9") || !strings.Contains(out, "rejected") {
		t.Errorf("failures listing missing the rejected line:\n%s", out)
	}
	if strings.Contains(out, "created") {
		t.Errorf("failures listing contains successful events:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t)
	if err := h.execute("version"); err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(h.out.String(), "conexus ") {
		t.Errorf("version output = %q, want conexus prefix", h.out.String())
	}
}

func TestReportShowCommand(t *testing.T) {
	h := newHarness(t)
	conf := h.writeConfig(t, twoLines)
	report := filepath.Join(h.dir, "run.yaml")
	_ = h.execute("run", "--backend", "lab", "-c", conf, "--audit-log", h.auditLog(),
		"--report", report, "--poll-interval", "1ms", "--ready-timeout", "10ms")

	h.out.Reset()
	if err := h.execute("report", "show", report); err != nil {
		t.Fatalf("report show error: %v", err)
	}
	out := h.out.String()
	for _, want := range []string{conf, "tenant not found", "1 provisioned, 1 rejected, 0 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if err := h.execute("report", "show", filepath.Join(h.dir, "absent.yaml")); err == nil {
		t.Error("report show of a missing file succeeded, want error")
	}
}

func TestNoColorFlag(t *testing.T) {
	h := newHarness(t)
	cli.SetColor(true)
	defer cli.SetColor(false)

	if err := h.execute("--no-color", "names", "100"); err != nil {
		t.Fatalf("names error: %v", err)
	}
	if got := cli.Green("x"); got != "x" {
		t.Errorf("Green() after --no-color = %q, want plain text", got)
	}
}

func TestLabRows(t *testing.T) {
	rows := labRows(map[string]string{
		"name":             "CONEXUS_TRANSIT_SUBNET_100",
		"cidr":             "10.100.0.0/24",
		"allocation_pools": "10.100.0.7-10.100.0.7,10.100.0.20-10.100.0.30",
	})

	want := [][2]string{
		{"allocation_pool", "10.100.0.7 - 10.100.0.7"},
		{"allocation_pool", "10.100.0.20 - 10.100.0.30"},
		{"cidr", "10.100.0.0/24"},
		{"name", "CONEXUS_TRANSIT_SUBNET_100"},
	}
	if len(rows) != len(want) {
		t.Fatalf("labRows() = %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("labRows()[%d] = %v, want %v", i, rows[i], want[i])
		}
	}
}
