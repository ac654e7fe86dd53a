package gmp

import (
	"context"
	"encoding/xml"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
)

// node is a generic XML element as received by the fake server.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *node) child(name string) *node {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == name {
			return &n.Nodes[i]
		}
	}
	return &node{}
}

type handler func(cmd *node) string

// fakeGVM answers GMP commands over an in-memory pipe.
type fakeGVM struct {
	mu       sync.Mutex
	received []node
}

func (f *fakeGVM) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.received))
	for _, n := range f.received {
		names = append(names, n.XMLName.Local)
	}
	return names
}

func (f *fakeGVM) last() node {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received[len(f.received)-1]
}

func startFakeGVM(t *testing.T, handlers map[string]handler) (*Session, *fakeGVM) {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	fake := &fakeGVM{}

	go func() {
		dec := xml.NewDecoder(serverConn)
		for {
			var cmd node
			if err := dec.Decode(&cmd); err != nil {
				return
			}
			fake.mu.Lock()
			fake.received = append(fake.received, cmd)
			fake.mu.Unlock()

			out := `<gmp_response status="400" status_text="Bogus command name"/>`
			if h, ok := handlers[cmd.XMLName.Local]; ok {
				out = h(&cmd)
			}
			if _, err := io.WriteString(serverConn, out); err != nil {
				return
			}
		}
	}()

	t.Cleanup(func() {
		_ = clientConn.Close()
		_ = serverConn.Close()
	})

	return NewSession(NewConn(clientConn, time.Second), logging.NewDiscard()), fake
}

func reply(body string) handler {
	return func(*node) string { return body }
}

func TestAuthenticate(t *testing.T) {
	s, fake := startFakeGVM(t, map[string]handler{
		"authenticate": func(cmd *node) string {
			creds := cmd.child("credentials")
			if creds.child("username").Content == "admin" && creds.child("password").Content == "secret" {
				return `<authenticate_response status="200" status_text="OK"><role>Admin</role></authenticate_response>`
			}
			return `<authenticate_response status="400" status_text="Authentication failed"/>`
		},
	})

	require.NoError(t, s.Authenticate(context.Background(), "admin", "secret"))

	err := s.Authenticate(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeAuthenticationFailure))
	assert.Contains(t, err.Error(), "Authentication failed")
	assert.Equal(t, []string{"authenticate", "authenticate"}, fake.commands())
}

func TestVersion(t *testing.T) {
	s, _ := startFakeGVM(t, map[string]handler{
		"get_version": reply(`<get_version_response status="200" status_text="OK"><version> 22.5 </version></get_version_response>`),
	})

	version, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "22.5", version)
}

func TestListOperations(t *testing.T) {
	s, fake := startFakeGVM(t, map[string]handler{
		"get_port_lists": reply(`<get_port_lists_response status="200" status_text="OK">
			<port_list id="pl-1"><name>All IANA assigned TCP</name></port_list>
			<port_list id="pl-2"><name>All TCP and Nmap top 100 UDP</name></port_list>
		</get_port_lists_response>`),
		"get_configs": reply(`<get_configs_response status="200" status_text="OK">
			<config id="cfg-1"><name>Base</name></config>
			<config id="cfg-2"><name>Discovery</name></config>
		</get_configs_response>`),
		"get_scanners": reply(`<get_scanners_response status="200" status_text="OK">
			<scanner id="sc-1"><name>CVE</name><type>3</type></scanner>
			<scanner id="sc-2"><name>OpenVAS Default</name><type> 2 </type></scanner>
		</get_scanners_response>`),
		"get_targets": reply(`<get_targets_response status="200" status_text="OK">
			<target id="t-1"><name>Target-10-0-0-1</name><hosts>10.0.0.1</hosts></target>
		</get_targets_response>`),
	})
	ctx := context.Background()

	portLists, err := s.PortLists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PortList{{ID: "pl-1", Name: "All IANA assigned TCP"}, {ID: "pl-2", Name: "All TCP and Nmap top 100 UDP"}}, portLists)

	configs, err := s.ScanConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "Discovery", configs[1].Name)
	cmd := fake.last()
	assert.Equal(t, "scan", cmd.attr("usage_type"))

	scanners, err := s.Scanners(ctx)
	require.NoError(t, err)
	assert.Equal(t, Scanner{ID: "sc-2", Name: "OpenVAS Default", Type: "2"}, scanners[1])

	targets, err := s.Targets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Target{{ID: "t-1", Name: "Target-10-0-0-1", Hosts: "10.0.0.1"}}, targets)
	cmd = fake.last()
	assert.Equal(t, "rows=-1", cmd.attr("filter"))
}

func TestListRejected(t *testing.T) {
	s, _ := startFakeGVM(t, map[string]handler{
		"get_targets": reply(`<get_targets_response status="403" status_text="Permission denied"/>`),
	})

	_, err := s.Targets(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeRemoteRejection))
	assert.Contains(t, err.Error(), "Permission denied")
}

func TestUnknownCommandRejected(t *testing.T) {
	s, _ := startFakeGVM(t, map[string]handler{})

	_, err := s.Version(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeRemoteRejection))
	assert.Contains(t, err.Error(), "Bogus command name")
}

func TestCreateTarget(t *testing.T) {
	s, fake := startFakeGVM(t, map[string]handler{
		"create_target": reply(`<create_target_response status="201" status_text="OK, resource created" id="t-9"/>`),
	})

	resp, err := s.CreateTarget(context.Background(), CreateTargetRequest{
		Name:       "Target-10-0-0-1",
		Hosts:      []string{"10.0.0.1", "10.0.0.2"},
		PortListID: "pl-1",
		AliveTest:  AliveTestConsiderAlive,
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "201", resp.Status)
	assert.Equal(t, "t-9", resp.ID)

	cmd := fake.last()
	assert.Equal(t, "Target-10-0-0-1", cmd.child("name").Content)
	assert.Equal(t, "10.0.0.1,10.0.0.2", cmd.child("hosts").Content)
	assert.Equal(t, "pl-1", cmd.child("port_list").attr("id"))
	assert.Equal(t, "Consider Alive", cmd.child("alive_tests").Content)
}

func TestCreateTaskRejectedStatusIsReturned(t *testing.T) {
	s, fake := startFakeGVM(t, map[string]handler{
		"create_task": reply(`<create_task_response status="400" status_text="Failed to find config"/>`),
	})

	resp, err := s.CreateTask(context.Background(), CreateTaskRequest{
		Name: "scan_20261014_120000", ConfigID: "cfg-2", TargetID: "t-1", ScannerID: "sc-2",
	})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, "Failed to find config", resp.StatusText)

	cmd := fake.last()
	assert.Equal(t, "cfg-2", cmd.child("config").attr("id"))
	assert.Equal(t, "t-1", cmd.child("target").attr("id"))
	assert.Equal(t, "sc-2", cmd.child("scanner").attr("id"))
}

func TestStartTask(t *testing.T) {
	s, fake := startFakeGVM(t, map[string]handler{
		"start_task": reply(`<start_task_response status="202" status_text="OK, request submitted"><report_id>r-1</report_id></start_task_response>`),
	})

	resp, err := s.StartTask(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCodeAccepted, resp.Status)
	assert.Equal(t, "r-1", resp.ReportID)
	cmd := fake.last()
	assert.Equal(t, "task-1", cmd.attr("task_id"))
}

func TestTask(t *testing.T) {
	s, _ := startFakeGVM(t, map[string]handler{
		"get_tasks": func(cmd *node) string {
			if cmd.attr("task_id") != "task-1" {
				return `<get_tasks_response status="200" status_text="OK"/>`
			}
			return `<get_tasks_response status="200" status_text="OK">
				<task id="task-1"><name>scan</name><status>Running</status>
				<progress>42<host_progress><host>10.0.0.1</host>42</host_progress></progress>
				<current_report><report id="r-cur"/></current_report></task>
			</get_tasks_response>`
		},
	})

	task, err := s.Task(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, task.Status())
	assert.Equal(t, 42, task.Progress())
	assert.Equal(t, "r-cur", task.ReportID())
	assert.False(t, task.Terminal())

	_, err = s.Task(context.Background(), "task-2")
	assert.True(t, errors.IsCode(err, errors.CodeResourceNotFound))
}

func TestTaskAccessors(t *testing.T) {
	tests := []struct {
		name     string
		task     Task
		status   string
		progress int
		reportID string
		terminal bool
	}{
		{
			name:     "not started",
			task:     Task{StatusText: "New", ProgressText: "-1"},
			status:   StatusNew,
			progress: 0,
		},
		{
			name:     "done prefers last report",
			task:     Task{StatusText: " Done ", ProgressText: "100", LastReport: reportRef{ID: "r-last"}, CurrentReport: reportRef{ID: "r-cur"}},
			status:   StatusDone,
			progress: 100,
			reportID: "r-last",
			terminal: true,
		},
		{
			name:     "garbage progress",
			task:     Task{StatusText: "Stopped", ProgressText: "n/a"},
			status:   StatusStopped,
			terminal: true,
		},
		{
			name:     "interrupted",
			task:     Task{StatusText: "Interrupted", ProgressText: "250"},
			status:   StatusInterrupted,
			progress: 100,
			terminal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.task.Status())
			assert.Equal(t, tt.progress, tt.task.Progress())
			assert.Equal(t, tt.reportID, tt.task.ReportID())
			assert.Equal(t, tt.terminal, tt.task.Terminal())
		})
	}
}

const sampleReport = `<get_reports_response status="200" status_text="OK">
<report id="r-1" format_id="a994b278"><report id="r-1"><results start="1" max="-1">
<result id="res-1">
  <name>OpenSSH Multiple Vulnerabilities</name>
  <host>10.0.0.1<asset asset_id="a-1"/><hostname>web.lan</hostname></host>
  <port>22/tcp</port>
  <nvt oid="1.3.6.1.4.1.25623.1.0.1"><name>OpenSSH</name>
    <refs><ref type="url" id="https://example.invalid"/><ref type="cve" id="CVE-2023-38408"/><ref type="cve" id="CVE-2023-28531"/></refs>
  </nvt>
  <threat>Critical</threat>
  <severity>9.8</severity>
  <description>Remote code execution.</description>
</result>
<result id="res-2">
  <name>OS Detection</name>
  <host>10.0.0.1</host>
  <port>general/tcp</port>
  <threat>Log</threat>
</result>
<result id="res-3">
  <name>Orphan</name>
  <severity>5.0</severity>
</result>
</results></report></report>
</get_reports_response>`

func TestReport(t *testing.T) {
	s, fake := startFakeGVM(t, map[string]handler{
		"get_reports": reply(sampleReport),
	})

	report, err := s.Report(context.Background(), "r-1", true)
	require.NoError(t, err)
	assert.Equal(t, "r-1", report.ID)
	require.Len(t, report.Findings, 3)

	first := report.Findings[0]
	assert.Equal(t, "OpenSSH Multiple Vulnerabilities", first.Name)
	assert.Equal(t, "10.0.0.1", first.Host)
	assert.Equal(t, "22/tcp", first.Port)
	assert.InDelta(t, 9.8, first.Severity, 1e-9)
	assert.Equal(t, "CVE-2023-38408", first.CVE)
	assert.Equal(t, "Remote code execution.", first.Description)
	assert.Empty(t, first.Missing)

	second := report.Findings[1]
	assert.Zero(t, second.Severity)
	assert.Empty(t, second.CVE)

	third := report.Findings[2]
	assert.Equal(t, []string{"host", "port"}, third.Missing)

	cmd := fake.last()
	assert.Equal(t, "1", cmd.attr("details"))
	assert.Equal(t, "1", cmd.attr("ignore_pagination"))
}

func TestFindingSeverity(t *testing.T) {
	tests := []struct {
		severity string
		expected float64
	}{
		{"7.5", 7.5},
		{" 10.0 ", 10},
		{"", 0},
		{"n/a", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-Inf", 0},
		{"+Infinity", 0},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			var r result
			raw := "<result><name>n</name><host>h</host><port>p</port><severity>" + tt.severity + "</severity></result>"
			require.NoError(t, xml.Unmarshal([]byte(raw), &r))
			f := r.finding()
			assert.Equal(t, tt.expected, f.Severity)
			assert.Empty(t, f.Missing)
		})
	}
}

func TestConnectionClosed(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	_ = serverConn.Close()
	s := NewSession(NewConn(clientConn, time.Second), logging.NewDiscard())

	_, err := s.Version(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConnectionFailure))
}

func TestContextCancelInterruptsRequest(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	s, _ := startFakeGVM(t, map[string]handler{
		"get_tasks": func(*node) string {
			<-block
			return ""
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Task(ctx, "task-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCanceled))
}

func TestMalformedResponse(t *testing.T) {
	s, _ := startFakeGVM(t, map[string]handler{
		"get_version": reply(`<get_version_response status="200"><version>1</get_version_response>`),
	})

	_, err := s.Version(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeProtocol))
}
