package gmp

import (
	"encoding/xml"
	"math"
	"strconv"
	"strings"
)

// Task status values reported by gvmd.
const (
	StatusNew         = "New"
	StatusRequested   = "Requested"
	StatusQueued      = "Queued"
	StatusRunning     = "Running"
	StatusDone        = "Done"
	StatusStopped     = "Stopped"
	StatusInterrupted = "Interrupted"
)

// AliveTestConsiderAlive skips liveness probing of target hosts.
const AliveTestConsiderAlive = "Consider Alive"

// Response status codes used by the assessment pipeline.
const (
	StatusCodeOK       = "200"
	StatusCodeCreated  = "201"
	StatusCodeAccepted = "202"
)

// responseStatus is carried by the root element of every GMP response.
type responseStatus struct {
	Status     string `xml:"status,attr"`
	StatusText string `xml:"status_text,attr"`
}

func (s responseStatus) ok() bool {
	return strings.HasPrefix(s.Status, "2")
}

// Response is the acknowledgment of a create or start command.
type Response struct {
	Status     string
	StatusText string
	ID         string
	ReportID   string
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return strings.HasPrefix(r.Status, "2")
}

// PortList is a port list resource.
type PortList struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name"`
}

// ScanConfig is a scan configuration resource.
type ScanConfig struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name"`
}

// Scanner is a scanner resource. Type is the numeric scanner type code.
type Scanner struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name"`
	Type string `xml:"type"`
}

// Target is a scan target resource.
type Target struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name"`
	Hosts string `xml:"hosts"`
}

type reportRef struct {
	ID string `xml:"id,attr"`
}

// Task is a scan task as returned by get_tasks.
type Task struct {
	ID            string    `xml:"id,attr"`
	Name          string    `xml:"name"`
	StatusText    string    `xml:"status"`
	ProgressText  string    `xml:"progress"`
	LastReport    reportRef `xml:"last_report>report"`
	CurrentReport reportRef `xml:"current_report>report"`
}

// Status returns the lifecycle status, e.g. "Running" or "Done".
func (t *Task) Status() string {
	return strings.TrimSpace(t.StatusText)
}

// Progress returns the completion percentage. gvmd reports -1 for tasks that
// are not running, which is returned as 0.
func (t *Task) Progress() int {
	p, err := strconv.Atoi(strings.TrimSpace(t.ProgressText))
	if err != nil || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ReportID returns the last finished report, else the report in progress.
func (t *Task) ReportID() string {
	if t.LastReport.ID != "" {
		return t.LastReport.ID
	}
	return t.CurrentReport.ID
}

// Terminal reports whether the task can no longer change status.
func (t *Task) Terminal() bool {
	switch t.Status() {
	case StatusDone, StatusStopped, StatusInterrupted:
		return true
	default:
		return false
	}
}

type ref struct {
	Type string `xml:"type,attr"`
	ID   string `xml:"id,attr"`
}

type nvt struct {
	OID  string `xml:"oid,attr"`
	Name string `xml:"name"`
	Refs []ref  `xml:"refs>ref"`
}

// result is one report result as it appears on the wire. Pointers tell
// absent elements apart from empty ones.
type result struct {
	ID          string  `xml:"id,attr"`
	Name        *string `xml:"name"`
	Host        *string `xml:"host"`
	Port        *string `xml:"port"`
	Threat      string  `xml:"threat"`
	Severity    *string `xml:"severity"`
	Description string  `xml:"description"`
	NVT         nvt     `xml:"nvt"`
}

// Finding is a single report result.
type Finding struct {
	Name        string
	Host        string
	Port        string
	Severity    float64
	Threat      string
	Description string
	CVE         string
	OID         string

	// Missing lists required fields (name, host, port) absent from the result.
	Missing []string
}

// Report is a scan report with its findings in report order.
type Report struct {
	ID       string
	Findings []Finding
}

func trimmed(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

func (r *result) finding() Finding {
	f := Finding{
		Threat:      strings.TrimSpace(r.Threat),
		Description: strings.TrimSpace(r.Description),
		OID:         r.NVT.OID,
	}

	var ok bool
	if f.Name, ok = trimmed(r.Name); !ok {
		f.Missing = append(f.Missing, "name")
	}
	if f.Host, ok = trimmed(r.Host); !ok {
		f.Missing = append(f.Missing, "host")
	}
	if f.Port, ok = trimmed(r.Port); !ok {
		f.Missing = append(f.Missing, "port")
	}

	if s, ok := trimmed(r.Severity); ok {
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			f.Severity = v
		}
	}

	for _, rf := range r.NVT.Refs {
		if strings.EqualFold(rf.Type, "cve") && rf.ID != "" {
			f.CVE = rf.ID
			break
		}
	}
	return f
}

// Commands.

type authenticateCommand struct {
	XMLName  xml.Name `xml:"authenticate"`
	Username string   `xml:"credentials>username"`
	Password string   `xml:"credentials>password"`
}

type authenticateResponse struct {
	XMLName xml.Name `xml:"authenticate_response"`
	responseStatus
	Role     string `xml:"role"`
	Timezone string `xml:"timezone"`
}

type getVersionCommand struct {
	XMLName xml.Name `xml:"get_version"`
}

type getVersionResponse struct {
	XMLName xml.Name `xml:"get_version_response"`
	responseStatus
	Version string `xml:"version"`
}

type getPortListsCommand struct {
	XMLName xml.Name `xml:"get_port_lists"`
	Filter  string   `xml:"filter,attr,omitempty"`
}

type getPortListsResponse struct {
	XMLName xml.Name `xml:"get_port_lists_response"`
	responseStatus
	PortLists []PortList `xml:"port_list"`
}

type getConfigsCommand struct {
	XMLName   xml.Name `xml:"get_configs"`
	UsageType string   `xml:"usage_type,attr,omitempty"`
	Filter    string   `xml:"filter,attr,omitempty"`
}

type getConfigsResponse struct {
	XMLName xml.Name `xml:"get_configs_response"`
	responseStatus
	Configs []ScanConfig `xml:"config"`
}

type getScannersCommand struct {
	XMLName xml.Name `xml:"get_scanners"`
	Filter  string   `xml:"filter,attr,omitempty"`
}

type getScannersResponse struct {
	XMLName xml.Name `xml:"get_scanners_response"`
	responseStatus
	Scanners []Scanner `xml:"scanner"`
}

type getTargetsCommand struct {
	XMLName xml.Name `xml:"get_targets"`
	Filter  string   `xml:"filter,attr,omitempty"`
}

type getTargetsResponse struct {
	XMLName xml.Name `xml:"get_targets_response"`
	responseStatus
	Targets []Target `xml:"target"`
}

type idRef struct {
	ID string `xml:"id,attr"`
}

// CreateTargetRequest describes a new scan target.
type CreateTargetRequest struct {
	Name       string
	Hosts      []string
	PortListID string
	AliveTest  string
}

type createTargetCommand struct {
	XMLName    xml.Name `xml:"create_target"`
	Name       string   `xml:"name"`
	Hosts      string   `xml:"hosts"`
	PortList   idRef    `xml:"port_list"`
	AliveTests string   `xml:"alive_tests,omitempty"`
}

// CreateTaskRequest describes a new scan task.
type CreateTaskRequest struct {
	Name      string
	ConfigID  string
	TargetID  string
	ScannerID string
}

type createTaskCommand struct {
	XMLName xml.Name `xml:"create_task"`
	Name    string   `xml:"name"`
	Config  idRef    `xml:"config"`
	Target  idRef    `xml:"target"`
	Scanner idRef    `xml:"scanner"`
}

type createResponse struct {
	XMLName xml.Name
	responseStatus
	ID string `xml:"id,attr"`
}

type startTaskCommand struct {
	XMLName xml.Name `xml:"start_task"`
	TaskID  string   `xml:"task_id,attr"`
}

type startTaskResponse struct {
	XMLName xml.Name `xml:"start_task_response"`
	responseStatus
	ReportID string `xml:"report_id"`
}

type getTasksCommand struct {
	XMLName xml.Name `xml:"get_tasks"`
	TaskID  string   `xml:"task_id,attr"`
	Details string   `xml:"details,attr,omitempty"`
}

type getTasksResponse struct {
	XMLName xml.Name `xml:"get_tasks_response"`
	responseStatus
	Tasks []Task `xml:"task"`
}

type getReportsCommand struct {
	XMLName          xml.Name `xml:"get_reports"`
	ReportID         string   `xml:"report_id,attr"`
	Details          string   `xml:"details,attr,omitempty"`
	IgnorePagination string   `xml:"ignore_pagination,attr,omitempty"`
	Filter           string   `xml:"filter,attr,omitempty"`
}

// The outer report element wraps the report proper.
type getReportsResponse struct {
	XMLName xml.Name `xml:"get_reports_response"`
	responseStatus
	Report struct {
		ID      string   `xml:"id,attr"`
		Results []result `xml:"report>results>result"`
	} `xml:"report"`
}

type gmpResponse struct {
	XMLName xml.Name `xml:"gmp_response"`
	responseStatus
}
