package gmp

import (
	"context"
	"strings"

	"github.com/anstrom/assessor/internal/config"
	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/anstrom/assessor/internal/gmp Client

// Client is an authenticated GMP session.
type Client interface {
	Version(ctx context.Context) (string, error)
	PortLists(ctx context.Context) ([]PortList, error)
	ScanConfigs(ctx context.Context) ([]ScanConfig, error)
	Scanners(ctx context.Context) ([]Scanner, error)
	Targets(ctx context.Context) ([]Target, error)
	CreateTarget(ctx context.Context, req CreateTargetRequest) (*Response, error)
	CreateTask(ctx context.Context, req CreateTaskRequest) (*Response, error)
	StartTask(ctx context.Context, taskID string) (*Response, error)
	Task(ctx context.Context, taskID string) (*Task, error)
	Report(ctx context.Context, reportID string, details bool) (*Report, error)
	Close() error
}

// listAll disables gvmd's default page size of 10 rows.
const listAll = "rows=-1"

// Session implements Client over a single connection.
type Session struct {
	conn   *Conn
	logger *logging.Logger
}

var _ Client = (*Session)(nil)

// Open dials gvmd as configured and authenticates.
func Open(ctx context.Context, cfg config.GVMConfig) (*Session, error) {
	logger := logging.Default().WithComponent("gmp")

	var (
		conn *Conn
		err  error
	)
	switch cfg.Connection {
	case config.ConnectionUnix:
		logger.Info("Connecting to GVM", "socket", cfg.SocketPath)
		conn, err = DialUnix(ctx, cfg.SocketPath, cfg.Timeout)
	default:
		address := cfg.Address()
		logger.Info("Connecting to GVM", "address", address)
		conn, err = DialTLS(ctx, address, cfg.TLSSkipVerify, cfg.Timeout)
	}
	if err != nil {
		return nil, err
	}

	s := NewSession(conn, logger)
	if err := s.Authenticate(ctx, cfg.Username, cfg.Password); err != nil {
		_ = conn.Close()
		return nil, err
	}

	version, err := s.Version(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Info("Connected to GVM", "version", version)
	return s, nil
}

// NewSession wraps an established connection. The session is not yet authenticated.
func NewSession(conn *Conn, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.Default().WithComponent("gmp")
	}
	return &Session{conn: conn, logger: logger}
}

// Authenticate logs in. A non-2xx status is an AUTHENTICATION_FAILURE.
func (s *Session) Authenticate(ctx context.Context, username, password string) error {
	var resp authenticateResponse
	cmd := authenticateCommand{Username: username, Password: password}
	if err := s.conn.Do(ctx, &cmd, &resp); err != nil {
		if errors.IsCode(err, errors.CodeRemoteRejection) {
			return errors.WrapAssessmentError(errors.CodeAuthenticationFailure, "authentication rejected", err)
		}
		return err
	}
	if !resp.ok() {
		return errors.NewAssessmentError(errors.CodeAuthenticationFailure, "authentication failed: "+resp.StatusText).
			WithContext("status", resp.Status).
			WithContext("username", username)
	}
	s.logger.Debug("Authenticated", "username", username, "role", resp.Role)
	return nil
}

// Version returns the protocol version of the service.
func (s *Session) Version(ctx context.Context) (string, error) {
	var resp getVersionResponse
	if err := s.do(ctx, "get_version", &getVersionCommand{}, &resp, &resp.responseStatus); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Version), nil
}

// PortLists returns all port lists.
func (s *Session) PortLists(ctx context.Context) ([]PortList, error) {
	var resp getPortListsResponse
	if err := s.do(ctx, "get_port_lists", &getPortListsCommand{Filter: listAll}, &resp, &resp.responseStatus); err != nil {
		return nil, err
	}
	return resp.PortLists, nil
}

// ScanConfigs returns all scan configurations usable for scanning.
func (s *Session) ScanConfigs(ctx context.Context) ([]ScanConfig, error) {
	var resp getConfigsResponse
	cmd := &getConfigsCommand{UsageType: "scan", Filter: listAll}
	if err := s.do(ctx, "get_configs", cmd, &resp, &resp.responseStatus); err != nil {
		return nil, err
	}
	return resp.Configs, nil
}

// Scanners returns all scanners.
func (s *Session) Scanners(ctx context.Context) ([]Scanner, error) {
	var resp getScannersResponse
	if err := s.do(ctx, "get_scanners", &getScannersCommand{Filter: listAll}, &resp, &resp.responseStatus); err != nil {
		return nil, err
	}
	for i := range resp.Scanners {
		resp.Scanners[i].Type = strings.TrimSpace(resp.Scanners[i].Type)
	}
	return resp.Scanners, nil
}

// Targets returns all targets.
func (s *Session) Targets(ctx context.Context) ([]Target, error) {
	var resp getTargetsResponse
	if err := s.do(ctx, "get_targets", &getTargetsCommand{Filter: listAll}, &resp, &resp.responseStatus); err != nil {
		return nil, err
	}
	return resp.Targets, nil
}

// CreateTarget creates a target. The status is returned for the caller to check.
func (s *Session) CreateTarget(ctx context.Context, req CreateTargetRequest) (*Response, error) {
	cmd := &createTargetCommand{
		Name:       req.Name,
		Hosts:      strings.Join(req.Hosts, ","),
		PortList:   idRef{ID: req.PortListID},
		AliveTests: req.AliveTest,
	}
	var resp createResponse
	if err := s.conn.Do(ctx, cmd, &resp); err != nil {
		return nil, err
	}
	return &Response{Status: resp.Status, StatusText: resp.StatusText, ID: resp.ID}, nil
}

// CreateTask creates a task. The status is returned for the caller to check.
func (s *Session) CreateTask(ctx context.Context, req CreateTaskRequest) (*Response, error) {
	cmd := &createTaskCommand{
		Name:    req.Name,
		Config:  idRef{ID: req.ConfigID},
		Target:  idRef{ID: req.TargetID},
		Scanner: idRef{ID: req.ScannerID},
	}
	var resp createResponse
	if err := s.conn.Do(ctx, cmd, &resp); err != nil {
		return nil, err
	}
	return &Response{Status: resp.Status, StatusText: resp.StatusText, ID: resp.ID}, nil
}

// StartTask starts a task. ReportID is the report created for the run.
func (s *Session) StartTask(ctx context.Context, taskID string) (*Response, error) {
	var resp startTaskResponse
	if err := s.conn.Do(ctx, &startTaskCommand{TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	return &Response{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		ID:         taskID,
		ReportID:   strings.TrimSpace(resp.ReportID),
	}, nil
}

// Task returns a single task.
func (s *Session) Task(ctx context.Context, taskID string) (*Task, error) {
	var resp getTasksResponse
	cmd := &getTasksCommand{TaskID: taskID, Details: "1"}
	if err := s.do(ctx, "get_tasks", cmd, &resp, &resp.responseStatus); err != nil {
		return nil, err
	}
	for i := range resp.Tasks {
		if resp.Tasks[i].ID == taskID {
			return &resp.Tasks[i], nil
		}
	}
	return nil, errors.NewAssessmentError(errors.CodeResourceNotFound, "task not found").
		WithContext("task_id", taskID)
}

// Report returns a report with all results. details expands result details
// such as NVT references.
func (s *Session) Report(ctx context.Context, reportID string, details bool) (*Report, error) {
	cmd := &getReportsCommand{
		ReportID:         reportID,
		IgnorePagination: "1",
		Filter:           "apply_overrides=0 min_qod=0 " + listAll,
	}
	if details {
		cmd.Details = "1"
	}

	var resp getReportsResponse
	if err := s.do(ctx, "get_reports", cmd, &resp, &resp.responseStatus); err != nil {
		return nil, err
	}

	id := resp.Report.ID
	if id == "" {
		id = reportID
	}
	report := &Report{ID: id, Findings: make([]Finding, 0, len(resp.Report.Results))}
	for i := range resp.Report.Results {
		report.Findings = append(report.Findings, resp.Report.Results[i].finding())
	}
	return report, nil
}

// Close closes the connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// do runs a read command and rejects non-2xx responses.
func (s *Session) do(ctx context.Context, op string, cmd, resp any, status *responseStatus) error {
	if err := s.conn.Do(ctx, cmd, resp); err != nil {
		return err
	}
	if !status.ok() {
		return errors.ErrRemoteRejection(op, status.Status, status.StatusText)
	}
	return nil
}
