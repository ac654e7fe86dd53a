package errors

import (
	"fmt"
	"testing"
)

func TestAssessmentError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewAssessmentError(CodeRemoteRejection, "create task rejected")
		if err.Code != CodeRemoteRejection {
			t.Errorf("Expected code %s, got %s", CodeRemoteRejection, err.Code)
		}
		if err.Context == nil {
			t.Error("Context should be initialized")
		}
		expected := "[REMOTE_REJECTION] create task rejected"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("error with stage and cause", func(t *testing.T) {
		cause := fmt.Errorf("broken pipe")
		err := WrapAssessmentError(CodePollingCommunication, "status query failed", cause).WithStage("task")
		expected := "[POLLING_COMMUNICATION] status query failed (stage: task): broken pipe"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
		if err.Unwrap() != cause {
			t.Error("Wrapped error should be unwrappable")
		}
	})

	t.Run("with context", func(t *testing.T) {
		err := NewAssessmentError(CodePollingTimeout, "deadline exceeded")
		err.WithContext("polls", 4).WithContext("task_id", "t-1")
		if err.Context["polls"] != 4 {
			t.Errorf("Expected polls 4, got %v", err.Context["polls"])
		}
		if err.Context["task_id"] != "t-1" {
			t.Errorf("Expected task_id t-1, got %v", err.Context["task_id"])
		}
	})
}

func TestResourceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AssessmentError
		resource string
	}{
		{"port list", ErrNoPortListAvailable(), ResourcePortList},
		{"scan config", ErrNoConfigsAvailable(), ResourceScanConfig},
		{"scanner", ErrNoScannersAvailable(), ResourceScanner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !IsCode(tt.err, CodeResourceNotFound) {
				t.Errorf("Expected RESOURCE_NOT_FOUND, got %s", tt.err.Code)
			}
			wrapped := fmt.Errorf("select: %w", tt.err)
			resource, ok := MissingResource(wrapped)
			if !ok || resource != tt.resource {
				t.Errorf("Expected resource %q, got %q (ok=%v)", tt.resource, resource, ok)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"assessment error", ErrNoValidHosts(0), CodeNoValidHosts},
		{"wrapped assessment error", fmt.Errorf("run: %w", ErrRemoteRejection("start", "400", "bad")), CodeRemoteRejection},
		{"database error", WrapDatabaseError(CodeDatabaseQuery, "insert failed", "insert", fmt.Errorf("x")), CodeDatabaseQuery},
		{"config error", ErrConfigInvalid("gvm.port", 0), CodeValidation},
		{"discovery error", WrapDiscoveryError(CodeDiscoveryFailed, "nmap failed", "10.0.0.1", fmt.Errorf("x")), CodeDiscoveryFailed},
		{"plain error", fmt.Errorf("plain"), CodeUnknown},
		{"nil error", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("Expected code %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestMissingResourceOtherCodes(t *testing.T) {
	if _, ok := MissingResource(ErrNoValidHosts(2)); ok {
		t.Error("NO_VALID_HOSTS should not report a missing resource")
	}
	if _, ok := MissingResource(fmt.Errorf("plain")); ok {
		t.Error("plain errors should not report a missing resource")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(NewAssessmentError(CodeConfiguration, "bad config")) {
		t.Error("configuration errors should be fatal")
	}
	if IsFatal(NewAssessmentError(CodeAuthenticationFailure, "bad credentials")) {
		t.Error("authentication failures should not be fatal")
	}
	if IsFatal(NewAssessmentError(CodeTaskStopped, "stopped")) {
		t.Error("stopped tasks should not be fatal")
	}
}

func TestDiscoveryErrorMessage(t *testing.T) {
	err := WrapDiscoveryError(CodeDiscoveryFailed, "nmap scan failed", "127.0.0.1", fmt.Errorf("exit status 1"))
	expected := "[DISCOVERY_FAILED] nmap scan failed (target: 127.0.0.1): exit status 1"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestStageOf(t *testing.T) {
	err := fmt.Errorf("run: %w", NewAssessmentError(CodeTaskStopped, "task Stopped").WithStage("poll"))
	if got := StageOf(err); got != "poll" {
		t.Errorf("Expected stage 'poll', got '%s'", got)
	}
	if got := StageOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("Expected no stage, got '%s'", got)
	}
}
