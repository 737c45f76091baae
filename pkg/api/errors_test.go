package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestAPIErrorInterface(t *testing.T) {
	var _ error = &APIError{}
}

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			&APIError{Type: ErrorTypeInvalidArgument, Param: "task_id", Message: "is required"},
			"invalid_argument: is required (param: task_id)",
		},
		{
			"without param",
			&APIError{Type: ErrorTypeTransport, Message: "read response"},
			"transport_error: read response",
		},
		{
			"with cause",
			&APIError{Type: ErrorTypeTransport, Message: "read response", Err: io.ErrUnexpectedEOF},
			"transport_error: read response: unexpected EOF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *APIError
		wantType  ErrorType
		wantParam string
	}{
		{"invalid argument", NewInvalidArgumentError("vm", "is required"), ErrorTypeInvalidArgument, "vm"},
		{"path conflict", NewPathConflictError("/tmp/x"), ErrorTypePathConflict, "/tmp/x"},
		{"unsupported format", NewUnsupportedFormatError(ReportFormatHTML, "http://h:1/tasks/report/1/html"), ErrorTypeUnsupportedFormat, "format"},
		{"unsupported endpoint", NewUnsupportedEndpointError("http://h:1/files/view/sha1/x"), ErrorTypeUnsupportedEndpoint, ""},
		{"transport", NewTransportError("dial", io.EOF), ErrorTypeTransport, ""},
		{"status", NewStatusError(404, "task not found"), ErrorTypeTransport, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
			if tt.err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", tt.err.Param, tt.wantParam)
			}
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := NewStatusError(404, "task not found")
	if err.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", err.StatusCode)
	}
	if !strings.Contains(err.Error(), "HTTP 404: task not found") {
		t.Errorf("Error() = %q, want status and message", err.Error())
	}

	bare := NewStatusError(502, "")
	if bare.Message != "sandbox returned HTTP 502" {
		t.Errorf("Message = %q", bare.Message)
	}
}

func TestUnsupportedEndpointCarriesURL(t *testing.T) {
	url := "http://127.0.0.1:8000/files/view/sha1/deadbeef"
	err := NewUnsupportedEndpointError(url)
	if !strings.Contains(err.Error(), url) {
		t.Errorf("Error() = %q, want it to contain %q", err.Error(), url)
	}
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("viewing task: %w", NewInvalidArgumentError("task_id", "bad"))

	if !IsInvalidArgument(wrapped) {
		t.Error("IsInvalidArgument should see through wrapping")
	}
	if IsPathConflict(wrapped) {
		t.Error("IsPathConflict should be false for invalid argument")
	}
	if !IsPathConflict(NewPathConflictError("x")) {
		t.Error("IsPathConflict = false")
	}
	if !IsUnsupportedFormat(NewUnsupportedFormatError(ReportFormatAll, "u")) {
		t.Error("IsUnsupportedFormat = false")
	}
	if !IsUnsupportedEndpoint(NewUnsupportedEndpointError("u")) {
		t.Error("IsUnsupportedEndpoint = false")
	}
	if !IsTransportError(NewTransportError("x", nil)) {
		t.Error("IsTransportError = false")
	}
	if IsTransportError(errors.New("plain")) {
		t.Error("plain errors are not transport errors")
	}
	if IsTransportError(nil) {
		t.Error("nil is not a transport error")
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	err := NewTransportError("decode response", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestAPIErrorOmitEmpty(t *testing.T) {
	err := &APIError{Type: ErrorTypeTransport, Message: "fail", Err: io.EOF}
	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("Marshal: %v", marshalErr)
	}

	var m map[string]interface{}
	if unmarshalErr := json.Unmarshal(data, &m); unmarshalErr != nil {
		t.Fatalf("Unmarshal: %v", unmarshalErr)
	}

	if _, ok := m["param"]; ok {
		t.Error("empty param should be omitted from JSON")
	}
	if _, ok := m["status_code"]; ok {
		t.Error("zero status_code should be omitted from JSON")
	}
	if _, ok := m["Err"]; ok {
		t.Error("cause must not be serialized")
	}
}
