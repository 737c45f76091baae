package api

import "fmt"

// ValidateTaskID checks that a task id references a task (ids start at 1).
func ValidateTaskID(id int) *APIError {
	if id < 1 {
		return NewInvalidArgumentError("task_id",
			fmt.Sprintf("task ID %d not available or invalid", id))
	}
	return nil
}

// ValidateMachineName checks that a machine name was supplied.
func ValidateMachineName(name string) *APIError {
	if name == "" {
		return NewInvalidArgumentError("vm", "VM name not available or invalid")
	}
	return nil
}

// ValidateHash checks that a hash value was supplied.
func ValidateHash(ref HashRef) *APIError {
	if ref.Value == "" {
		return NewInvalidArgumentError("hash",
			fmt.Sprintf("hash of type %q not available or invalid", ref.Kind))
	}
	return nil
}

// ValidateHashKind checks that kind is one of id, md5 or sha256. apiURL is the
// already built request URL and is reported in the error.
func ValidateHashKind(kind HashKind, apiURL string) *APIError {
	switch kind {
	case HashKindID, HashKindMD5, HashKindSHA256:
		return nil
	}
	return NewUnsupportedEndpointError(apiURL)
}

// ValidateReportFormat accepts only the json report format. Other known
// formats exist on the server but are not implemented by this client.
func ValidateReportFormat(format ReportFormat, apiURL string) *APIError {
	if format == ReportFormatJSON {
		return nil
	}
	return NewUnsupportedFormatError(format, apiURL)
}

// IsKnownReportFormat reports whether the server defines format.
func IsKnownReportFormat(format ReportFormat) bool {
	switch format {
	case ReportFormatJSON, ReportFormatHTML, ReportFormatAll, ReportFormatDropped, ReportFormatPackageFiles:
		return true
	}
	return false
}
