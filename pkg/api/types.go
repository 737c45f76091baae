package api

import "strconv"

// HashKind identifies how a file sample is looked up on the sandbox.
type HashKind string

const (
	HashKindID     HashKind = "id"
	HashKindMD5    HashKind = "md5"
	HashKindSHA256 HashKind = "sha256"
)

// ReportFormat selects the representation of a task report.
type ReportFormat string

const (
	ReportFormatJSON         ReportFormat = "json"
	ReportFormatHTML         ReportFormat = "html"
	ReportFormatAll          ReportFormat = "all"
	ReportFormatDropped      ReportFormat = "dropped"
	ReportFormatPackageFiles ReportFormat = "package_files"
)

// HashRef references a file sample by hash value and kind.
type HashRef struct {
	Value string   `json:"value"`
	Kind  HashKind `json:"kind"`
}

// String returns "kind:value".
func (h HashRef) String() string {
	return string(h.Kind) + ":" + h.Value
}

// TaskHash returns a HashRef that looks up the file analyzed by a task.
// The numeric id is coerced to its decimal string form.
func TaskHash(taskID int) HashRef {
	return HashRef{Value: strconv.Itoa(taskID), Kind: HashKindID}
}

// MD5 returns an md5 HashRef.
func MD5(value string) HashRef {
	return HashRef{Value: value, Kind: HashKindMD5}
}

// SHA256 returns a sha256 HashRef.
func SHA256(value string) HashRef {
	return HashRef{Value: value, Kind: HashKindSHA256}
}
