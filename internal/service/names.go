package service

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// CanonicalName converts a boto style snake_case name ("describe_table",
// "bucket_exists") to the Go SDK spelling ("DescribeTable", "BucketExists").
// Names already in PascalCase are returned unchanged.
func CanonicalName(name string) string {
	return strcase.ToCamel(strings.TrimSpace(name))
}

// MatchName reports whether a requested name refers to candidate, ignoring
// case and underscores so that "describe_db_instances" matches
// "DescribeDBInstances".
func MatchName(requested, candidate string) bool {
	normalized := strings.ReplaceAll(strings.TrimSpace(requested), "_", "")
	return normalized != "" && strings.EqualFold(normalized, candidate)
}
