package store

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// SchemaVersion is stamped on every document written.
//
// History:
//   - v1.0.0: initial shapes; documents carried no version field.
//   - v1.1.0: paths gained nombre_ruta and estado; profiles gained
//     recomendaciones.
const SchemaVersion = "v1.1.0"

// baseSchemaVersion is assumed for documents without a version.
const baseSchemaVersion = "v1.0.0"

// ErrUnsupportedSchema is returned for documents written by a newer major
// version than this build understands.
var ErrUnsupportedSchema = errors.New("store: unsupported document schema")

// docVersion returns the canonical form of v. Missing or malformed values
// read as the base version.
func docVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return baseSchemaVersion
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return baseSchemaVersion
	}
	return semver.Canonical(v)
}

// checkVersion rejects documents from a newer major version.
func checkVersion(v string) error {
	if semver.Major(docVersion(v)) != semver.Major(SchemaVersion) {
		return fmt.Errorf("%w: %s", ErrUnsupportedSchema, v)
	}
	return nil
}

// olderThan reports whether a document at version v predates target.
func olderThan(v, target string) bool {
	return semver.Compare(docVersion(v), target) < 0
}
