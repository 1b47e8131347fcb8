// SPDX-License-Identifier: Apache-2.0

package version

import "fmt"

// populated at build time via -ldflags
var (
	number = "0.1.0"
	commit = "unknown"
)

// Number returns the release version.
func Number() string {
	return number
}

// Commit returns the git commit the binary was built from.
func Commit() string {
	return commit
}

// String returns a single printable version line.
func String() string {
	return fmt.Sprintf("groundwork %s (%s)", number, commit)
}
