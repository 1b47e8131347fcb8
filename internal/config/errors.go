// SPDX-License-Identifier: Apache-2.0

package config

import "github.com/joomcode/errorx"

var (
	ErrNamespace = errorx.NewNamespace("config")

	// NotFoundError indicates that a required configuration value is missing.
	NotFoundError = ErrNamespace.NewType("not_found", errorx.NotFound())

	// InvalidError indicates a configuration value outside its allowed range.
	InvalidError = ErrNamespace.NewType("invalid")
)
