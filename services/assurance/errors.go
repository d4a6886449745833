// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assurance

import "errors"

// Sentinel errors for the assurance service.
var (
	// ErrNilInvoker indicates the service was built without a backend invoker.
	ErrNilInvoker = errors.New("invoker must not be nil")

	// ErrNilFactSource indicates the service was built without a fact source.
	ErrNilFactSource = errors.New("fact source must not be nil")

	// ErrNilEscalator indicates the service was built without an escalator.
	ErrNilEscalator = errors.New("escalator must not be nil")

	// ErrUnknownService indicates the named service is not under supervision.
	ErrUnknownService = errors.New("service not under supervision")

	// ErrAlertNotFound indicates no alert matches the given ID.
	ErrAlertNotFound = errors.New("alert not found")
)
