// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when creating an account whose name is taken.
var ErrAlreadyExists = errors.New("already exists")
