// Copyright Amazon.com Inc or its affiliates and the project contributors
// Written by James Shubin <purple@amazon.com> and the project contributors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.
//
// We will never require a CLA to submit a patch. All contributions follow the
// `inbound == outbound` rule.
//
// This is not an official Amazon product. Amazon does not offer support for
// this project.
//
// SPDX-License-Identifier: Apache-2.0

// Package interfaces has all the common interfaces and structs that are
// needed throughout this software. It is imported by many packages. It must
// not import any packages other than stdlib and util libraries. This is so
// that we avoid dependency loops.
//
// This trims the upstream scanner's path-walking contracts (Parser,
// Iterator, ScanFunc, PathBackend, RootBackend, SeekBackend) since the file
// tree walk is done by cmd/licenseresolve's scanDirectory, which feeds each
// file's bytes to DataBackend.ScanData, rather than by the backends. What's
// kept is the part of the scanner's result model
// that the provider side still needs: a Backend can emit a Result, and
// Results from many backends over many paths merge into a ResultSet.
package interfaces

import (
	"context"
	"fmt"

	"github.com/oss-review-toolkit/ort-sub000/util/errutil"
	"github.com/oss-review-toolkit/ort-sub000/util/licenses"
)

// Error is a constant error type that implements error.
type Error string

// Error fulfills the error interface of this type.
func (e Error) Error() string { return string(e) }

const (
	// ErrUnknownLicense should be returned by any backend when it can't
	// identify the license that a particular file is under. This is a
	// distinct condition from identifying a license but with an
	// extremely low confidence.
	ErrUnknownLicense = Error("license is unknown")

	// Umask is the value used whenever we need to make a directory.
	Umask = 0770
)

// Info is a struct representing the additional info passed to the scan
// function.
type Info struct {
	// IsDir is true if this Info describes a directory rather than a
	// file.
	IsDir bool

	// Name is the base filename (without any directory component) of the
	// path being scanned.
	Name string

	// UID is the unique identifier that is associated with each result.
	// It is what is used as the key in the ResultSet. This UID is often
	// a path, but it can be any human-readable handle.
	UID string
}

// Backend is the common interface for backends. Any useful backend must also
// implement DataBackend. Different interfaces exist to support different
// scanning mechanisms, but the path-walking ones (PathBackend, RootBackend,
// SeekBackend) belong to the scanner, which is out of scope here.
type Backend interface {
	fmt.Stringer
}

// SetupBackend adds a method that can be run if the backend has some initial
// one-time validation or setup to do. It should always be safe and
// idempotent.
type SetupBackend interface {
	Backend

	// Setup runs an operation to check if things are okay. It should be
	// idempotent and generally safe to run.
	Setup(ctx context.Context) error
}

// ValidateBackend adds a method that validates a backend is correctly
// configured and ready to run, separately from one-time Setup.
type ValidateBackend interface {
	Backend

	// Validate checks that the backend is correctly configured. It
	// should return an error describing what's wrong, if anything.
	Validate(ctx context.Context) error
}

// DataBackend is the extended backend that is most efficient for receiving
// data since all the reads are done once, and each backend only has to read
// from one memory address. You should implement this backend if you can. It
// assumes that individual files are small enough to easily fit into memory.
type DataBackend interface {
	Backend

	// ScanData takes a byte array and info about it and returns a
	// result. It's important to make sure that you error if you are
	// cancelled by the context and you didn't finish all the work you
	// had. This must be able to handle
	// receiving an empty byte array, which can happen if a directory
	// path is presented. Since a byte array is effectively a pointer to
	// the set of data that each backend will share the same view of, you
	// must *not* edit this data in any way, since this would change the
	// view of it for every backend, and unexpected things might happen.
	ScanData(ctx context.Context, data []byte, info *Info) (*Result, error)
}

// Result is the datastructure that is returned from every scanner. Each
// result has a primary determination, associated confidence, and other
// information. In addition, additional secondary (less-likely)
// determinations can be stored. These are stored as a nested field, instead
// of having the primary return type be a []*Result because that would be
// more complicated and in most cases there will only be one result.
type Result struct {
	// Licenses is a list of licenses that make up this determination.
	// Each of these is considered to be combined by the logical AND. If
	// any of these should individually be a logical OR, then use the
	// mechanism inside of the License struct to express that.
	Licenses []*licenses.License

	// Confidence represents the amount of certainty we have in this
	// determination. A value of 1.0 means absolute certainty, where as a
	// value of 0.0 means that there is no confidence in the result.
	Confidence float64

	// Skip, if non-nil, records that the backend chose not to produce a
	// definitive result for this path (eg: a line was too long to
	// buffer) without that being a hard scan error.
	Skip error

	// Meta stores some metadata about a result. This is populated by the
	// engine for tracking purposes, and isn't meant to be either read or
	// set by the implemented backend that returns this.
	Meta *Meta

	// More is a list of additional possible results. They should be
	// ordered by decreasing confidence. You must NOT nest results more
	// than one level deep.
	More []*Result
}

// Cmp compares two results and returns nil if they are the same. We don't
// currently compare all fields in the structs.
func (obj *Result) Cmp(result *Result) error {
	if (obj == nil) && (result == nil) {
		return nil
	}

	if (obj == nil) != (result == nil) {
		return fmt.Errorf("the results differ")
	}

	if len(obj.Licenses) != len(result.Licenses) {
		return fmt.Errorf("length of licenses differ")
	}
	for i, x := range obj.Licenses {
		if err := x.Cmp(result.Licenses[i]); err != nil {
			return err
		}
	}

	if obj.Confidence != result.Confidence {
		return fmt.Errorf("confidence values don't match: %.4f != %.4f", obj.Confidence, result.Confidence)
	}

	return nil
}

// Meta stores some metadata about the scanning operation. It is used to make
// the results more informative if a display engine or formatter would like
// to do so.
type Meta struct {
	// Backend is a pointer to the backend that was used to obtain the
	// result that we scanned. It is stored here to be available for
	// querying if so required.
	Backend Backend
}

// ResultSet is the organized set of results that is produced after running a
// series of backends on a series of paths, which results in a series of
// results. The first map has keys corresponding to the paths in our
// canonical form with directories represented with a trailing slash, and the
// second map has pointers to each backend.
type ResultSet = map[string]map[Backend]*Result

// MergeResultSets does what you expect, however it errors if it would have
// to overwrite data.
func MergeResultSets(r1, r2 ResultSet) (ResultSet, error) {
	resultSet := make(map[string]map[Backend]*Result)

	merge := func(rs ResultSet) error {
		for p, m := range rs {
			if _, exists := resultSet[p]; !exists {
				resultSet[p] = make(map[Backend]*Result)
			}

			for b, r := range m {
				if old, exists := resultSet[p][b]; exists {
					if err := old.Cmp(r); err != nil {
						return errutil.Wrapf(err, "duplicate result for %s in %s", p, b)
					}
				}
				resultSet[p][b] = r
			}
		}
		return nil
	}

	if err := merge(r1); err != nil {
		return nil, err
	}
	if err := merge(r2); err != nil {
		return nil, err
	}

	return resultSet, nil
}
