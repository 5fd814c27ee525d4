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

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/go-playground/validator/v10"

	"github.com/oss-review-toolkit/ort-sub000/util/errutil"
)

// ConfigFileName is the name of the config file used to pull in all the
// resolver's settings.
const ConfigFileName = "config.json"

// Config is the resolver's settings file, stored in the user's
// ~/.config/<program>/ directory unless overridden by --config-path.
type Config struct {
	// ScanResultPath points at a JSON file holding a serialized scan
	// result (license/copyright findings per package) to resolve
	// against. Required unless ScanDir is set.
	ScanResultPath string `json:"scan-result-path" validate:"required_without=ScanDir"`

	// ScanDir, if set, is walked directly with the manifest scanners
	// (backend.Spdx, backend.Bitbake, backend.Pom) instead of loading a
	// pre-serialized scan result from ScanResultPath.
	ScanDir string `json:"scan-dir" validate:"required_without=ScanResultPath"`

	// ClassifyContent also runs licenseclassify.Classifier's full-text
	// match over every file under ScanDir. Ignored unless ScanDir is set.
	ClassifyContent bool `json:"classify-content"`

	// PackageType, PackageName and PackageVersion identify the single
	// package a ScanDir walk resolves license info for.
	PackageType    string `json:"package-type"`
	PackageName    string `json:"package-name"`
	PackageVersion string `json:"package-version"`

	// AddAuthorsToCopyrights synthesises copyright findings from
	// declared-license authors.
	AddAuthorsToCopyrights bool `json:"add-authors-to-copyrights"`

	// View selects which predefined license view to report through.
	View string `json:"view" validate:"omitempty,oneof=ALL CONCLUDED_OR_REST CONCLUDED_OR_DECLARED_OR_DETECTED CONCLUDED_OR_DETECTED ONLY_CONCLUDED ONLY_DECLARED ONLY_DETECTED"`

	// ArchiveDir, if set, enables resolve-license-files against a local
	// archive store rooted there.
	ArchiveDir string `json:"archive-dir"`

	// HTTPAddr, if set, starts the HTTP API on this address instead of
	// resolving a single identifier from the command line.
	HTTPAddr string `json:"http-addr"`
}

var configValidator = validator.New()

// GetConfig loads and validates the config file data into a struct. If
// configPath is empty, the default XDG-style path under the user's home
// directory is used.
func GetConfig(program, configPath string) (*Config, error) {
	if configPath == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, errutil.Wrapf(err, "error finding home directory")
		}
		configPath = filepath.Clean(filepath.Join(home, ".config", program, ConfigFileName))
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil // no config, no error
	}
	if err != nil {
		return nil, errutil.Wrapf(err, "error reading config file")
	}

	buffer := bytes.NewBuffer(data)
	if buffer.Len() == 0 {
		return nil, fmt.Errorf("empty config file: %s", configPath)
	}
	decoder := json.NewDecoder(buffer)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errutil.Wrapf(err, "error decoding json config: %s", configPath)
	}

	if err := configValidator.Struct(&cfg); err != nil {
		return nil, errutil.Wrapf(err, "invalid config: %s", configPath)
	}

	return &cfg, nil
}
