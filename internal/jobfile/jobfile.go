// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package jobfile loads and validates the YAML document describing one
// pipeline run: where the source feeds live, where the marts go, and
// how to reach the buckets involved. Decoding is strict; a misspelled
// key is an error, not a silently ignored setting.
package jobfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/martrunner/internal/storageprofile"
)

// Default table names, matching the marts the original feeds describe.
const (
	DefaultJobName       = "salesmart"
	DefaultEnrichedTable = "sales_enriched"
	DefaultSummaryTable  = "sales_summary"
)

// Job is one pipeline run request.
type Job struct {
	Version int    `yaml:"version"`
	Name    string `yaml:"name,omitempty"`

	// Target is the output prefix URI. Both marts land under it:
	// <target>/enriched/year=<Y>/month=<M>/ and <target>/summary/.
	Target string `yaml:"target"`

	Sources Sources `yaml:"sources"`
	Tables  Tables  `yaml:"tables,omitempty"`

	// StorageProfiles carry per-bucket credentials and endpoint
	// overrides for the URIs above. URIs with no matching profile use
	// ambient defaults.
	StorageProfiles []storageprofile.StorageProfile `yaml:"storage_profiles,omitempty"`
}

// Sources lists the input feeds by kind.
type Sources struct {
	Sales     []string `yaml:"sales"`
	Customers []string `yaml:"customers"`
}

// Tables names the catalog tables the run announces.
type Tables struct {
	Enriched string `yaml:"enriched,omitempty"`
	Summary  string `yaml:"summary,omitempty"`
}

// Load reads a job document from filename. An "env:NAME" filename reads
// the document from the named environment variable instead, the same
// escape hatch the storage profile loader has for containerized runs.
func Load(filename string) (Job, error) {
	if envVar, ok := strings.CutPrefix(filename, "env:"); ok {
		contents := os.Getenv(envVar)
		if contents == "" {
			return Job{}, fmt.Errorf("environment variable %s is not set", envVar)
		}
		return Parse([]byte(contents))
	}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return Job{}, fmt.Errorf("failed to read job file %s: %w", filename, err)
	}

	job, err := Parse(contents)
	if err != nil {
		return Job{}, fmt.Errorf("job file %s: %w", filename, err)
	}
	return job, nil
}

// Parse decodes and validates one job document.
func Parse(contents []byte) (Job, error) {
	var job Job
	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil {
		return Job{}, fmt.Errorf("failed to decode job document: %w", err)
	}

	if err := job.validate(); err != nil {
		return Job{}, err
	}
	job.applyDefaults()
	return job, nil
}

func (j *Job) validate() error {
	if j.Version != 1 {
		return fmt.Errorf("unsupported job file version %d (want 1)", j.Version)
	}
	if strings.TrimSpace(j.Target) == "" {
		return fmt.Errorf("job file has no target")
	}
	if len(j.Sources.Sales) == 0 {
		return fmt.Errorf("job file lists no sales sources")
	}
	if len(j.Sources.Customers) == 0 {
		return fmt.Errorf("job file lists no customer sources")
	}
	for i, uri := range j.Sources.Sales {
		if strings.TrimSpace(uri) == "" {
			return fmt.Errorf("sales source %d is empty", i)
		}
	}
	for i, uri := range j.Sources.Customers {
		if strings.TrimSpace(uri) == "" {
			return fmt.Errorf("customer source %d is empty", i)
		}
	}
	return nil
}

func (j *Job) applyDefaults() {
	if j.Name == "" {
		j.Name = DefaultJobName
	}
	if j.Tables.Enriched == "" {
		j.Tables.Enriched = DefaultEnrichedTable
	}
	if j.Tables.Summary == "" {
		j.Tables.Summary = DefaultSummaryTable
	}
}
