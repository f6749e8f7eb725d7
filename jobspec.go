// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package dataio

import (
	"fmt"
	"strings"
)

// JobType classifies a job specification.
type JobType string

// Job types.
const (
	JobTypeTransient  JobType = "TRANSIENT"
	JobTypePersistent JobType = "PERSISTENT"
	JobTypeTest       JobType = "TEST"
	JobTypeAccTest    JobType = "ACCTEST"
)

// Ancestry describes where a job's data file came from.
type Ancestry struct {
	Transfile string `json:"transfile,omitempty" toml:"transfile"`
	Datafile  string `json:"datafile,omitempty" toml:"datafile"`
	BatchID   string `json:"batchId,omitempty" toml:"batch-id"`
}

// JobSpecification is the externally supplied description of a job. It is
// never mutated by dataio.
type JobSpecification struct {
	Packaging   string    `json:"packaging" toml:"packaging"`
	Format      string    `json:"format" toml:"format"`
	Charset     string    `json:"charset" toml:"charset"`
	Destination string    `json:"destination" toml:"destination"`
	SubmitterID int64     `json:"submitterId" toml:"submitter"`
	DataFile    string    `json:"dataFile" toml:"data-file"`
	Type        JobType   `json:"type" toml:"type"`
	Ancestry    *Ancestry `json:"ancestry,omitempty" toml:"ancestry"`

	MailForNotificationAboutVerification string `json:"mailForNotificationAboutVerification,omitempty" toml:"mail-verification"`
	MailForNotificationAboutProcessing   string `json:"mailForNotificationAboutProcessing,omitempty" toml:"mail-processing"`
	ResultmailInitials                   string `json:"resultmailInitials,omitempty" toml:"resultmail-initials"`
}

func (js JobSpecification) String() string {
	return fmt.Sprintf("JobSpecification{packaging='%s', format='%s', charset='%s', destination='%s', submitterId=%d, dataFile='%s', type=%s}",
		js.Packaging, js.Format, js.Charset, js.Destination, js.SubmitterID, js.DataFile, js.Type)
}

// Priority orders jobs for processing.
type Priority int

// Priorities.
const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 4
	PriorityHigh   Priority = 7
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// RecordSplitter selects the partitioner used for a job's data file.
type RecordSplitter string

// Supported record splitters.
const (
	SplitterXML                RecordSplitter = "XML"
	SplitterISO2709            RecordSplitter = "ISO2709"
	SplitterDanMarc2LineFormat RecordSplitter = "DANMARC2_LINE_FORMAT"
)

// ParseRecordSplitter normalizes s to a RecordSplitter. Unknown values are
// passed through so that partitioner selection can report them.
func ParseRecordSplitter(s string) RecordSplitter {
	return RecordSplitter(strings.ToUpper(strings.TrimSpace(s)))
}
