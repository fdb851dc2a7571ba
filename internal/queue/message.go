package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/reader"
	"github.com/wsmontes/linkchart/pkg/report"
)

type Operation string

const (
	// OperationImport reads uploaded files into a stored graph.
	OperationImport Operation = "import"
	// OperationRecanonicalize runs a stored graph through the pipeline again,
	// for example after custom types changed.
	OperationRecanonicalize Operation = "recanonicalize"
)

// FileRef points at an uploaded object.
type FileRef struct {
	Key  string `json:"key" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// ImportJob is the body of an import_queue message.
type ImportJob struct {
	JobID      string    `json:"jobId" validate:"required"`
	GraphID    string    `json:"graphId" validate:"required"`
	Operation  Operation `json:"operation" validate:"required,oneof=import recanonicalize"`
	SourceID   string    `json:"sourceId,omitempty"`
	SourceName string    `json:"sourceName,omitempty"`

	Entities *FileRef       `json:"entities,omitempty"`
	Links    *FileRef       `json:"links,omitempty"`
	Options  reader.Options `json:"options"`
	Merge    bool           `json:"merge"`

	// Config is an optional processing options document.
	Config json.RawMessage `json:"config,omitempty"`
}

var validate = validator.New()

func (j *ImportJob) Validate() error {
	if err := validate.Struct(j); err != nil {
		return err
	}
	if j.Operation == OperationImport && j.Entities == nil {
		return errors.New("import job has no entities file")
	}
	return nil
}

// DecodeImportJob parses and validates a message body. Every error it
// returns is permanent.
func DecodeImportJob(body []byte) (*ImportJob, error) {
	job := new(ImportJob)
	if err := json.Unmarshal(body, job); err != nil {
		return nil, Permanent(fmt.Errorf("decode import job: %w", err))
	}
	if err := job.Validate(); err != nil {
		return nil, Permanent(fmt.Errorf("invalid import job: %w", err))
	}
	return job, nil
}

// CanonicalizedMsg is published on TopicCanonicalized after a batch has been
// canonicalized and stored.
type CanonicalizedMsg struct {
	GraphID string             `json:"graphId"`
	JobID   string             `json:"jobId,omitempty"`
	Source  *common.DataSource `json:"source"`
	Report  *report.Report     `json:"report"`
	Errors  []string           `json:"errors,omitempty"`
}
