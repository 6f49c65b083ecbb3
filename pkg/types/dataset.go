package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
)

// Dataset describes a published dataset. The mock tree is synced and
// world-readable inside the datasite; the private tree never leaves the
// owner's machine. The two live in disjoint directory subtrees.
type Dataset struct {
	Envelope   `yaml:",inline"`
	Summary    string            `yaml:"summary,omitempty"`
	MockURL    string            `yaml:"mock"`
	PrivateURL string            `yaml:"private,omitempty"`
	Schema     map[string]string `yaml:"schema,omitempty"`
	RuntimeID  *uuid.UUID        `yaml:"runtime_id,omitempty"`
}

func (*Dataset) EntityKind() Kind { return KindDataset }

func (d *Dataset) TargetUID() uuid.UUID { return d.UID }
func (d *Dataset) TargetKind() Kind     { return KindDataset }

func (d *Dataset) Fields() map[string]any {
	f := d.envelopeFields()
	f["summary"] = d.Summary
	f["mock"] = d.MockURL
	f["private"] = d.PrivateURL
	f["runtime_id"] = d.RuntimeID
	return f
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	c := *d
	c.Envelope = d.cloneEnvelope()
	if d.Schema != nil {
		c.Schema = make(map[string]string, len(d.Schema))
		for k, v := range d.Schema {
			c.Schema[k] = v
		}
	}
	if d.RuntimeID != nil {
		id := *d.RuntimeID
		c.RuntimeID = &id
	}
	return &c
}

// Redacted returns a guest-visible copy with the private location
// removed. Reading metadata is open; private_path access is admin-only.
func (d *Dataset) Redacted() *Dataset {
	c := d.Clone()
	c.PrivateURL = ""
	return c
}

// ApplyUpdate applies a DatasetUpdate or a full Dataset to this record.
func (d *Dataset) ApplyUpdate(u Update, inPlace bool) (*Dataset, error) {
	if u.TargetKind() != KindDataset {
		return nil, fmt.Errorf("cannot apply %s update to dataset: %w", u.TargetKind(), errdefs.ErrInvalidUpdate)
	}
	if u.TargetUID() != d.UID {
		return nil, fmt.Errorf("update uid %s does not match dataset %s: %w", u.TargetUID(), d.UID, errdefs.ErrInvalidUpdate)
	}

	target := d
	if !inPlace {
		target = d.Clone()
	}

	switch v := u.(type) {
	case *Dataset:
		*target = *v.Clone()
	case *DatasetUpdate:
		target.applyEnvelopeUpdate(v.Name, v.Description, v.Tags)
		if v.Summary != nil {
			target.Summary = *v.Summary
		}
		if v.RuntimeID != nil {
			id := *v.RuntimeID
			target.RuntimeID = &id
		}
	default:
		return nil, fmt.Errorf("unsupported update type %T: %w", u, errdefs.ErrInvalidUpdate)
	}
	target.Touch(time.Now())
	return target, nil
}

// DatasetCreate carries the fields required to publish a dataset. The
// mock and private paths are owner-local sources; the server copies them
// into the datasite layout.
type DatasetCreate struct {
	Name        string     `yaml:"name" validate:"required"`
	Description string     `yaml:"description,omitempty"`
	Tags        []string   `yaml:"tags,omitempty"`
	Summary     string     `yaml:"summary,omitempty"`
	MockPath    string     `yaml:"mock_path" validate:"required"`
	PrivatePath string     `yaml:"private_path" validate:"required"`
	ReadmePath  string     `yaml:"readme_path,omitempty"`
	RuntimeID   *uuid.UUID `yaml:"runtime_id,omitempty"`
}

// ToEntity materializes the Dataset record. URL fields are filled by the
// server once the trees are in place.
func (c *DatasetCreate) ToEntity(createdBy string) *Dataset {
	return &Dataset{
		Envelope:  NewEnvelope(c.Name, c.Description, createdBy, c.Tags),
		Summary:   c.Summary,
		RuntimeID: c.RuntimeID,
	}
}

// DatasetUpdate is the typed partial update for Datasets.
type DatasetUpdate struct {
	UID         uuid.UUID  `yaml:"uid"`
	Name        *string    `yaml:"name,omitempty"`
	Description *string    `yaml:"description,omitempty"`
	Tags        []string   `yaml:"tags,omitempty"`
	Summary     *string    `yaml:"summary,omitempty"`
	RuntimeID   *uuid.UUID `yaml:"runtime_id,omitempty"`
}

func (u *DatasetUpdate) TargetUID() uuid.UUID { return u.UID }
func (u *DatasetUpdate) TargetKind() Kind     { return KindDataset }
