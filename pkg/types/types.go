package types

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies an entity kind. It doubles as the store directory name
// and the RPC endpoint namespace.
type Kind string

const (
	KindJob            Kind = "job"
	KindDataset        Kind = "dataset"
	KindRuntime        Kind = "runtime"
	KindUserCode       Kind = "user_code"
	KindCustomFunction Kind = "custom_function"
)

// Envelope carries the fields shared by every entity kind.
type Envelope struct {
	UID         uuid.UUID `yaml:"uid"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
	CreatedBy   string    `yaml:"created_by,omitempty"`
	Name        string    `yaml:"name,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
}

// NewEnvelope returns an envelope with a fresh UID and UTC timestamps.
func NewEnvelope(name, description, createdBy string, tags []string) Envelope {
	now := time.Now().UTC()
	return Envelope{
		UID:         uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   createdBy,
		Name:        name,
		Description: description,
		Tags:        tags,
	}
}

// GetUID returns the entity's unique identifier.
func (e *Envelope) GetUID() uuid.UUID { return e.UID }

// Touch refreshes the update timestamp.
func (e *Envelope) Touch(now time.Time) { e.UpdatedAt = now.UTC() }

func (e *Envelope) envelopeFields() map[string]any {
	return map[string]any{
		"uid":         e.UID,
		"created_at":  e.CreatedAt,
		"updated_at":  e.UpdatedAt,
		"created_by":  e.CreatedBy,
		"name":        e.Name,
		"description": e.Description,
	}
}

func (e *Envelope) cloneEnvelope() Envelope {
	c := *e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	return c
}

// applyEnvelopeUpdate applies the optional envelope fields of an update.
func (e *Envelope) applyEnvelopeUpdate(name, description *string, tags []string) {
	if name != nil {
		e.Name = *name
	}
	if description != nil {
		e.Description = *description
	}
	if tags != nil {
		e.Tags = append([]string(nil), tags...)
	}
}

// Entity is implemented by all stored kinds.
type Entity interface {
	EntityKind() Kind
	GetUID() uuid.UUID
	Touch(time.Time)
	Fields() map[string]any
}

// Update is implemented by the typed partial-update companions and by
// full entities, which act as whole-record updates.
type Update interface {
	TargetUID() uuid.UUID
	TargetKind() Kind
}

func envelopeSchema() Schema {
	return Schema{
		"uid":         UUIDField(),
		"created_at":  InstantField(),
		"updated_at":  InstantField(),
		"created_by":  StringField(),
		"name":        StringField(),
		"description": StringField(),
	}
}
