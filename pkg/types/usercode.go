package types

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
)

// UserCodeType distinguishes a single-file submission from a folder.
type UserCodeType string

const (
	UserCodeTypeFile   UserCodeType = "file"
	UserCodeTypeFolder UserCodeType = "folder"
)

// ParseUserCodeType parses a code type string.
func ParseUserCodeType(s string) (UserCodeType, error) {
	switch UserCodeType(s) {
	case UserCodeTypeFile, UserCodeTypeFolder:
		return UserCodeType(s), nil
	}
	return "", fmt.Errorf("unknown user code type %q", s)
}

// UserCode is a submitted code bundle. The zipped bytes travel only in
// the create request; the server unpacks them and stores LocalDir.
type UserCode struct {
	Envelope   `yaml:",inline"`
	Entrypoint string       `yaml:"entrypoint"`
	CodeType   UserCodeType `yaml:"code_type"`
	LocalDir   string       `yaml:"local_dir,omitempty"`
}

func (*UserCode) EntityKind() Kind { return KindUserCode }

func (u *UserCode) TargetUID() uuid.UUID { return u.UID }
func (u *UserCode) TargetKind() Kind     { return KindUserCode }

func (u *UserCode) Fields() map[string]any {
	f := u.envelopeFields()
	f["entrypoint"] = u.Entrypoint
	f["code_type"] = u.CodeType
	f["local_dir"] = u.LocalDir
	return f
}

// Clone returns a deep copy of the user code record.
func (u *UserCode) Clone() *UserCode {
	c := *u
	c.Envelope = u.cloneEnvelope()
	return &c
}

// EntrypointPath resolves the entrypoint inside the unpacked directory.
func (u *UserCode) EntrypointPath() string {
	return filepath.Join(u.LocalDir, u.Entrypoint)
}

// ApplyUpdate applies a UserCodeUpdate or a full UserCode to this record.
func (u *UserCode) ApplyUpdate(upd Update, inPlace bool) (*UserCode, error) {
	if upd.TargetKind() != KindUserCode {
		return nil, fmt.Errorf("cannot apply %s update to user code: %w", upd.TargetKind(), errdefs.ErrInvalidUpdate)
	}
	if upd.TargetUID() != u.UID {
		return nil, fmt.Errorf("update uid %s does not match user code %s: %w", upd.TargetUID(), u.UID, errdefs.ErrInvalidUpdate)
	}

	target := u
	if !inPlace {
		target = u.Clone()
	}

	switch v := upd.(type) {
	case *UserCode:
		*target = *v.Clone()
	case *UserCodeUpdate:
		target.applyEnvelopeUpdate(v.Name, v.Description, v.Tags)
		if v.LocalDir != nil {
			target.LocalDir = *v.LocalDir
		}
	default:
		return nil, fmt.Errorf("unsupported update type %T: %w", upd, errdefs.ErrInvalidUpdate)
	}
	target.Touch(time.Now())
	return target, nil
}

// UserCodeCreate carries a new code bundle. FilesZipped is in-flight
// only and never persisted.
type UserCodeCreate struct {
	Name        string       `yaml:"name,omitempty"`
	Description string       `yaml:"description,omitempty"`
	Tags        []string     `yaml:"tags,omitempty"`
	Entrypoint  string       `yaml:"entrypoint" validate:"required"`
	CodeType    UserCodeType `yaml:"code_type" validate:"required"`
	FilesZipped []byte       `yaml:"files_zipped,omitempty"`
}

// ToEntity materializes the UserCode record (LocalDir is set by the
// server after unpacking).
func (c *UserCodeCreate) ToEntity(createdBy string) *UserCode {
	u := &UserCode{
		Envelope:   NewEnvelope(c.Name, c.Description, createdBy, c.Tags),
		Entrypoint: c.Entrypoint,
		CodeType:   c.CodeType,
	}
	if u.Name == "" {
		u.Name = "code-" + shortUID(u.UID)
	}
	return u
}

// UserCodeUpdate is the typed partial update for UserCode.
type UserCodeUpdate struct {
	UID         uuid.UUID `yaml:"uid"`
	Name        *string   `yaml:"name,omitempty"`
	Description *string   `yaml:"description,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	LocalDir    *string   `yaml:"local_dir,omitempty"`
}

func (u *UserCodeUpdate) TargetUID() uuid.UUID { return u.UID }
func (u *UserCodeUpdate) TargetKind() Kind     { return KindUserCode }

// CustomFunction is a reusable owner-published function bundle with a
// readme describing its use.
type CustomFunction struct {
	Envelope       `yaml:",inline"`
	Entrypoint     string `yaml:"entrypoint"`
	ReadmeFilename string `yaml:"readme_filename,omitempty"`
	LocalDir       string `yaml:"local_dir,omitempty"`
}

func (*CustomFunction) EntityKind() Kind { return KindCustomFunction }

func (c *CustomFunction) TargetUID() uuid.UUID { return c.UID }
func (c *CustomFunction) TargetKind() Kind     { return KindCustomFunction }

func (c *CustomFunction) Fields() map[string]any {
	f := c.envelopeFields()
	f["entrypoint"] = c.Entrypoint
	f["readme_filename"] = c.ReadmeFilename
	f["local_dir"] = c.LocalDir
	return f
}

// Clone returns a deep copy of the custom function record.
func (c *CustomFunction) Clone() *CustomFunction {
	cp := *c
	cp.Envelope = c.cloneEnvelope()
	return &cp
}

// EntrypointPath resolves the entrypoint inside the unpacked directory.
func (c *CustomFunction) EntrypointPath() string {
	return filepath.Join(c.LocalDir, c.Entrypoint)
}

// ReadmePath resolves the readme inside the unpacked directory.
func (c *CustomFunction) ReadmePath() string {
	return filepath.Join(c.LocalDir, c.ReadmeFilename)
}

// ApplyUpdate applies a CustomFunctionUpdate or a full CustomFunction.
func (c *CustomFunction) ApplyUpdate(upd Update, inPlace bool) (*CustomFunction, error) {
	if upd.TargetKind() != KindCustomFunction {
		return nil, fmt.Errorf("cannot apply %s update to custom function: %w", upd.TargetKind(), errdefs.ErrInvalidUpdate)
	}
	if upd.TargetUID() != c.UID {
		return nil, fmt.Errorf("update uid %s does not match custom function %s: %w", upd.TargetUID(), c.UID, errdefs.ErrInvalidUpdate)
	}

	target := c
	if !inPlace {
		target = c.Clone()
	}

	switch v := upd.(type) {
	case *CustomFunction:
		*target = *v.Clone()
	case *CustomFunctionUpdate:
		target.applyEnvelopeUpdate(v.Name, v.Description, v.Tags)
		if v.LocalDir != nil {
			target.LocalDir = *v.LocalDir
		}
	default:
		return nil, fmt.Errorf("unsupported update type %T: %w", upd, errdefs.ErrInvalidUpdate)
	}
	target.Touch(time.Now())
	return target, nil
}

// CustomFunctionCreate carries a new custom function bundle.
type CustomFunctionCreate struct {
	Name           string   `yaml:"name,omitempty"`
	Description    string   `yaml:"description,omitempty"`
	Tags           []string `yaml:"tags,omitempty"`
	Entrypoint     string   `yaml:"entrypoint" validate:"required"`
	ReadmeFilename string   `yaml:"readme_filename,omitempty"`
	FilesZipped    []byte   `yaml:"files_zipped,omitempty"`
}

// ToEntity materializes the CustomFunction record.
func (c *CustomFunctionCreate) ToEntity(createdBy string) *CustomFunction {
	cf := &CustomFunction{
		Envelope:       NewEnvelope(c.Name, c.Description, createdBy, c.Tags),
		Entrypoint:     c.Entrypoint,
		ReadmeFilename: c.ReadmeFilename,
	}
	if cf.Name == "" {
		cf.Name = "function-" + shortUID(cf.UID)
	}
	return cf
}

// CustomFunctionUpdate is the typed partial update for CustomFunctions.
type CustomFunctionUpdate struct {
	UID         uuid.UUID `yaml:"uid"`
	Name        *string   `yaml:"name,omitempty"`
	Description *string   `yaml:"description,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	LocalDir    *string   `yaml:"local_dir,omitempty"`
}

func (u *CustomFunctionUpdate) TargetUID() uuid.UUID { return u.UID }
func (u *CustomFunctionUpdate) TargetKind() Kind     { return KindCustomFunction }
