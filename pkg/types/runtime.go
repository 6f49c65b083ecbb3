package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
)

// RuntimeKind selects the execution backend for user code.
type RuntimeKind string

const (
	RuntimeKindPython     RuntimeKind = "python"
	RuntimeKindDocker     RuntimeKind = "docker"
	RuntimeKindKubernetes RuntimeKind = "kubernetes"
)

// ParseRuntimeKind parses a runtime kind string.
func ParseRuntimeKind(s string) (RuntimeKind, error) {
	switch RuntimeKind(s) {
	case RuntimeKindPython, RuntimeKindDocker, RuntimeKindKubernetes:
		return RuntimeKind(s), nil
	}
	return "", fmt.Errorf("unknown runtime kind %q", s)
}

// PythonRuntimeConfig configures a host-interpreter runtime.
type PythonRuntimeConfig struct {
	Version string `yaml:"version,omitempty"`
	UseUV   bool   `yaml:"use_uv,omitempty"`
}

// DockerRuntimeConfig configures a container runtime. When ImageName is
// empty the runtime name is used as the image tag. AppName keys the
// mount-provider registry for extra mounts.
type DockerRuntimeConfig struct {
	ImageName         string `yaml:"image_name,omitempty"`
	DockerfileContent string `yaml:"dockerfile_content,omitempty"`
	AppName           string `yaml:"app_name,omitempty"`
}

// KubernetesRuntimeConfig configures a cluster runtime. Accepted by the
// schema; the runner factory reports it unavailable.
type KubernetesRuntimeConfig struct {
	Image      string `yaml:"image,omitempty"`
	Namespace  string `yaml:"namespace,omitempty"`
	NumWorkers int    `yaml:"num_workers,omitempty"`
}

// RuntimeConfig holds the kind-specific configuration. Exactly the
// member matching the runtime kind is set.
type RuntimeConfig struct {
	Python     *PythonRuntimeConfig     `yaml:"python,omitempty"`
	Docker     *DockerRuntimeConfig     `yaml:"docker,omitempty"`
	Kubernetes *KubernetesRuntimeConfig `yaml:"kubernetes,omitempty"`
}

// Runtime describes an execution context for user code.
type Runtime struct {
	Envelope `yaml:",inline"`
	Kind     RuntimeKind   `yaml:"kind"`
	Cmd      []string      `yaml:"cmd,omitempty"`
	Config   RuntimeConfig `yaml:"config,omitempty"`
}

func (*Runtime) EntityKind() Kind { return KindRuntime }

func (r *Runtime) TargetUID() uuid.UUID { return r.UID }
func (r *Runtime) TargetKind() Kind     { return KindRuntime }

func (r *Runtime) Fields() map[string]any {
	f := r.envelopeFields()
	f["kind"] = r.Kind
	f["cmd"] = strings.Join(r.Cmd, " ")
	return f
}

// Clone returns a deep copy of the runtime.
func (r *Runtime) Clone() *Runtime {
	c := *r
	c.Envelope = r.cloneEnvelope()
	c.Cmd = append([]string(nil), r.Cmd...)
	if r.Config.Python != nil {
		p := *r.Config.Python
		c.Config.Python = &p
	}
	if r.Config.Docker != nil {
		d := *r.Config.Docker
		c.Config.Docker = &d
	}
	if r.Config.Kubernetes != nil {
		k := *r.Config.Kubernetes
		c.Config.Kubernetes = &k
	}
	return &c
}

// Interpreter returns the argv prefix joined for display and for the
// INTERPRETER env var inside the sandbox.
func (r *Runtime) Interpreter() string {
	return strings.Join(r.Cmd, " ")
}

// ImageName returns the docker image tag: the configured name, or the
// runtime name when none is set.
func (r *Runtime) ImageName() string {
	if r.Config.Docker != nil && r.Config.Docker.ImageName != "" {
		return r.Config.Docker.ImageName
	}
	return r.Name
}

// ApplyUpdate applies a RuntimeUpdate or a full Runtime to this record.
func (r *Runtime) ApplyUpdate(u Update, inPlace bool) (*Runtime, error) {
	if u.TargetKind() != KindRuntime {
		return nil, fmt.Errorf("cannot apply %s update to runtime: %w", u.TargetKind(), errdefs.ErrInvalidUpdate)
	}
	if u.TargetUID() != r.UID {
		return nil, fmt.Errorf("update uid %s does not match runtime %s: %w", u.TargetUID(), r.UID, errdefs.ErrInvalidUpdate)
	}

	target := r
	if !inPlace {
		target = r.Clone()
	}

	switch v := u.(type) {
	case *Runtime:
		*target = *v.Clone()
	case *RuntimeUpdate:
		target.applyEnvelopeUpdate(v.Name, v.Description, v.Tags)
		if v.Cmd != nil {
			target.Cmd = append([]string(nil), v.Cmd...)
		}
		if v.Config != nil {
			target.Config = *v.Config
		}
	default:
		return nil, fmt.Errorf("unsupported update type %T: %w", u, errdefs.ErrInvalidUpdate)
	}
	target.Touch(time.Now())
	return target, nil
}

// RuntimeCreate carries the fields required to register a runtime.
type RuntimeCreate struct {
	Name        string        `yaml:"name,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Tags        []string      `yaml:"tags,omitempty"`
	Kind        RuntimeKind   `yaml:"kind" validate:"required"`
	Cmd         []string      `yaml:"cmd,omitempty"`
	Config      RuntimeConfig `yaml:"config,omitempty"`
}

// ToEntity materializes the Runtime with defaults: python runtimes get
// cmd ["python3"], and a missing name is derived from the kind plus a
// short hash of the configuration.
func (c *RuntimeCreate) ToEntity(createdBy string) *Runtime {
	r := &Runtime{
		Envelope: NewEnvelope(c.Name, c.Description, createdBy, c.Tags),
		Kind:     c.Kind,
		Cmd:      c.Cmd,
		Config:   c.Config,
	}
	if len(r.Cmd) == 0 && r.Kind == RuntimeKindPython {
		r.Cmd = []string{"python3"}
	}
	if r.Name == "" {
		r.Name = fmt.Sprintf("%s-%s", r.Kind, configHash(r))
	}
	return r
}

// configHash derives a stable 8-hex-char digest over kind, cmd and the
// kind-specific config.
func configHash(r *Runtime) string {
	raw, err := yaml.Marshal(struct {
		Kind   RuntimeKind   `yaml:"kind"`
		Cmd    []string      `yaml:"cmd"`
		Config RuntimeConfig `yaml:"config"`
	}{r.Kind, r.Cmd, r.Config})
	if err != nil {
		raw = []byte(string(r.Kind) + strings.Join(r.Cmd, " "))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:4])
}

// RuntimeUpdate is the typed partial update for Runtimes.
type RuntimeUpdate struct {
	UID         uuid.UUID      `yaml:"uid"`
	Name        *string        `yaml:"name,omitempty"`
	Description *string        `yaml:"description,omitempty"`
	Tags        []string       `yaml:"tags,omitempty"`
	Cmd         []string       `yaml:"cmd,omitempty"`
	Config      *RuntimeConfig `yaml:"config,omitempty"`
}

func (u *RuntimeUpdate) TargetUID() uuid.UUID { return u.UID }
func (u *RuntimeUpdate) TargetKind() Kind     { return KindRuntime }

// DefaultRuntimeCreate returns the ephemeral python runtime used when a
// job references no runtime.
func DefaultRuntimeCreate() *RuntimeCreate {
	return &RuntimeCreate{
		Kind: RuntimeKindPython,
		Cmd:  []string{"python3"},
		Config: RuntimeConfig{
			Python: &PythonRuntimeConfig{},
		},
	}
}
