package features

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/layergraph/internal/codec"
)

// Envelope is the serialized shape of a Feature: the label plus exactly one
// populated kind field. It is shared by the YAML declaration format and the
// persisted graph encoding.
type Envelope struct {
	Label           string           `cbor:"label" yaml:"label"`
	EnsureDirExists *EnsureDirExists `cbor:"ensure_dir_exists,omitempty" yaml:"ensure_dir_exists,omitempty"`
	Install         *Install         `cbor:"install,omitempty" yaml:"install,omitempty"`
	Symlink         *Symlink         `cbor:"symlink,omitempty" yaml:"symlink,omitempty"`
	Remove          *Remove          `cbor:"remove,omitempty" yaml:"remove,omitempty"`
	User            *User            `cbor:"user,omitempty" yaml:"user,omitempty"`
	Group           *Group           `cbor:"group,omitempty" yaml:"group,omitempty"`
	Rpm             *Rpm             `cbor:"rpm,omitempty" yaml:"rpm,omitempty"`
	Extract         *Extract         `cbor:"extract,omitempty" yaml:"extract,omitempty"`
	Genrule         *Genrule         `cbor:"genrule,omitempty" yaml:"genrule,omitempty"`
	Requires        *Requires        `cbor:"requires,omitempty" yaml:"requires,omitempty"`
}

// ErrEmptyEnvelope is returned when an envelope has no kind field set.
var ErrEmptyEnvelope = errors.New("feature has no kind set")

// Feature unpacks the envelope. It is an error for more or fewer than one
// kind field to be populated.
func (e Envelope) Feature() (Feature, error) {
	var set []Data
	if e.EnsureDirExists != nil {
		set = append(set, *e.EnsureDirExists)
	}
	if e.Install != nil {
		set = append(set, *e.Install)
	}
	if e.Symlink != nil {
		set = append(set, *e.Symlink)
	}
	if e.Remove != nil {
		set = append(set, *e.Remove)
	}
	if e.User != nil {
		set = append(set, *e.User)
	}
	if e.Group != nil {
		set = append(set, *e.Group)
	}
	if e.Rpm != nil {
		set = append(set, *e.Rpm)
	}
	if e.Extract != nil {
		set = append(set, *e.Extract)
	}
	if e.Genrule != nil {
		set = append(set, *e.Genrule)
	}
	if e.Requires != nil {
		set = append(set, *e.Requires)
	}
	switch len(set) {
	case 0:
		return Feature{}, fmt.Errorf("feature %q: %w", e.Label, ErrEmptyEnvelope)
	case 1:
		return Feature{Label: e.Label, Data: set[0]}, nil
	default:
		kinds := make([]Kind, len(set))
		for i, d := range set {
			kinds[i] = d.Kind()
		}
		return Feature{}, fmt.Errorf("feature %q: exactly one kind must be set, got %v", e.Label, kinds)
	}
}

// EnvelopeOf packs a feature into its serialized shape.
func EnvelopeOf(f Feature) Envelope {
	e := Envelope{Label: f.Label}
	switch d := f.Data.(type) {
	case EnsureDirExists:
		e.EnsureDirExists = &d
	case Install:
		e.Install = &d
	case Symlink:
		e.Symlink = &d
	case Remove:
		e.Remove = &d
	case User:
		e.User = &d
	case Group:
		e.Group = &d
	case Rpm:
		e.Rpm = &d
	case Extract:
		e.Extract = &d
	case Genrule:
		e.Genrule = &d
	case Requires:
		e.Requires = &d
	}
	return e
}

// MarshalCBOR encodes the feature through its envelope.
func (f Feature) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(EnvelopeOf(f))
}

// UnmarshalCBOR decodes a feature from its envelope.
func (f *Feature) UnmarshalCBOR(data []byte) error {
	var e Envelope
	if err := codec.Unmarshal(data, &e); err != nil {
		return err
	}
	decoded, err := e.Feature()
	if err != nil {
		return err
	}
	*f = decoded
	return nil
}
