package scanner

import "github.com/layerfs/layerfs/pathspec"

// Mediator drives the interactive decisions a volume scan needs beyond
// what Options can express statically: which of several candidates a
// human operator would pick, and what credential to offer a locked
// volume when none of the options' preset credentials apply (§4.8).
type Mediator interface {
	// SelectPartitions narrows candidates (already filtered by Options)
	// down to the caller's final choice, e.g. via an interactive prompt.
	SelectPartitions(candidates []*pathspec.PathSpec) ([]*pathspec.PathSpec, error)

	// SelectVolumes is SelectPartitions' counterpart for APFS/LVM volumes.
	SelectVolumes(candidates []*pathspec.PathSpec) ([]*pathspec.PathSpec, error)

	// SelectSnapshots is SelectPartitions' counterpart for VSS stores.
	SelectSnapshots(candidates []*pathspec.PathSpec) ([]*pathspec.PathSpec, error)

	// Credential offers a value for a locked spec's named credential,
	// returning ok=false to leave it locked.
	Credential(spec *pathspec.PathSpec, name string) (string, bool)
}

// PassthroughMediator is the default, non-interactive Mediator: every
// Select* call accepts every candidate, and Credential never has an
// answer (callers relying on it alone leave every locked volume locked).
type PassthroughMediator struct{}

func (PassthroughMediator) SelectPartitions(c []*pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	return c, nil
}

func (PassthroughMediator) SelectVolumes(c []*pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	return c, nil
}

func (PassthroughMediator) SelectSnapshots(c []*pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	return c, nil
}

func (PassthroughMediator) Credential(spec *pathspec.PathSpec, name string) (string, bool) {
	return "", false
}

// StaticMediator answers Credential from a preset table and otherwise
// behaves like PassthroughMediator, for tests and scripted scans that
// need no real operator.
type StaticMediator struct {
	Credentials map[pathspec.Type]map[string]string
}

func NewStaticMediator() *StaticMediator {
	return &StaticMediator{Credentials: make(map[pathspec.Type]map[string]string)}
}

func (m *StaticMediator) Set(typ pathspec.Type, name, value string) {
	entries, ok := m.Credentials[typ]
	if !ok {
		entries = make(map[string]string)
		m.Credentials[typ] = entries
	}
	entries[name] = value
}

func (m *StaticMediator) SelectPartitions(c []*pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	return c, nil
}

func (m *StaticMediator) SelectVolumes(c []*pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	return c, nil
}

func (m *StaticMediator) SelectSnapshots(c []*pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	return c, nil
}

func (m *StaticMediator) Credential(spec *pathspec.PathSpec, name string) (string, bool) {
	entries, ok := m.Credentials[spec.Type()]
	if !ok {
		return "", false
	}
	value, ok := entries[name]
	return value, ok
}
