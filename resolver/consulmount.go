package resolver

import (
	"strings"

	consulapi "github.com/hashicorp/consul/api"

	"github.com/layerfs/layerfs/internal/errs"
	"github.com/layerfs/layerfs/pathspec"
)

// ConsulMountTable is an optional MountTable back-end persisting entries
// to a Consul KV prefix instead of process memory, for callers running the
// resolver across multiple processes against the same mount namespace.
type ConsulMountTable struct {
	kv      *consulapi.KV
	prefix  string
	factory *pathspec.Factory
}

// NewConsulMountTable connects to Consul at addr (empty uses the client's
// default) and stores entries under prefix (e.g. "layerfs/mounts/").
func NewConsulMountTable(addr, prefix string, factory *pathspec.Factory) (*ConsulMountTable, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, errs.BackEndFailure(err)
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ConsulMountTable{kv: client.KV(), prefix: prefix, factory: factory}, nil
}

func (m *ConsulMountTable) Set(identifier string, spec *pathspec.PathSpec) error {
	pair := &consulapi.KVPair{Key: m.prefix + identifier, Value: []byte(spec.Comparable())}
	_, err := m.kv.Put(pair, nil)
	if err != nil {
		return errs.BackEndFailure(err)
	}
	return nil
}

func (m *ConsulMountTable) Remove(identifier string) error {
	_, err := m.kv.Delete(m.prefix+identifier, nil)
	if err != nil {
		return errs.BackEndFailure(err)
	}
	return nil
}

func (m *ConsulMountTable) Lookup(identifier string) (*pathspec.PathSpec, error) {
	pair, _, err := m.kv.Get(m.prefix+identifier, nil)
	if err != nil {
		return nil, errs.BackEndFailure(err)
	}
	if pair == nil {
		return nil, errs.NotFound("mount:" + identifier)
	}
	return m.factory.Parse(string(pair.Value))
}
