package catalog

import "go.jetify.com/typeid"

type topologyPrefix struct{}

func (topologyPrefix) Prefix() string { return "top" }

// TopologyID is the unique identifier for a Topology.
type TopologyID struct {
	typeid.TypeID[topologyPrefix]
}

// Topology is a deployed processing graph registered against a namespace.
// A namespace referenced by one or more topologies cannot be deleted.
type Topology struct {
	ID          TopologyID  `json:"id"`
	NamespaceID NamespaceID `json:"namespace_id"`
	Name        string      `json:"name"`
}

// NewTopology creates a new Topology with a generated ID.
func NewTopology(namespaceID NamespaceID, name string) *Topology {
	return &Topology{
		ID:          NewID[TopologyID](),
		NamespaceID: namespaceID,
		Name:        name,
	}
}
