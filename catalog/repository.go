package catalog

import (
	"context"

	"github.com/joshjon/kit/paginate"

	"github.com/rivulet-sh/rivulet/tx"
)

// Repository is the interface for performing CRUD operations on Namespaces,
// ServiceClusterMappings, and Topologies.
//
// Implementations must pass all tests in the RepositoryTestSuite to be
// considered compliant for use in the application.
type Repository interface {
	NamespaceRepository
	MappingRepository
	TopologyRepository
	tx.Repository[Repository]
}

// NamespaceFilter narrows ListNamespaces to namespaces whose service bindings
// match every field that is set. Unset fields match everything.
type NamespaceFilter struct {
	StreamingEngine *string
	TimeSeriesStore *string
}

type NamespaceRepository interface {
	CreateNamespace(ctx context.Context, namespace *Namespace) error
	// PutNamespace creates or replaces the namespace stored at its ID.
	PutNamespace(ctx context.Context, namespace *Namespace) error
	ReadNamespace(ctx context.Context, id NamespaceID) (*Namespace, error)
	ReadNamespaceByName(ctx context.Context, name string) (*Namespace, error)
	ListNamespaces(ctx context.Context, fltr NamespaceFilter, page paginate.PageFilter[NamespaceID]) ([]*Namespace, error)
	DeleteNamespace(ctx context.Context, id NamespaceID) error // must cascade delete mappings and topologies
}

// MappingRepository operations are keyed by the full mapping triple. List
// operations return an empty slice, never nil, when nothing matches.
type MappingRepository interface {
	PutServiceClusterMapping(ctx context.Context, mapping ServiceClusterMapping) error
	ReadServiceClusterMapping(ctx context.Context, namespaceID NamespaceID, serviceName string, clusterID ClusterID) (ServiceClusterMapping, error)
	ListServiceClusterMappings(ctx context.Context, namespaceID NamespaceID) ([]ServiceClusterMapping, error)
	ListServiceClusterMappingsByService(ctx context.Context, namespaceID NamespaceID, serviceName string) ([]ServiceClusterMapping, error)
	DeleteServiceClusterMapping(ctx context.Context, namespaceID NamespaceID, serviceName string, clusterID ClusterID) error
}

type TopologyRepository interface {
	CreateTopology(ctx context.Context, topology *Topology) error
	ReadTopology(ctx context.Context, id TopologyID) (*Topology, error)
	ListTopologies(ctx context.Context, page paginate.PageFilter[TopologyID]) ([]*Topology, error)
	ListTopologiesByNamespace(ctx context.Context, namespaceID NamespaceID) ([]*Topology, error)
	DeleteTopology(ctx context.Context, id TopologyID) error
}
