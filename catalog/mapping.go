package catalog

import "go.jetify.com/typeid"

type clusterPrefix struct{}

func (clusterPrefix) Prefix() string { return "cl" }

// ClusterID is the unique identifier for a physical cluster. Clusters are
// managed outside the catalog; the ID is carried through unmodified.
type ClusterID struct {
	typeid.TypeID[clusterPrefix]
}

// ServiceClusterMapping assigns a named service to a cluster within a
// namespace. The (namespace, service, cluster) triple is the identity; there
// is no surrogate key, and at most one mapping exists per triple.
type ServiceClusterMapping struct {
	NamespaceID NamespaceID `json:"namespace_id"`
	ServiceName string      `json:"service_name"`
	ClusterID   ClusterID   `json:"cluster_id"`
}
