package catalog

import "fmt"

type Entity interface {
	Namespace | ServiceClusterMapping | Topology
}

func GetTypeName[T Entity]() string {
	var t T
	switch v := any(t).(type) {
	case Namespace:
		return "namespace"
	case ServiceClusterMapping:
		return "mapping"
	case Topology:
		return "topology"
	default:
		panic(fmt.Sprintf("failed to get entity type name: unknown entity type %T", v))
	}
}

// GetTypeNameFromID returns the type name of the ID.
func GetTypeNameFromID[T ID]() string {
	var t T
	switch v := any(t).(type) {
	case NamespaceID:
		return "namespace"
	case ClusterID:
		return "cluster"
	case TopologyID:
		return "topology"
	default:
		panic(fmt.Sprintf("failed to get entity type name from id: unknown id type %T", v))
	}
}
