package sqlite

import (
	"database/sql"

	"github.com/rivulet-sh/rivulet/catalog"
)

func scanNamespace(scan func(dest ...any) error) (*catalog.Namespace, error) {
	var id, name, engine, store, description string
	if err := scan(&id, &name, &engine, &store, &description); err != nil {
		return nil, err
	}
	return &catalog.Namespace{
		ID:              catalog.MustParseID[catalog.NamespaceID](id),
		Name:            name,
		StreamingEngine: engine,
		TimeSeriesStore: store,
		Description:     description,
	}, nil
}

func scanMapping(scan func(dest ...any) error) (catalog.ServiceClusterMapping, error) {
	var namespaceID, serviceName, clusterID string
	if err := scan(&namespaceID, &serviceName, &clusterID); err != nil {
		return catalog.ServiceClusterMapping{}, err
	}
	return catalog.ServiceClusterMapping{
		NamespaceID: catalog.MustParseID[catalog.NamespaceID](namespaceID),
		ServiceName: serviceName,
		ClusterID:   catalog.MustParseID[catalog.ClusterID](clusterID),
	}, nil
}

func scanMappings(rows *sql.Rows) ([]catalog.ServiceClusterMapping, error) {
	mappings := []catalog.ServiceClusterMapping{}
	for rows.Next() {
		mapping, err := scanMapping(rows.Scan)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}
	return mappings, rows.Err()
}

func scanTopology(scan func(dest ...any) error) (*catalog.Topology, error) {
	var id, namespaceID, name string
	if err := scan(&id, &namespaceID, &name); err != nil {
		return nil, err
	}
	return &catalog.Topology{
		ID:          catalog.MustParseID[catalog.TopologyID](id),
		NamespaceID: catalog.MustParseID[catalog.NamespaceID](namespaceID),
		Name:        name,
	}, nil
}

func scanTopologies(rows *sql.Rows) ([]*catalog.Topology, error) {
	topologies := []*catalog.Topology{}
	for rows.Next() {
		top, err := scanTopology(rows.Scan)
		if err != nil {
			return nil, err
		}
		topologies = append(topologies, top)
	}
	return topologies, rows.Err()
}
