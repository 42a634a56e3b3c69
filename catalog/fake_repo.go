package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/paginate"

	"github.com/rivulet-sh/rivulet/internal/testutil"
	"github.com/rivulet-sh/rivulet/tx"
)

var (
	errFakeNotFound = errtag.NewTagged[errtag.NotFound]("fake not found")
	errFakeConflict = errtag.NewTagged[errtag.Conflict]("fake conflict")
)

var _ Repository = (*FakeRepository)(nil)

// FakeRepository is an in-memory Repository for tests that do not need a
// database. It enforces the same uniqueness rules as the SQL schemas.
type FakeRepository struct {
	namespaces *testutil.KV[NamespaceID, *Namespace]
	mappings   *testutil.KV[string, ServiceClusterMapping]
	topologies *testutil.KV[TopologyID, *Topology]
}

func NewFakeRepository(t *testing.T) *FakeRepository {
	t.Helper()
	return &FakeRepository{
		namespaces: testutil.NewKV(t,
			testutil.WithIndex[NamespaceID, *Namespace]("name", func(ns *Namespace) string {
				return ns.Name
			}),
		),
		mappings:   testutil.NewKV[string, ServiceClusterMapping](t),
		topologies: testutil.NewKV[TopologyID, *Topology](t),
	}
}

func (r *FakeRepository) CreateNamespace(_ context.Context, namespace *Namespace) error {
	if _, ok := r.namespaces.Get(namespace.ID); ok {
		return errtag.Tag[ErrTagConflict[Namespace]](errFakeConflict)
	}
	if _, ok := r.namespaces.GetByIndex("name", namespace.Name); ok {
		return errtag.Tag[ErrTagConflict[Namespace]](errFakeConflict)
	}
	r.namespaces.Put(namespace.ID, namespace)
	return nil
}

func (r *FakeRepository) PutNamespace(_ context.Context, namespace *Namespace) error {
	if existing, ok := r.namespaces.GetByIndex("name", namespace.Name); ok && existing.ID != namespace.ID {
		return errtag.Tag[ErrTagConflict[Namespace]](errFakeConflict)
	}
	// Delete first so a replaced name does not leave a stale index entry.
	r.namespaces.Delete(namespace.ID)
	r.namespaces.Put(namespace.ID, namespace)
	return nil
}

func (r *FakeRepository) ReadNamespace(_ context.Context, id NamespaceID) (*Namespace, error) {
	ns, ok := r.namespaces.Get(id)
	if !ok {
		return nil, errtag.Tag[ErrTagNotFound[Namespace]](errFakeNotFound)
	}
	return ns, nil
}

func (r *FakeRepository) ReadNamespaceByName(_ context.Context, name string) (*Namespace, error) {
	ns, ok := r.namespaces.GetByIndex("name", name)
	if !ok {
		return nil, errtag.Tag[ErrTagNotFound[Namespace]](errFakeNotFound)
	}
	return ns, nil
}

func (r *FakeRepository) ListNamespaces(_ context.Context, fltr NamespaceFilter, page paginate.PageFilter[NamespaceID]) ([]*Namespace, error) {
	kvFilter := testutil.PageFilter{Size: page.Size}
	if page.Cursor != nil {
		kvFilter.Cursor = *page.Cursor
	}
	namespaces := r.namespaces.List(kvFilter, func(_ NamespaceID, ns *Namespace) bool {
		if fltr.StreamingEngine != nil && ns.StreamingEngine != *fltr.StreamingEngine {
			return true
		}
		if fltr.TimeSeriesStore != nil && ns.TimeSeriesStore != *fltr.TimeSeriesStore {
			return true
		}
		return false
	})
	if namespaces == nil {
		namespaces = []*Namespace{}
	}
	return namespaces, nil
}

func (r *FakeRepository) DeleteNamespace(ctx context.Context, id NamespaceID) error {
	if _, ok := r.namespaces.Get(id); !ok {
		return errtag.Tag[ErrTagNotFound[Namespace]](errFakeNotFound)
	}

	r.mappings.Range(func(key string, m ServiceClusterMapping) bool {
		if m.NamespaceID == id {
			r.mappings.Delete(key)
		}
		return true
	})
	r.topologies.Range(func(topologyID TopologyID, top *Topology) bool {
		if top.NamespaceID == id {
			r.topologies.Delete(topologyID)
		}
		return true
	})
	r.namespaces.Delete(id)
	return nil
}

func (r *FakeRepository) PutServiceClusterMapping(_ context.Context, mapping ServiceClusterMapping) error {
	r.mappings.Put(mappingKey(mapping.NamespaceID, mapping.ServiceName, mapping.ClusterID), mapping)
	return nil
}

func (r *FakeRepository) ReadServiceClusterMapping(_ context.Context, namespaceID NamespaceID, serviceName string, clusterID ClusterID) (ServiceClusterMapping, error) {
	m, ok := r.mappings.Get(mappingKey(namespaceID, serviceName, clusterID))
	if !ok {
		return ServiceClusterMapping{}, errtag.Tag[ErrTagNotFound[ServiceClusterMapping]](errFakeNotFound)
	}
	return m, nil
}

func (r *FakeRepository) ListServiceClusterMappings(_ context.Context, namespaceID NamespaceID) ([]ServiceClusterMapping, error) {
	mappings := r.mappings.List(testutil.PageFilter{}, func(_ string, m ServiceClusterMapping) bool {
		return m.NamespaceID != namespaceID
	})
	if mappings == nil {
		mappings = []ServiceClusterMapping{}
	}
	return mappings, nil
}

func (r *FakeRepository) ListServiceClusterMappingsByService(_ context.Context, namespaceID NamespaceID, serviceName string) ([]ServiceClusterMapping, error) {
	mappings := r.mappings.List(testutil.PageFilter{}, func(_ string, m ServiceClusterMapping) bool {
		return m.NamespaceID != namespaceID || m.ServiceName != serviceName
	})
	if mappings == nil {
		mappings = []ServiceClusterMapping{}
	}
	return mappings, nil
}

func (r *FakeRepository) DeleteServiceClusterMapping(_ context.Context, namespaceID NamespaceID, serviceName string, clusterID ClusterID) error {
	key := mappingKey(namespaceID, serviceName, clusterID)
	if _, ok := r.mappings.Get(key); !ok {
		return errtag.Tag[ErrTagNotFound[ServiceClusterMapping]](errFakeNotFound)
	}
	r.mappings.Delete(key)
	return nil
}

func (r *FakeRepository) CreateTopology(_ context.Context, topology *Topology) error {
	if _, ok := r.topologies.Get(topology.ID); ok {
		return errtag.Tag[ErrTagConflict[Topology]](errFakeConflict)
	}
	r.topologies.Put(topology.ID, topology)
	return nil
}

func (r *FakeRepository) ReadTopology(_ context.Context, id TopologyID) (*Topology, error) {
	top, ok := r.topologies.Get(id)
	if !ok {
		return nil, errtag.Tag[ErrTagNotFound[Topology]](errFakeNotFound)
	}
	return top, nil
}

func (r *FakeRepository) ListTopologies(_ context.Context, page paginate.PageFilter[TopologyID]) ([]*Topology, error) {
	kvFilter := testutil.PageFilter{Size: page.Size}
	if page.Cursor != nil {
		kvFilter.Cursor = *page.Cursor
	}
	topologies := r.topologies.List(kvFilter)
	if topologies == nil {
		topologies = []*Topology{}
	}
	return topologies, nil
}

func (r *FakeRepository) ListTopologiesByNamespace(_ context.Context, namespaceID NamespaceID) ([]*Topology, error) {
	topologies := r.topologies.List(testutil.PageFilter{}, func(_ TopologyID, top *Topology) bool {
		return top.NamespaceID != namespaceID
	})
	if topologies == nil {
		topologies = []*Topology{}
	}
	return topologies, nil
}

func (r *FakeRepository) DeleteTopology(_ context.Context, id TopologyID) error {
	if _, ok := r.topologies.Get(id); !ok {
		return errtag.Tag[ErrTagNotFound[Topology]](errFakeNotFound)
	}
	r.topologies.Delete(id)
	return nil
}

func (r *FakeRepository) BeginTx(_ context.Context) (tx.Tx, error) {
	return &testutil.FakeTx{}, nil
}

func (r *FakeRepository) WithTx(_ tx.Tx) (Repository, error) {
	return r, nil
}

func (r *FakeRepository) BeginTxFunc(ctx context.Context, fn func(ctx context.Context, txn tx.Tx, repo Repository) error) error {
	return fn(ctx, &testutil.FakeTx{}, r)
}

func mappingKey(namespaceID NamespaceID, serviceName string, clusterID ClusterID) string {
	return fmt.Sprintf("%s#%s#%s", namespaceID, serviceName, clusterID)
}
