package catalog

import (
	"context"
	"fmt"

	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/paginate"

	"github.com/rivulet-sh/rivulet/tx"
)

// Storer is the set of catalog operations exposed to the transport layer.
type Storer interface {
	CreateNamespace(ctx context.Context, namespace *Namespace) error
	PutNamespace(ctx context.Context, namespace *Namespace) error
	ReadNamespace(ctx context.Context, id NamespaceID) (*Namespace, error)
	ReadNamespaceByName(ctx context.Context, name string) (*Namespace, error)
	ListNamespaces(ctx context.Context, fltr NamespaceFilter, page paginate.PageFilter[NamespaceID]) ([]*Namespace, error)
	DeleteNamespace(ctx context.Context, id NamespaceID) (*Namespace, error)

	PutServiceClusterMapping(ctx context.Context, mapping ServiceClusterMapping) (ServiceClusterMapping, error)
	ListServiceClusterMappings(ctx context.Context, namespaceID NamespaceID) ([]ServiceClusterMapping, error)
	ListServiceClusterMappingsByService(ctx context.Context, namespaceID NamespaceID, serviceName string) ([]ServiceClusterMapping, error)
	DeleteServiceClusterMapping(ctx context.Context, namespaceID NamespaceID, serviceName string, clusterID ClusterID) (ServiceClusterMapping, error)
	DeleteAllServiceClusterMappings(ctx context.Context, namespaceID NamespaceID) ([]ServiceClusterMapping, error)
	ReplaceServiceClusterMappings(ctx context.Context, namespaceID NamespaceID, mappings []ServiceClusterMapping) ([]ServiceClusterMapping, error)

	CreateTopology(ctx context.Context, topology *Topology) error
	ReadTopology(ctx context.Context, id TopologyID) (*Topology, error)
	ListTopologies(ctx context.Context, page paginate.PageFilter[TopologyID]) ([]*Topology, error)
	ListTopologiesByNamespace(ctx context.Context, namespaceID NamespaceID) ([]*Topology, error)
	DeleteTopology(ctx context.Context, id TopologyID) error
}

// TxStorer is a Storer whose operations can be grouped into a single
// transaction.
type TxStorer[S Storer] interface {
	Storer
	WithTx(txn tx.Tx) (S, error)
	BeginTxFunc(ctx context.Context, fn func(ctx context.Context, store S) error) error
}

var _ TxStorer[*Store] = (*Store)(nil)

// Store reads and mutates the catalog through a Repository, enforcing the
// catalog business rules on top of it: namespace name uniqueness on create,
// the topology reference guard on delete, and namespace resolution before
// every mapping operation.
type Store struct {
	repo Repository
	isTx bool
}

// NewStore creates a new Store backed by the provided Repository.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// CreateNamespace creates a Namespace. It fails with a conflict if the name
// is already in use. The name check is a read before write; the storage
// schema enforces the same uniqueness as a backstop against races.
func (s *Store) CreateNamespace(ctx context.Context, namespace *Namespace) error {
	existing, err := s.repo.ReadNamespaceByName(ctx, namespace.Name)
	if err != nil && !errtag.HasTag[errtag.NotFound](err) {
		return err
	}
	if existing != nil {
		return errtag.NewTagged[ErrTagConflict[Namespace]](
			fmt.Sprintf("namespace name %q already in use", namespace.Name),
			errtag.WithMsg(fmt.Sprintf("Namespace name %q already in use", namespace.Name)),
		)
	}
	return s.repo.CreateNamespace(ctx, namespace)
}

// PutNamespace creates or replaces the Namespace stored at its ID. The name
// is not checked against other namespaces; a collision surfaces as a storage
// conflict.
func (s *Store) PutNamespace(ctx context.Context, namespace *Namespace) error {
	return s.repo.PutNamespace(ctx, namespace)
}

// ReadNamespace reads a Namespace by ID.
func (s *Store) ReadNamespace(ctx context.Context, id NamespaceID) (*Namespace, error) {
	return s.repo.ReadNamespace(ctx, id)
}

// ReadNamespaceByName reads a Namespace by name.
func (s *Store) ReadNamespaceByName(ctx context.Context, name string) (*Namespace, error) {
	return s.repo.ReadNamespaceByName(ctx, name)
}

// ListNamespaces reads a list of Namespaces matching the provided filter and
// PageFilter.
func (s *Store) ListNamespaces(ctx context.Context, fltr NamespaceFilter, page paginate.PageFilter[NamespaceID]) ([]*Namespace, error) {
	return s.repo.ListNamespaces(ctx, fltr, page)
}

// DeleteNamespace deletes a Namespace and returns it. The delete is refused
// with a conflict while any topology references the namespace.
func (s *Store) DeleteNamespace(ctx context.Context, id NamespaceID) (*Namespace, error) {
	namespace, err := s.repo.ReadNamespace(ctx, id)
	if err != nil {
		return nil, err
	}

	refs, err := s.repo.ListTopologiesByNamespace(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		return nil, errtag.NewTagged[ErrTagConflict[Namespace]](
			fmt.Sprintf("namespace %s referenced by %d topologies", id, len(refs)),
			errtag.WithMsg("Namespace is referenced by one or more topologies which must be deleted first"),
		)
	}

	if err = s.repo.DeleteNamespace(ctx, id); err != nil {
		return nil, err
	}
	return namespace, nil
}

// PutServiceClusterMapping creates or replaces the mapping stored at its
// (namespace, service, cluster) triple.
func (s *Store) PutServiceClusterMapping(ctx context.Context, mapping ServiceClusterMapping) (ServiceClusterMapping, error) {
	if err := s.resolveNamespace(ctx, mapping.NamespaceID); err != nil {
		return ServiceClusterMapping{}, err
	}
	if err := s.repo.PutServiceClusterMapping(ctx, mapping); err != nil {
		return ServiceClusterMapping{}, err
	}
	return mapping, nil
}

// ListServiceClusterMappings reads all mappings within a namespace.
func (s *Store) ListServiceClusterMappings(ctx context.Context, namespaceID NamespaceID) ([]ServiceClusterMapping, error) {
	if err := s.resolveNamespace(ctx, namespaceID); err != nil {
		return nil, err
	}
	return s.repo.ListServiceClusterMappings(ctx, namespaceID)
}

// ListServiceClusterMappingsByService reads all mappings for one service
// within a namespace.
func (s *Store) ListServiceClusterMappingsByService(ctx context.Context, namespaceID NamespaceID, serviceName string) ([]ServiceClusterMapping, error) {
	if err := s.resolveNamespace(ctx, namespaceID); err != nil {
		return nil, err
	}
	return s.repo.ListServiceClusterMappingsByService(ctx, namespaceID, serviceName)
}

// DeleteServiceClusterMapping deletes the mapping stored at the given triple
// and returns it.
func (s *Store) DeleteServiceClusterMapping(ctx context.Context, namespaceID NamespaceID, serviceName string, clusterID ClusterID) (ServiceClusterMapping, error) {
	if err := s.resolveNamespace(ctx, namespaceID); err != nil {
		return ServiceClusterMapping{}, err
	}
	mapping, err := s.repo.ReadServiceClusterMapping(ctx, namespaceID, serviceName, clusterID)
	if err != nil {
		return ServiceClusterMapping{}, err
	}
	if err = s.repo.DeleteServiceClusterMapping(ctx, namespaceID, serviceName, clusterID); err != nil {
		return ServiceClusterMapping{}, err
	}
	return mapping, nil
}

// DeleteAllServiceClusterMappings deletes every mapping within a namespace
// individually and returns the removed set.
func (s *Store) DeleteAllServiceClusterMappings(ctx context.Context, namespaceID NamespaceID) ([]ServiceClusterMapping, error) {
	if err := s.resolveNamespace(ctx, namespaceID); err != nil {
		return nil, err
	}

	mappings, err := s.repo.ListServiceClusterMappings(ctx, namespaceID)
	if err != nil {
		return nil, err
	}
	for _, m := range mappings {
		if err = s.repo.DeleteServiceClusterMapping(ctx, m.NamespaceID, m.ServiceName, m.ClusterID); err != nil {
			return nil, err
		}
	}
	return mappings, nil
}

// ReplaceServiceClusterMappings replaces the full mapping set of a namespace
// with the provided mappings and returns the new set. The entire existing set
// is removed before any replacement is written, all within one transaction.
func (s *Store) ReplaceServiceClusterMappings(ctx context.Context, namespaceID NamespaceID, mappings []ServiceClusterMapping) ([]ServiceClusterMapping, error) {
	if err := s.resolveNamespace(ctx, namespaceID); err != nil {
		return nil, err
	}

	replaced := make([]ServiceClusterMapping, 0, len(mappings))
	err := s.BeginTxFunc(ctx, func(ctx context.Context, store *Store) error {
		existing, err := store.repo.ListServiceClusterMappings(ctx, namespaceID)
		if err != nil {
			return err
		}
		for _, m := range existing {
			if err = store.repo.DeleteServiceClusterMapping(ctx, m.NamespaceID, m.ServiceName, m.ClusterID); err != nil {
				return err
			}
		}
		seen := make(map[string]struct{}, len(mappings))
		for _, m := range mappings {
			m.NamespaceID = namespaceID
			key := mappingKey(m.NamespaceID, m.ServiceName, m.ClusterID)
			if _, ok := seen[key]; ok {
				continue // duplicate triple, already written
			}
			seen[key] = struct{}{}
			if err = store.repo.PutServiceClusterMapping(ctx, m); err != nil {
				return err
			}
			replaced = append(replaced, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// CreateTopology registers a Topology against an existing namespace.
func (s *Store) CreateTopology(ctx context.Context, topology *Topology) error {
	if err := s.resolveNamespace(ctx, topology.NamespaceID); err != nil {
		return err
	}
	return s.repo.CreateTopology(ctx, topology)
}

// ReadTopology reads a Topology by ID.
func (s *Store) ReadTopology(ctx context.Context, id TopologyID) (*Topology, error) {
	return s.repo.ReadTopology(ctx, id)
}

// ListTopologies reads a list of Topologies matching the provided PageFilter.
func (s *Store) ListTopologies(ctx context.Context, page paginate.PageFilter[TopologyID]) ([]*Topology, error) {
	return s.repo.ListTopologies(ctx, page)
}

// ListTopologiesByNamespace reads all Topologies registered against a
// namespace.
func (s *Store) ListTopologiesByNamespace(ctx context.Context, namespaceID NamespaceID) ([]*Topology, error) {
	if err := s.resolveNamespace(ctx, namespaceID); err != nil {
		return nil, err
	}
	return s.repo.ListTopologiesByNamespace(ctx, namespaceID)
}

// DeleteTopology deletes a Topology by ID.
func (s *Store) DeleteTopology(ctx context.Context, id TopologyID) error {
	if _, err := s.repo.ReadTopology(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteTopology(ctx, id)
}

// WithTx creates a new Store instance that uses the provided transaction.
func (s *Store) WithTx(txn tx.Tx) (*Store, error) {
	repo, err := s.repo.WithTx(txn)
	if err != nil {
		return nil, err
	}
	cpy := *s
	cpy.isTx = true
	cpy.repo = repo
	return &cpy, nil
}

// BeginTxFunc executes fn against a transaction scoped copy of the Store. If
// the Store is already transaction scoped, fn runs on the current
// transaction.
func (s *Store) BeginTxFunc(ctx context.Context, fn func(ctx context.Context, store *Store) error) error {
	if s.isTx {
		return fn(ctx, s)
	}
	return s.repo.BeginTxFunc(ctx, func(ctx context.Context, txn tx.Tx, repo Repository) error {
		cpy := *s
		cpy.isTx = true
		cpy.repo = repo
		return fn(ctx, &cpy)
	})
}

func (s *Store) resolveNamespace(ctx context.Context, id NamespaceID) error {
	_, err := s.repo.ReadNamespace(ctx, id)
	return err
}
