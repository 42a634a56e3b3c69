package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/paginate"
	"github.com/joshjon/kit/ref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/rivulet-sh/rivulet/constants"
	"github.com/rivulet-sh/rivulet/internal/testutil"
	"github.com/rivulet-sh/rivulet/tx"
)

const defaultTestSuiteTimeout = 5 * time.Second

// RepositoryTestSuite verifies that a Repository implementation satisfies
// the expected behavior required by the application. All tests must pass
// for an implementation to be considered compliant.
type RepositoryTestSuite struct {
	// Timeout defines the maximum duration for each test (default: 5s).
	Timeout time.Duration

	// Setup is called before every test and must return a valid repository
	// to use within each test run.
	Setup func(t *testing.T) Repository

	repo Repository
	suite.Suite
}

func (s *RepositoryTestSuite) SetupTest() {
	s.Require().NotNil(s.Setup, "Setup func required")

	repo := s.Setup(s.T())
	s.Require().NotNil(repo, "Repository must not be nil")
	s.repo = repo

	if s.Timeout == 0 {
		s.Timeout = defaultTestSuiteTimeout
	}
}

func (s *RepositoryTestSuite) TestCreateReadNamespace() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	want := genNamespace()

	err := s.repo.CreateNamespace(ctx, want)
	s.Require().NoError(err)

	got, err := s.repo.ReadNamespace(ctx, want.ID)
	s.Require().NoError(err)
	s.Equal(want, got)

	got, err = s.repo.ReadNamespaceByName(ctx, want.Name)
	s.Require().NoError(err)
	s.Equal(want, got)
}

func (s *RepositoryTestSuite) TestPutNamespace() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	// Put creates when the ID does not exist yet.
	want := genNamespace()
	s.Require().NoError(s.repo.PutNamespace(ctx, want))

	got, err := s.repo.ReadNamespace(ctx, want.ID)
	s.Require().NoError(err)
	s.Equal(want, got)

	// Put replaces when the ID exists.
	want.Name = testutil.RandName()
	want.Description = "updated"
	s.Require().NoError(s.repo.PutNamespace(ctx, want))

	got, err = s.repo.ReadNamespace(ctx, want.ID)
	s.Require().NoError(err)
	s.Equal(want, got)

	// Put with identical content leaves the stored state unchanged.
	s.Require().NoError(s.repo.PutNamespace(ctx, want))

	got, err = s.repo.ReadNamespace(ctx, want.ID)
	s.Require().NoError(err)
	s.Equal(want, got)
}

func (s *RepositoryTestSuite) TestListNamespaces() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	pageSize := int32(10)
	numNamespaces := 15
	wantNamespaces := make([]*Namespace, numNamespaces)

	// Reverse order since we fetch in descending order
	for i := numNamespaces - 1; i >= 0; i-- {
		ns := genNamespace()
		err := s.repo.CreateNamespace(ctx, ns)
		s.Require().NoError(err)
		wantNamespaces[i] = ns
	}

	// First page
	page := paginate.PageFilter[NamespaceID]{Size: pageSize}
	gotPage1, err := s.repo.ListNamespaces(ctx, NamespaceFilter{}, page)
	s.Require().NoError(err)
	s.Len(gotPage1, int(pageSize))
	wantPage1 := wantNamespaces[:pageSize]
	s.Equal(wantPage1, gotPage1)

	// Second page
	page.Cursor = &gotPage1[len(gotPage1)-1].ID
	gotPage2, err := s.repo.ListNamespaces(ctx, NamespaceFilter{}, page)
	s.Require().NoError(err)
	// Note: cursor is included to support peeking the next page
	wantLenPage2 := numNamespaces - int(pageSize) + 1
	s.Len(gotPage2, wantLenPage2)
	s.Equal(wantNamespaces[pageSize-1:], gotPage2)
}

func (s *RepositoryTestSuite) TestListNamespacesFiltered() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	engine := "FLINK_" + testutil.RandString(8)
	store := "DRUID_" + testutil.RandString(8)

	matching := genNamespace()
	matching.StreamingEngine = engine
	matching.TimeSeriesStore = store
	s.Require().NoError(s.repo.CreateNamespace(ctx, matching))

	engineOnly := genNamespace()
	engineOnly.StreamingEngine = engine
	s.Require().NoError(s.repo.CreateNamespace(ctx, engineOnly))

	other := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, other))

	got, err := s.repo.ListNamespaces(ctx, NamespaceFilter{StreamingEngine: &engine}, paginate.PageFilter[NamespaceID]{Size: 10})
	s.Require().NoError(err)
	s.ElementsMatch([]*Namespace{matching, engineOnly}, got)

	// Filter fields combine conjunctively.
	got, err = s.repo.ListNamespaces(ctx, NamespaceFilter{StreamingEngine: &engine, TimeSeriesStore: &store}, paginate.PageFilter[NamespaceID]{Size: 10})
	s.Require().NoError(err)
	s.Equal([]*Namespace{matching}, got)

	got, err = s.repo.ListNamespaces(ctx, NamespaceFilter{StreamingEngine: ref.Ptr("UNKNOWN_ENGINE")}, paginate.PageFilter[NamespaceID]{Size: 10})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *RepositoryTestSuite) TestDeleteNamespace() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	mapping := genMapping(ns)
	s.Require().NoError(s.repo.PutServiceClusterMapping(ctx, mapping))

	top := genTopology(ns)
	s.Require().NoError(s.repo.CreateTopology(ctx, top))

	// delete namespace
	s.Require().NoError(s.repo.DeleteNamespace(ctx, ns.ID))
	assertNamespaceDeleted(s.T(), s.repo, ns.ID)

	// cascade delete
	assertMappingDeleted(s.T(), s.repo, mapping)
	assertTopologyDeleted(s.T(), s.repo, top.ID)
}

func (s *RepositoryTestSuite) TestPutReadServiceClusterMapping() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	want := genMapping(ns)
	s.Require().NoError(s.repo.PutServiceClusterMapping(ctx, want))

	got, err := s.repo.ReadServiceClusterMapping(ctx, want.NamespaceID, want.ServiceName, want.ClusterID)
	s.Require().NoError(err)
	s.Equal(want, got)

	// Re-submitting the same triple must not create a second mapping.
	s.Require().NoError(s.repo.PutServiceClusterMapping(ctx, want))

	all, err := s.repo.ListServiceClusterMappings(ctx, ns.ID)
	s.Require().NoError(err)
	s.Equal([]ServiceClusterMapping{want}, all)
}

func (s *RepositoryTestSuite) TestListServiceClusterMappings() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	otherNS := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, otherNS))
	s.Require().NoError(s.repo.PutServiceClusterMapping(ctx, genMapping(otherNS)))

	stormMappings := []ServiceClusterMapping{
		{NamespaceID: ns.ID, ServiceName: "STORM", ClusterID: NewID[ClusterID]()},
		{NamespaceID: ns.ID, ServiceName: "STORM", ClusterID: NewID[ClusterID]()},
	}
	kafkaMapping := ServiceClusterMapping{NamespaceID: ns.ID, ServiceName: "KAFKA", ClusterID: NewID[ClusterID]()}

	for _, m := range append(stormMappings, kafkaMapping) {
		s.Require().NoError(s.repo.PutServiceClusterMapping(ctx, m))
	}

	got, err := s.repo.ListServiceClusterMappings(ctx, ns.ID)
	s.Require().NoError(err)
	s.ElementsMatch(append(stormMappings, kafkaMapping), got)

	got, err = s.repo.ListServiceClusterMappingsByService(ctx, ns.ID, "STORM")
	s.Require().NoError(err)
	s.ElementsMatch(stormMappings, got)

	got, err = s.repo.ListServiceClusterMappingsByService(ctx, ns.ID, "HBASE")
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func (s *RepositoryTestSuite) TestListServiceClusterMappingsEmpty() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	got, err := s.repo.ListServiceClusterMappings(ctx, ns.ID)
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func (s *RepositoryTestSuite) TestDeleteServiceClusterMapping() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	mapping := genMapping(ns)
	s.Require().NoError(s.repo.PutServiceClusterMapping(ctx, mapping))

	s.Require().NoError(s.repo.DeleteServiceClusterMapping(ctx, mapping.NamespaceID, mapping.ServiceName, mapping.ClusterID))
	assertMappingDeleted(s.T(), s.repo, mapping)
}

func (s *RepositoryTestSuite) TestCreateReadTopology() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	want := genTopology(ns)
	s.Require().NoError(s.repo.CreateTopology(ctx, want))

	got, err := s.repo.ReadTopology(ctx, want.ID)
	s.Require().NoError(err)
	s.Equal(want, got)
}

func (s *RepositoryTestSuite) TestListTopologies() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	pageSize := int32(10)
	numTopologies := 15
	wantTopologies := make([]*Topology, numTopologies)

	// Reverse order since we fetch in descending order
	for i := numTopologies - 1; i >= 0; i-- {
		top := genTopology(ns)
		s.Require().NoError(s.repo.CreateTopology(ctx, top))
		wantTopologies[i] = top
	}

	// First page
	page := paginate.PageFilter[TopologyID]{Size: pageSize}
	gotPage1, err := s.repo.ListTopologies(ctx, page)
	s.Require().NoError(err)
	s.Len(gotPage1, int(pageSize))
	s.Equal(wantTopologies[:pageSize], gotPage1)

	// Second page
	page.Cursor = &gotPage1[len(gotPage1)-1].ID
	gotPage2, err := s.repo.ListTopologies(ctx, page)
	s.Require().NoError(err)
	wantLenPage2 := numTopologies - int(pageSize) + 1
	s.Len(gotPage2, wantLenPage2)
	s.Equal(wantTopologies[pageSize-1:], gotPage2)
}

func (s *RepositoryTestSuite) TestListTopologiesByNamespace() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	otherNS := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, otherNS))
	s.Require().NoError(s.repo.CreateTopology(ctx, genTopology(otherNS)))

	want := []*Topology{genTopology(ns), genTopology(ns)}
	for _, top := range want {
		s.Require().NoError(s.repo.CreateTopology(ctx, top))
	}

	got, err := s.repo.ListTopologiesByNamespace(ctx, ns.ID)
	s.Require().NoError(err)
	s.ElementsMatch(want, got)
}

func (s *RepositoryTestSuite) TestDeleteTopology() {
	ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
	defer cancel()

	ns := genNamespace()
	s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

	top := genTopology(ns)
	s.Require().NoError(s.repo.CreateTopology(ctx, top))

	s.Require().NoError(s.repo.DeleteTopology(ctx, top.ID))
	assertTopologyDeleted(s.T(), s.repo, top.ID)
}

func (s *RepositoryTestSuite) TestBeginTxFunc() {
	s.Run("commit tx", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		ns := genNamespace()
		err := s.repo.BeginTxFunc(ctx, func(ctx context.Context, _ tx.Tx, repo Repository) error {
			return repo.CreateNamespace(ctx, ns)
		})
		s.Require().NoError(err)

		got, err := s.repo.ReadNamespace(ctx, ns.ID)
		s.Require().NoError(err)
		s.Equal(ns, got)
	})

	s.Run("rollback tx on error", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		ns := genNamespace()
		err := s.repo.BeginTxFunc(ctx, func(ctx context.Context, _ tx.Tx, repo Repository) error {
			s.Require().NoError(repo.CreateNamespace(ctx, ns))
			return errors.New("forced error to trigger rollback")
		})
		s.Require().Error(err)
		s.Contains(err.Error(), "forced error")

		got, err := s.repo.ReadNamespace(ctx, ns.ID)
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagNotFound[Namespace]](err))
		s.Nil(got)
	})

	s.Run("rollback tx on panic", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		ns := genNamespace()
		defer func() {
			if r := recover(); r != nil {
				s.T().Logf("recovered panic: %v", r)
			} else {
				s.Require().Fail("expected panic but none occurred")
			}

			got, err := s.repo.ReadNamespace(ctx, ns.ID)
			s.Error(err)
			s.True(errtag.HasTag[ErrTagNotFound[Namespace]](err))
			s.Nil(got)
		}()

		_ = s.repo.BeginTxFunc(ctx, func(ctx context.Context, _ tx.Tx, repo Repository) error {
			s.Require().NoError(repo.CreateNamespace(ctx, ns))
			panic("forced panic to trigger rollback")
		})
	})
}

func (s *RepositoryTestSuite) TestErrorTags() {
	s.Run("namespace not found", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		_, err := s.repo.ReadNamespace(ctx, NewID[NamespaceID]())
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagNotFound[Namespace]](err))

		_, err = s.repo.ReadNamespaceByName(ctx, testutil.RandName())
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagNotFound[Namespace]](err))
	})

	s.Run("namespace create conflict - duplicate name", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		ns := genNamespace()
		s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

		dup := NewNamespace(ns.Name, ns.StreamingEngine, ns.TimeSeriesStore)
		err := s.repo.CreateNamespace(ctx, dup)
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagConflict[Namespace]](err))
	})

	s.Run("namespace put conflict - name owned by another id", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		ns := genNamespace()
		s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

		clash := NewNamespace(ns.Name, ns.StreamingEngine, ns.TimeSeriesStore)
		err := s.repo.PutNamespace(ctx, clash)
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagConflict[Namespace]](err))
	})

	s.Run("mapping not found", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		ns := genNamespace()
		s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

		_, err := s.repo.ReadServiceClusterMapping(ctx, ns.ID, "STORM", NewID[ClusterID]())
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagNotFound[ServiceClusterMapping]](err))

		err = s.repo.DeleteServiceClusterMapping(ctx, ns.ID, "STORM", NewID[ClusterID]())
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagNotFound[ServiceClusterMapping]](err))
	})

	s.Run("topology not found", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		_, err := s.repo.ReadTopology(ctx, NewID[TopologyID]())
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagNotFound[Topology]](err))
	})

	s.Run("topology create conflict - duplicate id", func() {
		ctx, cancel := context.WithTimeout(s.T().Context(), s.Timeout)
		defer cancel()

		ns := genNamespace()
		s.Require().NoError(s.repo.CreateNamespace(ctx, ns))

		top := genTopology(ns)
		s.Require().NoError(s.repo.CreateTopology(ctx, top))

		err := s.repo.CreateTopology(ctx, top)
		s.Require().Error(err)
		s.True(errtag.HasTag[ErrTagConflict[Topology]](err))
	})
}

func genNamespace() *Namespace {
	return NewNamespace(testutil.RandName(), constants.DefaultStreamingEngine, constants.DefaultTimeSeriesStore)
}

func genMapping(ns *Namespace) ServiceClusterMapping {
	return ServiceClusterMapping{
		NamespaceID: ns.ID,
		ServiceName: testutil.RandName(),
		ClusterID:   NewID[ClusterID](),
	}
}

func genTopology(ns *Namespace) *Topology {
	return NewTopology(ns.ID, testutil.RandName())
}

func assertNamespaceDeleted(t *testing.T, repo Repository, nsID NamespaceID) {
	t.Helper()
	_, err := repo.ReadNamespace(t.Context(), nsID)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}

func assertMappingDeleted(t *testing.T, repo Repository, mapping ServiceClusterMapping) {
	t.Helper()
	_, err := repo.ReadServiceClusterMapping(t.Context(), mapping.NamespaceID, mapping.ServiceName, mapping.ClusterID)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}

func assertTopologyDeleted(t *testing.T, repo Repository, topID TopologyID) {
	t.Helper()
	_, err := repo.ReadTopology(t.Context(), topID)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}
