package catalog

import (
	"testing"

	"github.com/joshjon/kit/errtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivulet-sh/rivulet/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewFakeRepository(t))
}

func TestStoreCreateNamespace(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	got, err := store.ReadNamespaceByName(ctx, ns.Name)
	require.NoError(t, err)
	assert.Equal(t, ns, got)

	// Same name on a fresh ID must be refused.
	dup := NewNamespace(ns.Name, ns.StreamingEngine, ns.TimeSeriesStore)
	err = store.CreateNamespace(ctx, dup)
	require.Error(t, err)
	assert.True(t, errtag.HasTag[errtag.Conflict](err))

	// The original namespace is untouched.
	got, err = store.ReadNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns, got)
}

func TestStorePutNamespace(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.PutNamespace(ctx, ns))

	// Identical puts converge on the same stored state.
	require.NoError(t, store.PutNamespace(ctx, ns))
	got, err := store.ReadNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns, got)

	ns.StreamingEngine = "FLINK"
	ns.Description = "updated"
	require.NoError(t, store.PutNamespace(ctx, ns))

	got, err = store.ReadNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns, got)
}

func TestStoreDeleteNamespace(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	removed, err := store.DeleteNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns, removed)

	_, err = store.ReadNamespace(ctx, ns.ID)
	require.Error(t, err)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}

func TestStoreDeleteNamespaceReferencedByTopology(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	top := genTopology(ns)
	require.NoError(t, store.CreateTopology(ctx, top))

	_, err := store.DeleteNamespace(ctx, ns.ID)
	require.Error(t, err)
	assert.True(t, errtag.HasTag[errtag.Conflict](err))

	// The blocked delete leaves the namespace retrievable.
	got, err := store.ReadNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns, got)

	// Removing the referencing topology unblocks the delete.
	require.NoError(t, store.DeleteTopology(ctx, top.ID))

	removed, err := store.DeleteNamespace(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns, removed)
}

func TestStoreDeleteNamespaceNotFound(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	_, err := store.DeleteNamespace(ctx, NewID[NamespaceID]())
	require.Error(t, err)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}

func TestStoreMappingOpsRequireNamespace(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)
	missing := NewID[NamespaceID]()

	_, err := store.PutServiceClusterMapping(ctx, ServiceClusterMapping{
		NamespaceID: missing,
		ServiceName: "STORM",
		ClusterID:   NewID[ClusterID](),
	})
	assert.True(t, errtag.HasTag[errtag.NotFound](err))

	_, err = store.ListServiceClusterMappings(ctx, missing)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))

	_, err = store.ListServiceClusterMappingsByService(ctx, missing, "STORM")
	assert.True(t, errtag.HasTag[errtag.NotFound](err))

	_, err = store.DeleteServiceClusterMapping(ctx, missing, "STORM", NewID[ClusterID]())
	assert.True(t, errtag.HasTag[errtag.NotFound](err))

	_, err = store.DeleteAllServiceClusterMappings(ctx, missing)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))

	_, err = store.ReplaceServiceClusterMappings(ctx, missing, nil)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}

func TestStorePutServiceClusterMapping(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	mapping := genMapping(ns)
	got, err := store.PutServiceClusterMapping(ctx, mapping)
	require.NoError(t, err)
	assert.Equal(t, mapping, got)

	// Upserting the same triple again leaves exactly one mapping.
	_, err = store.PutServiceClusterMapping(ctx, mapping)
	require.NoError(t, err)

	all, err := store.ListServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.Equal(t, []ServiceClusterMapping{mapping}, all)
}

func TestStoreDeleteServiceClusterMapping(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	mapping := genMapping(ns)
	_, err := store.PutServiceClusterMapping(ctx, mapping)
	require.NoError(t, err)

	removed, err := store.DeleteServiceClusterMapping(ctx, mapping.NamespaceID, mapping.ServiceName, mapping.ClusterID)
	require.NoError(t, err)
	assert.Equal(t, mapping, removed)

	_, err = store.DeleteServiceClusterMapping(ctx, mapping.NamespaceID, mapping.ServiceName, mapping.ClusterID)
	require.Error(t, err)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}

func TestStoreDeleteAllServiceClusterMappings(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	mappings := []ServiceClusterMapping{genMapping(ns), genMapping(ns), genMapping(ns)}
	for _, m := range mappings {
		_, err := store.PutServiceClusterMapping(ctx, m)
		require.NoError(t, err)
	}

	removed, err := store.DeleteAllServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, mappings, removed)

	all, err := store.ListServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	// Removing from an already empty namespace returns an empty set.
	removed, err = store.DeleteAllServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestStoreReplaceServiceClusterMappings(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	old := []ServiceClusterMapping{genMapping(ns), genMapping(ns), genMapping(ns)}
	for _, m := range old {
		_, err := store.PutServiceClusterMapping(ctx, m)
		require.NoError(t, err)
	}

	replacement := []ServiceClusterMapping{
		{ServiceName: "STORM", ClusterID: NewID[ClusterID]()},
		{ServiceName: "KAFKA", ClusterID: NewID[ClusterID]()},
	}
	replaced, err := store.ReplaceServiceClusterMappings(ctx, ns.ID, replacement)
	require.NoError(t, err)
	require.Len(t, replaced, len(replacement))
	for i, m := range replaced {
		assert.Equal(t, ns.ID, m.NamespaceID)
		assert.Equal(t, replacement[i].ServiceName, m.ServiceName)
		assert.Equal(t, replacement[i].ClusterID, m.ClusterID)
	}

	// No triple from the old set survives.
	all, err := store.ListServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, replaced, all)
}

func TestStoreReplaceServiceClusterMappingsDuplicateTriples(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	dup := ServiceClusterMapping{ServiceName: "STORM", ClusterID: NewID[ClusterID]()}
	other := ServiceClusterMapping{ServiceName: "KAFKA", ClusterID: NewID[ClusterID]()}

	replaced, err := store.ReplaceServiceClusterMappings(ctx, ns.ID, []ServiceClusterMapping{dup, other, dup})
	require.NoError(t, err)

	// The repeated triple collapses to one row and is reported once.
	dup.NamespaceID = ns.ID
	other.NamespaceID = ns.ID
	assert.Equal(t, []ServiceClusterMapping{dup, other}, replaced)

	all, err := store.ListServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, replaced, all)
}

func TestStoreReplaceServiceClusterMappingsEmpty(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	ns := genNamespace()
	require.NoError(t, store.CreateNamespace(ctx, ns))

	for range 3 {
		_, err := store.PutServiceClusterMapping(ctx, genMapping(ns))
		require.NoError(t, err)
	}

	replaced, err := store.ReplaceServiceClusterMappings(ctx, ns.ID, []ServiceClusterMapping{})
	require.NoError(t, err)
	assert.Empty(t, replaced)

	all, err := store.ListServiceClusterMappings(ctx, ns.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoreCreateTopologyRequiresNamespace(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t)

	top := NewTopology(NewID[NamespaceID](), testutil.RandName())
	err := store.CreateTopology(ctx, top)
	require.Error(t, err)
	assert.True(t, errtag.HasTag[errtag.NotFound](err))
}
