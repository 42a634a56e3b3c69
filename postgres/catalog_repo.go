package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/paginate"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/tx"
)

const namespaceColumns = "id, name, streaming_engine, time_series_store, description"

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository is a catalog.Repository backed by a Postgres database.
type CatalogRepository struct {
	db   DB
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{
		db:   pool,
		pool: pool,
	}
}

func (r *CatalogRepository) CreateNamespace(ctx context.Context, namespace *catalog.Namespace) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO namespace (id, name, streaming_engine, time_series_store, description) VALUES ($1, $2, $3, $4, $5)",
		namespace.ID.String(), namespace.Name, namespace.StreamingEngine, namespace.TimeSeriesStore, namespace.Description,
	)
	return tagCatalogErr[catalog.Namespace](err)
}

func (r *CatalogRepository) PutNamespace(ctx context.Context, namespace *catalog.Namespace) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO namespace (id, name, streaming_engine, time_series_store, description) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			streaming_engine = excluded.streaming_engine,
			time_series_store = excluded.time_series_store,
			description = excluded.description`,
		namespace.ID.String(), namespace.Name, namespace.StreamingEngine, namespace.TimeSeriesStore, namespace.Description,
	)
	return tagCatalogErr[catalog.Namespace](err)
}

func (r *CatalogRepository) ReadNamespace(ctx context.Context, id catalog.NamespaceID) (*catalog.Namespace, error) {
	row := r.db.QueryRow(ctx, "SELECT "+namespaceColumns+" FROM namespace WHERE id = $1", id.String())
	ns, err := scanNamespace(row.Scan)
	if err != nil {
		return nil, tagCatalogErr[catalog.Namespace](err)
	}
	return ns, nil
}

func (r *CatalogRepository) ReadNamespaceByName(ctx context.Context, name string) (*catalog.Namespace, error) {
	row := r.db.QueryRow(ctx, "SELECT "+namespaceColumns+" FROM namespace WHERE name = $1", name)
	ns, err := scanNamespace(row.Scan)
	if err != nil {
		return nil, tagCatalogErr[catalog.Namespace](err)
	}
	return ns, nil
}

func (r *CatalogRepository) ListNamespaces(ctx context.Context, fltr catalog.NamespaceFilter, page paginate.PageFilter[catalog.NamespaceID]) ([]*catalog.Namespace, error) {
	query := "SELECT " + namespaceColumns + " FROM namespace"
	var conds []string
	var args []any

	if fltr.StreamingEngine != nil {
		args = append(args, *fltr.StreamingEngine)
		conds = append(conds, "streaming_engine = $"+strconv.Itoa(len(args)))
	}
	if fltr.TimeSeriesStore != nil {
		args = append(args, *fltr.TimeSeriesStore)
		conds = append(conds, "time_series_store = $"+strconv.Itoa(len(args)))
	}
	if page.Cursor != nil {
		args = append(args, page.Cursor.String())
		conds = append(conds, "id <= $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"
	if page.Size > 0 {
		query += " LIMIT " + strconv.Itoa(int(page.Size))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	namespaces := []*catalog.Namespace{}
	for rows.Next() {
		ns, err := scanNamespace(rows.Scan)
		if err != nil {
			return nil, err
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

func (r *CatalogRepository) DeleteNamespace(ctx context.Context, id catalog.NamespaceID) error {
	res, err := r.db.Exec(ctx, "DELETE FROM namespace WHERE id = $1", id.String())
	if err != nil {
		return tagCatalogErr[catalog.Namespace](err)
	}
	return checkAffected[catalog.Namespace](res)
}

func (r *CatalogRepository) PutServiceClusterMapping(ctx context.Context, mapping catalog.ServiceClusterMapping) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO service_cluster_mapping (namespace_id, service_name, cluster_id) VALUES ($1, $2, $3)
		ON CONFLICT (namespace_id, service_name, cluster_id) DO NOTHING`,
		mapping.NamespaceID.String(), mapping.ServiceName, mapping.ClusterID.String(),
	)
	return tagCatalogErr[catalog.ServiceClusterMapping](err)
}

func (r *CatalogRepository) ReadServiceClusterMapping(ctx context.Context, namespaceID catalog.NamespaceID, serviceName string, clusterID catalog.ClusterID) (catalog.ServiceClusterMapping, error) {
	row := r.db.QueryRow(ctx,
		"SELECT namespace_id, service_name, cluster_id FROM service_cluster_mapping WHERE namespace_id = $1 AND service_name = $2 AND cluster_id = $3",
		namespaceID.String(), serviceName, clusterID.String(),
	)
	mapping, err := scanMapping(row.Scan)
	if err != nil {
		return catalog.ServiceClusterMapping{}, tagCatalogErr[catalog.ServiceClusterMapping](err)
	}
	return mapping, nil
}

func (r *CatalogRepository) ListServiceClusterMappings(ctx context.Context, namespaceID catalog.NamespaceID) ([]catalog.ServiceClusterMapping, error) {
	rows, err := r.db.Query(ctx,
		"SELECT namespace_id, service_name, cluster_id FROM service_cluster_mapping WHERE namespace_id = $1 ORDER BY service_name, cluster_id",
		namespaceID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *CatalogRepository) ListServiceClusterMappingsByService(ctx context.Context, namespaceID catalog.NamespaceID, serviceName string) ([]catalog.ServiceClusterMapping, error) {
	rows, err := r.db.Query(ctx,
		"SELECT namespace_id, service_name, cluster_id FROM service_cluster_mapping WHERE namespace_id = $1 AND service_name = $2 ORDER BY cluster_id",
		namespaceID.String(), serviceName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *CatalogRepository) DeleteServiceClusterMapping(ctx context.Context, namespaceID catalog.NamespaceID, serviceName string, clusterID catalog.ClusterID) error {
	res, err := r.db.Exec(ctx,
		"DELETE FROM service_cluster_mapping WHERE namespace_id = $1 AND service_name = $2 AND cluster_id = $3",
		namespaceID.String(), serviceName, clusterID.String(),
	)
	if err != nil {
		return tagCatalogErr[catalog.ServiceClusterMapping](err)
	}
	return checkAffected[catalog.ServiceClusterMapping](res)
}

func (r *CatalogRepository) CreateTopology(ctx context.Context, topology *catalog.Topology) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO topology (id, namespace_id, name) VALUES ($1, $2, $3)",
		topology.ID.String(), topology.NamespaceID.String(), topology.Name,
	)
	return tagCatalogErr[catalog.Topology](err)
}

func (r *CatalogRepository) ReadTopology(ctx context.Context, id catalog.TopologyID) (*catalog.Topology, error) {
	row := r.db.QueryRow(ctx, "SELECT id, namespace_id, name FROM topology WHERE id = $1", id.String())
	top, err := scanTopology(row.Scan)
	if err != nil {
		return nil, tagCatalogErr[catalog.Topology](err)
	}
	return top, nil
}

func (r *CatalogRepository) ListTopologies(ctx context.Context, page paginate.PageFilter[catalog.TopologyID]) ([]*catalog.Topology, error) {
	query := "SELECT id, namespace_id, name FROM topology"
	var args []any
	if page.Cursor != nil {
		args = append(args, page.Cursor.String())
		query += " WHERE id <= $1"
	}
	query += " ORDER BY id DESC"
	if page.Size > 0 {
		query += " LIMIT " + strconv.Itoa(int(page.Size))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopologies(rows)
}

func (r *CatalogRepository) ListTopologiesByNamespace(ctx context.Context, namespaceID catalog.NamespaceID) ([]*catalog.Topology, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, namespace_id, name FROM topology WHERE namespace_id = $1 ORDER BY id DESC",
		namespaceID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopologies(rows)
}

func (r *CatalogRepository) DeleteTopology(ctx context.Context, id catalog.TopologyID) error {
	res, err := r.db.Exec(ctx, "DELETE FROM topology WHERE id = $1", id.String())
	if err != nil {
		return tagCatalogErr[catalog.Topology](err)
	}
	return checkAffected[catalog.Topology](res)
}

func (r *CatalogRepository) BeginTx(ctx context.Context) (tx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

func (r *CatalogRepository) WithTx(txn tx.Tx) (catalog.Repository, error) {
	pgxTx, ok := txn.(pgx.Tx)
	if !ok {
		return nil, errors.New("tx does not implement pgx.Tx")
	}
	cpy := *r
	cpy.db = pgxTx
	return &cpy, nil
}

func (r *CatalogRepository) BeginTxFunc(ctx context.Context, fn func(ctx context.Context, txn tx.Tx, repo catalog.Repository) error) (err error) {
	txn, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Handle(ctx, txn, &err)

	repo, err := r.WithTx(txn)
	if err != nil {
		return err
	}
	return fn(ctx, txn, repo)
}

// checkAffected converts a zero row delete into a tagged not found error.
func checkAffected[T catalog.Entity](res pgconn.CommandTag) error {
	if res.RowsAffected() == 0 {
		return errtag.Tag[catalog.ErrTagNotFound[T]](pgx.ErrNoRows)
	}
	return nil
}

func tagCatalogErr[T catalog.Entity](err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errtag.Tag[catalog.ErrTagNotFound[T]](err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return errtag.Tag[catalog.ErrTagConflict[T]](err)
	}
	return err
}
