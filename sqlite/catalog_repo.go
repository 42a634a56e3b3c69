package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/joshjon/kit/errtag"
	"github.com/joshjon/kit/paginate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rivulet-sh/rivulet/catalog"
	"github.com/rivulet-sh/rivulet/tx"
)

const namespaceColumns = "id, name, streaming_engine, time_series_store, description"

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository is a catalog.Repository backed by a SQLite database.
type CatalogRepository struct {
	db   DBTX
	root *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{
		db:   db,
		root: db,
	}
}

func (r *CatalogRepository) CreateNamespace(ctx context.Context, namespace *catalog.Namespace) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO namespace (id, name, streaming_engine, time_series_store, description) VALUES (?, ?, ?, ?, ?)",
		namespace.ID.String(), namespace.Name, namespace.StreamingEngine, namespace.TimeSeriesStore, namespace.Description,
	)
	return tagCatalogErr[catalog.Namespace](err)
}

func (r *CatalogRepository) PutNamespace(ctx context.Context, namespace *catalog.Namespace) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO namespace (id, name, streaming_engine, time_series_store, description) VALUES (?, ?, ?, ?, ?)
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
	row := r.db.QueryRowContext(ctx, "SELECT "+namespaceColumns+" FROM namespace WHERE id = ?", id.String())
	ns, err := scanNamespace(row.Scan)
	if err != nil {
		return nil, tagCatalogErr[catalog.Namespace](err)
	}
	return ns, nil
}

func (r *CatalogRepository) ReadNamespaceByName(ctx context.Context, name string) (*catalog.Namespace, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+namespaceColumns+" FROM namespace WHERE name = ?", name)
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
		conds = append(conds, "streaming_engine = ?")
		args = append(args, *fltr.StreamingEngine)
	}
	if fltr.TimeSeriesStore != nil {
		conds = append(conds, "time_series_store = ?")
		args = append(args, *fltr.TimeSeriesStore)
	}
	if page.Cursor != nil {
		conds = append(conds, "id <= ?")
		args = append(args, page.Cursor.String())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"
	if page.Size > 0 {
		query += " LIMIT " + strconv.Itoa(int(page.Size))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	res, err := r.db.ExecContext(ctx, "DELETE FROM namespace WHERE id = ?", id.String())
	if err != nil {
		return tagCatalogErr[catalog.Namespace](err)
	}
	return checkAffected[catalog.Namespace](res)
}

func (r *CatalogRepository) PutServiceClusterMapping(ctx context.Context, mapping catalog.ServiceClusterMapping) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO service_cluster_mapping (namespace_id, service_name, cluster_id) VALUES (?, ?, ?)
		ON CONFLICT (namespace_id, service_name, cluster_id) DO NOTHING`,
		mapping.NamespaceID.String(), mapping.ServiceName, mapping.ClusterID.String(),
	)
	return tagCatalogErr[catalog.ServiceClusterMapping](err)
}

func (r *CatalogRepository) ReadServiceClusterMapping(ctx context.Context, namespaceID catalog.NamespaceID, serviceName string, clusterID catalog.ClusterID) (catalog.ServiceClusterMapping, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT namespace_id, service_name, cluster_id FROM service_cluster_mapping WHERE namespace_id = ? AND service_name = ? AND cluster_id = ?",
		namespaceID.String(), serviceName, clusterID.String(),
	)
	mapping, err := scanMapping(row.Scan)
	if err != nil {
		return catalog.ServiceClusterMapping{}, tagCatalogErr[catalog.ServiceClusterMapping](err)
	}
	return mapping, nil
}

func (r *CatalogRepository) ListServiceClusterMappings(ctx context.Context, namespaceID catalog.NamespaceID) ([]catalog.ServiceClusterMapping, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT namespace_id, service_name, cluster_id FROM service_cluster_mapping WHERE namespace_id = ? ORDER BY service_name, cluster_id",
		namespaceID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *CatalogRepository) ListServiceClusterMappingsByService(ctx context.Context, namespaceID catalog.NamespaceID, serviceName string) ([]catalog.ServiceClusterMapping, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT namespace_id, service_name, cluster_id FROM service_cluster_mapping WHERE namespace_id = ? AND service_name = ? ORDER BY cluster_id",
		namespaceID.String(), serviceName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *CatalogRepository) DeleteServiceClusterMapping(ctx context.Context, namespaceID catalog.NamespaceID, serviceName string, clusterID catalog.ClusterID) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM service_cluster_mapping WHERE namespace_id = ? AND service_name = ? AND cluster_id = ?",
		namespaceID.String(), serviceName, clusterID.String(),
	)
	if err != nil {
		return tagCatalogErr[catalog.ServiceClusterMapping](err)
	}
	return checkAffected[catalog.ServiceClusterMapping](res)
}

func (r *CatalogRepository) CreateTopology(ctx context.Context, topology *catalog.Topology) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO topology (id, namespace_id, name) VALUES (?, ?, ?)",
		topology.ID.String(), topology.NamespaceID.String(), topology.Name,
	)
	return tagCatalogErr[catalog.Topology](err)
}

func (r *CatalogRepository) ReadTopology(ctx context.Context, id catalog.TopologyID) (*catalog.Topology, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, namespace_id, name FROM topology WHERE id = ?", id.String())
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
		query += " WHERE id <= ?"
		args = append(args, page.Cursor.String())
	}
	query += " ORDER BY id DESC"
	if page.Size > 0 {
		query += " LIMIT " + strconv.Itoa(int(page.Size))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopologies(rows)
}

func (r *CatalogRepository) ListTopologiesByNamespace(ctx context.Context, namespaceID catalog.NamespaceID) ([]*catalog.Topology, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, namespace_id, name FROM topology WHERE namespace_id = ? ORDER BY id DESC",
		namespaceID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopologies(rows)
}

func (r *CatalogRepository) DeleteTopology(ctx context.Context, id catalog.TopologyID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM topology WHERE id = ?", id.String())
	if err != nil {
		return tagCatalogErr[catalog.Topology](err)
	}
	return checkAffected[catalog.Topology](res)
}

func (r *CatalogRepository) BeginTx(ctx context.Context) (tx.Tx, error) {
	sqlTx, err := r.root.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{sqlTx}, nil
}

func (r *CatalogRepository) WithTx(txn tx.Tx) (catalog.Repository, error) {
	sqliteTx, ok := txn.(*Tx)
	if !ok {
		return nil, errors.New("tx does not wrap a sqlite transaction")
	}
	cpy := *r
	cpy.db = sqliteTx.Tx
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
func checkAffected[T catalog.Entity](res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errtag.Tag[catalog.ErrTagNotFound[T]](sql.ErrNoRows)
	}
	return nil
}

func tagCatalogErr[T catalog.Entity](err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errtag.Tag[catalog.ErrTagNotFound[T]](err)
	}
	if isSQLiteErrCode(err, sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return errtag.Tag[catalog.ErrTagConflict[T]](err)
	}
	return err
}

func isSQLiteErrCode(err error, codes ...int) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		for _, code := range codes {
			if sqliteErr.Code() == code {
				return true
			}
		}
	}
	return false
}
