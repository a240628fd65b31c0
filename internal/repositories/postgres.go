package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filevault/backend/internal/db"
	"github.com/filevault/backend/internal/models"
)

// PageSize is the number of file nodes returned per listing page.
const PageSize = 20

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, user.ID, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// Count returns the number of registered users.
func (r *PostgresUserRepository) Count(ctx context.Context) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// PostgresFileRepository provides PostgreSQL-backed persistence for file nodes.
type PostgresFileRepository struct {
	pool db.Pool
}

// NewPostgresFileRepository constructs a file repository backed by PostgreSQL.
func NewPostgresFileRepository(pool db.Pool) *PostgresFileRepository {
	return &PostgresFileRepository{pool: pool}
}

// Create inserts a new file node. There are no overwrite semantics;
// every call is an insert.
func (r *PostgresFileRepository) Create(ctx context.Context, node models.FileNode) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO file_nodes (id, owner_id, name, type, is_public, parent_id, storage_path, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, node.ID, node.OwnerID, node.Name, node.Type, node.IsPublic, node.ParentID, node.StoragePath, node.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert file node: %w", err)
	}

	return nil
}

// FindByID fetches a node by id regardless of owner. Used only by the
// public content path; every other lookup is owner-scoped.
func (r *PostgresFileRepository) FindByID(ctx context.Context, id string) (models.FileNode, error) {
	return r.findOne(ctx, `
        SELECT id, owner_id, name, type, is_public, parent_id, storage_path, created_at
        FROM file_nodes
        WHERE id = $1
    `, id)
}

// FindByIDAndOwner fetches a node by id scoped to its owner.
func (r *PostgresFileRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (models.FileNode, error) {
	return r.findOne(ctx, `
        SELECT id, owner_id, name, type, is_public, parent_id, storage_path, created_at
        FROM file_nodes
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)
}

func (r *PostgresFileRepository) findOne(ctx context.Context, query string, args ...any) (models.FileNode, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FileNode{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, query, args...)

	var node models.FileNode
	if err := row.Scan(&node.ID, &node.OwnerID, &node.Name, &node.Type, &node.IsPublic, &node.ParentID, &node.StoragePath, &node.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FileNode{}, ErrNotFound
		}
		return models.FileNode{}, fmt.Errorf("select file node: %w", err)
	}

	return node, nil
}

// List returns up to PageSize nodes owned by ownerID whose immediate
// parent is parentID, in insertion order. The root sentinel selects
// top-level nodes. StoragePath is not selected; listing results never
// expose it.
func (r *PostgresFileRepository) List(ctx context.Context, ownerID, parentID string, page int) ([]models.FileNode, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if page < 0 {
		page = 0
	}

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, name, type, is_public, parent_id, created_at
        FROM file_nodes
        WHERE owner_id = $1 AND parent_id = $2
        ORDER BY created_at, id
        OFFSET $3 LIMIT $4
    `, ownerID, parentID, page*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("query file nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.FileNode
	for rows.Next() {
		var node models.FileNode
		if err := rows.Scan(&node.ID, &node.OwnerID, &node.Name, &node.Type, &node.IsPublic, &node.ParentID, &node.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file node: %w", err)
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file nodes: %w", err)
	}

	return nodes, nil
}

// SetVisibility updates exactly the node matching both id and owner.
// A zero-row update means the node vanished or never belonged to the
// caller and surfaces as ErrNotFound.
func (r *PostgresFileRepository) SetVisibility(ctx context.Context, id, ownerID string, isPublic bool) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE file_nodes
        SET is_public = $3
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID, isPublic)
	if err != nil {
		return fmt.Errorf("update file visibility: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Count returns the number of stored file nodes.
func (r *PostgresFileRepository) Count(ctx context.Context) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM file_nodes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count file nodes: %w", err)
	}
	return count, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ FileRepository = (*PostgresFileRepository)(nil)
