package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

// Store is the catalog as the rest of the shop sees it.
type Store interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id int64, userID string) error
}

const productColumns = `id, title, description, price, image_url, user_id, created_at`

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if filter.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Persistence("query products", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.Persistence("scan product", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("iterate products", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("product %d", id)
	}
	if err != nil {
		return nil, domain.Persistence("get product", err)
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	p.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (title, description, price, image_url, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, p.Price.StringFixed(2), p.ImageURL, p.UserID, p.CreatedAt)
	if err != nil {
		return domain.Persistence("insert product", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Persistence("insert product", err)
	}
	p.ID = id
	return nil
}

// UpdateProduct overwrites title, description, price and image of a product
// owned by p.UserID.
func (r *Repository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET title = ?, description = ?, price = ?, image_url = ?
		 WHERE id = ? AND user_id = ?`,
		p.Title, p.Description, p.Price.StringFixed(2), p.ImageURL, p.ID, p.UserID)
	if err != nil {
		return domain.Persistence("update product", err)
	}
	return r.checkOwnedChange(ctx, res, p.ID)
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return domain.Persistence("delete product", err)
	}
	return r.checkOwnedChange(ctx, res, id)
}

// checkOwnedChange tells a missing product apart from one owned by someone else
// when a guarded write touched no rows.
func (r *Repository) checkOwnedChange(ctx context.Context, res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Persistence("rows affected", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := r.GetProduct(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("product %d: %w", id, domain.ErrUnauthorized)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.ImageURL,
		&p.UserID,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
