package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type productRepository struct {
	conn conn
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{conn: conn{db: store.DB()}}
}

const productColumns = `id, name, price_minor, quantity, created_at, updated_at`

// FindAllByID внутри единицы работы берёт FOR UPDATE в порядке id,
// поэтому конкурентные заказы с пересекающимися товарами не взаимоблокируются.
func (r *productRepository) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`
	if r.conn.inTx() {
		query += ` FOR UPDATE`
	}

	rows, err := r.conn.q().QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// UpdateQuantity выполняет условное обновление: строка меняется, только если остаток равен Expected.
func (r *productRepository) UpdateQuantity(ctx context.Context, updates []domain.ProductQuantity) error {
	if len(updates) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.conn.atomic(ctx, func(q querier) error {
		now := time.Now().UTC()
		for _, u := range updates {
			if u.Quantity < 0 {
				return fmt.Errorf("product %s: %w", u.ID, domain.ErrProductQtyInvalid)
			}
			res, err := q.ExecContext(ctx, `
				UPDATE products
				SET quantity = $2,
				    updated_at = $3
				WHERE id = $1
				  AND quantity = $4
			`, u.ID, u.Quantity, now, u.Expected)
			if err != nil {
				return fmt.Errorf("update product quantity: %w", err)
			}

			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if affected == 1 {
				continue
			}

			exists, err := productExists(ctx, q, u.ID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("product %s: %w", u.ID, domain.ErrProductNotFound)
			}
			return fmt.Errorf("product %s: %w", u.ID, domain.ErrStockConflict)
		}
		return nil
	})
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *productRepository) FindByName(ctx context.Context, name string) (domain.Product, error) {
	return r.findOne(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
}

func (r *productRepository) findOne(ctx context.Context, query, arg string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := scanProduct(r.conn.q().QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	product.Name = strings.TrimSpace(product.Name)
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := r.conn.q().ExecContext(ctx, `
		INSERT INTO products (id, name, price_minor, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, product.ID, product.Name, product.PriceMinor, product.Quantity, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrProductNameTaken
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return product, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.PriceMinor, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func productExists(ctx context.Context, q querier, id string) (bool, error) {
	var found string
	err := q.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

var _ domain.ProductRepository = (*productRepository)(nil)
