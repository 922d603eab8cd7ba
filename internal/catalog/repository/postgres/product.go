package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/domain"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/internal/catalog/repository"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/database"
	apperrors "github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/errors"
	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
// Variants live in their own table and are loaded ordered by position so
// callers see them in catalog order.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, slug, title, description, brand, condition, currency,
		images, options, installments, free_shipping_from, created_at, updated_at`

const variantColumns = `id, product_id, sku, attributes, price_amount, price_currency,
		compare_at_amount, stock, is_available, position, images`

// Create inserts a product and all its variants.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	optionsJSON, err := json.Marshal(p.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	installmentsJSON, err := marshalNullable(p.Installments)
	if err != nil {
		return fmt.Errorf("marshal installments: %w", err)
	}
	freeShippingJSON, err := marshalNullable(p.FreeShippingFrom)
	if err != nil {
		return fmt.Errorf("marshal free_shipping_from: %w", err)
	}

	query := `
		INSERT INTO products (id, slug, title, description, brand, condition, currency,
			images, options, installments, free_shipping_from, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Slug,
		p.Title,
		p.Description,
		p.Brand,
		p.Condition,
		p.Currency,
		imagesJSON,
		optionsJSON,
		installmentsJSON,
		freeShippingJSON,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	for i := range p.Variants {
		if err := r.insertVariant(ctx, p.ID, &p.Variants[i]); err != nil {
			return err
		}
	}

	return nil
}

func (r *ProductRepository) insertVariant(ctx context.Context, productID string, v *domain.Variant) error {
	attrsJSON, err := json.Marshal(v.Attributes)
	if err != nil {
		return fmt.Errorf("marshal variant attributes: %w", err)
	}
	imagesJSON, err := json.Marshal(v.Images)
	if err != nil {
		return fmt.Errorf("marshal variant images: %w", err)
	}

	var compareAt *float64
	if v.CompareAtPrice != nil {
		compareAt = &v.CompareAtPrice.Amount
	}

	query := `
		INSERT INTO product_variants (id, product_id, sku, attributes, price_amount, price_currency,
			compare_at_amount, stock, is_available, position, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.pool.Exec(ctx, query,
		v.ID,
		productID,
		v.SKU,
		attrsJSON,
		v.Price.Amount,
		v.Price.Currency,
		compareAt,
		v.Stock,
		v.IsAvailable,
		v.Position,
		imagesJSON,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("variant", "sku", v.SKU)
		}
		return fmt.Errorf("insert variant: %w", err)
	}

	return nil
}

// GetByID retrieves a product and its variants by product id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	p, err := r.scanProduct(ctx, query, id)
	end(err)
	return p, err
}

// GetBySlug retrieves a product and its variants by slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE slug = $1`, productColumns)

	ctx, end := database.TraceQuery(ctx, "GetProductBySlug", query)
	p, err := r.scanProduct(ctx, query, slug)
	end(err)
	return p, err
}

// List returns products matching the filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	if filter.Brand != nil {
		conditions = append(conditions, fmt.Sprintf("brand = $%d", argIndex))
		args = append(args, *filter.Brand)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	products, totalCount, err := r.listQuery(ctx, query, args)
	end(err)
	return products, totalCount, err
}

func (r *ProductRepository) listQuery(ctx context.Context, query string, args []any) ([]domain.Product, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		p, err := scanProductRow(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	for i := range products {
		variants, err := r.loadVariants(ctx, products[i].ID)
		if err != nil {
			return nil, 0, err
		}
		products[i].Variants = variants
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// UpdateVariantStock adjusts a variant's stock by delta. It fails with
// OutOfStock when the adjustment would drive stock negative.
func (r *ProductRepository) UpdateVariantStock(ctx context.Context, variantID string, delta int) error {
	query := `
		UPDATE product_variants
		SET stock = stock + $1
		WHERE id = $2 AND stock + $1 >= 0`

	ct, err := r.pool.Exec(ctx, query, delta, variantID)
	if err != nil {
		return fmt.Errorf("update variant stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM product_variants WHERE id = $1)`, variantID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check variant exists: %w", err)
		}
		if !exists {
			return apperrors.NotFound("variant", variantID)
		}
		return apperrors.OutOfStock(variantID)
	}

	return nil
}

func (r *ProductRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, query, args...)

	p, err := scanProductValues(row.Scan, nil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	variants, err := r.loadVariants(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Variants = variants

	return p, nil
}

func (r *ProductRepository) loadVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM product_variants
		WHERE product_id = $1
		ORDER BY position ASC`, variantColumns)

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var (
			v          domain.Variant
			prodID     string
			attrsJSON  []byte
			imagesJSON []byte
			amount     float64
			currency   string
			compareAt  *float64
		)

		if err := rows.Scan(
			&v.ID,
			&prodID,
			&v.SKU,
			&attrsJSON,
			&amount,
			&currency,
			&compareAt,
			&v.Stock,
			&v.IsAvailable,
			&v.Position,
			&imagesJSON,
		); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}

		v.Price = money.New(amount, currency)
		if compareAt != nil {
			cmp := money.New(*compareAt, currency)
			v.CompareAtPrice = &cmp
		}
		if attrsJSON != nil {
			if err := json.Unmarshal(attrsJSON, &v.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal variant attributes: %w", err)
			}
		}
		if imagesJSON != nil {
			if err := json.Unmarshal(imagesJSON, &v.Images); err != nil {
				return nil, fmt.Errorf("unmarshal variant images: %w", err)
			}
		}

		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	if variants == nil {
		variants = []domain.Variant{}
	}

	return variants, nil
}

// scanProductRow scans a listing row that carries a trailing total_count.
func scanProductRow(rows pgx.Rows, totalCount *int) (*domain.Product, error) {
	p, err := scanProductValues(rows.Scan, totalCount)
	if err != nil {
		return nil, fmt.Errorf("scan product row: %w", err)
	}
	return p, nil
}

func scanProductValues(scan func(...any) error, totalCount *int) (*domain.Product, error) {
	var (
		p                domain.Product
		imagesJSON       []byte
		optionsJSON      []byte
		installmentsJSON []byte
		freeShippingJSON []byte
	)

	dest := []any{
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Description,
		&p.Brand,
		&p.Condition,
		&p.Currency,
		&imagesJSON,
		&optionsJSON,
		&installmentsJSON,
		&freeShippingJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := scan(dest...); err != nil {
		return nil, err
	}

	if imagesJSON != nil {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
	}
	if optionsJSON != nil {
		if err := json.Unmarshal(optionsJSON, &p.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	if installmentsJSON != nil {
		if err := json.Unmarshal(installmentsJSON, &p.Installments); err != nil {
			return nil, fmt.Errorf("unmarshal installments: %w", err)
		}
	}
	if freeShippingJSON != nil {
		if err := json.Unmarshal(freeShippingJSON, &p.FreeShippingFrom); err != nil {
			return nil, fmt.Errorf("unmarshal free_shipping_from: %w", err)
		}
	}

	return &p, nil
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case *domain.Installments:
		if t == nil {
			return nil, nil
		}
	case *money.Money:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
