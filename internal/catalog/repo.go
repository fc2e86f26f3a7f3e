package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `p.id, p.slug, p.name, p.sku, COALESCE(p.brand,''), p.category_id,
	p.price, p.compare_price, p.featured, p.status, p.specifications, p.created_at, p.updated_at,
	COALESCE(i.quantity,0), COALESCE(i.reserved,0), COALESCE(i.low_stock_alert,0)`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	inv := Inventory{}
	var compare *decimal.Decimal
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.SKU, &p.Brand, &p.CategoryID,
		&p.Price, &compare, &p.Featured, &p.Status, &p.Specifications, &p.CreatedAt, &p.UpdatedAt,
		&inv.Quantity, &inv.Reserved, &inv.LowStockAlert)
	if err != nil {
		return nil, err
	}
	p.ComparePrice = compare
	inv.ProductID = p.ID
	p.Inventory = &inv
	return &p, nil
}

// GetProduct loads a product with its inventory snapshot. Checkout depends on
// this for authoritative pricing and available-to-sell counts.
func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE p.slug = $1 AND p.status = 'ACTIVE'`, slug)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `
		SELECT id, slug, name, COALESCE(description,''), is_active
		FROM categories WHERE slug = $1 AND is_active`, slug).
		Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type ListFilter struct {
	CategorySlug string
	Brand        string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Featured     bool
	InStock      bool
	Search       string
	SortBy       string // price | name | created_at
	SortDesc     bool
	Page         int
	PerPage      int
}

// List returns an ACTIVE-product page matching the filter plus the total
// match count for pagination.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Product, int, error) {
	where := []string{`p.status = 'ACTIVE'`}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategorySlug != "" {
		where = append(where, `p.category_id = (SELECT id FROM categories WHERE slug = `+arg(f.CategorySlug)+`)`)
	}
	if f.Brand != "" {
		where = append(where, `p.brand ILIKE `+arg("%"+f.Brand+"%"))
	}
	if f.MinPrice != nil {
		where = append(where, `p.price >= `+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, `p.price <= `+arg(*f.MaxPrice))
	}
	if f.Featured {
		where = append(where, `p.featured`)
	}
	if f.InStock {
		where = append(where, `COALESCE(i.quantity,0) - COALESCE(i.reserved,0) > 0`)
	}
	if f.Search != "" {
		s := arg("%" + f.Search + "%")
		where = append(where, `(p.name ILIKE `+s+` OR p.description ILIKE `+s+` OR p.brand ILIKE `+s+`)`)
	}

	base := ` FROM products p LEFT JOIN inventory i ON i.product_id = p.id WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "p.created_at"
	switch f.SortBy {
	case "price":
		order = "p.price"
	case "name":
		order = "p.name"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	if f.PerPage <= 0 {
		f.PerPage = 12
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	q := `SELECT ` + productColumns + base +
		` ORDER BY ` + order + ` ` + dir +
		` LIMIT ` + arg(f.PerPage) + ` OFFSET ` + arg((f.Page-1)*f.PerPage)

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}
