package db

import (
	"database/sql"
	"fmt"

	"uriage/model"
)

const productColumns = `id, name, price, series_code, product_code`

// scanProduct maps a database row to a Product struct.
func scanProduct(row interface{ Scan(...interface{}) error }) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.SeriesCode, &p.ProductCode)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts は商品マスター全件を返します。取り込みランの冒頭で毎回読み直します。
func ListProducts(conn *sql.DB) ([]model.Product, error) {
	rows, err := conn.Query(`SELECT ` + productColumns + ` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("product list query failed: %w", err)
	}
	defer rows.Close()

	var result []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// GetProductByID は商品IDをキーに単一の商品を取得します。
func GetProductByID(conn DBTX, id int64) (*model.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = ? LIMIT 1`
	p, err := scanProduct(conn.QueryRow(q, id))
	if err == sql.ErrNoRows {
		return nil, nil // 見つからない場合はエラーではなくnilを返す
	}
	if err != nil {
		return nil, fmt.Errorf("GetProductByID failed: %w", err)
	}
	return p, nil
}
