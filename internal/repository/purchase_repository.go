package repository

import (
	"context"
	"database/sql"

	"github.com/worldautistic/worldautistic-api/internal/model"
)

// PurchaseRepo is the append-only ledger of Hotmart webhook notifications.
type PurchaseRepo struct{ DB *sql.DB }

func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{DB: db} }

// Record appends one purchase event row and populates its generated ID.
func (r *PurchaseRepo) Record(ctx context.Context, p *model.Purchase) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO purchases (transaction, event, buyer_email, status) VALUES (?,?,?,?)",
		p.Transaction, p.Event, p.BuyerEmail, p.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// List returns all purchase rows, newest first.
func (r *PurchaseRepo) List(ctx context.Context) ([]model.Purchase, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, transaction, event, buyer_email, status, created_at FROM purchases ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.Transaction, &p.Event, &p.BuyerEmail, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
