package datastore

import (
	"context"

	"github.com/uptrace/bun"

	"stargift/internal/models"
)

func CreateTablePurchase(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Purchase)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func InsertPurchase(ctx context.Context, db *bun.DB, purchase *models.Purchase) error {
	_, err := db.NewInsert().Model(purchase).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetPurchasesByUser(ctx context.Context, db *bun.DB, userID int64, page, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := db.NewSelect().
		Model(&purchases).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(page * limit).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return purchases, nil
}

func CountPurchasesByUser(ctx context.Context, db *bun.DB, userID int64) (int, error) {
	return db.NewSelect().Model((*models.Purchase)(nil)).Where("user_id = ?", userID).Count(ctx)
}
