package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"balemuya/internal/models"

	"github.com/shopspring/decimal"
)

func (db *DB) CreateService(ctx context.Context, svc *models.Service) error {
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now()
	}

	query := `INSERT INTO services (provider_id, title, description, price, location, available, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		svc.ProviderID,
		svc.Title,
		svc.Description,
		svc.Price.String(),
		svc.Location,
		svc.Available,
		svc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	svc.ID = id
	return nil
}

// SyncServices вливает каталог из конфигурации: услуги с явными id
// создаются или обновляются, записи созданные через API не трогаются.
func (db *DB) SyncServices(ctx context.Context, services []models.Service) error {
	query := `INSERT INTO services (id, provider_id, title, description, price, location, available, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  provider_id = excluded.provider_id,
                  title = excluded.title,
                  description = excluded.description,
                  price = excluded.price,
                  location = excluded.location,
                  available = excluded.available`
	now := time.Now()
	for _, svc := range services {
		if _, err := db.ExecContext(ctx, query,
			svc.ID,
			svc.ProviderID,
			svc.Title,
			svc.Description,
			svc.Price.String(),
			svc.Location,
			svc.Available,
			now,
		); err != nil {
			return fmt.Errorf("failed to sync service %d: %w", svc.ID, err)
		}
	}
	return nil
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	query := `SELECT id, provider_id, title, description, price, location, available, created_at
              FROM services WHERE id = ?`

	var svc models.Service
	var priceStr string
	err := db.QueryRowContext(ctx, query, id).Scan(
		&svc.ID, &svc.ProviderID, &svc.Title, &svc.Description,
		&priceStr, &svc.Location, &svc.Available, &svc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	svc.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service price %s: %w", priceStr, err)
	}
	return &svc, nil
}

func (db *DB) ListServices(ctx context.Context) ([]*models.Service, error) {
	query := `SELECT id, provider_id, title, description, price, location, available, created_at
              FROM services WHERE available = 1 ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		svc := &models.Service{}
		var priceStr string
		err := rows.Scan(
			&svc.ID, &svc.ProviderID, &svc.Title, &svc.Description,
			&priceStr, &svc.Location, &svc.Available, &svc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		if svc.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse service price %s: %w", priceStr, err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}
