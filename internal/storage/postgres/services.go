package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/storage"
)

const serviceColumns = `id, name, description, value, proposed_value, location,
	service_type, creator, status, accepted_by, images, created_at, updated_at`

func scanService(row pgx.Row) (models.Service, error) {
	var svc models.Service
	err := row.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.Value,
		&svc.ProposedValue, &svc.Location, &svc.ServiceType, &svc.Creator,
		&svc.Status, &svc.AcceptedBy, &svc.Images, &svc.CreatedAt, &svc.UpdatedAt)
	return svc, err
}

func (s *Store) CreateService(ctx context.Context, svc models.Service) (models.Service, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, description, value, location, service_type, creator, status, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'open', $8)
		RETURNING `+serviceColumns,
		svc.ID, svc.Name, svc.Description, svc.Value, svc.Location,
		svc.ServiceType, svc.Creator, svc.Images,
	)
	created, err := scanService(row)
	if err != nil {
		return models.Service{}, fmt.Errorf("create service: %w", err)
	}
	return created, nil
}

func (s *Store) GetService(ctx context.Context, id string) (models.Service, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Service{}, fmt.Errorf("service %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Service{}, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+serviceColumns+` FROM services ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (s *Store) UpdateServiceDetails(ctx context.Context, id string, det storage.ServiceDetails) (models.Service, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE services SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			value = COALESCE($4, value),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+serviceColumns,
		id, det.Name, det.Description, det.Value,
	)
	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Service{}, fmt.Errorf("service %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.Service{}, fmt.Errorf("update service details: %w", err)
	}
	return svc, nil
}

// TransitionService is a compare-and-swap on services.status. accepted_by is
// kept consistent with the target status: set on accept, preserved on
// complete, cleared on cancel.
func (s *Store) TransitionService(ctx context.Context, id string, from, to models.ServiceStatus, acceptedBy *string) (models.Service, error) {
	var row pgx.Row
	switch to {
	case models.ServiceAccepted:
		row = s.pool.QueryRow(ctx, `
			UPDATE services SET status = $3, accepted_by = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING `+serviceColumns, id, from, to, acceptedBy)
	case models.ServiceCanceled:
		row = s.pool.QueryRow(ctx, `
			UPDATE services SET status = $3, accepted_by = NULL, updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING `+serviceColumns, id, from, to)
	default:
		row = s.pool.QueryRow(ctx, `
			UPDATE services SET status = $3, updated_at = NOW()
			WHERE id = $1 AND status = $2
			RETURNING `+serviceColumns, id, from, to)
	}

	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Row missing or no longer in `from`; look again to tell which.
		if _, getErr := s.GetService(ctx, id); errors.Is(getErr, storage.ErrNotFound) {
			return models.Service{}, getErr
		}
		return models.Service{}, fmt.Errorf("service %s no longer %s: %w", id, from, storage.ErrConflict)
	}
	if err != nil {
		return models.Service{}, fmt.Errorf("transition service: %w", err)
	}
	return svc, nil
}
