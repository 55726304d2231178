package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/storage"
)

const requestColumns = `id, service, proposer, proposed_value, proposed_date, status, created_at, updated_at`

func scanRequest(row pgx.Row) (models.ServiceRequest, error) {
	var req models.ServiceRequest
	err := row.Scan(&req.ID, &req.Service, &req.Proposer, &req.ProposedValue,
		&req.ProposedDate, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	return req, err
}

// CreateRequest inserts a pending request guarded by the service still being
// open; the guard and the insert are one statement so a closing service
// cannot race past it.
func (s *Store) CreateRequest(ctx context.Context, req models.ServiceRequest) (models.ServiceRequest, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO service_requests (id, service, proposer, proposed_value, proposed_date, status)
		SELECT $1, s.id, $3, $4, $5, 'pending'
		FROM services s WHERE s.id = $2 AND s.status = 'open'
		RETURNING `+requestColumns,
		req.ID, req.Service, req.Proposer, req.ProposedValue, req.ProposedDate,
	)
	created, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetService(ctx, req.Service); errors.Is(getErr, storage.ErrNotFound) {
			return models.ServiceRequest{}, getErr
		}
		return models.ServiceRequest{}, fmt.Errorf("service %s not open: %w", req.Service, storage.ErrConflict)
	}
	if err != nil {
		return models.ServiceRequest{}, fmt.Errorf("create request: %w", err)
	}
	return created, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (models.ServiceRequest, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ServiceRequest{}, fmt.Errorf("request %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.ServiceRequest{}, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

func (s *Store) ListRequestsByService(ctx context.Context, serviceID string) ([]models.ServiceRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE service = $1 ORDER BY created_at DESC`,
		serviceID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (s *Store) FindPendingRequest(ctx context.Context, serviceID, proposerID string) (models.ServiceRequest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM service_requests
		WHERE service = $1 AND proposer = $2 AND status = 'pending'
		ORDER BY created_at DESC LIMIT 1`,
		serviceID, proposerID)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ServiceRequest{}, fmt.Errorf("no pending request by %s on service %s: %w",
			proposerID, serviceID, storage.ErrNotFound)
	}
	if err != nil {
		return models.ServiceRequest{}, fmt.Errorf("find pending request: %w", err)
	}
	return req, nil
}

// AcceptRequest applies the whole accept outcome in one transaction: the
// request row is locked, the service moves open -> accepted via a conditional
// update, the request becomes accepted, and every sibling pending request is
// declined. Two racing accepts serialize on the service row; the loser finds
// it no longer open and gets ErrConflict.
func (s *Store) AcceptRequest(ctx context.Context, id string) (models.ServiceRequest, models.Service, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("begin accept: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE id = $1 FOR UPDATE`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("request %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("lock request: %w", err)
	}
	if req.Status != models.RequestPending {
		return models.ServiceRequest{}, models.Service{},
			fmt.Errorf("request %s already %s: %w", id, req.Status, storage.ErrConflict)
	}

	svcRow := tx.QueryRow(ctx, `
		UPDATE services
		SET status = 'accepted', accepted_by = $2, proposed_value = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING `+serviceColumns,
		req.Service, req.Proposer, req.ProposedValue)
	svc, err := scanService(svcRow)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ServiceRequest{}, models.Service{},
			fmt.Errorf("service %s not open: %w", req.Service, storage.ErrConflict)
	}
	if err != nil {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("accept service: %w", err)
	}

	reqRow := tx.QueryRow(ctx, `
		UPDATE service_requests SET status = 'accepted', updated_at = NOW()
		WHERE id = $1
		RETURNING `+requestColumns, id)
	accepted, err := scanRequest(reqRow)
	if err != nil {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("accept request: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE service_requests SET status = 'declined', updated_at = NOW()
		WHERE service = $1 AND status = 'pending' AND id <> $2`,
		req.Service, id); err != nil {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("decline siblings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("commit accept: %w", err)
	}
	return accepted, svc, nil
}

// DeclineRequest flips a pending request to declined; nothing else changes.
func (s *Store) DeclineRequest(ctx context.Context, id string) (models.ServiceRequest, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE service_requests SET status = 'declined', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetRequest(ctx, id); errors.Is(getErr, storage.ErrNotFound) {
			return models.ServiceRequest{}, getErr
		}
		return models.ServiceRequest{}, fmt.Errorf("request %s not pending: %w", id, storage.ErrConflict)
	}
	if err != nil {
		return models.ServiceRequest{}, fmt.Errorf("decline request: %w", err)
	}
	return req, nil
}
