package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/storage"
)

const paymentColumns = `id, service, customer, provider, amount, COALESCE(payment_method, ''),
	payment_status, COALESCE(payment_provider_id, ''), payment_date, created_at, updated_at`

func scanPayment(row pgx.Row) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.Service, &p.Customer, &p.Provider, &p.Amount,
		&p.PaymentMethod, &p.PaymentStatus, &p.PaymentProviderID,
		&p.PaymentDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CreatePayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO payments (id, service, customer, provider, amount, payment_method, payment_status, payment_provider_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), 'pending', NULLIF($7, ''))
		RETURNING `+paymentColumns,
		p.ID, p.Service, p.Customer, p.Provider, p.Amount, p.PaymentMethod, p.PaymentProviderID,
	)
	created, err := scanPayment(row)
	if err != nil {
		return models.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return created, nil
}

func (s *Store) ListPayments(ctx context.Context) ([]models.Payment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ResolvePaymentByProviderID moves the payment matching the gateway reference
// out of pending; the status guard makes repeated webhook deliveries safe.
func (s *Store) ResolvePaymentByProviderID(ctx context.Context, providerRef string, to models.PaymentStatus) (models.Payment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE payments SET payment_status = $2, updated_at = NOW()
		WHERE payment_provider_id = $1 AND payment_status = 'pending'
		RETURNING `+paymentColumns,
		providerRef, to)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if checkErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM payments WHERE payment_provider_id = $1)`,
			providerRef).Scan(&exists); checkErr == nil && !exists {
			return models.Payment{}, fmt.Errorf("payment ref %s: %w", providerRef, storage.ErrNotFound)
		}
		return models.Payment{}, fmt.Errorf("payment ref %s not pending: %w", providerRef, storage.ErrConflict)
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("resolve payment: %w", err)
	}
	return p, nil
}

// CollectStats aggregates the counters shown on the admin dashboard.
func (s *Store) CollectStats(ctx context.Context) (storage.Stats, error) {
	var st storage.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM services),
			(SELECT COUNT(*) FROM services WHERE status = 'open'),
			(SELECT COUNT(*) FROM service_requests),
			(SELECT COUNT(*) FROM payments),
			(SELECT COUNT(*) FROM payments WHERE payment_status = 'pending')
	`).Scan(&st.Users, &st.Services, &st.OpenServices, &st.ServiceRequests,
		&st.Payments, &st.PendingPayments)
	if err != nil {
		return storage.Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return st, nil
}
