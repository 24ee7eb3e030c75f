package postgres

import (
	"context"
	"database/sql"
	"time"

	"taskhub/internal/domain"
	"taskhub/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type DeliveryRepository struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// deliveryRow flattens the nested locations into columns.
type deliveryRow struct {
	ID             uuid.UUID       `db:"id"`
	FulfillerID    uuid.UUID       `db:"fulfiller_id"`
	OrderID        string          `db:"order_id"`
	PickupAddress  string          `db:"pickup_address"`
	PickupLat      sql.NullFloat64 `db:"pickup_lat"`
	PickupLng      sql.NullFloat64 `db:"pickup_lng"`
	DropOffAddress string          `db:"dropoff_address"`
	DropOffLat     sql.NullFloat64 `db:"dropoff_lat"`
	DropOffLng     sql.NullFloat64 `db:"dropoff_lng"`
	Distance       float64         `db:"distance"`
	Amount         decimal.Decimal `db:"amount"`
	Status         string          `db:"status"`
	CustomerName   string          `db:"customer_name"`
	CustomerPhone  string          `db:"customer_phone"`
	Items          pq.StringArray  `db:"items"`
	CreatedAt      time.Time       `db:"created_at"`
	AcceptedAt     *time.Time      `db:"accepted_at"`
	CompletedAt    *time.Time      `db:"completed_at"`
	EstimatedTime  sql.NullInt64   `db:"estimated_time"`
}

func coords(c *domain.Coordinates) (lat, lng sql.NullFloat64) {
	if c == nil {
		return
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}

func fromCoords(lat, lng sql.NullFloat64) *domain.Coordinates {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
}

func toDeliveryRow(d *domain.Delivery) *deliveryRow {
	row := &deliveryRow{
		ID:             d.ID,
		FulfillerID:    d.FulfillerID,
		OrderID:        d.OrderID,
		PickupAddress:  d.PickupLocation.Address,
		DropOffAddress: d.DropOffLocation.Address,
		Distance:       d.Distance,
		Amount:         d.Amount,
		Status:         string(d.Status),
		CustomerName:   d.CustomerName,
		CustomerPhone:  d.CustomerPhone,
		Items:          stringArray(d.Items),
		CreatedAt:      d.CreatedAt,
		AcceptedAt:     d.AcceptedAt,
		CompletedAt:    d.CompletedAt,
	}
	row.PickupLat, row.PickupLng = coords(d.PickupLocation.Coordinates)
	row.DropOffLat, row.DropOffLng = coords(d.DropOffLocation.Coordinates)
	if d.EstimatedTime != nil {
		row.EstimatedTime = sql.NullInt64{Int64: int64(*d.EstimatedTime), Valid: true}
	}
	return row
}

func (r *deliveryRow) toDomain() *domain.Delivery {
	d := &domain.Delivery{
		ID:          r.ID,
		FulfillerID: r.FulfillerID,
		OrderID:     r.OrderID,
		PickupLocation: domain.Location{
			Address:     r.PickupAddress,
			Coordinates: fromCoords(r.PickupLat, r.PickupLng),
		},
		DropOffLocation: domain.Location{
			Address:     r.DropOffAddress,
			Coordinates: fromCoords(r.DropOffLat, r.DropOffLng),
		},
		Distance:      r.Distance,
		Amount:        r.Amount,
		Status:        domain.DeliveryStatus(r.Status),
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Items:         []string(r.Items),
		CreatedAt:     r.CreatedAt,
		AcceptedAt:    r.AcceptedAt,
		CompletedAt:   r.CompletedAt,
	}
	if r.EstimatedTime.Valid {
		eta := int(r.EstimatedTime.Int64)
		d.EstimatedTime = &eta
	}
	return d
}

const insertDelivery = `
	INSERT INTO deliveries (
		id, fulfiller_id, order_id,
		pickup_address, pickup_lat, pickup_lng,
		dropoff_address, dropoff_lat, dropoff_lng,
		distance, amount, status, customer_name, customer_phone, items,
		created_at, accepted_at, completed_at, estimated_time
	) VALUES (
		:id, :fulfiller_id, :order_id,
		:pickup_address, :pickup_lat, :pickup_lng,
		:dropoff_address, :dropoff_lat, :dropoff_lng,
		:distance, :amount, :status, :customer_name, :customer_phone, :items,
		:created_at, :accepted_at, :completed_at, :estimated_time
	)
`

func (r *DeliveryRepository) CreateBatch(ctx context.Context, deliveries []*domain.Delivery) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, d := range deliveries {
		if _, err := tx.NamedExecContext(ctx, insertDelivery, toDeliveryRow(d)); err != nil {
			return errors.Wrap(err, "failed to insert delivery")
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit deliveries")
}

// Update persists status changes only; the offer itself is immutable.
func (r *DeliveryRepository) Update(ctx context.Context, d *domain.Delivery) error {
	query := `
		UPDATE deliveries SET
			status = :status,
			accepted_at = :accepted_at,
			completed_at = :completed_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, toDeliveryRow(d))
	if err != nil {
		return errors.Wrap(err, "failed to update delivery")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrDeliveryNotFound
	}
	return nil
}

func (r *DeliveryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	var row deliveryRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM deliveries WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find delivery")
	}
	return row.toDomain(), nil
}

func (r *DeliveryRepository) FindByFulfiller(ctx context.Context, fulfillerID uuid.UUID) ([]*domain.Delivery, error) {
	var rows []deliveryRow
	query := `SELECT * FROM deliveries WHERE fulfiller_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, fulfillerID); err != nil {
		return nil, errors.Wrap(err, "failed to find deliveries by fulfiller")
	}
	out := make([]*domain.Delivery, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *DeliveryRepository) DeleteByFulfiller(ctx context.Context, fulfillerID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deliveries WHERE fulfiller_id = $1`, fulfillerID)
	return errors.Wrap(err, "failed to delete deliveries")
}
