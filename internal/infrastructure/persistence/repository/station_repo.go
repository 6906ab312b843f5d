package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/persistence/sqlite"
)

// StationRepository implements port.StationRepository on sqlite
type StationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStationRepository creates a new station repository
func NewStationRepository(db *sql.DB, logger *zap.Logger) port.StationRepository {
	return &StationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *StationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a new station
func (r *StationRepository) Create(ctx context.Context, station *entity.Station) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		"INSERT INTO stations (name, address, created_at) VALUES (?, ?, ?)",
		station.Name, station.Address, station.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("station %s: %w", station.Name, entity.ErrConflict)
		}
		r.logger.Error("Failed to create station", zap.Error(err))
		return fmt.Errorf("failed to create station: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	station.ID = id
	return nil
}

// GetByID retrieves a station by ID
func (r *StationRepository) GetByID(ctx context.Context, id int64) (*entity.Station, error) {
	var station entity.Station
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		"SELECT id, name, address, created_at FROM stations WHERE id = ?", id).
		Scan(&station.ID, &station.Name, &station.Address, &station.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrStationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	return &station, nil
}

// List retrieves all stations
func (r *StationRepository) List(ctx context.Context) ([]*entity.Station, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx,
		"SELECT id, name, address, created_at FROM stations ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	defer rows.Close()

	var stations []*entity.Station
	for rows.Next() {
		var station entity.Station
		if err := rows.Scan(&station.ID, &station.Name, &station.Address, &station.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, &station)
	}
	return stations, rows.Err()
}

// Verify interface compliance
var _ port.StationRepository = (*StationRepository)(nil)
