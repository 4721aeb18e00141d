package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dorm-occupancy-backend/internal/model"
)

// Store defines the persistence operations of the occupancy engine.
// Reads outside InTx see committed data only; anything that is followed by a write
// must go through the Tx handed to InTx.
type Store interface {
	// InTx runs fn as one atomic unit. Any error returned by fn rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetBed(ctx context.Context, id int64) (model.Bed, error)
	GetBedByCode(ctx context.Context, code string) (model.Bed, error)
	GetRoom(ctx context.Context, id int64) (model.Room, error)
	ListBeds(ctx context.Context, roomID int64) ([]model.Bed, error)
	GetOccupant(ctx context.Context, id int64) (model.Occupant, error)
	GetOccupantByNIK(ctx context.Context, nik string) (model.Occupant, error)
	GetOccupancy(ctx context.Context, id int64) (model.Occupancy, error)
	GetOccupancyByCode(ctx context.Context, code string) (model.Occupancy, error)
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]model.Occupancy, error)
	// ListOpenOccupancies returns non-terminal occupancies of the beds that have not ended by on.
	ListOpenOccupancies(ctx context.Context, bedIDs []int64, on time.Time) ([]model.Occupancy, error)
	// ListOverdueReservations returns RESERVED occupancies with a check-in date before cutoff.
	ListOverdueReservations(ctx context.Context, cutoff time.Time) ([]model.Occupancy, error)
	RoomHistory(ctx context.Context, roomID int64, q HistoryQuery) ([]model.OccupancyLog, int64, error)
	OccupancyLogs(ctx context.Context, occupancyID int64) ([]model.OccupancyLog, error)
}

// Tx is the transactional view used by mutating operations.
type Tx interface {
	// LockBed loads the bed with its room policy and blocks concurrent writers on it.
	LockBed(id int64) (model.Bed, error)
	// LockOccupancy loads the occupancy and blocks concurrent writers on it.
	LockOccupancy(id int64) (model.Occupancy, error)
	FindOccupant(id int64) (model.Occupant, error)
	FindOverlapping(q OverlapQuery) ([]model.Occupancy, error)
	CountOverlapping(q OverlapQuery) (int64, error)
	Insert(o *model.Occupancy) error
	Update(o *model.Occupancy) error
	AppendLog(entry *model.OccupancyLog) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) dialect() string {
	return s.db.Dialector.Name()
}

// InTx runs fn inside a database transaction, serializable where the dialect supports it.
func (s *gormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	var opts []*sql.TxOptions
	if s.dialect() != "sqlite" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}
	locking := s.dialect() != "sqlite"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, locking: locking})
	}, opts...)
	return translateError(err)
}

func (s *gormStore) GetBed(ctx context.Context, id int64) (model.Bed, error) {
	var bed model.Bed
	err := s.db.WithContext(ctx).Preload("Room.Floor.Building").First(&bed, id).Error
	return bed, notFound(err)
}

func (s *gormStore) GetBedByCode(ctx context.Context, code string) (model.Bed, error) {
	var bed model.Bed
	err := s.db.WithContext(ctx).Preload("Room.Floor.Building").Where("code = ?", code).First(&bed).Error
	return bed, notFound(err)
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).Preload("Floor.Building").First(&room, id).Error
	return room, notFound(err)
}

func (s *gormStore) ListBeds(ctx context.Context, roomID int64) ([]model.Bed, error) {
	var beds []model.Bed
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("position, id").Find(&beds).Error; err != nil {
		return nil, fmt.Errorf("failed to list beds of room %d: %w", roomID, err)
	}
	return beds, nil
}

func (s *gormStore) GetOccupant(ctx context.Context, id int64) (model.Occupant, error) {
	var occupant model.Occupant
	err := s.db.WithContext(ctx).First(&occupant, id).Error
	return occupant, notFound(err)
}

func (s *gormStore) GetOccupantByNIK(ctx context.Context, nik string) (model.Occupant, error) {
	var occupant model.Occupant
	err := s.db.WithContext(ctx).Where("nik = ?", nik).First(&occupant).Error
	return occupant, notFound(err)
}

func (s *gormStore) GetOccupancy(ctx context.Context, id int64) (model.Occupancy, error) {
	var o model.Occupancy
	err := s.db.WithContext(ctx).Preload("Occupant").First(&o, id).Error
	return o, notFound(err)
}

func (s *gormStore) GetOccupancyByCode(ctx context.Context, code string) (model.Occupancy, error) {
	var o model.Occupancy
	err := s.db.WithContext(ctx).Preload("Occupant").Where("code = ?", code).First(&o).Error
	return o, notFound(err)
}

func (s *gormStore) FindOverlapping(ctx context.Context, q OverlapQuery) ([]model.Occupancy, error) {
	return findOverlapping(s.db.WithContext(ctx), q)
}

func (s *gormStore) ListOpenOccupancies(ctx context.Context, bedIDs []int64, on time.Time) ([]model.Occupancy, error) {
	if len(bedIDs) == 0 {
		return nil, nil
	}
	var rows []model.Occupancy
	err := s.db.WithContext(ctx).
		Preload("Occupant").
		Where("bed_id IN ?", bedIDs).
		Where("status IN ?", []model.OccupancyStatus{model.StatusPending, model.StatusReserved, model.StatusCheckedIn}).
		Where("(check_out_date IS NULL OR check_out_date > ?)", on).
		Order("check_in_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open occupancies: %w", err)
	}
	return rows, nil
}

func (s *gormStore) ListOverdueReservations(ctx context.Context, cutoff time.Time) ([]model.Occupancy, error) {
	var rows []model.Occupancy
	err := s.db.WithContext(ctx).
		Where("status = ? AND check_in_date < ?", model.StatusReserved, cutoff).
		Order("check_in_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue reservations: %w", err)
	}
	return rows, nil
}

func (s *gormStore) RoomHistory(ctx context.Context, roomID int64, q HistoryQuery) ([]model.OccupancyLog, int64, error) {
	base := s.db.WithContext(ctx).Model(&model.OccupancyLog{}).
		Where("(room_id = ? OR from_room_id = ?)", roomID, roomID)
	if len(q.Actions) > 0 {
		base = base.Where("action IN ?", q.Actions)
	}
	if q.From != nil {
		base = base.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		base = base.Where("created_at < ?", *q.To)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count history of room %d: %w", roomID, err)
	}

	page := base.Session(&gorm.Session{}).Order("created_at DESC, id DESC")
	if q.Limit > 0 {
		page = page.Limit(q.Limit).Offset(q.Offset)
	}
	var entries []model.OccupancyLog
	if err := page.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to read history of room %d: %w", roomID, err)
	}
	return entries, total, nil
}

func (s *gormStore) OccupancyLogs(ctx context.Context, occupancyID int64) ([]model.OccupancyLog, error) {
	var entries []model.OccupancyLog
	err := s.db.WithContext(ctx).
		Where("occupancy_id = ? OR related_occupancy_id = ?", occupancyID, occupancyID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read history of occupancy %d: %w", occupancyID, err)
	}
	return entries, nil
}

// gormTx implements Tx on top of an open GORM transaction.
type gormTx struct {
	db      *gorm.DB
	locking bool
}

func (t *gormTx) forUpdate() *gorm.DB {
	if t.locking {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func (t *gormTx) LockBed(id int64) (model.Bed, error) {
	var bed model.Bed
	if err := t.forUpdate().First(&bed, id).Error; err != nil {
		return bed, notFound(err)
	}
	if err := t.db.Preload("Floor.Building").First(&bed.Room, bed.RoomID).Error; err != nil {
		return bed, fmt.Errorf("failed to load room %d of bed %d: %w", bed.RoomID, bed.ID, notFound(err))
	}
	return bed, nil
}

func (t *gormTx) LockOccupancy(id int64) (model.Occupancy, error) {
	var o model.Occupancy
	if err := t.forUpdate().First(&o, id).Error; err != nil {
		return o, notFound(err)
	}
	if err := t.db.First(&o.Occupant, o.OccupantID).Error; err != nil {
		return o, fmt.Errorf("failed to load occupant %d: %w", o.OccupantID, notFound(err))
	}
	return o, nil
}

func (t *gormTx) FindOccupant(id int64) (model.Occupant, error) {
	var occupant model.Occupant
	err := t.db.First(&occupant, id).Error
	return occupant, notFound(err)
}

func (t *gormTx) FindOverlapping(q OverlapQuery) ([]model.Occupancy, error) {
	return findOverlapping(t.db, q)
}

func (t *gormTx) CountOverlapping(q OverlapQuery) (int64, error) {
	var n int64
	if err := overlapScope(t.db.Model(&model.Occupancy{}), q).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count overlapping occupancies: %w", err)
	}
	return n, nil
}

func (t *gormTx) Insert(o *model.Occupancy) error {
	if err := t.db.Omit(clause.Associations).Create(o).Error; err != nil {
		return fmt.Errorf("failed to insert occupancy for bed %d: %w", o.BedID, err)
	}
	return nil
}

func (t *gormTx) Update(o *model.Occupancy) error {
	if err := t.db.Omit(clause.Associations).Save(o).Error; err != nil {
		return fmt.Errorf("failed to update occupancy %d: %w", o.ID, err)
	}
	return nil
}

func (t *gormTx) AppendLog(entry *model.OccupancyLog) error {
	if err := t.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append %s log for occupancy %d: %w", entry.Action, entry.OccupancyID, err)
	}
	return nil
}

// --- helpers ---

func overlapScope(db *gorm.DB, q OverlapQuery) *gorm.DB {
	db = db.Where("status IN ?", q.statuses())
	if q.BedID != nil {
		db = db.Where("bed_id = ?", *q.BedID)
	}
	if q.OccupantID != nil {
		db = db.Where("occupant_id = ?", *q.OccupantID)
	}
	if q.RoomID != nil {
		db = db.Where("room_id = ?", *q.RoomID)
	}
	if q.End != nil {
		db = db.Where("check_in_date < ?", *q.End)
	}
	db = db.Where("(check_out_date IS NULL OR check_out_date > ?)", q.Start)
	if len(q.ExcludeIDs) > 0 {
		db = db.Where("id NOT IN ?", q.ExcludeIDs)
	}
	return db
}

func findOverlapping(db *gorm.DB, q OverlapQuery) ([]model.Occupancy, error) {
	var rows []model.Occupancy
	if err := overlapScope(db, q).Preload("Occupant").Order("check_in_date, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query overlapping occupancies: %w", err)
	}
	return rows, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// translateError maps driver-level concurrency failures onto ErrConflict.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23P01":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1213, 1205:
			return fmt.Errorf("%w: %s", ErrConflict, myErr.Message)
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %s", ErrConflict, liteErr.Error())
		}
	}
	return err
}
