package notification

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/occupancy"
)

// NotificationWriter persists rendered notifications.
type NotificationWriter interface {
	Write(ctx context.Context, n *model.Notification) error
}

// GormWriter is the default NotificationWriter, inserting rows through GORM.
type GormWriter struct {
	db *gorm.DB
}

// Write inserts a single notification row.
func (w *GormWriter) Write(ctx context.Context, n *model.Notification) error {
	return w.db.WithContext(ctx).Create(n).Error
}

// WorkerPool turns committed occupancy changes into in-app notifications.
// It implements occupancy.Notifier.
type WorkerPool struct {
	size   int
	jobs   chan occupancy.Change
	writer NotificationWriter
}

// NewWorkerPool creates a new worker pool with a queue of queueSize changes.
func NewWorkerPool(size, queueSize int, db *gorm.DB) *WorkerPool {
	return &WorkerPool{
		size:   size,
		jobs:   make(chan occupancy.Change, queueSize),
		writer: &GormWriter{db: db},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case change := <-wp.jobs:
			wp.deliver(ctx, change)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Notify queues a change without blocking the caller. When the queue is full the change
// is dropped and logged; the audit log still has it.
func (wp *WorkerPool) Notify(c occupancy.Change) {
	select {
	case wp.jobs <- c:
	default:
		log.Printf("Notification queue full, dropping %s for occupancy %d", c.Action, c.Occupancy.ID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan occupancy.Change {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, c occupancy.Change) {
	n := Render(c)
	if err := wp.writer.Write(ctx, &n); err != nil {
		log.Printf("Error writing %s notification for occupancy %d: %v", c.Action, c.Occupancy.ID, err)
	}
}

// Render builds the notification shown to the occupant for a change.
func Render(c occupancy.Change) model.Notification {
	o := c.Occupancy
	bed := fmt.Sprintf("bed %d", o.BedID)
	if o.Bed.Code != "" {
		bed = "bed " + o.Bed.Code
	}
	period := o.CheckInDate.Format(occupancy.DateLayout)
	if o.CheckOutDate != nil {
		period += " to " + o.CheckOutDate.Format(occupancy.DateLayout)
	} else {
		period += " (open-ended)"
	}

	var title, message string
	switch c.Action {
	case model.ActionAssign:
		if o.Status == model.StatusPending {
			title = "Booking request received"
			message = fmt.Sprintf("Your request for %s from %s is waiting for approval.", bed, period)
		} else {
			title = "Bed reserved"
			message = fmt.Sprintf("You have been assigned %s from %s.", bed, period)
		}
	case model.ActionApprove:
		title = "Booking approved"
		message = fmt.Sprintf("Your request for %s from %s was approved.", bed, period)
	case model.ActionCheckIn:
		title = "Checked in"
		message = fmt.Sprintf("Welcome! You are checked in to %s.", bed)
	case model.ActionCheckOut:
		title = "Checked out"
		message = fmt.Sprintf("You have checked out of %s.", bed)
	case model.ActionCancel:
		title = "Booking cancelled"
		message = fmt.Sprintf("Your booking for %s from %s was cancelled.", bed, period)
	case model.ActionNoShow:
		title = "Reservation released"
		message = fmt.Sprintf("You did not arrive for %s on %s; the reservation was released.", bed, o.CheckInDate.Format(occupancy.DateLayout))
	case model.ActionTransfer:
		title = "Bed changed"
		from := "your previous bed"
		if c.Related != nil {
			from = fmt.Sprintf("bed %d", c.Related.BedID)
		}
		message = fmt.Sprintf("You have been moved from %s to %s from %s.", from, bed, o.CheckInDate.Format(occupancy.DateLayout))
	default:
		title = "Occupancy updated"
		message = fmt.Sprintf("Your occupancy of %s is now %s.", bed, o.Status)
	}
	if c.Reason != "" {
		message += " Reason: " + c.Reason
	}

	return model.Notification{
		OccupancyID: o.ID,
		OccupantID:  o.OccupantID,
		Action:      c.Action,
		Title:       title,
		Message:     message,
		CreatedAt:   c.At,
	}
}
