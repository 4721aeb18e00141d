package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"dorm-occupancy-backend/internal/api/response"
	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/occupancy"
	"dorm-occupancy-backend/internal/parse"
)

type assignRequest struct {
	OccupantID   int64   `json:"occupantId" binding:"required,gt=0"`
	BedID        int64   `json:"bedId" binding:"required,gt=0"`
	CheckInDate  string  `json:"checkInDate" binding:"required"`
	CheckOutDate *string `json:"checkOutDate"`
	Notes        string  `json:"notes"`
}

type checkOutRequest struct {
	Forced bool   `json:"forced"`
	Reason string `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type transferRequest struct {
	ToBedID       int64  `json:"toBedId" binding:"required,gt=0"`
	EffectiveDate string `json:"effectiveDate" binding:"required"`
	Reason        string `json:"reason"`
}

// cancelResponse carries the H-1 warning next to the record.
type cancelResponse struct {
	Occupancy model.Occupancy `json:"occupancy"`
	H1        bool            `json:"h1"`
	Warning   string          `json:"warning,omitempty"`
}

func parseBodyDate(c *gin.Context, field, raw string) (time.Time, bool) {
	d, err := occupancy.ParseDate(raw)
	if err != nil {
		response.BindError(c, field+": "+err.Error())
		return time.Time{}, false
	}
	return d, true
}

// Assign handles POST /api/occupancies: a direct RESERVED assignment by staff.
func (h *Handler) Assign(c *gin.Context) {
	h.assign(c, model.StatusReserved)
}

// RequestBooking handles POST /api/occupancies/requests: a PENDING booking request.
func (h *Handler) RequestBooking(c *gin.Context) {
	h.assign(c, model.StatusPending)
}

func (h *Handler) assign(c *gin.Context, status model.OccupancyStatus) {
	var req assignRequest
	if !bindJSON(c, &req) {
		return
	}
	checkIn, ok := parseBodyDate(c, "checkInDate", req.CheckInDate)
	if !ok {
		return
	}
	in := occupancy.AssignInput{
		OccupantID:  req.OccupantID,
		BedID:       req.BedID,
		CheckInDate: checkIn,
		Status:      status,
		Notes:       req.Notes,
	}
	if req.CheckOutDate != nil && *req.CheckOutDate != "" {
		checkOut, ok := parseBodyDate(c, "checkOutDate", *req.CheckOutDate)
		if !ok {
			return
		}
		in.CheckOutDate = &checkOut
	}

	o, err := h.svc.Assign(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// GetOccupancy handles GET /api/occupancies/:id.
func (h *Handler) GetOccupancy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// ScanOccupancy handles GET /api/occupancies/scan?code=, resolving a ticket QR payload.
func (h *Handler) ScanOccupancy(c *gin.Context) {
	code, err := parse.ParseOccupancyQR(c.Query("code"))
	if err != nil {
		response.BindError(c, err.Error())
		return
	}
	o, err := h.svc.LookupByCode(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// GetOccupancyHistory handles GET /api/occupancies/:id/history.
func (h *Handler) GetOccupancyHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.svc.OccupancyHistory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}

// Approve handles POST /api/occupancies/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.Approve(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// CheckIn handles POST /api/occupancies/:id/check-in.
func (h *Handler) CheckIn(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.CheckIn(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// CheckOut handles POST /api/occupancies/:id/check-out.
func (h *Handler) CheckOut(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req checkOutRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	o, err := h.svc.CheckOut(c.Request.Context(), occupancy.CheckOutInput{
		OccupancyID: id,
		Forced:      req.Forced,
		Reason:      req.Reason,
	}, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// Cancel handles POST /api/occupancies/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	res, err := h.svc.Cancel(c.Request.Context(), occupancy.CancelInput{OccupancyID: id, Reason: req.Reason}, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	out := cancelResponse{Occupancy: res.Occupancy, H1: res.H1}
	if res.H1 {
		out.Warning = "cancelled one day before check-in (H-1)"
	}
	response.Success(c, out)
}

// MarkNoShow handles POST /api/occupancies/:id/no-show.
func (h *Handler) MarkNoShow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	o, err := h.svc.MarkNoShow(c.Request.Context(), occupancy.NoShowInput{OccupancyID: id, Reason: req.Reason}, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, o)
}

// Transfer handles POST /api/occupancies/:id/transfer.
func (h *Handler) Transfer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transferRequest
	if !bindJSON(c, &req) {
		return
	}
	effective, ok := parseBodyDate(c, "effectiveDate", req.EffectiveDate)
	if !ok {
		return
	}
	res, err := h.svc.Transfer(c.Request.Context(), occupancy.TransferInput{
		OccupancyID:   id,
		ToBedID:       req.ToBedID,
		EffectiveDate: effective,
		Reason:        req.Reason,
	}, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
