package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dorm-occupancy-backend/internal/api/response"
	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/occupancy"
	"dorm-occupancy-backend/internal/parse"
)

// GetRoomBeds handles GET /api/rooms/:room_id/beds?on=YYYY-MM-DD.
func (h *Handler) GetRoomBeds(c *gin.Context) {
	roomID, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	on, ok := queryDate(c, "on")
	if !ok {
		return
	}
	var day time.Time
	if on != nil {
		day = *on
	}

	beds, err := h.svc.BedsWithOccupancy(c.Request.Context(), roomID, day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, beds)
}

// GetRoomHistory handles GET /api/rooms/:room_id/history.
// action may repeat or hold a comma-separated list; from is inclusive, to is exclusive.
func (h *Handler) GetRoomHistory(c *gin.Context) {
	roomID, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	from, ok := queryInstant(c, "from")
	if !ok {
		return
	}
	to, ok := queryInstant(c, "to")
	if !ok {
		return
	}
	page, ok := queryInt(c, "pageNum")
	if !ok {
		return
	}
	size, ok := queryInt(c, "pageSize")
	if !ok {
		return
	}

	var actions []model.Action
	for _, raw := range c.QueryArray("action") {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, model.Action(strings.ToUpper(a)))
			}
		}
	}

	history, err := h.svc.RoomHistory(c.Request.Context(), roomID, occupancy.HistoryFilter{
		Actions:  actions,
		From:     from,
		To:       to,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, history)
}

type availabilityResponse struct {
	BedID int64   `json:"bedId"`
	Start string  `json:"start"`
	End   *string `json:"end"`
	Free  bool    `json:"free"`
}

// GetBedAvailability handles GET /api/beds/:bed_id/availability?start=&end=.
// Without end the request is open-ended.
func (h *Handler) GetBedAvailability(c *gin.Context) {
	bedID, ok := pathID(c, "bed_id")
	if !ok {
		return
	}
	start, ok := queryDate(c, "start")
	if !ok {
		return
	}
	if start == nil {
		response.BindError(c, "start is required")
		return
	}
	end, ok := queryDate(c, "end")
	if !ok {
		return
	}

	free, err := h.svc.IsBedFree(c.Request.Context(), bedID, *start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := availabilityResponse{BedID: bedID, Start: start.Format(occupancy.DateLayout), Free: free}
	if end != nil {
		s := end.Format(occupancy.DateLayout)
		resp.End = &s
	}
	response.Success(c, resp)
}

// LookupBed handles GET /api/beds/lookup?label=A-3-12-B.
func (h *Handler) LookupBed(c *gin.Context) {
	label, err := parse.ParseBedLabel(c.Query("label"))
	if err != nil {
		response.BindError(c, err.Error())
		return
	}
	bed, err := h.svc.LookupBed(c.Request.Context(), label.String())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bed)
}

// LookupOccupant handles GET /api/occupants/lookup?nik=.
func (h *Handler) LookupOccupant(c *gin.Context) {
	occupant, err := h.svc.LookupOccupant(c.Request.Context(), strings.TrimSpace(c.Query("nik")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, occupant)
}
