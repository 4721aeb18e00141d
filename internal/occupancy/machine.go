package occupancy

import "dorm-occupancy-backend/internal/model"

// Event is a request to move an occupancy along its lifecycle.
type Event string

const (
	EventAssign   Event = "assign"
	EventRequest  Event = "request"
	EventApprove  Event = "approve"
	EventCheckIn  Event = "check_in"
	EventCheckOut Event = "check_out"
	EventCancel   Event = "cancel"
	EventNoShow   Event = "no_show"
	EventTransfer Event = "transfer"
)

// Events lists every event, creation events included.
var Events = []Event{
	EventAssign, EventRequest, EventApprove, EventCheckIn,
	EventCheckOut, EventCancel, EventNoShow, EventTransfer,
}

func (e Event) verb() string {
	switch e {
	case EventCheckIn:
		return "check in"
	case EventCheckOut:
		return "check out"
	case EventNoShow:
		return "mark as no-show"
	default:
		return string(e)
	}
}

// Role is the capacity in which an actor calls the engine.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleOperator  Role = "OPERATOR"
	RoleRequester Role = "REQUESTER"
	RoleSystem    Role = "SYSTEM"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleRequester, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who triggered an operation. It is supplied by the session layer.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// Transition is a single allowed edge of the occupancy lifecycle.
// Creation edges have an empty From.
type Transition struct {
	From   model.OccupancyStatus
	Event  Event
	To     model.OccupancyStatus
	Action model.Action
	Roles  []Role
}

var (
	staff      = []Role{RoleAdmin, RoleOperator}
	anyone     = []Role{RoleAdmin, RoleOperator, RoleRequester}
	staffOrJob = []Role{RoleAdmin, RoleOperator, RoleSystem}
)

var transitionsTable = []Transition{
	// Creation
	{From: "", Event: EventAssign, To: model.StatusReserved, Action: model.ActionAssign, Roles: staff},
	{From: "", Event: EventRequest, To: model.StatusPending, Action: model.ActionAssign, Roles: anyone},

	// Pending requests
	{From: model.StatusPending, Event: EventApprove, To: model.StatusReserved, Action: model.ActionApprove, Roles: []Role{RoleAdmin}},
	{From: model.StatusPending, Event: EventCancel, To: model.StatusCancelled, Action: model.ActionCancel, Roles: anyone},
	{From: model.StatusPending, Event: EventCheckIn, To: model.StatusCheckedIn, Action: model.ActionCheckIn, Roles: staff},

	// Reservations
	{From: model.StatusReserved, Event: EventCheckIn, To: model.StatusCheckedIn, Action: model.ActionCheckIn, Roles: staff},
	{From: model.StatusReserved, Event: EventCancel, To: model.StatusCancelled, Action: model.ActionCancel, Roles: staff},
	{From: model.StatusReserved, Event: EventNoShow, To: model.StatusNoShow, Action: model.ActionNoShow, Roles: staffOrJob},
	{From: model.StatusReserved, Event: EventTransfer, To: model.StatusCancelled, Action: model.ActionTransfer, Roles: staff},

	// Stays in progress
	{From: model.StatusCheckedIn, Event: EventCheckOut, To: model.StatusCheckedOut, Action: model.ActionCheckOut, Roles: staff},
	{From: model.StatusCheckedIn, Event: EventTransfer, To: model.StatusCheckedOut, Action: model.ActionTransfer, Roles: staff},
}

// TransitionFor returns the allowed transition for a given state and event.
// For EventTransfer, To is the status the source record is closed with.
func TransitionFor(from model.OccupancyStatus, ev Event) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

// Transitions returns a copy of the lifecycle table.
func Transitions() []Transition {
	return append([]Transition(nil), transitionsTable...)
}

// Allows reports whether the actor's role may trigger the transition.
func (t Transition) Allows(actor Actor) bool {
	for _, r := range t.Roles {
		if r == actor.Role {
			return true
		}
	}
	return false
}

// next resolves ev from the current status and checks the actor may trigger it.
func next(current model.OccupancyStatus, ev Event, actor Actor) (Transition, error) {
	tr, ok := TransitionFor(current, ev)
	if !ok {
		detail := ""
		if current.Terminal() {
			detail = "status is terminal"
		}
		return Transition{}, invalidTransition(current, ev, detail)
	}
	if !tr.Allows(actor) {
		return Transition{}, newError(KindForbidden, "role %s may not %s an occupancy that is %s", actor.Role, ev.verb(), current)
	}
	return tr, nil
}

func validateActor(actor Actor) error {
	if actor.ID == "" {
		return validationError("actor id is required")
	}
	if !actor.Role.Valid() {
		return validationError("unknown actor role %q", actor.Role)
	}
	return nil
}
