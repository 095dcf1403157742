package calendar

// EventExtraction is the first, gating step of the chain.
type EventExtraction struct {
	Description     string  `json:"description" jsonschema:"Raw description of the event"`
	IsCalendarEvent bool    `json:"is_calendar_event" jsonschema:"Whether this text describes a calendar event"`
	ConfidenceScore float64 `json:"confidence_score" jsonschema:"Confidence score, of this being an event, between 0 and 1"`
}

type EventDetails struct {
	Name         string   `json:"name" jsonschema:"Name of the event"`
	Date         string   `json:"date" jsonschema:"Date and time of the event in ISO 8601 format"`
	Duration     int      `json:"duration" jsonschema:"Expected duration of the event in minutes"`
	Participants []string `json:"participants" jsonschema:"List of participants"`
}

type EventConfirmation struct {
	Message      string  `json:"message" jsonschema:"Natural language confirmation message of the event"`
	CalendarLink *string `json:"calendar_link" jsonschema:"Generated link to the calendar event, if applicable"`
}

// Request types a router can send a request to.
const (
	NewEvent    = "new_event"
	ModifyEvent = "modify_event"
)

type RequestType struct {
	RequestType     string  `json:"request_type" jsonschema:"Type of calendar request being made: new_event or modify_event"`
	ConfidenceScore float64 `json:"confidence_score" jsonschema:"Confidence score between 0 and 1"`
	Description     string  `json:"description" jsonschema:"Cleaned description of the request"`
}

type NewEventDetails struct {
	Name         string   `json:"name" jsonschema:"Name of the event"`
	Date         string   `json:"date" jsonschema:"Date of the event in ISO 8601 format"`
	Duration     int      `json:"duration" jsonschema:"Duration of the event in minutes"`
	Participants []string `json:"participants" jsonschema:"List of the participants of the event"`
}

type Change struct {
	Field    string `json:"field" jsonschema:"Field to change of the existing event"`
	NewValue string `json:"new_value" jsonschema:"New value for the field to change"`
}

type ModifyEventDetails struct {
	EventIdentifier      string   `json:"event_identifier" jsonschema:"Description to identify the existing event"`
	Changes              []Change `json:"changes" jsonschema:"List of changes to make"`
	ParticipantsToAdd    []string `json:"participants_to_add" jsonschema:"List of new participants to add"`
	ParticipantsToRemove []string `json:"participants_to_remove" jsonschema:"List of participants to remove"`
}

// Response is the final answer of a routed request. It is built in code from
// the extracted details, not by the model.
type Response struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CalendarLink string `json:"calendar_link,omitempty"`
}

type Validation struct {
	IsCalendarRequest bool    `json:"is_calendar_request" jsonschema:"Whether this is a calendar request"`
	ConfidenceScore   float64 `json:"confidence_score" jsonschema:"Confidence score between 0 and 1, for request being a calendar event"`
}

type SecurityCheck struct {
	IsSafe    bool     `json:"is_safe" jsonschema:"Whether the input is safe"`
	RiskFlags []string `json:"risk_flags" jsonschema:"List of potential security concerns"`
}
