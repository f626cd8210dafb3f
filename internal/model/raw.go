package model

// RawEvent is a calendar event as delivered by an event source, before
// classification. An empty Location means the event has none.
type RawEvent struct {
	ID        string
	Summary   string
	Location  string
	Start     EventTime
	Attendees []RawAttendee
	Organizer *RawAttendee
}

// EventTime carries either an RFC 3339 DateTime or an all-day Date
// (YYYY-MM-DD), mirroring the calendar API shape.
type EventTime struct {
	DateTime string
	Date     string
}

type RawAttendee struct {
	DisplayName string
	Email       string
}

// Page is one response of an event listing. An empty NextPageToken ends the
// listing.
type Page struct {
	Items         []RawEvent
	NextPageToken string
}
