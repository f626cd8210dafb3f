// Package attendee derives structured identities from raw event participants.
package attendee

import (
	"strings"

	"mileagecal/internal/model"
)

// Normalize builds an Attendee. The name is split at the first space: the
// first word is the first name and the remainder, if any, the last name.
func Normalize(raw model.RawAttendee) model.Attendee {
	a := model.Attendee{
		Email:   raw.Email,
		Company: CompanyFromEmail(raw.Email),
	}
	if raw.DisplayName != "" {
		parts := strings.Split(raw.DisplayName, " ")
		a.PersonName = &model.PersonName{
			FullName:  raw.DisplayName,
			FirstName: parts[0],
			LastName:  strings.Join(parts[1:], " "),
		}
	}
	return a
}

// NormalizeAll normalizes a possibly nil list; the result is never nil.
func NormalizeAll(raw []model.RawAttendee) []model.Attendee {
	out := make([]model.Attendee, 0, len(raw))
	for _, r := range raw {
		out = append(out, Normalize(r))
	}
	return out
}

// NormalizeOrganizer keeps only the organizer's email and company.
func NormalizeOrganizer(raw *model.RawAttendee) model.Organizer {
	if raw == nil {
		return model.Organizer{}
	}
	return model.Organizer{
		Email:   raw.Email,
		Company: CompanyFromEmail(raw.Email),
	}
}

// CompanyFromEmail returns the first label of the email's domain,
// e.g. "acme" for "jo@acme.co.uk". It returns "" when there is no domain.
func CompanyFromEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) < 2 {
		return ""
	}
	company, _, _ := strings.Cut(parts[1], ".")
	return company
}
