package service

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"jury_portal_backend/platform/sanitize"

	"github.com/emersion/go-ical"
)

// ParsedEvent is one VEVENT reduced to the fields the invitation model keeps.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	MeetingLink string
	Start       *time.Time
	End         *time.Time
	Cancelled   bool
	Sequence    int
	Attendees   []string
}

var (
	meetingURLRegex   = regexp.MustCompile(`https?://[^\s<>"{}|\\^\[\]` + "`" + `]+`)
	nonAlphaNumRegex  = regexp.MustCompile(`[^a-z0-9]+`)
	meetingPlatforms  = []string{"zoom", "meet.google", "teams.microsoft", "webex", "whereby"}
	errMissingEventID = errors.New("event without UID")
)

// ParseICS decodes every calendar in r and returns its events. Events that
// cannot be identified are reported in skipped rather than failing the batch.
func ParseICS(r io.Reader) (events []ParsedEvent, skipped []string, err error) {
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("decode calendar: %w", err)
		}
		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev, err := parseEvent(comp)
			if err != nil {
				skipped = append(skipped, err.Error())
				continue
			}
			events = append(events, ev)
		}
	}
	return events, skipped, nil
}

func parseEvent(comp *ical.Component) (ParsedEvent, error) {
	ev := ParsedEvent{
		UID:         propValue(comp, ical.PropUID),
		Summary:     propValue(comp, ical.PropSummary),
		Description: propValue(comp, ical.PropDescription),
		Location:    propValue(comp, ical.PropLocation),
	}
	if ev.UID == "" {
		return ev, fmt.Errorf("%w: %q", errMissingEventID, ev.Summary)
	}

	ev.Start = propTime(comp, ical.PropDateTimeStart)
	ev.End = propTime(comp, ical.PropDateTimeEnd)

	if seq := propValue(comp, ical.PropSequence); seq != "" {
		if n, err := strconv.Atoi(seq); err == nil {
			ev.Sequence = n
		}
	}

	ev.Cancelled = strings.EqualFold(propValue(comp, ical.PropStatus), "CANCELLED") || isCancelledTitle(ev.Summary)

	ev.MeetingLink = extractMeetingLink(ev.Description)
	if ev.MeetingLink == "" {
		ev.MeetingLink = extractMeetingLink(ev.Location)
	}

	ev.Attendees = attendeeEmails(comp)
	return ev, nil
}

func propValue(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	return strings.TrimSpace(prop.Value)
}

func propTime(comp *ical.Component, name string) *time.Time {
	prop := comp.Props.Get(name)
	if prop == nil {
		return nil
	}
	t, err := prop.DateTime(time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// attendeeEmails collects ATTENDEE and ORGANIZER addresses, lower-cased,
// de-duplicated and sorted.
func attendeeEmails(comp *ical.Component) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range []string{ical.PropOrganizer, ical.PropAttendee} {
		for _, prop := range comp.Props[name] {
			addr := sanitize.Email(prop.Value)
			if addr == "" || !strings.Contains(addr, "@") {
				continue
			}
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

func extractMeetingLink(text string) string {
	matches := meetingURLRegex.FindAllString(text, -1)
	for _, match := range matches {
		lower := strings.ToLower(match)
		for _, p := range meetingPlatforms {
			if strings.Contains(lower, p) {
				return match
			}
		}
	}
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

func isCancelledTitle(title string) bool {
	clean := nonAlphaNumRegex.ReplaceAllString(strings.ToLower(title), "")
	return strings.HasPrefix(clean, "canceled") || strings.HasPrefix(clean, "cancelled")
}

// roundFor picks the evaluation round of a newly seen invitation.
func roundFor(summary, fallback string) string {
	if strings.Contains(strings.ToLower(summary), "pitch") {
		return "pitching"
	}
	return fallback
}
