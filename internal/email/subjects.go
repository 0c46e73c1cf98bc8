package email

const (
	subjectMeetingReminderFmt = "Reminder: your meeting with %s"
)
