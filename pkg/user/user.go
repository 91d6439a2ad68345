package user

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Settings    Settings
}

type Settings struct {
	// Timezone is the IANA zone used when bucketing tasks by calendar date.
	// Remote timestamps are UTC; the user decides what "today" means.
	Timezone       string
	GoogleCalendar GoogleCalendarSettings
}

type GoogleCalendarSettings struct {
	// CalendarId selects which calendar backs the task list. Empty means
	// the account's primary calendar.
	CalendarId string
}
