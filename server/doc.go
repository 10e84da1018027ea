/*
Package server exposes realm schedules over HTTP so that applications can
embed the recurrence engine behind a small JSON API.

# Basic Usage

The simplest way to use this package is with the provided in-memory storage:

	store := memory.New()
	svc := schedule.New(store)
	defer svc.Close()

	srv, err := server.New(svc, "/api")
	if err != nil {
		log.Fatal(err)
	}
	http.Handle("/api/", srv)
	http.ListenAndServe(":8080", nil)

# Routes

All routes live under the prefix (default /api/). Windows are given as start
and end query parameters in RFC 3339 and include both ends.
  - GET realms/<realm>/schedule - events, occurrences and tasks as JSON
  - GET realms/<realm>/schedule.ics - the same window as text/calendar
  - GET realms/<realm>/schedule.xml - the same window as xCal (RFC 6321)
  - GET realms/<realm>/occurrences - events and occurrences without tasks
  - POST realms/<realm>/events - create an event
  - DELETE realms/<realm>/events/<id> - delete an event
  - GET realms/<realm>/events/<id>/next?after= - next occurrence after a time
  - POST realms/<realm>/tasks - create a task

An event's recurrence is either a JSON rule

	{"name": "Standup", "start_time": "2024-06-03T09:00:00Z",
	 "end_time": "2024-06-03T09:15:00Z",
	 "recurrence": {"frequency": "weekly", "interval": 1,
	                "end": {"type": "never"}, "weekly_pattern": ["mon", "thu"]}}

or an RFC 5545 rule in the rrule field, for example "FREQ=WEEKLY;BYDAY=MO,TH".
Rules that cannot be packed into the stored form are rejected with 422.

# Errors

Failures are answered with a JSON body:

	{"status": 404, "message": "..."}

The storage package's error types decide the status: ErrNotFound is 404,
ErrAlreadyExists 409, ErrInvalidInput 400 and ErrUnavailable 503. A request
that runs out of time (see WithTimeout) gets 504.

# Authentication

WithAuthenticator puts every route behind HTTP Basic authentication and
checks that the principal may access the realm in the path. The
server/auth/memory package provides a simple in-memory authenticator.

See server/example for a complete program.
*/
package server
