package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/jardin/apps/api/echo"
	"github.com/trezcool/jardin/core/attendance"
	testutil "github.com/trezcool/jardin/tests"
)

func clockAt(t *testing.T, hour, minute int) {
	testutil.FreezeTime(t, &attendance.NowFunc, time.Date(2024, 3, 11, hour, minute, 0, 0, time.UTC))
}

func Test_attendanceApi_teachers(t *testing.T) {
	app := setup(t)
	crs := testutil.CreateCourse(t, app.courses, "Sala 3", "08:00 - 12:00", 1500, 10)
	body := []byte(`{"teacher_id": 7, "course_id": ` + itoa(crs.ID) + `}`)

	tests := []struct {
		name         string
		action       string
		hour, minute int
		wantCode     int
		wantData     []byte
	}{
		{
			name:     "check-out before check-in",
			action:   "check-out",
			hour:     11,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshalObj(t, httpErr{Error: "check-in must be registered first"}),
		},
		{
			name:     "check-in too early",
			action:   "check-in",
			hour:     6,
			minute:   59,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshalObj(t, httpErr{Error: "outside of the allowed time window"}),
		},
		{
			name:     "check-in",
			action:   "check-in",
			hour:     8,
			minute:   10,
			wantCode: http.StatusOK,
			wantData: []byte(`{"id": 1, "course_id": 1, "teacher_id": 7, "date": "2024-03-11T00:00:00Z",
				"check_in": "08:10", "check_out": null, "absent": false, "status": "checked_in"}`),
		},
		{
			name:     "check-in twice",
			action:   "check-in",
			hour:     8,
			minute:   15,
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: "check-in already registered"}),
		},
		{
			name:     "absent after check-in",
			action:   "absent",
			hour:     9,
			wantCode: http.StatusConflict,
		},
		{
			name:     "check-out",
			action:   "check-out",
			hour:     12,
			minute:   30,
			wantCode: http.StatusOK,
			wantData: []byte(`{"id": 1, "course_id": 1, "teacher_id": 7, "date": "2024-03-11T00:00:00Z",
				"check_in": "08:10", "check_out": "12:30", "absent": false, "status": "complete"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clockAt(t, tt.hour, tt.minute)
			app.do(t, httpTest{
				method:   http.MethodPost,
				path:     "/v1/attendance/teachers/" + tt.action,
				body:     body,
				wantCode: tt.wantCode,
				wantData: tt.wantData,
			})
		})
	}

	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/check-in",
		body:     []byte(`{"course_id": 1}`),
		wantCode: http.StatusBadRequest,
		wantData: []byte(`{"teacher_id": "this field is required"}`),
	})
	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/check-in",
		body:     []byte(`{"teacher_id": 7, "course_id": 999}`),
		wantCode: http.StatusNotFound,
	})
}

func Test_attendanceApi_settings(t *testing.T) {
	app := setup(t)
	crs := testutil.CreateCourse(t, app.courses, "Sala 3", "08:00 - 12:00", 1500, 10)
	clockAt(t, 8, 0)

	app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/settings", wantCode: http.StatusOK,
		wantData: []byte(`{"registration_enabled": true}`)})
	app.do(t, httpTest{method: http.MethodPost, path: "/v1/attendance/settings/toggle", wantCode: http.StatusOK,
		wantData: []byte(`{"registration_enabled": false}`)})

	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/check-in",
		body:     []byte(`{"teacher_id": 7, "course_id": ` + itoa(crs.ID) + `}`),
		wantCode: http.StatusUnprocessableEntity,
		wantData: marshalObj(t, httpErr{Error: "attendance registration is disabled"}),
	})

	app.do(t, httpTest{method: http.MethodPut, path: "/v1/attendance/settings", body: []byte(`{"registration_enabled": true}`),
		wantCode: http.StatusOK, wantData: []byte(`{"registration_enabled": true}`)})
	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/check-in",
		body:     []byte(`{"teacher_id": 7, "course_id": ` + itoa(crs.ID) + `}`),
		wantCode: http.StatusOK,
	})
}

func Test_attendanceApi_notify(t *testing.T) {
	app := setup(t)
	crs := testutil.CreateCourse(t, app.courses, "Sala 3", "08:00 - 12:00", 1500, 10)
	clockAt(t, 9, 30)

	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/notify",
		body:     []byte(`{"teacher_id": 7, "course_id": ` + itoa(crs.ID) + `, "kind": "Check_Out"}`),
		wantCode: http.StatusAccepted,
	})
	sent := app.mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Teacher could not register check-out", sent[0].Subject)

	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/notify",
		body:     []byte(`{"teacher_id": 7, "course_id": ` + itoa(crs.ID) + `, "kind": "lunch"}`),
		wantCode: http.StatusBadRequest,
	})
}

func Test_attendanceApi_rollCall(t *testing.T) {
	app := setup(t)
	crs := testutil.CreateCourse(t, app.courses, "Sala 3", "08:00 - 12:00", 1500, 10)
	ana := testutil.CreateStudent(t, app.courses, crs.ID, "Ana", "Diaz")
	juan := testutil.CreateStudent(t, app.courses, crs.ID, "Juan", "Perez")
	clockAt(t, 9, 0)

	rec := app.do(t, httpTest{
		method: http.MethodPost,
		path:   "/v1/attendance/roll-call",
		body: []byte(`{"course_id": ` + itoa(crs.ID) + `, "date": "2024-03-08", "entries": [
			{"student_id": ` + itoa(ana.ID) + `, "present": true},
			{"student_id": ` + itoa(juan.ID) + `, "present": false}
		]}`),
		wantCode: http.StatusOK,
	})
	var recs []attendance.Record
	unmarshal(t, rec, &recs)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Date.Equal(time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)))

	tests := []httpTest{
		{name: "no entries", body: []byte(`{"course_id": 1, "entries": []}`), wantCode: http.StatusBadRequest},
		{name: "bad date", body: []byte(`{"course_id": 1, "date": "08/03/2024", "entries": [{"student_id": 2}]}`), wantCode: http.StatusBadRequest},
		{name: "student not in course", body: []byte(`{"course_id": 1, "entries": [{"student_id": 999}]}`), wantCode: http.StatusBadRequest},
		{name: "unknown course", body: []byte(`{"course_id": 999, "entries": [{"student_id": 2}]}`), wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/attendance/roll-call"
			app.do(t, tt)
		})
	}
}

func Test_attendanceApi_pickups(t *testing.T) {
	app := setup(t)
	crs := testutil.CreateCourse(t, app.courses, "Sala 3", "08:00 - 12:00", 1500, 10)
	std := testutil.CreateStudent(t, app.courses, crs.ID, "Ana", "Diaz")
	mother := testutil.CreateFamilyMember(t, app.courses, std.ID, "Laura", "mother")
	body := []byte(`{"student_id": ` + itoa(std.ID) + `, "family_member_id": ` + itoa(mother.ID) + `}`)

	clockAt(t, 13, 30)
	rec := app.do(t, httpTest{method: http.MethodPost, path: "/v1/attendance/pickups", body: body, wantCode: http.StatusCreated})
	var p attendance.Pickup
	unmarshal(t, rec, &p)
	assert.Equal(t, "13:30", p.At.String())
	assert.Equal(t, crs.ID, p.CourseID)

	clockAt(t, 14, 1)
	app.do(t, httpTest{method: http.MethodPost, path: "/v1/attendance/pickups", body: body, wantCode: http.StatusUnprocessableEntity})

	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/pickups",
		body:     []byte(`{"student_id": ` + itoa(std.ID) + `}`),
		wantCode: http.StatusBadRequest,
		wantData: []byte(`{"family_member_id": "this field is required"}`),
	})
}

func Test_attendanceApi_history(t *testing.T) {
	app := setup(t)
	crs := testutil.CreateCourse(t, app.courses, "Sala 3", "08:00 - 12:00", 1500, 10)
	ana := testutil.CreateStudent(t, app.courses, crs.ID, "Ana", "Diaz")
	juan := testutil.CreateStudent(t, app.courses, crs.ID, "Juan", "Perez")
	mother := testutil.CreateFamilyMember(t, app.courses, ana.ID, "Laura", "mother")

	clockAt(t, 9, 0)
	app.do(t, httpTest{
		method: http.MethodPost,
		path:   "/v1/attendance/roll-call",
		body: []byte(`{"course_id": ` + itoa(crs.ID) + `, "date": "2024-03-08", "entries": [
			{"student_id": ` + itoa(ana.ID) + `, "present": true},
			{"student_id": ` + itoa(juan.ID) + `, "present": false}
		]}`),
		wantCode: http.StatusOK,
	})
	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/roll-call",
		body:     []byte(`{"course_id": ` + itoa(crs.ID) + `, "entries": [{"student_id": ` + itoa(ana.ID) + `, "present": true}]}`),
		wantCode: http.StatusOK,
	})
	clockAt(t, 13, 30)
	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/pickups",
		body:     []byte(`{"student_id": ` + itoa(ana.ID) + `, "family_member_id": ` + itoa(mother.ID) + `}`),
		wantCode: http.StatusCreated,
	})
	clockAt(t, 8, 10)
	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/check-in",
		body:     []byte(`{"teacher_id": 7, "course_id": ` + itoa(crs.ID) + `}`),
		wantCode: http.StatusOK,
	})

	t.Run("records", func(t *testing.T) {
		tests := []struct {
			query     string
			wantCount int
		}{
			{query: "?date=2024-03-08", wantCount: 2},
			{query: "?date=2024-03-11", wantCount: 1},
			{query: "?course=" + itoa(crs.ID) + "&person=" + itoa(ana.ID), wantCount: 2},
			{query: "?person=" + itoa(juan.ID), wantCount: 1},
			{query: "?course=999", wantCount: 0},
			{query: "", wantCount: 3},
		}
		for _, tt := range tests {
			rec := app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/records" + tt.query, wantCode: http.StatusOK})
			var recs []attendance.Record
			unmarshal(t, rec, &recs)
			assert.Len(t, recs, tt.wantCount, tt.query)
		}
	})

	t.Run("pickups", func(t *testing.T) {
		rec := app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/pickups?date=2024-03-11", wantCode: http.StatusOK})
		var pickups []attendance.Pickup
		unmarshal(t, rec, &pickups)
		require.Len(t, pickups, 1)
		assert.Equal(t, ana.ID, pickups[0].StudentID)
		assert.Equal(t, mother.ID, pickups[0].FamilyMemberID)
		assert.Equal(t, "13:30", pickups[0].At.String())

		app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/pickups?date=2024-03-08", wantCode: http.StatusOK, wantData: []byte(`[]`)})
	})

	t.Run("teachers", func(t *testing.T) {
		rec := app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/teachers?person=7&date=2024-03-11", wantCode: http.StatusOK})
		var recs []echoapi.TeacherRecordResponse
		unmarshal(t, rec, &recs)
		require.Len(t, recs, 1)
		assert.Equal(t, attendance.StatusCheckedIn, recs[0].Status)
		assert.Equal(t, "08:10", recs[0].CheckIn.String())

		app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/teachers?person=8", wantCode: http.StatusOK, wantData: []byte(`[]`)})
	})

	t.Run("invalid query", func(t *testing.T) {
		tests := []httpTest{
			{
				name:     "bad date",
				path:     "/v1/attendance/records?date=08/03/2024",
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"date": "date must be formatted as YYYY-MM-DD"}`),
			},
			{name: "bad course", path: "/v1/attendance/pickups?course=lol", wantCode: http.StatusBadRequest},
			{name: "bad person", path: "/v1/attendance/teachers?person=lol", wantCode: http.StatusBadRequest},
		}
		for _, tt := range tests {
			tt.method = http.MethodGet
			app.do(t, tt)
		}
	})
}

func Test_attendanceApi_notices(t *testing.T) {
	app := setup(t)
	crs := testutil.CreateCourse(t, app.courses, "Sala 3", "08:00 - 12:00", 1500, 10)
	clockAt(t, 10, 0)

	rec := app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/notify",
		body:     []byte(`{"teacher_id": 7, "course_id": ` + itoa(crs.ID) + `, "kind": "check_in", "requested_at": "07:45"}`),
		wantCode: http.StatusAccepted,
	})
	var notice attendance.PrincipalNotice
	unmarshal(t, rec, &notice)
	assert.Equal(t, "07:45", notice.RequestedAt.String())
	assert.False(t, notice.Processed)

	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/teachers/notify",
		body:     []byte(`{"teacher_id": 7, "course_id": ` + itoa(crs.ID) + `, "kind": "check_in", "requested_at": "7h45"}`),
		wantCode: http.StatusBadRequest,
	})

	rec = app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/notices/pending", wantCode: http.StatusOK})
	var pending []attendance.PrincipalNotice
	unmarshal(t, rec, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, notice.ID, pending[0].ID)

	rec = app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/courses-in-window", wantCode: http.StatusOK})
	var running []attendance.CourseInWindow
	unmarshal(t, rec, &running)
	require.Len(t, running, 1)
	assert.Equal(t, crs.ID, running[0].ID)
	assert.Empty(t, running[0].Teachers)

	app.do(t, httpTest{
		method:   http.MethodPost,
		path:     "/v1/attendance/notices/" + itoa(notice.ID) + "/process",
		wantCode: http.StatusOK,
		wantData: []byte(`{"id": ` + itoa(notice.ID+1) + `, "course_id": 1, "teacher_id": 7, "date": "2024-03-11T00:00:00Z",
			"check_in": "07:45", "check_out": null, "absent": false, "status": "checked_in"}`),
	})

	tests := []httpTest{
		{
			name:     "already processed",
			path:     "/v1/attendance/notices/" + itoa(notice.ID) + "/process",
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: "notice already processed"}),
		},
		{name: "unknown notice", path: "/v1/attendance/notices/999/process", wantCode: http.StatusNotFound},
		{name: "invalid id", path: "/v1/attendance/notices/lol/process", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			app.do(t, tt)
		})
	}

	app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/notices/pending", wantCode: http.StatusOK, wantData: []byte(`[]`)})

	rec = app.do(t, httpTest{method: http.MethodGet, path: "/v1/attendance/courses-in-window", wantCode: http.StatusOK})
	running = nil
	unmarshal(t, rec, &running)
	require.Len(t, running, 1)
	assert.Equal(t, []attendance.TeacherStatus{{TeacherID: 7, Status: attendance.StatusCheckedIn}}, running[0].Teachers)
}
