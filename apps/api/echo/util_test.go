package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"strconv"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/jardin/apps/api/echo"
	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/attendance"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/stats"
	"github.com/trezcool/jardin/core/tuition"
	emailsvc "github.com/trezcool/jardin/services/email"
	logsvc "github.com/trezcool/jardin/services/logger"
	inmemdb "github.com/trezcool/jardin/storage/database/inmem"
	testutil "github.com/trezcool/jardin/tests"
)

type testApp struct {
	server  *echoapi.Server
	courses course.Repository
	tuition tuition.Repository
	mail    *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testApp {
	conf := testutil.Config(t)
	conf.Server.DisableReqLogs = true
	conf.PrincipalEmail = mail.Address{Name: "Principal", Address: "principal@jardin.test"}
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)

	// set up DB & repos
	db := inmemdb.Open()
	courseRepo := inmemdb.NewCourseRepository(db)
	tuitionRepo := inmemdb.NewTuitionRepository(db)
	attendanceRepo := inmemdb.NewAttendanceRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	tuitionSvc, err := tuition.NewService(tuitionRepo, courseRepo, conf)
	if err != nil {
		t.Fatalf("tuition.NewService() failed: %v", err)
	}

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		CourseSvc:     course.NewService(courseRepo),
		TuitionSvc:    tuitionSvc,
		AttendanceSvc: attendance.NewService(attendanceRepo, courseRepo, mailSvc, conf),
		StatsSvc:      stats.NewService(courseRepo, tuitionRepo, attendanceRepo, conf),
		Validate:      validate,
		Translator:    translator,
	})
	return testApp{server: server, courses: courseRepo, tuition: tuitionRepo, mail: mailSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func (app testApp) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newRequest(tt.method, tt.path, tt.body)
	app.server.ServeHTTP(rec, req)
	if tt.wantData != nil {
		checkCodeAndData(t, tt, rec)
	} else {
		assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	}
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
