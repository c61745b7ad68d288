package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mbolis/surveyflow/log"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// Will log a failure to write a response that was already started
func LogWriteError(code string, err error) {
	log.Debugf("%s: %s", code, err)
}

type detailBody struct {
	Detail any `json:"detail"`
}

type detailItem struct {
	Msg string `json:"msg"`
}

// Will log an error code and message at the given level,
// and send a JSON {"detail": msg} response with the given status
func LogDetail(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string) {
	log.Log(level, code+":", msg)
	render.Status(r, status)
	render.JSON(w, r, detailBody{msg})
}

// Will log an error code at DEBUG level, and send a JSON
// {"detail": [{"msg": ...}, ...]} response with the given status
func LogDetailList(w http.ResponseWriter, r *http.Request, status int, code string, msgs []string) {
	log.Debugf("%s: %d problems", code, len(msgs))
	items := make([]detailItem, len(msgs))
	for i, m := range msgs {
		items[i] = detailItem{m}
	}
	render.Status(r, status)
	render.JSON(w, r, detailBody{items})
}
