package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
)

func render(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, respondError(c, err))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespondErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		key  string
		want any
	}{
		{"validation", apperr.Invalid("party_size", "must be at least 1"), http.StatusBadRequest, "field", "party_size"},
		{"not found", fmt.Errorf("lookup: %w", apperr.ErrNotFound), http.StatusNotFound, "error", "not found"},
		{"unavailable", &apperr.AvailabilityError{Date: "2026-03-05", Time: "19:00", PartySize: 2, Reason: apperr.ReasonCovers}, http.StatusConflict, "reason", "covers"},
		{"conflict", &apperr.ConflictError{Current: "seated", Requested: "approved"}, http.StatusConflict, "current", "seated"},
		{"pos", &apperr.ExternalSyncError{Adapter: "http", Err: errors.New("timeout")}, http.StatusBadGateway, "code", "pos_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "error", "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := render(t, tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.want, body[tc.key])
		})
	}
}

func TestRespondErrorCutoffCarriesContact(t *testing.T) {
	deadline := time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)
	code, body := render(t, &apperr.CutoffError{Deadline: deadline, CutoffHours: 24, Phone: "+1 555", Email: "a@b.c"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "2026-03-04T19:00:00Z", body["deadline"])
	assert.Equal(t, float64(24), body["cutoff_hours"])
	assert.Equal(t, map[string]any{"phone": "+1 555", "email": "a@b.c"}, body["contact"])
}

func TestCheckNamesJSONField(t *testing.T) {
	err := check(&widgetReservationReq{Date: "2026-03-05", Time: "7pm", PartySize: 2, GuestName: "x"})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "time", verr.Field)
	assert.Equal(t, "must be HH:MM", verr.Message)

	err = check(&credentialsReq{Code: "ABCD2345", PhoneLast4: "12a4"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone_last4", verr.Field)

	assert.NoError(t, check(&credentialsReq{Code: "ABCD2345", PhoneLast4: "1234"}))
}

func TestClockPtr(t *testing.T) {
	m, err := clockPtr(nil)
	assert.NoError(t, err)
	assert.Nil(t, m)

	s := "18:45"
	m, err = clockPtr(&s)
	require.NoError(t, err)
	assert.Equal(t, 18*60+45, *m)

	bad := "25:00"
	_, err = clockPtr(&bad)
	assert.Error(t, err)
}
