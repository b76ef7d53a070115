package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusbmelzi/hub-entidades/internal/service"
)

func TestStatusFor(t *testing.T) {
	for code, want := range map[service.Code]int{
		service.CodeNotFound:      http.StatusNotFound,
		service.CodeInvalidInput:  http.StatusBadRequest,
		service.CodeCapacity:      http.StatusUnprocessableEntity,
		service.CodeNotApproved:   http.StatusUnprocessableEntity,
		service.CodeConflict:      http.StatusConflict,
		service.CodeInvalidState:  http.StatusConflict,
		service.CodeAlreadyLinked: http.StatusConflict,
		service.CodeNotLinked:     http.StatusConflict,
	} {
		assert.Equal(t, want, statusFor(code), code)
	}
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, writeError(c, log, errors.New("dial tcp: connection refused"), "failed to load rooms"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to load rooms"}`, rec.Body.String())
}

func TestQueryParams(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?room_id=nope&from=2024-05-01", nil), httptest.NewRecorder())

	_, err := queryID(c, "room_id")
	assert.Error(t, err)
	id, err := queryID(c, "organization_id")
	require.NoError(t, err)
	assert.Nil(t, id)

	d, err := queryDate(c, "from")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", d.String())
}
