package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flavor-entertainers/booking-platform/internal/repository"
	"github.com/flavor-entertainers/booking-platform/internal/utils"
)

func TestWriteErrorStripsOperationPrefix(t *testing.T) {
	e := newEcho()
	cases := []struct {
		err  error
		code int
		body string
	}{
		{fmt.Errorf("service.booking.Get: %w", repository.ErrNotFound), http.StatusNotFound, `{"error":"not found"}`},
		{fmt.Errorf("repo: %w", utils.ErrWeakPassword), http.StatusBadRequest, `{"error":"password must be 8 to 72 bytes"}`},
		{errors.New("dial tcp 10.0.0.1:3306: refused"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		_ = writeError(c, tc.err)
		assert.Equal(t, tc.code, rec.Code)
		assert.JSONEq(t, tc.body, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/healthz", Health(pingerFunc(func() error { return nil })))
	e.GET("/down", Health(pingerFunc(func() error { return errBoom })))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "").Code)
}
