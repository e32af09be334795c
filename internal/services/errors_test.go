package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
	}{
		{err: errors.New("boom"), kind: KindInternal},
		{err: notFoundf("visit %s not found", "v1"), kind: KindNotFound},
		{err: invalidf("bad month"), kind: KindValidation},
		{err: fmt.Errorf("edit: %w", ErrEditLimitReached), kind: KindPreconditionFailed},
		{err: ErrExpenseNotPending, kind: KindPreconditionFailed},
		{err: ErrAlreadyReviewed, kind: KindPreconditionFailed},
		{err: ErrEmailExists, kind: KindPreconditionFailed},
		{err: ErrNotExpenseOwner, kind: KindForbidden},
		{err: ErrCoordinatesRequired, kind: KindValidation},
		{err: ErrReceiptsUnavailable, kind: KindUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.err), tt.err.Error())
	}
}

func TestWriteError(t *testing.T) {
	t.Run("internal errors are masked", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteError(w, zap.NewNop(), errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "An Internal Error Occurred", resp.Error)
	})

	t.Run("service errors use their message", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteError(w, zap.NewNop(), notFoundf("expense %s not found", "e1"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "expense e1 not found", resp.Error)
	})

	t.Run("sentinels map to status", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteError(w, zap.NewNop(), ErrNotExpenseOwner)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
