package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/riskwarning-backend/internal/data/repos/testutil"
)

func TestAssembleWiresHTTPWithoutOptionalCollaborators(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)

	a, err := assemble(ctx, testutil.Logger(t), defaultConfig(), gdb, emptySearcher{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })

	assert.Nil(t, a.Bus)
	assert.Nil(t, a.Graph)
	assert.Nil(t, a.Temporal)
	require.NotNil(t, a.Service)
	require.NoError(t, a.StartWorker(ctx))

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	projectID := uuid.New()
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/projects/"+projectID.String()+"/assessments", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_behaviors")

	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/projects/"+projectID.String()+"/assessments?async=true", strings.NewReader("{}")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGormPingerWithoutDB(t *testing.T) {
	assert.Error(t, gormPinger{}.Ping(context.Background()))
	assert.NoError(t, gormPinger{db: testutil.DB(t)}.Ping(context.Background()))
}
