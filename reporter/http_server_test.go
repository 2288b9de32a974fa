package reporter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/settlenet-io/settle-go/state"
)

func newTestReporterEnv(t *testing.T) (*HttpReporter, *state.StateDB, func()) {
	gin.SetMode(gin.TestMode)

	sqlDB := state.NewMemoryDB()
	statedb, err := state.NewStateDB(sqlDB)
	assert.NoError(t, err)

	h := NewHttpReporter("127.0.0.1", "0", statedb)
	return h, statedb, func() {
		statedb.Close()
		sqlDB.Close()
	}
}

func serve(h *HttpReporter, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	h.SetupRouter().ServeHTTP(w, req)
	return w
}

func TestHelloRoute(t *testing.T) {
	h, _, close := newTestReporterEnv(t)
	defer close()

	w := serve(h, ROUTE_HELLO)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "world")
}

func TestSettlementRoute(t *testing.T) {
	h, statedb, close := newTestReporterEnv(t)
	defer close()

	s := state.RandSettlement(state.SettlementStatusPending)
	id, err := statedb.InsertSettlement(s)
	assert.NoError(t, err)

	w := serve(h, ROUTE_SETTLEMENT+"?id=1")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data state.JSONSettlement `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.Data.Id)
	assert.Equal(t, s.Maker.Hex(), resp.Data.Maker)
	assert.Equal(t, "pending", resp.Data.Status)
}

func TestSettlementRouteNotFound(t *testing.T) {
	h, _, close := newTestReporterEnv(t)
	defer close()

	w := serve(h, ROUTE_SETTLEMENT+"?id=99")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettlementRouteBadId(t *testing.T) {
	h, _, close := newTestReporterEnv(t)
	defer close()

	w := serve(h, ROUTE_SETTLEMENT)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h, ROUTE_SETTLEMENT+"?id=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h, ROUTE_SETTLEMENT+"?id=-3")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferRoute(t *testing.T) {
	h, statedb, close := newTestReporterEnv(t)
	defer close()

	tr := state.RandTransfer(state.TransferStatusPending)
	id, err := statedb.InsertTransfer(tr)
	assert.NoError(t, err)

	w := serve(h, ROUTE_TRANSFER+"?id=1")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data state.JSONTransfer `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.Data.Id)
	assert.Equal(t, tr.Sender.Hex(), resp.Data.Sender)
	assert.False(t, resp.Data.Completed)

	w = serve(h, ROUTE_TRANSFER+"?id=42")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsRoute(t *testing.T) {
	h, statedb, close := newTestReporterEnv(t)
	defer close()

	id, err := statedb.InsertSettlement(state.RandSettlement(state.SettlementStatusPending))
	assert.NoError(t, err)
	_, err = statedb.MarkSettlementRefunded(id)
	assert.NoError(t, err)
	_, err = statedb.InsertTransfer(state.RandTransfer(state.TransferStatusPending))
	assert.NoError(t, err)

	w := serve(h, ROUTE_STATS)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Settlements state.SettlementStats `json:"settlements"`
		Transfers   state.TransferStats   `json:"transfers"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Settlements.Total)
	assert.Equal(t, int64(1), resp.Settlements.Refunded)
	assert.Equal(t, int64(1), resp.Transfers.Total)
	assert.Equal(t, "10", resp.Transfers.Escrowed)
}
