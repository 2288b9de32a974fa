// This is a http type of reporter.
// It fetches data from the internal statedb
// and publishes on the http routes.

package reporter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/settlenet-io/settle-go/state"
)

const (
	ROUTE_HELLO      = "/hello"
	ROUTE_SETTLEMENT = "/settlement"
	ROUTE_TRANSFER   = "/transfer"
	ROUTE_STATS      = "/stats"
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data source
	statedb *state.StateDB
}

func NewHttpReporter(serverIP string, serverPort string, statedb *state.StateDB) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		statedb:    statedb,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Define routes & handlers
	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_SETTLEMENT, h.Settlement)
	router.GET(ROUTE_TRANSFER, h.Transfer)
	router.GET(ROUTE_STATS, h.Stats)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Fetch a settlement by id and publish on the route.
func (h *HttpReporter) Settlement(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}

	s, found, err := h.statedb.GetSettlement(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No settlement found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.ToJSON()})
}

// Fetch a transfer by id and publish on the route.
func (h *HttpReporter) Transfer(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}

	t, found, err := h.statedb.GetTransfer(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No transfer found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": t.ToJSON()})
}

// Aggregate statistics of both ledgers.
func (h *HttpReporter) Stats(c *gin.Context) {
	settlementStats, err := h.statedb.GetSettlementStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	transferStats, err := h.statedb.GetTransferStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settlements": settlementStats,
		"transfers":   transferStats,
	})
}

func parseId(c *gin.Context) (int64, bool) {
	raw := c.Query("id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be provided"})
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}

	return id, true
}
