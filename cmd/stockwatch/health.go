// cmd/stockwatch/health.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v4/mem"
)

// Cross-origin upgrades are refused by the default origin check.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub fans tick reports out to websocket clients.
type Hub struct {
	mutex   sync.Mutex
	clients map[*websocket.Conn]bool
	logger  *Logger
}

// NewHub creates an empty hub.
func NewHub(logger *Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// Broadcast sends v as JSON to every client, dropping clients that fail.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode websocket message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("Dropping websocket client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mutex.Unlock()
}

// SystemMetrics is the resource usage shown by /api/status.
type SystemMetrics struct {
	GoroutineCount    int     `json:"goroutine_count"`
	HeapAllocMB       float64 `json:"heap_alloc_mb"`
	SystemMemoryUsage float64 `json:"system_memory_used_percent"`
}

func collectMetrics() SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	metrics := SystemMetrics{
		GoroutineCount: runtime.NumGoroutine(),
		HeapAllocMB:    float64(ms.HeapAlloc) / 1024 / 1024,
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.SystemMemoryUsage = vm.UsedPercent
	}
	return metrics
}

// StatusServer exposes health, the latest scrape and keyword management
// over HTTP.
type StatusServer struct {
	router   *mux.Router
	server   *http.Server
	state    *State
	errors   *ErrorSystem
	keywords *KeywordStore
	hub      *Hub
	logger   *Logger
	now      func() time.Time
}

// NewStatusServer creates the server for addr. It listens only after Start.
func NewStatusServer(addr string, state *State, errs *ErrorSystem, keywords *KeywordStore, hub *Hub, logger *Logger) *StatusServer {
	ss := &StatusServer{
		router:   mux.NewRouter(),
		state:    state,
		errors:   errs,
		keywords: keywords,
		hub:      hub,
		logger:   logger,
		now:      time.Now,
	}

	ss.router.HandleFunc("/healthcheck", ss.handleHealthCheck).Methods("GET")

	// Routes live on the root router so a wrong method answers 405.
	ss.router.HandleFunc("/api/status", ss.handleStatus).Methods("GET")
	ss.router.HandleFunc("/api/snapshot", ss.handleSnapshot).Methods("GET")
	ss.router.HandleFunc("/api/keywords", ss.handleListKeywords).Methods("GET")
	ss.router.HandleFunc("/api/keywords", ss.handleAddKeyword).Methods("POST")
	ss.router.HandleFunc("/api/keywords/{word}", ss.handleRemoveKeyword).Methods("DELETE")
	ss.router.HandleFunc("/api/ws", ss.handleWebsocket)

	ss.server = &http.Server{
		Addr:              addr,
		Handler:           ss.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ss
}

// Handler returns the router.
func (ss *StatusServer) Handler() http.Handler {
	return ss.router
}

// Start serves in the background.
func (ss *StatusServer) Start() {
	go func() {
		ss.logger.Info("Starting status API on %s", ss.server.Addr)
		if err := ss.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ss.logger.Error("Status API failed: %v", err)
		}
	}()
}

// Shutdown stops the server and disconnects websocket clients.
func (ss *StatusServer) Shutdown(ctx context.Context) error {
	ss.hub.Close()
	return ss.server.Shutdown(ctx)
}

func (ss *StatusServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := StatusOK
	switch {
	case !ss.state.Healthy():
		status = StatusDegraded
	case ss.state.View(ss.now()).TickCount == 0:
		status = StatusStarting
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": AppVersion,
	})
}

func (ss *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	errs := ss.errors.GetErrors()
	var lastError *ErrorRecord
	if len(errs) > 0 {
		lastError = &errs[len(errs)-1]
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"version":    AppVersion,
		"state":      ss.state.View(ss.now()),
		"errorCount": ss.errors.Count(),
		"lastError":  lastError,
		"metrics":    collectMetrics(),
	})
}

func (ss *StatusServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	part, at, ok := ss.state.LastPartition()
	if !ok {
		respondWithHTTPError(w, http.StatusNotFound, "no scrape has completed yet")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"scrapedAt":      at,
		"included":       part.Included,
		"filtered":       part.Filtered,
		"includedCounts": ParseStockCounts(part.Included),
		"filteredCounts": ParseStockCounts(part.Filtered),
	})
}

func (ss *StatusServer) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	words, err := ss.keywords.Load()
	if err != nil {
		respondWithHTTPError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"keywords": words})
}

func (ss *StatusServer) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Word string `json:"word"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithHTTPError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	added, err := ss.keywords.Add(body.Word)
	if err != nil {
		code := http.StatusBadRequest
		if errorKind(err) == "persistence" {
			code = http.StatusInternalServerError
		}
		respondWithHTTPError(w, code, err.Error())
		return
	}

	code := http.StatusOK
	if added {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, map[string]interface{}{"word": body.Word, "added": added})
}

func (ss *StatusServer) handleRemoveKeyword(w http.ResponseWriter, r *http.Request) {
	word := mux.Vars(r)["word"]
	removed, err := ss.keywords.Remove(word)
	if err != nil {
		respondWithHTTPError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		respondWithHTTPError(w, http.StatusNotFound, fmt.Sprintf("%q is not in the keyword list", word))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"word": word, "removed": true})
}

func (ss *StatusServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		ss.logger.Warning("Websocket upgrade failed: %v", err)
		return
	}
	ss.hub.add(conn)

	// Clients only listen; reading keeps pings flowing and detects close.
	go func() {
		defer ss.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func respondWithHTTPError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
