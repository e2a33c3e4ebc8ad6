package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elijahnyp/smart_office/office"
	"github.com/elijahnyp/smart_office/state"
	. "github.com/elijahnyp/smart_office/util"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from elsewhere
	},
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn *websocket.Conn
	send chan WebSocketMessage
	hub  *WSHub
}

// WSHub maintains the set of active clients and broadcasts messages
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{} // closed when Run returns
}

func NewHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 64),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is canceled.
func (h *WSHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			Logger.Info().Msg("Client connected to WebSocket")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				Logger.Info().Msg("Client disconnected from WebSocket")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastUpdate queues an update for all connected clients, dropping it
// if the hub is backed up.
func (h *WSHub) BroadcastUpdate(messageType string, data interface{}) {
	select {
	case h.broadcast <- WebSocketMessage{Type: messageType, Data: data}:
	default:
		Logger.Debug().Msgf("websocket hub busy, dropping %s update", messageType)
	}
}

// join hands c to Run. It reports false once the hub has shut down.
func (h *WSHub) join(c *WSClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *WSHub) leave(c *WSClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish makes the hub an event sink.
func (h *WSHub) Publish(e state.Event) {
	h.BroadcastUpdate(e.Kind.String(), e)
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.leave(c)
		if err := c.conn.Close(); err != nil {
			Logger.Error().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *WSClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		Logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// ServeWebSocket handles websocket requests from the peer
func (h *WSHub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WebSocketMessage, 256),
		hub:  h,
	}
	if !h.join(client) {
		if err := conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
		return
	}

	go client.writePump()
	go client.readPump()
}

// SystemStatus represents the overall system status
type SystemStatus struct {
	Rooms         []state.RoomSnapshot `json:"rooms"`
	TotalRooms    int                  `json:"total_rooms"`
	OccupiedRooms int                  `json:"occupied_rooms"`
	BookedRooms   int                  `json:"booked_rooms"`
}

// ResultResponse carries an office result back to the caller.
type ResultResponse struct {
	Room    *state.RoomSnapshot `json:"room,omitempty"`
	Message string              `json:"message"`
	Outcome string              `json:"outcome"`
}

type configureRequest struct {
	Count *int `json:"count"`
}

type capacityRequest struct {
	Capacity *int `json:"capacity"`
}

type bookingRequest struct {
	Start    string `json:"start"`
	Duration *int   `json:"duration"`
}

type occupantsRequest struct {
	Count *int `json:"count"`
}

// API exposes the office over HTTP.
type API struct {
	office *office.Office
	hub    *WSHub
}

func NewAPI(o *office.Office, hub *WSHub) *API {
	return &API{office: o, hub: hub}
}

func (a *API) Register(monitor *MonitorServer) {
	monitor.AddHandler("/api/status", a.SystemStatus, http.MethodGet)
	monitor.AddHandler("/api/rooms", a.ListRooms, http.MethodGet)
	monitor.AddHandler("/api/rooms", a.ConfigureRooms, http.MethodPut)
	monitor.AddHandler("/api/rooms/{id:[0-9]+}", a.RoomStatus, http.MethodGet)
	monitor.AddHandler("/api/rooms/{id:[0-9]+}/capacity", a.SetCapacity, http.MethodPut)
	monitor.AddHandler("/api/rooms/{id:[0-9]+}/booking", a.BlockRoom, http.MethodPost)
	monitor.AddHandler("/api/rooms/{id:[0-9]+}/booking", a.CancelRoom, http.MethodDelete)
	monitor.AddHandler("/api/rooms/{id:[0-9]+}/occupants", a.SetOccupants, http.MethodPut)
	if a.hub != nil {
		monitor.AddHandler("/ws", a.hub.ServeWebSocket)
	}
}

func statusCode(outcome office.Outcome) int {
	switch outcome {
	case office.OK:
		return http.StatusOK
	case office.NotFound:
		return http.StatusNotFound
	case office.Conflict, office.NotBooked:
		return http.StatusConflict
	case office.CapacityExceeded:
		return http.StatusUnprocessableEntity
	case office.Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Error().Err(err).Msg("Error encoding response")
	}
}

func badRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeJSON(w, http.StatusBadRequest, ResultResponse{
		Message: fmt.Sprintf(format, args...),
		Outcome: office.Invalid.String(),
	})
}

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func roomID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

// respond writes res, attaching and broadcasting the room's snapshot when
// the operation succeeded.
func (a *API) respond(w http.ResponseWriter, id int, res office.Result, changed bool) {
	body := ResultResponse{Message: res.String(), Outcome: res.Outcome.String()}
	if res.Succeeded() {
		if snap, exists := a.office.Snapshot(id); exists {
			body.Room = &snap
			if changed && a.hub != nil {
				a.hub.BroadcastUpdate("room_status", snap)
			}
		}
	}
	Logger.Debug().Int("room", id).Str("outcome", body.Outcome).Msg(body.Message)
	writeJSON(w, statusCode(res.Outcome), body)
}

// SystemStatus returns the overall system status as JSON
func (a *API) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := SystemStatus{Rooms: a.office.Snapshots()}
	status.TotalRooms = len(status.Rooms)
	for _, room := range status.Rooms {
		if room.Occupied {
			status.OccupiedRooms++
		}
		if room.Booking != nil {
			status.BookedRooms++
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.office.Snapshots())
}

func (a *API) ConfigureRooms(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if req.Count == nil {
		badRequest(w, "count is required")
		return
	}
	if err := a.office.ConfigureRooms(*req.Count); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if a.hub != nil {
		a.hub.BroadcastUpdate("rooms_configured", map[string]int{"count": *req.Count})
	}
	writeJSON(w, http.StatusOK, ResultResponse{
		Message: fmt.Sprintf("Configured %d rooms.", *req.Count),
		Outcome: office.OK.String(),
	})
}

func (a *API) RoomStatus(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		badRequest(w, "invalid room id")
		return
	}
	a.respond(w, id, a.office.RoomStatus(id), false)
}

func (a *API) SetCapacity(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		badRequest(w, "invalid room id")
		return
	}
	var req capacityRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if req.Capacity == nil {
		badRequest(w, "capacity is required")
		return
	}
	a.respond(w, id, a.office.SetRoomCapacity(id, *req.Capacity), true)
}

func (a *API) BlockRoom(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		badRequest(w, "invalid room id")
		return
	}
	var req bookingRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	start, err := office.ParseTimeOfDay(req.Start)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	if req.Duration == nil {
		badRequest(w, "duration is required")
		return
	}
	a.respond(w, id, a.office.BlockRoom(id, start, *req.Duration), true)
}

func (a *API) CancelRoom(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		badRequest(w, "invalid room id")
		return
	}
	a.respond(w, id, a.office.CancelRoom(id), true)
}

func (a *API) SetOccupants(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		badRequest(w, "invalid room id")
		return
	}
	var req occupantsRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if req.Count == nil {
		badRequest(w, "count is required")
		return
	}
	a.respond(w, id, a.office.AddOccupant(id, *req.Count), true)
}
