package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/elijahnyp/smart_office/office"
	"github.com/elijahnyp/smart_office/state"
	. "github.com/elijahnyp/smart_office/util"
)

type publishCall struct {
	Payload  interface{}
	Topic    string
	Retained bool
}

type fakeClient struct {
	MQTT.Client
	publishes []publishCall
	connected bool
	mu        sync.Mutex
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishes = append(c.publishes, publishCall{Topic: topic, Retained: retained, Payload: payload})
	return &fakeToken{}
}

func (c *fakeClient) calls() []publishCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishCall(nil), c.publishes...)
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeMessage struct {
	MQTT.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

func useClient(t *testing.T, c MQTT.Client) {
	t.Helper()
	previous := Client
	Client = c
	t.Cleanup(func() { Client = previous })
}

func usePrefix(t *testing.T, prefix string) {
	t.Helper()
	previous := Config.GetString("topic_prefix")
	Config.Set("topic_prefix", prefix)
	t.Cleanup(func() { Config.Set("topic_prefix", previous) })
}

func TestRoomFromTopic(t *testing.T) {
	tests := []struct {
		topic    string
		expected int
		wantErr  bool
	}{
		{"office/room/3/occupants", 3, false},
		{"hq/floor2/room/12/occupants", 12, false},
		{"office/room/abc/occupants", 0, true},
		{"office/desk/3/occupants", 0, true},
		{"occupants", 0, true},
	}

	for _, tt := range tests {
		got, err := roomFromTopic(tt.topic)
		if (err != nil) != tt.wantErr {
			t.Errorf("roomFromTopic(%s) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("roomFromTopic(%s) = %d, expected %d", tt.topic, got, tt.expected)
		}
	}
}

func TestOccupantsReceiver(t *testing.T) {
	o := office.New(office.Options{})
	if err := o.ConfigureRooms(2); err != nil {
		t.Fatal(err)
	}
	receive := occupantsReceiver(o)

	receive(nil, &fakeMessage{topic: "office/room/2/occupants", payload: []byte(" 3\n")})
	if status := o.RoomStatus(2).String(); status != "Room 2 | Capacity: 10 | Occupants: 3 | Booked: No" {
		t.Errorf("status after count = %q", status)
	}

	// garbage, unknown rooms and over-capacity counts leave the room alone
	receive(nil, &fakeMessage{topic: "office/room/2/occupants", payload: []byte("lots")})
	receive(nil, &fakeMessage{topic: "office/room/9/occupants", payload: []byte("1")})
	receive(nil, &fakeMessage{topic: "office/room/2/occupants", payload: []byte("11")})
	if snap, _ := o.Snapshot(2); snap.Occupants != 3 {
		t.Errorf("occupants = %d, expected 3", snap.Occupants)
	}
}

func TestMQTTSink(t *testing.T) {
	usePrefix(t, "office")
	client := &fakeClient{connected: true}
	useClient(t, client)

	sink := mqttSink{}
	sink.Publish(state.Event{Kind: state.ActuatorChanged, Room: 1, Device: "Light", On: true})
	sink.Publish(state.Event{Kind: state.ActuatorChanged, Room: 4, Device: "AC", On: false})
	sink.Publish(state.Event{Kind: state.BookingReleased, Room: 1})

	calls := client.calls()
	expected := []publishCall{
		{Topic: "office/room/1/light", Retained: true, Payload: "ON"},
		{Topic: "office/room/4/ac", Retained: true, Payload: "OFF"},
	}
	if len(calls) != len(expected) {
		t.Fatalf("publishes = %+v, expected %d", calls, len(expected))
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("publish %d = %+v, expected %+v", i, calls[i], expected[i])
		}
	}
}

func TestMQTTSink_Disconnected(t *testing.T) {
	usePrefix(t, "office")
	client := &fakeClient{connected: false}
	useClient(t, client)

	mqttSink{}.Publish(state.Event{Kind: state.ActuatorChanged, Room: 1, Device: "Light", On: true})
	if calls := client.calls(); len(calls) != 0 {
		t.Errorf("disconnected client should not publish, got %+v", calls)
	}

	useClient(t, nil)
	mqttSink{}.Publish(state.Event{Kind: state.ActuatorChanged, Room: 1, Device: "Light", On: true})
}

func TestMQTTSink_FollowsOffice(t *testing.T) {
	usePrefix(t, "office")
	client := &fakeClient{connected: true}
	useClient(t, client)

	o := office.New(office.Options{Sink: mqttSink{}})
	if err := o.ConfigureRooms(1); err != nil {
		t.Fatal(err)
	}
	o.AddOccupant(1, 2)
	o.AddOccupant(1, 5)
	o.AddOccupant(1, 1)

	calls := client.calls()
	expected := []string{"ON", "ON", "OFF", "OFF"}
	if len(calls) != len(expected) {
		t.Fatalf("publishes = %+v, expected %d", calls, len(expected))
	}
	for i, payload := range expected {
		if calls[i].Payload != payload {
			t.Errorf("publish %d payload = %v, expected %s", i, calls[i].Payload, payload)
		}
	}
	if calls[0].Topic != "office/room/1/light" || calls[1].Topic != "office/room/1/ac" {
		t.Errorf("light must publish before ac, got %s then %s", calls[0].Topic, calls[1].Topic)
	}
}

func TestHAEntities(t *testing.T) {
	usePrefix(t, "office")
	o := office.New(office.Options{})
	if err := o.ConfigureRooms(2); err != nil {
		t.Fatal(err)
	}

	entities := haEntities(o)
	if len(entities) != 4 {
		t.Fatalf("expected 4 entities, got %d", len(entities))
	}
	expected := []HAEntity{
		{Room: 1, Key: "light", Name: "Light", DeviceClass: "light", StateTopic: "office/room/1/light"},
		{Room: 1, Key: "ac", Name: "AC", DeviceClass: "running", StateTopic: "office/room/1/ac"},
		{Room: 2, Key: "light", Name: "Light", DeviceClass: "light", StateTopic: "office/room/2/light"},
		{Room: 2, Key: "ac", Name: "AC", DeviceClass: "running", StateTopic: "office/room/2/ac"},
	}
	for i := range expected {
		if entities[i] != expected[i] {
			t.Errorf("entity %d = %+v, expected %+v", i, entities[i], expected[i])
		}
	}

	client := &fakeClient{connected: true}
	advertise(o, client)
	if calls := client.calls(); len(calls) != 4 || !calls[0].Retained {
		t.Errorf("advertise published %+v", calls)
	}
}

func useRooms(t *testing.T, count int) {
	t.Helper()
	previous := Config.GetInt("rooms")
	Config.Set("rooms", count)
	t.Cleanup(func() { Config.Set("rooms", previous) })
}

func TestReconfigureOnChange(t *testing.T) {
	useRooms(t, 2)

	o := newOffice()
	if err := o.ConfigureRooms(2); err != nil {
		t.Fatal(err)
	}
	o.BlockRoom(1, office.NewTimeOfDay(9, 0), 30)
	reconfigure := reconfigureOnChange(o)

	reconfigure()
	if snap, _ := o.Snapshot(1); snap.Booking == nil {
		t.Error("unchanged room count should keep bookings")
	}

	Config.Set("rooms", 4)
	reconfigure()
	if o.RoomCount() != 4 {
		t.Errorf("RoomCount() = %d, expected 4", o.RoomCount())
	}
	if snap, _ := o.Snapshot(1); snap.Booking != nil {
		t.Error("reconfiguring should drop bookings")
	}

	Config.Set("rooms", 0)
	reconfigure()
	if o.RoomCount() != 4 {
		t.Errorf("invalid room count should leave rooms alone, got %d", o.RoomCount())
	}
}

func TestReconfigureOnChange_KeepsRoomsSetThroughAPI(t *testing.T) {
	useRooms(t, 2)
	previousLevel := Config.GetString("log_level")
	t.Cleanup(func() { Config.Set("log_level", previousLevel) })

	o := newOffice()
	if err := o.ConfigureRooms(Config.GetInt("rooms")); err != nil {
		t.Fatal(err)
	}
	reconfigure := reconfigureOnChange(o)

	monitor := NewMonitorServer(nil)
	NewAPI(o, nil).Register(monitor)
	rec := httptest.NewRecorder()
	monitor.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/rooms", strings.NewReader(`{"count": 5}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/rooms status = %d: %s", rec.Code, rec.Body.String())
	}
	if res := o.BlockRoom(4, office.NewTimeOfDay(10, 0), 30); !res.Succeeded() {
		t.Fatalf("BlockRoom(4) = %+v", res)
	}

	Config.Set("log_level", "debug")
	reconfigure()

	if o.RoomCount() != 5 {
		t.Errorf("rooms after unrelated reload = %d, expected 5", o.RoomCount())
	}
	if status := o.RoomStatus(4).String(); status != "Room 4 | Capacity: 10 | Occupants: 0 | Booked: 10:00 for 30min" {
		t.Errorf("room 4 status = %q", status)
	}

	Config.Set("rooms", 3)
	reconfigure()
	if o.RoomCount() != 3 {
		t.Errorf("changing rooms in config should still apply, got %d", o.RoomCount())
	}
}
