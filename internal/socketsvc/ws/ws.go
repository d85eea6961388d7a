package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/negasi/billiard-services/internal/comm"
	"github.com/negasi/billiard-services/internal/socketsvc/broker"
)

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	hallMap sync.Map // to keep track of hallId with socketId
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from POS terminals
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "init":
		s.handleInit(socketId, message)
	case "get-snapshot":
		s.forward(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// handleInit registers the terminal's hall and asks the hall service to
// replay every collection snapshot to this socket.
func (s *Ws) handleInit(socketId string, msg *comm.WSMessage) {
	var payload struct {
		HallId string `json:"hall_id"`
	}

	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: invalid_init_data Malformed init payload %s", err)
		return
	}

	if payload.HallId == "" {
		log.Error("Invalid init payload: missing hall id")
		return
	}

	s.StoreHall(socketId, payload.HallId)
	msg.HallId = payload.HallId

	s.forward(socketId, msg)
}

// forward relays a terminal request to the hall service over NATS.
func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	msg.SocketId = socketId
	if msg.HallId == "" {
		if hallId, ok := s.GetHall(socketId); ok {
			msg.HallId = hallId
		}
	}

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	topic := "socket.service"
	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
		return
	}

	log.Infof("Forwarded %s message for socket %s to topic %s", msg.Type, socketId, topic)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) StoreHall(socketId string, hallId string) {
	s.hallMap.Store(socketId, hallId)
}

func (s *Ws) GetHall(socketId string) (string, bool) {
	hall, ok := s.hallMap.Load(socketId)
	if !ok {
		return "", false
	}
	return hall.(string), true
}

// GetHallSockets lists every socket registered for a hall.
func (s *Ws) GetHallSockets(hallId string) ([]string, bool) {
	var sockets []string
	found := false

	s.hallMap.Range(func(key, value interface{}) bool {
		if value.(string) == hallId {
			sockets = append(sockets, key.(string))
			found = true
		}
		return true // continue iterating
	})

	return sockets, found
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.hallMap.Delete(socketId)
}
