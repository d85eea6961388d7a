package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/negasi/billiard-services/internal/comm"
)

type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (*websocket.Conn, bool)
	GetHallSockets func(string) ([]string, bool)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool), fncGetHallSockets func(string) ([]string, bool)) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		GetHallSockets: fncGetHallSockets,
	}
}

// SubscribeHallService consumes targeted replies from the hall service.
func (b *Broker) SubscribeHallService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// SubscribeSnapshots consumes the hall snapshot fan-out and broadcasts each
// whole-collection update to every socket registered for that hall.
func (b *Broker) SubscribeSnapshots() (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe("hall.snapshot.>", b.handleSnapshot)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish message to hall service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receives targeted messages from the hall service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case "snapshot":
		b.sendMessage(message)
	default:
		log.Error("Unknown message")
		return
	}
}

// handleSnapshot broadcasts a collection update to the hall's sockets
func (b *Broker) handleSnapshot(msgNats *nats.Msg) {
	update := comm.SnapshotUpdate{}
	if err := json.Unmarshal(msgNats.Data, &update); err != nil {
		log.Errorf("Error nats snapshot message %s", err)
		return
	}

	sockets, ok := b.GetHallSockets(update.HallId)
	if !ok {
		return
	}

	msg := &comm.WSMessage{
		Type:   "snapshot",
		HallId: update.HallId,
	}
	msg.Data, _ = json.Marshal(update)

	for _, socketId := range sockets {
		msg.SocketId = socketId
		b.sendMessage(msg)
	}
}

// send socket message to the POS terminal
func (b *Broker) sendMessage(m *comm.WSMessage) {
	socketId := m.SocketId
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Println(err)
		}
	}
}
