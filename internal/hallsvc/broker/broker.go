package broker

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/negasi/billiard-services/internal/comm"
	"github.com/negasi/billiard-services/internal/hallsvc/service"
)

// Broker answers socket-service requests over NATS with current collection
// snapshots, so a freshly connected terminal gets state without waiting for
// the next mutation to fan out.
type Broker struct {
	Conn              *nats.Conn
	HallId            string
	SessionService    *service.SessionService
	TxService         *service.TransactionService
	SettlementService *service.SettlementService
	SettingsService   *service.SettingsService
	MarketService     *service.MarketService
	AttendanceService *service.AttendanceService
}

func NewBroker(nc *nats.Conn, hallId string,
	sessionService *service.SessionService, txService *service.TransactionService,
	settlementService *service.SettlementService, settingsService *service.SettingsService,
	marketService *service.MarketService, attendanceService *service.AttendanceService) *Broker {
	return &Broker{
		Conn:              nc,
		HallId:            hallId,
		SessionService:    sessionService,
		TxService:         txService,
		SettlementService: settlementService,
		SettingsService:   settingsService,
		MarketService:     marketService,
		AttendanceService: attendanceService,
	}
}

// SubscribeSocketService consumes snapshot requests from the socket
// service.
func (b *Broker) SubscribeSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	err := json.Unmarshal(msgNat.Data, &msg)
	if err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	if msg.HallId != b.HallId {
		return
	}

	switch msg.Type {
	case "init":
		// a terminal just connected, replay every collection to it
		for _, name := range []string{"sessions", "transactions", "debts", "settings", "market_items", "attendance"} {
			b.publishSnapshot(name, msg.SocketId)
		}
	case "get-snapshot":
		req := comm.SnapshotRequest{}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Errorf("Error %s", err)
			return
		}
		b.publishSnapshot(req.Collection, msg.SocketId)
	default:
		log.Warnf("unknown socket message type: %s", msg.Type)
	}
}

func (b *Broker) publishSnapshot(collection, socketId string) {
	data, err := b.collectionData(collection)
	if err != nil {
		log.Errorf("Error snapshotting %s: %s", collection, err)
		return
	}

	update := comm.SnapshotUpdate{
		HallId:     b.HallId,
		Collection: collection,
		Data:       data,
		UpdatedAt:  time.Now(),
	}
	payload, err := json.Marshal(comm.WSMessage{
		Type:     "snapshot",
		Data:     mustRaw(update),
		SocketId: socketId,
		HallId:   b.HallId,
	})
	if err != nil {
		log.Errorf("Error marshaling snapshot %s: %s", collection, err)
		return
	}

	if err := b.Conn.Publish("hall.service", payload); err != nil {
		log.Errorf("Error publishing to topic hall.service: %s", err)
	}
}

func (b *Broker) collectionData(collection string) ([]byte, error) {
	switch collection {
	case "sessions":
		return json.Marshal(b.SessionService.List())
	case "transactions":
		return json.Marshal(b.TxService.All())
	case "debts":
		return json.Marshal(b.SettlementService.Groups())
	case "settings":
		return json.Marshal(b.SettingsService.Get())
	case "market_items":
		return json.Marshal(b.MarketService.List())
	case "attendance":
		return json.Marshal(b.AttendanceService.ListDay(time.Now()))
	default:
		return json.Marshal(nil)
	}
}

func mustRaw(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Error %s", err)
		return json.RawMessage("{}")
	}
	return data
}
