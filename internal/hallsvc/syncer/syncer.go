package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/negasi/billiard-services/internal/comm"
)

// RemoteStore is the hosted snapshot store: whole-value put/get per
// (hall, collection), last writer wins.
type RemoteStore interface {
	Put(ctx context.Context, hallId, collection string, data []byte) error
	Get(ctx context.Context, hallId, collection string) ([]byte, error)
}

// Publisher is the fan-out side of the subscribe contract. *nats.Conn
// satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type registration struct {
	source func() ([]byte, error)
	apply  func([]byte) error
}

// Syncer ties local collection state to the snapshot store. A local
// mutation marks its collection dirty: the durable cache is written
// immediately, the remote write is debounced so a burst of edits collapses
// into one Put, and the snapshot is fanned out over NATS afterwards.
//
// The syncer suppresses the echo of its own publish per collection,
// otherwise a stale echo arriving after a newer local edit would overwrite
// it and loop.
type Syncer struct {
	hallId   string
	remote   RemoteStore
	cache    RemoteStore // same contract, different durability
	pub      Publisher
	debounce time.Duration

	mu       sync.Mutex
	regs     map[string]registration
	timers   map[string]*time.Timer
	suppress map[string]bool
}

func New(hallId string, remote, cache RemoteStore, pub Publisher, debounce time.Duration) *Syncer {
	if debounce <= 0 {
		debounce = 400 * time.Millisecond
	}
	return &Syncer{
		hallId:   hallId,
		remote:   remote,
		cache:    cache,
		pub:      pub,
		debounce: debounce,
		regs:     map[string]registration{},
		timers:   map[string]*time.Timer{},
		suppress: map[string]bool{},
	}
}

// Register wires one collection: source snapshots the current local value,
// apply replaces it wholesale from a remote snapshot.
func (s *Syncer) Register(collection string, source func() ([]byte, error), apply func([]byte) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[collection] = registration{source: source, apply: apply}
}

// Restore loads each registered collection at startup: cache first so the
// UI has data immediately, then the remote value if one exists.
func (s *Syncer) Restore(ctx context.Context) {
	s.mu.Lock()
	collections := make([]string, 0, len(s.regs))
	for name := range s.regs {
		collections = append(collections, name)
	}
	s.mu.Unlock()

	for _, name := range collections {
		if s.cache != nil {
			if data, err := s.cache.Get(ctx, s.hallId, name); err != nil {
				log.Errorf("Error reading cached snapshot %s: %s", name, err)
			} else if data != nil {
				s.applyLocal(name, data)
			}
		}

		if s.remote != nil {
			if data, err := s.remote.Get(ctx, s.hallId, name); err != nil {
				log.Errorf("Error reading remote snapshot %s: %s", name, err)
			} else if data != nil {
				s.applyLocal(name, data)
			}
		}
	}
}

// Dirty records a local mutation of collection. The cache write happens
// now, the remote write after the debounce window.
func (s *Syncer) Dirty(collection string) {
	s.mu.Lock()
	reg, ok := s.regs[collection]
	s.mu.Unlock()
	if !ok {
		log.Warnf("dirty on unregistered collection %s", collection)
		return
	}

	data, err := reg.source()
	if err != nil {
		log.Errorf("Error snapshotting collection %s: %s", collection, err)
		return
	}

	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.cache.Put(ctx, s.hallId, collection, data); err != nil {
			log.Errorf("Error caching snapshot %s: %s", collection, err)
		}
		cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[collection]; ok {
		t.Stop()
	}
	s.timers[collection] = time.AfterFunc(s.debounce, func() {
		s.flush(collection)
	})
}

// Flush pushes every pending debounced write out immediately, for
// shutdown.
func (s *Syncer) Flush() {
	s.mu.Lock()
	pending := make([]string, 0, len(s.timers))
	for name, t := range s.timers {
		if t.Stop() {
			pending = append(pending, name)
		}
	}
	s.mu.Unlock()

	for _, name := range pending {
		s.flush(name)
	}
}

func (s *Syncer) flush(collection string) {
	s.mu.Lock()
	reg, ok := s.regs[collection]
	delete(s.timers, collection)
	s.mu.Unlock()
	if !ok {
		return
	}

	// re-snapshot at flush time so the latest local state wins
	data, err := reg.source()
	if err != nil {
		log.Errorf("Error snapshotting collection %s: %s", collection, err)
		return
	}

	if s.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = s.remote.Put(ctx, s.hallId, collection, data)
		cancel()
		if err != nil {
			// local optimistic state stands, the next dirty write is the retry
			log.Errorf("Error writing snapshot %s, keeping local state: %s", collection, err)
			return
		}
	}

	s.mu.Lock()
	s.suppress[collection] = true
	s.mu.Unlock()

	if s.pub != nil {
		update := comm.SnapshotUpdate{
			HallId:     s.hallId,
			Collection: collection,
			Data:       data,
			UpdatedAt:  time.Now(),
		}
		payload, err := json.Marshal(update)
		if err != nil {
			log.Errorf("Error marshaling snapshot update %s: %s", collection, err)
			return
		}
		if err := s.pub.Publish(Subject(s.hallId, collection), payload); err != nil {
			log.Errorf("Error publishing snapshot %s: %s", collection, err)
		}
	}
}

// HandleRemote applies an incoming snapshot for collection, unless it is
// the echo of this instance's own last publish.
func (s *Syncer) HandleRemote(collection string, data []byte) {
	s.mu.Lock()
	if s.suppress[collection] {
		delete(s.suppress, collection)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.applyLocal(collection, data)
}

func (s *Syncer) applyLocal(collection string, data []byte) {
	s.mu.Lock()
	reg, ok := s.regs[collection]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := reg.apply(data); err != nil {
		log.Errorf("Error applying snapshot %s: %s", collection, err)
	}
}

// Subject is the NATS subject carrying snapshots of one collection.
func Subject(hallId, collection string) string {
	return fmt.Sprintf("hall.snapshot.%s.%s", hallId, collection)
}

// Subscribe wires the syncer to the hall's snapshot subjects on conn.
func (s *Syncer) Subscribe(conn *nats.Conn) (*nats.Subscription, error) {
	subject := fmt.Sprintf("hall.snapshot.%s.>", s.hallId)
	return conn.Subscribe(subject, func(msg *nats.Msg) {
		update := comm.SnapshotUpdate{}
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			log.Errorf("Error nats snapshot message %s", err)
			return
		}
		s.HandleRemote(update.Collection, update.Data)
	})
}
