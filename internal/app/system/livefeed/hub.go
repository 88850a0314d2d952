// internal/app/system/livefeed/hub.go
package livefeed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dalemusser/fundhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Event is one donation pushed to the campaign's donor wall.
type Event struct {
	CampaignID primitive.ObjectID `json:"campaign_id"`
	DonorName  string             `json:"donor_name"`
	Amount     models.Money       `json:"amount"`
	CreatedAt  time.Time          `json:"created_at"`
}

// EventFor builds the wall event for a recorded donation.
func EventFor(d models.Donation) Event {
	return Event{
		CampaignID: d.CampaignID,
		DonorName:  models.DisplayName(d.DonorName, d.Anonymous),
		Amount:     d.Amount,
		CreatedAt:  d.CreatedAt,
	}
}

const (
	broadcastBuffer = 256
	clientBuffer    = 32
)

// Hub fans donation events out to the websocket clients watching each
// campaign. A single goroutine owns the client map.
type Hub struct {
	log *zap.Logger

	clients    map[primitive.ObjectID]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	count      chan countReq

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

type countReq struct {
	campaignID primitive.ObjectID
	reply      chan int
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[primitive.ObjectID]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, broadcastBuffer),
		count:      make(chan countReq),
		stopCh:     make(chan struct{}),
	}
}

// Start runs the hub loop in the background.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
	h.log.Info("live feed hub started")
}

// Stop closes every client connection and waits for the loop to exit.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.stopCh) })
	h.wg.Wait()
	h.log.Info("live feed hub stopped")
}

// Publish queues ev for delivery. It never blocks: when the queue is full
// the event is dropped.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warn("live feed queue full, dropping event",
			zap.String("campaign_id", ev.CampaignID.Hex()))
	}
}

// Watchers returns how many clients follow a campaign.
func (h *Hub) Watchers(campaignID primitive.ObjectID) int {
	req := countReq{campaignID: campaignID, reply: make(chan int, 1)}
	select {
	case h.count <- req:
		return <-req.reply
	case <-h.stopCh:
		return 0
	}
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case c := <-h.register:
			set := h.clients[c.campaignID]
			if set == nil {
				set = make(map[*client]struct{})
				h.clients[c.campaignID] = set
			}
			set[c] = struct{}{}

		case c := <-h.unregister:
			h.drop(c)

		case ev := <-h.broadcast:
			h.deliver(ev)

		case req := <-h.count:
			req.reply <- len(h.clients[req.campaignID])

		case <-h.stopCh:
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[primitive.ObjectID]map[*client]struct{})
			return
		}
	}
}

func (h *Hub) deliver(ev Event) {
	set := h.clients[ev.CampaignID]
	if len(set) == 0 {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal live feed event", zap.Error(err))
		return
	}
	for c := range set {
		select {
		case c.send <- msg:
		default:
			// Slow reader.
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	set := h.clients[c.campaignID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.campaignID)
	}
}
