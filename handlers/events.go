// handlers/events.go
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"watch-rewards-system/middleware"
	"watch-rewards-system/services"
)

const defaultKeepAlive = 15 * time.Second

// EventStreamer serves /me/events. Each stream owns a Session that is
// refreshed whenever the hub reports a change for the user.
type EventStreamer struct {
	profiles  services.ProfileLoader
	hub       *services.EventHub
	KeepAlive time.Duration
}

func NewEventStreamer(profiles services.ProfileLoader, hub *services.EventHub) *EventStreamer {
	return &EventStreamer{profiles: profiles, hub: hub, KeepAlive: defaultKeepAlive}
}

// Stream streams profile snapshots for the authenticated user.
func (s *EventStreamer) Stream(c *fiber.Ctx) error {
	email, _ := c.Locals(middleware.LocalUserEmail).(string)
	identity := &services.Identity{ID: middleware.UserID(c), Email: email}
	done := c.Context().Done()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		s.run(done, identity, w)
	})
	return nil
}

// run writes events until done closes, the client goes away or the user
// signs out.
func (s *EventStreamer) run(done <-chan struct{}, identity *services.Identity, w *bufio.Writer) {
	ctx := context.Background()
	session := services.NewSession(s.profiles)
	profileEvents, cancelProfile := session.Subscribe(8)
	userEvents, cancelUser := s.hub.Subscribe(identity.ID, 16)
	defer cancelUser()
	defer cancelProfile()
	defer session.Teardown()

	log.Printf("📡 [SSE] stream opened for %s", identity.ID)
	defer log.Printf("📡 [SSE] stream closed for %s", identity.ID)

	keepAlive := s.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	// Initial keepalive (comment event)
	w.WriteString(":\n\n")
	if err := w.Flush(); err != nil {
		return
	}
	if err := session.Initialize(ctx, identity); err != nil {
		log.Printf("⚠️ [SSE] initial profile for %s: %v", identity.ID, err)
	}

	for {
		select {
		case <-done:
			return

		case ev, ok := <-profileEvents:
			if !ok || !writeEvent(w, string(ev.Kind), ev) {
				return
			}

		case ev, ok := <-userEvents:
			if !ok {
				return
			}
			switch ev.Kind {
			case services.EventBalanceChanged:
				if err := session.OnIdentityChanged(ctx, services.IdentityEvent{Kind: services.IdentityUpdated}); err != nil {
					log.Printf("⚠️ [SSE] profile refresh for %s: %v", identity.ID, err)
				}
			case services.EventCampaignCompleted:
				if !writeEvent(w, string(ev.Kind), ev) {
					return
				}
			case services.EventSignedOut:
				_ = session.OnIdentityChanged(ctx, services.IdentityEvent{Kind: services.IdentitySignedOut})
				select {
				case pe := <-profileEvents:
					writeEvent(w, string(pe.Kind), pe)
				default:
				}
				writeEvent(w, string(ev.Kind), ev)
				return
			}

		case <-ticker.C:
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				// Client disconnected
				return
			}
		}
	}
}

func writeEvent(w *bufio.Writer, name string, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("❌ [SSE] encode %s: %v", name, err)
		return true
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return w.Flush() == nil
}
