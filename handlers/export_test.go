package handlers

import (
	"bufio"

	"watch-rewards-system/services"
)

func RunEventStream(s *EventStreamer, done <-chan struct{}, identity *services.Identity, w *bufio.Writer) {
	s.run(done, identity, w)
}
