package jukebox

import (
	"fmt"
	"strings"

	"jukebot/internal/domain"
)

const (
	EmptyQueueMessage = "Seems like the queue is empty... Have you tried adding a song?!"

	queueBatchSize = 100
	rule           = "====================\n"
	windowBefore   = 5
	windowAfter    = 20
)

func queueLine(index int, it domain.QueueItem, current bool) string {
	prefix := ">"
	if current {
		prefix = ":notes: "
	}
	return fmt.Sprintf("%s_#%d_ %s by %s\n", prefix, index, it.Title, it.Artist)
}

// RenderFullQueue lists every queued item, marking the one whose title
// matches currentTitle. Lines are split into messages of at most 100 items;
// the header rides on the first message.
func RenderFullQueue(snap domain.QueueSnapshot, currentTitle string) []string {
	if len(snap.Items) == 0 {
		return []string{EmptyQueueMessage}
	}
	total := snap.Total
	if total < len(snap.Items) {
		total = len(snap.Items)
	}

	var (
		msgs []string
		sb   strings.Builder
	)
	fmt.Fprintf(&sb, "Total tracks in queue: %d\n%s", total, rule)
	for i, it := range snap.Items {
		sb.WriteString(queueLine(i, it, currentTitle != "" && it.Title == currentTitle))
		if (i+1)%queueBatchSize == 0 {
			msgs = append(msgs, sb.String())
			sb.Reset()
		}
	}
	if sb.Len() > 0 {
		msgs = append(msgs, sb.String())
	}
	return msgs
}

// UpcomingWindow returns the half-open item range [start, end) shown around
// the current index.
func UpcomingWindow(current, total int) (start, end int) {
	start = max(current-windowBefore, 0)
	end = min(current+windowAfter, total)
	if end < start {
		end = start
	}
	return start, end
}

// RenderUpcoming shows a few recent tracks and the next ones, marking
// currentIndex (zero-based; negative when nothing from the queue is playing).
func RenderUpcoming(snap domain.QueueSnapshot, currentIndex int) string {
	if len(snap.Items) == 0 {
		return EmptyQueueMessage
	}

	var sb strings.Builder
	sb.WriteString("Recent and upcoming tracks\n" + rule)
	start, end := UpcomingWindow(max(currentIndex, 0), len(snap.Items))
	for i := start; i < end; i++ {
		sb.WriteString(queueLine(i, snap.Items[i], i == currentIndex))
	}
	return sb.String()
}
