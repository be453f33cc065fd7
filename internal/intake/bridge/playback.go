package bridge

// playbackTracker keeps the per-utterance bookkeeping needed to truncate an
// in-flight response when the caller barges in: the caller-audio timestamp
// at which the current utterance started playing, the item that produced
// the audio, and a FIFO of markers not yet acknowledged by the caller side.
//
// idle -> playing on the first audio delta of a response; back to idle on
// truncation or when a new caller stream starts.
type playbackTracker struct {
	markQueue     []string
	activeItemID  string
	responseStart int
	playing       bool
}

// OnAudioDelta records the active item and, on the first delta of an
// utterance, the caller timestamp playback began at.
func (p *playbackTracker) OnAudioDelta(itemID string, nowMs int) {
	if !p.playing {
		p.playing = true
		p.responseStart = nowMs
	}
	if itemID != "" {
		p.activeItemID = itemID
	}
}

// PushMark queues one playback-acknowledgment marker.
func (p *playbackTracker) PushMark(name string) {
	p.markQueue = append(p.markQueue, name)
}

// PopMark acknowledges one unit of played-back audio; no-op when nothing
// is outstanding.
func (p *playbackTracker) PopMark() {
	if len(p.markQueue) > 0 {
		p.markQueue = p.markQueue[1:]
	}
}

// Interrupt computes the truncation target for a barge-in. It only fires
// while audio is still queued for playback: at least one marker must be
// outstanding and a playback start recorded. On success the tracker resets,
// so a second speech-started without new audio cannot truncate again.
func (p *playbackTracker) Interrupt(nowMs int) (itemID string, elapsedMs int, ok bool) {
	if len(p.markQueue) == 0 || !p.playing {
		return "", 0, false
	}
	itemID = p.activeItemID
	elapsedMs = nowMs - p.responseStart
	p.Reset()
	return itemID, elapsedMs, true
}

// Reset clears all playback bookkeeping.
func (p *playbackTracker) Reset() {
	p.markQueue = nil
	p.activeItemID = ""
	p.responseStart = 0
	p.playing = false
}

// Pending reports how many markers are awaiting acknowledgment.
func (p *playbackTracker) Pending() int {
	return len(p.markQueue)
}
