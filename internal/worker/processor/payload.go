package processor

import (
	"encoding/json"
	"fmt"

	"reelforge/internal/video"
	"reelforge/internal/worker/queue"
)

// resolveInput picks the submission payload for a delivery. The queue
// envelope normally carries the full input; older producers enqueue only
// the id, in which case the persisted record is the source.
func resolveInput(msg queue.Message, rec *video.Video) (*video.Input, error) {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return rec.Input(), nil
	}

	var in video.Input
	if err := json.Unmarshal(msg.Data, &in); err != nil {
		return nil, fmt.Errorf("decode message data: %w", err)
	}
	if in.JobID == "" {
		in.JobID = rec.JobID
	}
	if in.ScriptID == "" {
		in.ScriptID = rec.ScriptID
	}
	if len(in.Segments) == 0 {
		return rec.Input(), nil
	}
	return &in, nil
}
