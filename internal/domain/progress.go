package domain

import (
	"encoding/json"
	"math"
)

type ProgressResponse struct {
	CompletedTopics TopicIndices `json:"completed_topics"`
	Message         string       `json:"message,omitempty"`
}

type ProgressUpdate struct {
	CompletedTopics []int `json:"completed_topics"`
}

// TopicIndices keeps only non-negative integral entries of the decoded
// array; anything else the service may have stored is dropped.
type TopicIndices []int

func (t *TopicIndices) UnmarshalJSON(b []byte) error {
	*t = nil
	if len(b) == 0 || string(b) == "null" || b[0] != '[' {
		return nil
	}
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(TopicIndices, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok || f < 0 || f != math.Trunc(f) {
			continue
		}
		out = append(out, int(f))
	}
	*t = out
	return nil
}
