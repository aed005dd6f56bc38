package webhook

import "encoding/json"

// releaseEvent is the subset of a GitHub "release" webhook payload the
// intake needs to extract repository and tag for dispatch.
type releaseEvent struct {
	Action     string `json:"action"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Release struct {
		TagName string `json:"tag_name"`
	} `json:"release"`
}

var acceptedActions = map[string]struct{}{
	"released":  {},
	"published": {},
	"edited":    {},
}

func decodeReleaseEvent(body []byte) (*releaseEvent, error) {
	var ev releaseEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func isAcceptedAction(action string) bool {
	_, ok := acceptedActions[action]
	return ok
}
