package models

type Conversation struct {
	ID string `json:"id"`
	// Participants is the set of user ids allowed to read and write the
	// conversation. Membership is the sole authorization check.
	Participants []string `json:"participants"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - bumped on every accepted message, used by
	// listing screens as a freshness signal
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}

// HasParticipant reports membership for the given user id.
func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ReadMarker records the last time a participant marked a conversation as
// read. Coarse by contract: "all messages as of TS".
type ReadMarker struct {
	UserID string `json:"user_id"`
	TS     int64  `json:"ts"`
}
