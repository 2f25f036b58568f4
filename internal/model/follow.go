package model

import "time"

// Follow is a directed edge: FollowerID follows FollowingID.
// At most one edge exists per ordered pair.
type Follow struct {
	ID          string    `json:"id"`
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}
