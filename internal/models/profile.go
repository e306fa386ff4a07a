package models

// InterlocutorProfile is the subset of a Bluesky actor profile used to
// judge how substantive an account looks. Profiles are fetched per
// analysis pass and are not persisted.
type InterlocutorProfile struct {
	DID            string `json:"did"`
	Handle         string `json:"handle,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
	Description    string `json:"description,omitempty"`
	FollowersCount int    `json:"followers_count"`
	FollowsCount   int    `json:"follows_count"`
	PostsCount     int    `json:"posts_count"`
}

// FollowerRatio returns followers divided by follows. A zero follows
// count with a positive follower count reports the follower count
// itself, so popular accounts that follow nobody still rank high.
func (p *InterlocutorProfile) FollowerRatio() float64 {
	if p.FollowsCount <= 0 {
		if p.FollowersCount > 0 {
			return float64(p.FollowersCount)
		}
		return 0
	}
	return float64(p.FollowersCount) / float64(p.FollowsCount)
}
