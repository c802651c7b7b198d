package domain

type UserID string

type ConnectionID string

// Identity is what a verified access token says about its bearer.
type Identity struct {
	UserID     UserID `json:"userId"`
	Name       string `json:"name"`
	ProfileURL string `json:"profileUrl"`
}

// UserInfo is the basic identity used in waiting-list and changed-user payloads.
type UserInfo struct {
	UserID     UserID `json:"userId"`
	Name       string `json:"name"`
	ProfileURL string `json:"profileUrl"`
}
