package models

// PastEvent is an identity row; its content lives in PastEventData versions.
type PastEvent struct {
	PastEventID   int64 `db:"past_event_id" json:"pastEventId"`
	CreationTime  int64 `db:"creation_time" json:"creationTime"`
	CreatorUserID int64 `db:"creator_user_id" json:"creatorUserId"`
}

// PastEventData is one version of a past event.
type PastEventData struct {
	PastEventDataID int64  `db:"past_event_data_id" json:"pastEventDataId"`
	CreationTime    int64  `db:"creation_time" json:"creationTime"`
	CreatorUserID   int64  `db:"creator_user_id" json:"creatorUserId"`
	PastEventID     int64  `db:"past_event_id" json:"pastEventId"`
	Name            string `db:"name" json:"name"`
	Description     string `db:"description" json:"description"`
	StartTime       int64  `db:"start_time" json:"startTime"`
	Duration        int64  `db:"duration" json:"duration"`
	Active          bool   `db:"active" json:"active"`
}
