package models

// TimeUtilityFunction groups the points of a utility curve. The values are
// stored as given and not interpreted by the server.
type TimeUtilityFunction struct {
	TimeUtilityFunctionID int64 `db:"time_utility_function_id" json:"timeUtilityFunctionId"`
	CreationTime          int64 `db:"creation_time" json:"creationTime"`
	CreatorUserID         int64 `db:"creator_user_id" json:"creatorUserId"`
}

type TimeUtilityFunctionPoint struct {
	TimeUtilityFunctionPointID int64 `db:"time_utility_function_point_id" json:"timeUtilityFunctionPointId"`
	CreationTime               int64 `db:"creation_time" json:"creationTime"`
	CreatorUserID              int64 `db:"creator_user_id" json:"creatorUserId"`
	TimeUtilityFunctionID      int64 `db:"time_utility_function_id" json:"timeUtilityFunctionId"`
	StartTime                  int64 `db:"start_time" json:"startTime"`
	Utils                      int64 `db:"utils" json:"utils"`
	Active                     bool  `db:"active" json:"active"`
}
