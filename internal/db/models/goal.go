package models

// GoalDataStatus is the recorded outcome of a goal version.
type GoalDataStatus int16

const (
	GoalStatusPending GoalDataStatus = iota
	GoalStatusSucceed
	GoalStatusFail
	GoalStatusCancel
)

var goalStatusNames = []string{"PENDING", "SUCCEED", "FAIL", "CANCEL"}

func (s GoalDataStatus) String() string { return enumName(goalStatusNames, int16(s)) }

func (s GoalDataStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *GoalDataStatus) UnmarshalText(b []byte) error {
	v, err := ParseGoalDataStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseGoalDataStatus parses PENDING, SUCCEED, FAIL or CANCEL.
func ParseGoalDataStatus(s string) (GoalDataStatus, error) {
	v, err := parseEnum("goal status", goalStatusNames, s)
	return GoalDataStatus(v), err
}

// Goal is an identity row; its content lives in GoalData versions.
type Goal struct {
	GoalID        int64 `db:"goal_id" json:"goalId"`
	CreationTime  int64 `db:"creation_time" json:"creationTime"`
	CreatorUserID int64 `db:"creator_user_id" json:"creatorUserId"`
}

// GoalData is one version of a goal. The newest row per GoalID is current.
type GoalData struct {
	GoalDataID            int64          `db:"goal_data_id" json:"goalDataId"`
	CreationTime          int64          `db:"creation_time" json:"creationTime"`
	CreatorUserID         int64          `db:"creator_user_id" json:"creatorUserId"`
	GoalID                int64          `db:"goal_id" json:"goalId"`
	Name                  string         `db:"name" json:"name"`
	Description           string         `db:"description" json:"description"`
	DurationEstimate      int64          `db:"duration_estimate" json:"durationEstimate"`
	TimeUtilityFunctionID int64          `db:"time_utility_function_id" json:"timeUtilityFunctionId"`
	Status                GoalDataStatus `db:"status" json:"status"`
}
