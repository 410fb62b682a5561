package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func ptr[T any](v T) *T { return &v }

func TestBuild_NoFilters(t *testing.T) {
	sqlText, args, err := New("api_keys", "api_key_id", "api_key_id", "duration").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := "SELECT t.api_key_id, t.duration FROM api_keys t ORDER BY t.api_key_id ASC LIMIT $1 OFFSET $2"
	if sqlText != want {
		t.Errorf("Build() sql =\n%s\nwant\n%s", sqlText, want)
	}
	if len(args) != 2 || args[0] != int64(DefaultPageSize) || args[1] != int64(0) {
		t.Errorf("Build() args = %v, want [100 0]", args)
	}
}

func TestBuild_FilterOperators(t *testing.T) {
	b := New("goal_data", "goal_data_id", "goal_data_id")
	Equal(b, "goal_id", ptr(int64(4)))
	Equal[int64](b, "creator_user_id", nil)
	Between(b, "creation_time", ptr(int64(10)), ptr(int64(20)))
	Within(b, "duration_estimate", ptr(int64(1)), nil)
	Partial(b, "name", ptr("run"))

	sqlText, args, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, frag := range []string{
		"t.goal_id = $1",
		"t.creation_time > $2",
		"t.creation_time < $3",
		"t.duration_estimate >= $4",
		"strpos(t.name, $5) > 0",
		"LIMIT $6 OFFSET $7",
	} {
		if !strings.Contains(sqlText, frag) {
			t.Errorf("Build() sql missing %q:\n%s", frag, sqlText)
		}
	}
	if strings.Contains(sqlText, "creator_user_id") {
		t.Errorf("nil filter should not render: %s", sqlText)
	}
	if len(args) != 7 || args[4] != "run" {
		t.Errorf("Build() args = %v", args)
	}
}

func TestBuild_ValuesNeverInterpolated(t *testing.T) {
	b := New("users", "user_id", "user_id")
	Partial(b, "name", ptr("x'); DROP TABLE users; --"))
	sqlText, args, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if strings.Contains(sqlText, "DROP") {
		t.Errorf("value leaked into sql: %s", sqlText)
	}
	if args[0] != "x'); DROP TABLE users; --" {
		t.Errorf("args[0] = %v", args[0])
	}
}

func TestBuild_OnlyRecent(t *testing.T) {
	b := New("passwords", "password_id", "password_id").OnlyRecent("user_id", true)
	sqlText, _, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := "INNER JOIN (SELECT MAX(password_id) AS id FROM passwords GROUP BY user_id) latest ON latest.id = t.password_id"
	if !strings.Contains(sqlText, want) {
		t.Errorf("Build() sql missing latest join:\n%s", sqlText)
	}

	sqlText, _, _ = New("passwords", "password_id", "password_id").OnlyRecent("user_id", false).Build()
	if strings.Contains(sqlText, "JOIN") {
		t.Errorf("onlyRecent=false should not join: %s", sqlText)
	}
}

func TestBuild_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		offset     *int64
		count      *int64
		limits     Limits
		wantCount  int64
		wantOffset int64
		wantErr    bool
	}{
		{name: "defaults", wantCount: 100, wantOffset: 0},
		{name: "second page", offset: ptr(int64(200)), count: ptr(int64(100)), wantCount: 100, wantOffset: 200},
		{name: "clamped to max", count: ptr(int64(1_000_000)), wantCount: MaxPageSize},
		{name: "custom limits", count: ptr(int64(80)), limits: Limits{DefaultCount: 10, MaxCount: 50}, wantCount: 50},
		{name: "zero count", count: ptr(int64(0)), wantCount: 0},
		{name: "negative offset", offset: ptr(int64(-1)), wantErr: true},
		{name: "negative count", count: ptr(int64(-5)), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("goals", "goal_id", "goal_id").WithLimits(tt.limits).Page(tt.offset, tt.count)
			_, args, err := b.Build()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPage) {
					t.Fatalf("Build() error = %v, want ErrInvalidPage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if args[0] != tt.wantCount || args[1] != tt.wantOffset {
				t.Errorf("LIMIT/OFFSET args = %v, want [%d %d]", args, tt.wantCount, tt.wantOffset)
			}
		})
	}
}

func TestBuild_RejectsBadIdentifiers(t *testing.T) {
	cases := []*Builder{
		New("users; drop", "user_id", "user_id"),
		New("users", "user_id", "Name"),
		New("users", "user_id", "user_id").Where("name = name OR 1", Eq, 1),
		New("users", "user_id", "user_id").OnlyRecent("email)", true),
		New("users", "user_id"),
	}
	for i, b := range cases {
		if _, _, err := b.Build(); err == nil {
			t.Errorf("case %d: Build() should fail", i)
		}
	}
}

type row struct {
	ID int64 `db:"goal_id"`
}

func TestRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	// 250 rows: page 3 holds the remaining 50 in ascending order.
	rows := sqlmock.NewRows([]string{"goal_id"})
	for id := int64(201); id <= 250; id++ {
		rows.AddRow(id)
	}
	mock.ExpectQuery("SELECT t.goal_id FROM goals t ORDER BY t.goal_id ASC LIMIT").
		WithArgs(int64(100), int64(200)).
		WillReturnRows(rows)

	b := New("goals", "goal_id", "goal_id").Page(ptr(int64(200)), ptr(int64(100)))
	got, err := Run[row](context.Background(), sqlxDB, b)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 50 || got[0].ID != 201 || got[49].ID != 250 {
		t.Errorf("Run() returned %d rows (first %v)", len(got), got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRun_MatchNothingSkipsQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	got, err := Run[row](context.Background(), sqlx.NewDb(db, "sqlmock"), New("goals", "goal_id", "goal_id").MatchNothing())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Run() = %v, want empty non-nil slice", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected query: %v", err)
	}
}

func TestRun_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("db error"))

	_, err = Run[row](context.Background(), sqlx.NewDb(db, "sqlmock"), New("goals", "goal_id", "goal_id"))
	if err == nil || !strings.Contains(err.Error(), "failed to query goals") {
		t.Errorf("Run() error = %v", err)
	}
}
