package credentials

import (
	"context"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

// ListUsers returns users matching f. Email addresses are only included on
// the caller's own row.
func (s *Service) ListUsers(ctx context.Context, rawKey string, f repositories.UserFilter) ([]models.User, error) {
	key, err := s.Authenticate(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list users")
	}
	for i := range users {
		if users[i].UserID != key.CreatorUserID {
			users[i].Email = ""
		}
	}
	return users, nil
}

// ListPasswords returns password rows matching f with their creators embedded.
func (s *Service) ListPasswords(ctx context.Context, rawKey string, f repositories.PasswordFilter) ([]models.Password, error) {
	if _, err := s.Authenticate(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.ListPasswords(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list passwords")
	}

	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].CreatorUserID
	}
	creators, err := s.creators(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Creator = creators[rows[i].CreatorUserID]
	}
	return rows, nil
}

// ListAPIKeys returns api key rows matching f with their creators embedded.
func (s *Service) ListAPIKeys(ctx context.Context, rawKey string, f repositories.APIKeyFilter) ([]models.APIKey, error) {
	if _, err := s.Authenticate(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.ListAPIKeys(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list api keys")
	}

	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].CreatorUserID
	}
	creators, err := s.creators(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Creator = creators[rows[i].CreatorUserID]
	}
	return rows, nil
}

// creators loads the public view of each distinct user in ids.
func (s *Service) creators(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	if len(ids) == 0 {
		return map[int64]*models.User{}, nil
	}
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	users, err := s.store.GetUsersByIDs(ctx, unique)
	if err != nil {
		return nil, storeErr(err, "failed to load creators")
	}
	out := make(map[int64]*models.User, len(users))
	for id, u := range users {
		out[id] = u.Public()
	}
	return out, nil
}
