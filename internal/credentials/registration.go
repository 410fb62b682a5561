package credentials

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/db/models"
)

// NewChallenge records a verification challenge for email and mails its raw
// key. Checks run in this order and the first failure wins: email present,
// name present, email unregistered, password policy, challenge interval,
// blacklist. The stored name is upper-cased.
//
// A delivery failure is logged and does not undo the challenge.
func (s *Service) NewChallenge(ctx context.Context, name, email, phrase string) (_ *models.VerificationChallenge, err error) {
	defer record("new_challenge", &err)

	if email == "" {
		return nil, apierr.New(apierr.InvalidArgument, "userEmail must not be empty")
	}
	if name == "" {
		return nil, apierr.New(apierr.InvalidArgument, "userName must not be empty")
	}

	var (
		challenge *models.VerificationChallenge
		rawKey    string
	)
	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.LockEmail(ctx, email); err != nil {
			return storeErr(err, "failed to lock email")
		}

		existing, err := tx.GetUserByEmail(ctx, email)
		if err != nil {
			return storeErr(err, "failed to look up user")
		}
		if existing != nil {
			return apierr.New(apierr.AlreadyExists, "a user with this email already exists")
		}

		if !auth.PasswordPolicy(phrase) {
			return apierr.Newf(apierr.PolicyViolation,
				"password must be at least %d characters and contain a digit", auth.MinPasswordLength)
		}

		now := s.now()
		last, ok, err := tx.LastChallengeTime(ctx, email)
		if err != nil {
			return storeErr(err, "failed to read last challenge")
		}
		if ok && now < last+s.challengeInterval {
			return apierr.New(apierr.RateLimited, "a verification email was sent recently, try again later")
		}

		if s.mailer.IsBlacklisted(ctx, email) {
			return apierr.New(apierr.Blacklisted, "this email address cannot receive mail")
		}

		rawKey, err = auth.GenerateKey()
		if err != nil {
			return apierr.Wrap(err, "failed to generate challenge key")
		}
		passwordHash, err := auth.HashPassword(phrase)
		if err != nil {
			return apierr.Wrap(err, "failed to hash password")
		}

		challenge = &models.VerificationChallenge{
			KeyHash:      auth.HashKey(rawKey),
			CreationTime: now,
			Name:         strings.ToUpper(name),
			Email:        email,
			PasswordHash: passwordHash,
		}
		if err := tx.CreateChallenge(ctx, challenge); err != nil {
			return storeErr(err, "failed to create challenge")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	validity := time.Duration(s.challengeTTL) * time.Millisecond
	if sendErr := s.mailer.SendVerification(ctx, email, challenge.Name, rawKey, validity); sendErr != nil {
		slog.Error("failed to send verification email", "email", email, "error", sendErr)
	}
	return challenge, nil
}

// FinalizeRegistration consumes the challenge identified by rawKey and creates
// its user along with the user's first password row. A challenge can create
// at most one user.
func (s *Service) FinalizeRegistration(ctx context.Context, rawKey string) (_ *models.User, err error) {
	defer record("finalize_registration", &err)

	keyHash := auth.HashKey(rawKey)
	var user *models.User
	err = s.store.WithTx(ctx, func(tx Store) error {
		challenge, err := tx.GetChallenge(ctx, keyHash)
		if err != nil {
			return storeErr(err, "failed to look up challenge")
		}
		if challenge == nil {
			return apierr.New(apierr.NotFound, "verification challenge not found")
		}

		consumed, err := tx.UserExistsByChallengeHash(ctx, keyHash)
		if err != nil {
			return storeErr(err, "failed to check challenge use")
		}
		if consumed {
			return apierr.New(apierr.AlreadyExists, "this verification challenge has already been used")
		}
		existing, err := tx.GetUserByEmail(ctx, challenge.Email)
		if err != nil {
			return storeErr(err, "failed to look up user")
		}
		if existing != nil {
			return apierr.New(apierr.AlreadyExists, "a user with this email already exists")
		}

		now := s.now()
		if challenge.ExpiredAt(now, s.challengeTTL) {
			return apierr.New(apierr.Expired, "verification challenge has expired")
		}

		user = &models.User{
			CreationTime:                 now,
			Name:                         challenge.Name,
			Email:                        challenge.Email,
			VerificationChallengeKeyHash: keyHash,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			if isUniqueViolation(err) {
				return apierr.New(apierr.AlreadyExists, "a user with this email already exists")
			}
			return storeErr(err, "failed to create user")
		}

		password := &models.Password{
			CreationTime:  now,
			CreatorUserID: user.UserID,
			UserID:        user.UserID,
			Kind:          models.PasswordKindChange,
			PasswordHash:  challenge.PasswordHash,
		}
		if err := tx.CreatePassword(ctx, password); err != nil {
			return storeErr(err, "failed to create password")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
