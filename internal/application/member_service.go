package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/domain/entity"
	repo "github.com/lowzingo/members-api/internal/domain/repository"
	"github.com/lowzingo/members-api/pkg/helpers"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// MemberService covers authentication, sessions, profile self-service and
// admin member management.
type MemberService struct {
	Users          repo.UserRepository
	JWT            *helpers.JWTManager
	Redis          *redis.Client
	Logger         *logrus.Logger
	ES             *elasticsearch.Client
	ESMembersIndex string
}

func NewMemberService(users repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esIndex string) *MemberService {
	return &MemberService{
		Users:          users,
		JWT:            jwt,
		Redis:          rdb,
		Logger:         logger,
		ES:             es,
		ESMembersIndex: esIndex,
	}
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type LoginResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *MemberService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *MemberService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.FullName,
			"is_admin":   u.IsAdmin,
			"sid":        sid,
			"logged_in":  true,
			"created_at": nowRFC3339(),
		}
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, 24*time.Hour)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *MemberService) Login(ctx context.Context, email, password string) (*LoginResponse, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	resp := &LoginResponse{UserID: u.ID, Email: u.Email, Name: u.FullName, IsAdmin: u.IsAdmin}
	return resp, pair, nil
}

// Register creates a self-service account with no entitlements.
func (s *MemberService) Register(ctx context.Context, email, password, fullName, phone string) (*entity.User, error) {
	email = entity.NormalizeEmail(email)
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Phone:        strings.TrimSpace(phone),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		// A concurrent registration can slip past the GetByEmail check;
		// the unique constraint is the authority.
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	indexMember(ctx, s.ES, s.ESMembersIndex, u, s.Logger)
	return u, nil
}

func (s *MemberService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	// Validate current session id matches the token's sid
	if s.Redis != nil {
		key := sessionKey(u.ID)
		data, rErr := s.Redis.HGetAll(ctx, key).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, "", ErrInvalidCredentials
		}
	}
	// Rotate session id and tokens
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        sid,
			"updated_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, 24*time.Hour)
		_, _ = pipe.Exec(ctx)
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, u.ID, nil
}

func (s *MemberService) Logout(ctx context.Context, userID string) {
	if s.Redis != nil && userID != "" {
		_ = s.Redis.Del(ctx, sessionKey(userID)).Err()
	}
}

func (s *MemberService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type UpdateProfileInput struct {
	Email           string
	FullName        string
	Phone           string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile applies self-service edits. Changing the password requires
// the current one.
func (s *MemberService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if in.Email != "" {
		u.Email = entity.NormalizeEmail(in.Email)
	}
	if in.FullName != "" {
		u.FullName = strings.TrimSpace(in.FullName)
	}
	if in.Phone != "" {
		u.Phone = strings.TrimSpace(in.Phone)
	}
	if in.NewPassword != "" {
		if !helpers.CompareHashAndPassword(u.PasswordHash, in.CurrentPassword) {
			return nil, ErrWrongPassword
		}
		hash, err := helpers.HashPassword(in.NewPassword)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"name":       u.FullName,
			"email":      u.Email,
			"updated_at": nowRFC3339(),
		})
		if ttl, tErr := s.Redis.TTL(ctx, key).Result(); tErr == nil && ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, pErr := pipe.Exec(ctx); pErr != nil {
			s.Logger.WithError(pErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	indexMember(ctx, s.ES, s.ESMembersIndex, u, s.Logger)
	return u, nil
}

// Admin member management.

func (s *MemberService) ListMembers(ctx context.Context) ([]*entity.User, error) {
	return s.Users.List(ctx)
}

type AdminMemberInput struct {
	Email      string
	Password   string
	FullName   string
	Phone      string
	IsAdmin    bool
	ProductIDs []string
}

func (s *MemberService) CreateMember(ctx context.Context, in AdminMemberInput) (*entity.User, error) {
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	grants := make(map[string]time.Time, len(in.ProductIDs))
	for _, pid := range in.ProductIDs {
		grants[pid] = now
	}
	u := &entity.User{
		Email:         entity.NormalizeEmail(in.Email),
		PasswordHash:  hash,
		FullName:      strings.TrimSpace(in.FullName),
		Phone:         strings.TrimSpace(in.Phone),
		IsAdmin:       in.IsAdmin,
		ProductIDs:    in.ProductIDs,
		ProductGrants: grants,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	indexMember(ctx, s.ES, s.ESMembersIndex, u, s.Logger)
	return u, nil
}

// UpdateMember lets an admin edit a member, including the entitlement set.
// Newly appearing products get a grant timestamp of now; removed products
// lose theirs.
func (s *MemberService) UpdateMember(ctx context.Context, id string, in AdminMemberInput) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	u.Email = entity.NormalizeEmail(in.Email)
	u.FullName = strings.TrimSpace(in.FullName)
	u.Phone = strings.TrimSpace(in.Phone)
	u.IsAdmin = in.IsAdmin
	if in.Password != "" {
		hash, err := helpers.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	now := time.Now()
	grants := make(map[string]time.Time, len(in.ProductIDs))
	for _, pid := range in.ProductIDs {
		if t, ok := u.ProductGrants[pid]; ok {
			grants[pid] = t
		} else {
			grants[pid] = now
		}
	}
	u.ProductIDs = in.ProductIDs
	u.ProductGrants = grants

	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	indexMember(ctx, s.ES, s.ESMembersIndex, u, s.Logger)
	return u, nil
}

func (s *MemberService) DeleteMember(ctx context.Context, id string) error {
	if err := s.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	deleteMemberIndex(ctx, s.ES, s.ESMembersIndex, id, s.Logger)
	return nil
}

// SearchMembers performs a multi_match search on email and name.
func (s *MemberService) SearchMembers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESMembersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "full_name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESMembersIndex),
		s.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
