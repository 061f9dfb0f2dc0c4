package twitchinfra

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nicklaw5/helix/v2"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

const (
	defaultFollowerCacheSize = 2048
	defaultFollowerCacheTTL  = 10 * time.Minute
)

// helixAPI is the slice of *helix.Client the follower lookup needs.
type helixAPI interface {
	GetUsers(params *helix.UsersParams) (*helix.UsersResponse, error)
	GetChannelFollows(params *helix.GetChannelFollowsParams) (*helix.GetChannelFollowersResponse, error)
	SetUserAccessToken(token string)
}

// FollowerService answers follow checks against Helix. Results are cached
// per user so a busy chat costs one request per viewer every few minutes.
type FollowerService struct {
	mu            sync.RWMutex
	client        helixAPI
	broadcasterID string

	cache *expirable.LRU[string, bool]
}

var _ domain.FollowerChecker = (*FollowerService)(nil)

// clientID: the Twitch app; userAccessToken needs moderator:read:followers
func NewFollowerService(clientID, userAccessToken, broadcasterID string) (*FollowerService, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:        clientID,
		UserAccessToken: userAccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("helix: NewClient: %w", err)
	}
	return newFollowerService(client, broadcasterID, defaultFollowerCacheSize, defaultFollowerCacheTTL), nil
}

func newFollowerService(client helixAPI, broadcasterID string, size int, ttl time.Duration) *FollowerService {
	return &FollowerService{
		client:        client,
		broadcasterID: strings.TrimSpace(broadcasterID),
		cache:         expirable.NewLRU[string, bool](size, nil, ttl),
	}
}

// ResolveBroadcaster looks up the broadcaster id from the channel login when
// none was configured.
func (s *FollowerService) ResolveBroadcaster(ctx context.Context, login string) (string, error) {
	s.mu.RLock()
	id := s.broadcasterID
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	login = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(login)), "#")
	if login == "" {
		return "", fmt.Errorf("twitch: empty broadcaster login")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp, err := s.client.GetUsers(&helix.UsersParams{Logins: []string{login}})
	if err != nil {
		return "", fmt.Errorf("helix: GetUsers: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("helix: GetUsers failed (%d: %s) %s",
			resp.StatusCode, resp.Error, resp.ErrorMessage)
	}
	if len(resp.Data.Users) == 0 {
		return "", fmt.Errorf("twitch: user not found: %s", login)
	}

	id = resp.Data.Users[0].ID
	s.mu.Lock()
	s.broadcasterID = id
	s.mu.Unlock()
	return id, nil
}

func (s *FollowerService) IsFollower(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}
	if v, ok := s.cache.Get(userID); ok {
		return v, nil
	}

	s.mu.RLock()
	broadcasterID := s.broadcasterID
	client := s.client
	s.mu.RUnlock()
	if broadcasterID == "" {
		return false, fmt.Errorf("twitch: broadcaster id not resolved")
	}
	if userID == broadcasterID {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	resp, err := client.GetChannelFollows(&helix.GetChannelFollowsParams{
		BroadcasterID: broadcasterID,
		UserID:        userID,
	})
	if err != nil {
		return false, fmt.Errorf("helix: GetChannelFollowers: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("helix: GetChannelFollowers failed (%d: %s) %s",
			resp.StatusCode, resp.Error, resp.ErrorMessage)
	}

	follows := len(resp.Data.Channels) > 0
	s.cache.Add(userID, follows)
	return follows, nil
}

func (s *FollowerService) UpdateAccessToken(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.SetUserAccessToken(token)
	s.cache.Purge()
}
