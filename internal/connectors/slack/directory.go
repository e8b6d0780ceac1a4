package slack

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
)

// DefaultProfileTTL is how long a users.info answer is reused.
const DefaultProfileTTL = time.Hour

// UsersAPI is the part of the Slack Web API the directory needs.
type UsersAPI interface {
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

type cachedProfile struct {
	profile attendance.Profile
	expires time.Time
}

// Directory resolves Slack user ids to attendance profiles through users.info,
// caching answers for a TTL.
type Directory struct {
	api UsersAPI
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cachedProfile
}

func NewDirectory(api UsersAPI, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &Directory{
		api:   api,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cachedProfile),
	}
}

// Profile returns the profile of userID. Lookup failures are not cached.
func (d *Directory) Profile(ctx context.Context, userID string) (attendance.Profile, error) {
	d.mu.Lock()
	if c, ok := d.cache[userID]; ok && d.now().Before(c.expires) {
		d.mu.Unlock()
		return c.profile, nil
	}
	d.mu.Unlock()

	u, err := d.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return attendance.Profile{}, fmt.Errorf("users.info %s: %w", userID, err)
	}

	p := attendance.Profile{
		UserID:    userID,
		RealName:  u.RealName,
		FirstName: u.Profile.FirstName,
		LastName:  u.Profile.LastName,
		Email:     u.Profile.Email,
	}
	if p.RealName == "" {
		p.RealName = u.Profile.RealName
	}

	d.mu.Lock()
	d.cache[userID] = cachedProfile{profile: p, expires: d.now().Add(d.ttl)}
	d.mu.Unlock()
	return p, nil
}
