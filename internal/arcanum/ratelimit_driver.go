// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package arcanum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/sapcc/go-bits/pluggable"
)

// RateLimitedAction is an enum of all actions that can be rate-limited.
type RateLimitedAction string

const (
	// LoginAttemptAction is a RateLimitedAction covering both phases of the
	// login handshake.
	LoginAttemptAction RateLimitedAction = "login"
	// PasswordListAction is a RateLimitedAction for the common-password list.
	PasswordListAction RateLimitedAction = "passwordlist"
	// SessionRevokeAction is a RateLimitedAction for bulk session revocation.
	SessionRevokeAction RateLimitedAction = "revokesessions"
)

// RateLimitDriver is a pluggable strategy that determines the rate limit for
// each action.
type RateLimitDriver interface {
	pluggable.Plugin
	// Init is called before any other interface methods.
	Init() error
	// GetRateLimit returns the limit for this action, or nil if the action
	// shall not be limited.
	GetRateLimit(action RateLimitedAction) *redis_rate.Limit
}

// RateLimitDriverRegistry is a pluggable.Registry for RateLimitDriver implementations.
var RateLimitDriverRegistry pluggable.Registry[RateLimitDriver]

// NewRateLimitDriver creates a new RateLimitDriver using one of the plugins
// registered with RateLimitDriverRegistry.
func NewRateLimitDriver(pluginTypeID string) (RateLimitDriver, error) {
	rld, ok := RateLimitDriverRegistry.TryInstantiate(pluginTypeID).Unpack()
	if !ok {
		return nil, errors.New("no such rate-limit driver: " + pluginTypeID)
	}
	return rld, rld.Init()
}

// RateLimitEngine provides the rate-limiting interface used by the API
// implementation. A nil *RateLimitEngine is valid and allows everything
// (rate limiting requires Redis, which is optional).
type RateLimitEngine struct {
	Driver RateLimitDriver
	Client *redis.Client
}

// RateLimitAllows checks whether the given action by the given requester is
// within the rate limit. On rejection, retryAfter indicates when the
// requester may try again.
func (e *RateLimitEngine) RateLimitAllows(ctx context.Context, requesterIP string, action RateLimitedAction) (allowed bool, retryAfter time.Duration, err error) {
	if e == nil {
		return true, 0, nil
	}
	limit := e.Driver.GetRateLimit(action)
	if limit == nil {
		return true, 0, nil
	}
	key := fmt.Sprintf("ratelimit-%s-%s", string(action), requesterIP)
	result, err := redis_rate.NewLimiter(e.Client).Allow(ctx, key, *limit)
	if err != nil {
		return false, 0, err
	}
	return result.Allowed > 0, result.RetryAfter, nil
}
