// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package basic

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/go-redis/redis_rate/v10"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/arcanum/internal/arcanum"
)

// RateLimitDriver is the rate limit driver "basic". It reads static limits
// from environment variables; actions without configured limits are not
// rate-limited.
type RateLimitDriver struct {
	Limits map[arcanum.RateLimitedAction]redis_rate.Limit
}

type envVarSet struct {
	RateLimit string
	Burst     string
}

var (
	envVars = map[arcanum.RateLimitedAction]envVarSet{
		arcanum.LoginAttemptAction:  {"ARCANUM_RATELIMIT_LOGIN_ATTEMPTS", "ARCANUM_BURST_LOGIN_ATTEMPTS"},
		arcanum.PasswordListAction:  {"ARCANUM_RATELIMIT_PASSWORD_LIST", "ARCANUM_BURST_PASSWORD_LIST"},
		arcanum.SessionRevokeAction: {"ARCANUM_RATELIMIT_SESSION_REVOKES", "ARCANUM_BURST_SESSION_REVOKES"},
	}
	valueRx           = regexp.MustCompile(`^\s*([0-9]+)\s*r/([smh])\s*$`)
	limitConstructors = map[string]func(int) redis_rate.Limit{
		"s": redis_rate.PerSecond,
		"m": redis_rate.PerMinute,
		"h": redis_rate.PerHour,
	}
)

func init() {
	arcanum.RateLimitDriverRegistry.Add(func() arcanum.RateLimitDriver {
		return RateLimitDriver{make(map[arcanum.RateLimitedAction]redis_rate.Limit)}
	})
}

// PluginTypeID implements the arcanum.RateLimitDriver interface.
func (d RateLimitDriver) PluginTypeID() string { return "basic" }

// Init implements the arcanum.RateLimitDriver interface.
func (d RateLimitDriver) Init() error {
	for action, envVars := range envVars {
		rate, err := parseRateLimit(envVars.RateLimit)
		if err != nil {
			return err
		}
		if rate != nil {
			burst, err := parseBurst(envVars.Burst)
			if err != nil {
				return err
			}
			d.Limits[action] = redis_rate.Limit{Rate: rate.Rate, Period: rate.Period, Burst: burst}
			logg.Debug("parsed rate quota for %s is %#v", action, d.Limits[action])
		}
	}
	return nil
}

// GetRateLimit implements the arcanum.RateLimitDriver interface.
func (d RateLimitDriver) GetRateLimit(action arcanum.RateLimitedAction) *redis_rate.Limit {
	quota, ok := d.Limits[action]
	if ok {
		return &quota
	}
	return nil
}

func parseRateLimit(envVar string) (*redis_rate.Limit, error) {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return nil, nil
	}
	match := valueRx.FindStringSubmatch(valStr)
	if match == nil {
		return nil, fmt.Errorf("malformed %s: %q", envVar, valStr)
	}
	count, err := strconv.ParseUint(match[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("malformed %s: %s", envVar, err.Error())
	}
	rate := limitConstructors[match[2]](int(count))
	return &rate, nil
}

func parseBurst(envVar string) (int, error) {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		valStr = "5"
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("malformed %s: %s", envVar, err.Error())
	}
	return val, nil
}
