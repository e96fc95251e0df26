// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package apicmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/easypg"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/httpapi/pprofapi"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/sapcc/go-bits/osext"
	"github.com/spf13/cobra"

	secretsapi "github.com/sapcc/arcanum/internal/api/secrets"
	sessionapi "github.com/sapcc/arcanum/internal/api/session"
	"github.com/sapcc/arcanum/internal/arcanum"
	"github.com/sapcc/arcanum/internal/auth"
)

// AddCommandTo mounts this command into the command hierarchy.
func AddCommandTo(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Run the arcanum-api server component.",
		Long:  "Run the arcanum-api server component. Configuration is read from environment variables.",
		Args:  cobra.NoArgs,
		Run:   run,
	}
	parent.AddCommand(cmd)
}

func run(cmd *cobra.Command, _ []string) {
	bininfo.SetTaskName("api")

	cfg := arcanum.ParseConfiguration()
	ctx := httpext.ContextWithSIGINT(cmd.Context(), 10*time.Second)
	auditor := must.Return(arcanum.InitAuditTrail(ctx))

	dbURL, dbName := arcanum.GetDatabaseURLFromEnvironment()
	dbConn := must.Return(easypg.Connect(dbURL, arcanum.DBConfiguration()))
	prometheus.MustRegister(sqlstats.NewStatsCollector(dbName, dbConn))
	db := arcanum.InitORM(dbConn)

	rc := must.Return(initRedis())
	ad := must.Return(arcanum.NewAuthDriver(ctx, osext.GetenvOrDefault("ARCANUM_DRIVER_AUTH", "builtin"), cfg, db, rc))
	md := must.Return(arcanum.NewMembershipDriver(ctx, osext.GetenvOrDefault("ARCANUM_DRIVER_MEMBERSHIP", "postgres"), db))
	sd := must.Return(arcanum.NewSecretStoreDriver(ctx, osext.GetenvOrDefault("ARCANUM_DRIVER_STORE", "postgres"), db))
	sessd := must.Return(arcanum.NewSessionDriver(ctx, osext.GetenvOrDefault("ARCANUM_DRIVER_SESSION", "builtin"), cfg, db))

	rle := (*arcanum.RateLimitEngine)(nil)
	if rc != nil {
		rld := must.Return(arcanum.NewRateLimitDriver(osext.GetenvOrDefault("ARCANUM_DRIVER_RATELIMIT", "basic")))
		rle = &arcanum.RateLimitEngine{Driver: rld, Client: rc}
	}

	drivers := auth.Drivers{Auth: ad, Membership: md, Store: sd}

	// wire up HTTP handlers
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"HEAD", "GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Content-Type", "User-Agent", "Authorization", "X-API-Key", "X-Service-Token"},
	})
	handler := httpapi.Compose(
		secretsapi.NewAPI(drivers, auditor),
		sessionapi.NewAPI(ad, sessd, rle),
		httpapi.HealthCheckAPI{
			SkipRequestLog: true,
			Check: func() error {
				return db.Db.PingContext(ctx)
			},
		},
		httpapi.WithGlobalMiddleware(corsMiddleware.Handler),
		pprofapi.API{IsAuthorized: pprofapi.IsRequestFromLocalhost},
	)
	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	// start HTTP server
	apiListenAddress := osext.GetenvOrDefault("ARCANUM_API_LISTEN_ADDRESS", ":8080")
	must.Succeed(httpext.ListenAndServeContext(ctx, apiListenAddress, mux))
}

// Note that, since Redis is optional, this may return (nil, nil).
func initRedis() (*redis.Client, error) {
	if !osext.GetenvBool("ARCANUM_REDIS_ENABLE") {
		return nil, nil
	}
	logg.Debug("initializing Redis connection...")

	opts, err := arcanum.GetRedisOptions("ARCANUM_REDIS")
	if err != nil {
		return nil, fmt.Errorf("cannot parse Redis URL: %s", err.Error())
	}
	return redis.NewClient(opts), nil
}
