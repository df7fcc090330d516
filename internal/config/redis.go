package config

// This file defines the Redis client constructor for the application.  Redis
// backs the session store (the source of truth for token validity), the
// salon directory cache and the credential-endpoint rate limiter.  Because
// sessions live there, a Redis that cannot be reached at startup is fatal.

import (
    "context"
    "crypto/tls"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/sethvargo/go-retry"
)

// RedisOptionsFromEnv builds client options from environment variables.
// Supported variables are:
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (REDIS_HOST/REDIS_PORT win when both are set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func RedisOptionsFromEnv() *redis.Options {
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    }
}

// NewRedisClient connects with the given options and pings the server,
// retrying a few times with exponential backoff.  On failure the client is
// closed and the last ping error returned.
func NewRedisClient(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
    client := redis.NewClient(opts)
    b := retry.WithMaxRetries(4, retry.NewExponential(250*time.Millisecond))
    err := retry.Do(ctx, b, func(ctx context.Context) error {
        pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
        defer cancel()
        if err := client.Ping(pingCtx).Err(); err != nil {
            return retry.RetryableError(err)
        }
        return nil
    })
    if err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
    }
    return client, nil
}
