// Package config loads careauthd settings from a YAML file and CAREAUTH_*
// environment variables with viper, and maps them onto the engine, server
// and logger configurations.
//
// Environment variables use the key path upper-cased with dots replaced by
// underscores: auth.jwt_secret is CAREAUTH_AUTH_JWT_SECRET.
package config
