/*
Package config resolves process configuration once at startup and assembles
the store for the selected environment.

The environment comes from a single variable, PICLOUD_ENV: "production"
selects the production configuration, anything else selects development.
Both configurations share one construction signature and differ only in the
middleware they attach.
*/
package config
