package picloud

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/picloud/picloud.Version=...".
var Version = "0.1.0-dev"
