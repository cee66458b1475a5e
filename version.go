package scribe

// Version is overridden at build time via -ldflags "-X github.com/aretw0/scribe.Version=...".
var Version = "dev"
