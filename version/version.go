package version

// VERSION is the current version of the gateway.
const VERSION = "0.2.0"
