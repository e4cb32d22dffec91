package zpt

// Version is the library version. Release builds set it with
// -ldflags "-X github.com/aretw0/zpt.Version=...".
var Version = "0.1.0-dev"
