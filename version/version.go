package version

// Version is the Major.Minor.Patch tag injected at build time via
// -ldflags; "dev" when built without one.
var Version string = "dev"
