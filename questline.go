package questline

// Version is the release version. Builds override it with
// -ldflags "-X github.com/aretw0/questline.Version=<tag>".
var Version = "0.1.0"
