package version

// GitVersion is stamped by the build via
// -ldflags "-X github.com/francesco-di-maggio/codecell/pkg/version.GitVersion=$(git describe --tags --always)"
var GitVersion = "v0.0.0-dev"
