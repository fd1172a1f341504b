package meta

// VersionSHA is a build-time injected variable describing the Git commit SHA at which agentrix was
// built. It is used as a general purpose, global version identifier, and as the release reported
// alongside errors.
var VersionSHA string

// Version returns VersionSHA, or "dev" for builds without an injected SHA.
func Version() string {
	if VersionSHA == "" {
		return "dev"
	}

	return VersionSHA
}
